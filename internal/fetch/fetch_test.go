package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/webfetchd/internal/ratelimit"
	"github.com/fyrsmithlabs/webfetchd/internal/robots"
	"github.com/fyrsmithlabs/webfetchd/internal/ssrf"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// newTestFetcher builds a fetcher that can reach loopback test servers.
func newTestFetcher(cacheTTL time.Duration) *Fetcher {
	guard := ssrf.New(nil)
	guard.BlockPrivate = false
	return New(guard, ratelimit.New(1000), robots.New(nil, nil), cacheTTL, nil)
}

func testOpts() Options {
	return Options{UserAgent: "testbot/1.0"}
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "testbot/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Custom", "value")
		_, _ = w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	res, err := newTestFetcher(0).Fetch(context.Background(), srv.URL+"/page", testOpts())
	require.NoError(t, err)

	assert.Equal(t, 200, res.Status)
	assert.Equal(t, "text/html", res.ContentType, "parameters stripped")
	assert.Equal(t, srv.URL+"/page", res.FinalURL)
	assert.Equal(t, "value", res.Headers["x-custom"], "headers lowercased")
	assert.Contains(t, string(res.Body), "hi")
}

func TestFetchInvalidProtocol(t *testing.T) {
	f := newTestFetcher(0)
	for _, u := range []string{"ftp://example.com/file", "file:///etc/passwd", "not-a-url"} {
		_, err := f.Fetch(context.Background(), u, testOpts())
		require.Error(t, err, u)
		assert.Equal(t, werrors.CodeInvalidProtocol, werrors.CodeOf(err))
	}
}

func TestFetchSSRFBlockedBeforeConnect(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	guard := ssrf.New(nil) // loopback blocking enabled
	f := New(guard, ratelimit.New(1000), robots.New(nil, nil), 0, nil)

	_, err := f.Fetch(context.Background(), srv.URL, testOpts())
	require.Error(t, err)
	assert.Equal(t, werrors.CodeSSRFBlocked, werrors.CodeOf(err))
	assert.Equal(t, int32(0), hits.Load(), "no request may reach the server")
}

func TestFetchRedirects(t *testing.T) {
	t.Run("chain followed", func(t *testing.T) {
		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()
		mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/b", http.StatusFound)
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("landed"))
		})

		res, err := newTestFetcher(0).Fetch(context.Background(), srv.URL+"/a", testOpts())
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/b", res.FinalURL)
		assert.Equal(t, "landed", string(res.Body))
	})

	t.Run("budget exceeded", func(t *testing.T) {
		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()
		mux.HandleFunc("/redirect/", func(w http.ResponseWriter, r *http.Request) {
			n := strings.TrimPrefix(r.URL.Path, "/redirect/")
			switch n {
			case "0":
				_, _ = w.Write([]byte("done"))
			case "1":
				http.Redirect(w, r, "/redirect/0", http.StatusFound)
			case "2":
				http.Redirect(w, r, "/redirect/1", http.StatusFound)
			case "3":
				http.Redirect(w, r, "/redirect/2", http.StatusFound)
			case "4":
				http.Redirect(w, r, "/redirect/3", http.StatusFound)
			default:
				http.Redirect(w, r, "/redirect/4", http.StatusFound)
			}
		})

		opts := testOpts()
		opts.MaxRedirects = 2
		_, err := newTestFetcher(0).Fetch(context.Background(), srv.URL+"/redirect/5", opts)
		require.Error(t, err)
		assert.Equal(t, werrors.CodeTooManyRedirects, werrors.CodeOf(err))
	})

	t.Run("loop detected", func(t *testing.T) {
		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()
		mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/b", http.StatusFound)
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/a", http.StatusFound)
		})

		opts := testOpts()
		opts.MaxRedirects = 10
		_, err := newTestFetcher(0).Fetch(context.Background(), srv.URL+"/a", opts)
		require.Error(t, err)
		assert.Equal(t, werrors.CodeRedirectLoop, werrors.CodeOf(err))
	})
}

func TestFetchHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/busy":
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(0)

	_, err := f.Fetch(context.Background(), srv.URL+"/missing", testOpts())
	require.Error(t, err)
	assert.Equal(t, "HTTP_404", werrors.CodeOf(err))
	assert.False(t, werrors.IsRetryable(err))

	_, err = f.Fetch(context.Background(), srv.URL+"/busy", testOpts())
	require.Error(t, err)
	assert.Equal(t, "HTTP_429", werrors.CodeOf(err))
	assert.True(t, werrors.IsRetryable(err))

	_, err = newTestFetcher(0).Fetch(context.Background(), srv.URL+"/down", testOpts())
	require.Error(t, err)
	assert.Equal(t, "HTTP_503", werrors.CodeOf(err))
	assert.True(t, werrors.IsRetryable(err))
}

func TestFetchByteBudget(t *testing.T) {
	body := []byte("exactly-ten")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	t.Run("at the budget succeeds", func(t *testing.T) {
		opts := testOpts()
		opts.MaxBytes = int64(len(body))
		res, err := newTestFetcher(0).Fetch(context.Background(), srv.URL, opts)
		require.NoError(t, err)
		assert.Equal(t, body, res.Body)
	})

	t.Run("one byte over fails", func(t *testing.T) {
		opts := testOpts()
		opts.MaxBytes = int64(len(body)) - 1
		_, err := newTestFetcher(0).Fetch(context.Background(), srv.URL, opts)
		require.Error(t, err)
		assert.Equal(t, werrors.CodeContentTooLarge, werrors.CodeOf(err))
		assert.ErrorContains(t, err, "exceeds")
	})
}

func TestFetchCompressed(t *testing.T) {
	payload := []byte(strings.Repeat("compress me well ", 64))

	t.Run("gzip decoded transparently", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write(gzipBytes(t, payload))
		}))
		defer srv.Close()

		res, err := newTestFetcher(0).Fetch(context.Background(), srv.URL, testOpts())
		require.NoError(t, err)
		assert.Equal(t, payload, res.Body)
		_, present := res.Headers["content-encoding"]
		assert.False(t, present, "stale encoding header dropped after decoding")
	})

	t.Run("oversized compressed stream fails without decoding", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(gzipBytes(t, payload))
		}))
		defer srv.Close()

		opts := testOpts()
		opts.MaxBytes = 5
		_, err := newTestFetcher(0).Fetch(context.Background(), srv.URL, opts)
		require.Error(t, err)
		assert.Equal(t, werrors.CodeContentTooLarge, werrors.CodeOf(err))
	})
}

func TestFetchRobots(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	f := newTestFetcher(0)
	opts := testOpts()
	opts.RespectRobots = true

	_, err := f.Fetch(context.Background(), srv.URL+"/private/page", opts)
	require.Error(t, err)
	assert.Equal(t, werrors.CodeRobotsBlocked, werrors.CodeOf(err))

	res, err := f.Fetch(context.Background(), srv.URL+"/public", opts)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(res.Body))
}

func TestFetchCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("cached body"))
	}))
	defer srv.Close()

	f := newTestFetcher(time.Minute)
	ctx := context.Background()

	res1, err := f.Fetch(ctx, srv.URL+"/page", testOpts())
	require.NoError(t, err)
	res2, err := f.Fetch(ctx, srv.URL+"/page", testOpts())
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load(), "second fetch served from cache")
	assert.Equal(t, res1.Body, res2.Body)

	// Cached results are deep copies: mutating one must not leak.
	res1.Body[0] = 'X'
	res3, err := f.Fetch(ctx, srv.URL+"/page", testOpts())
	require.NoError(t, err)
	assert.Equal(t, "cached body", string(res3.Body))

	// A different option set is a different cache entry.
	opts := testOpts()
	opts.MaxBytes = 1024
	_, err = f.Fetch(ctx, srv.URL+"/page", opts)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchWithRetry(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	res, err := newTestFetcher(0).FetchWithRetry(context.Background(), srv.URL, testOpts())
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(res.Body))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestFetchWithRetryPermanentError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher(0).FetchWithRetry(context.Background(), srv.URL, testOpts())
	require.Error(t, err)
	assert.Equal(t, "HTTP_404", werrors.CodeOf(err))
	assert.Equal(t, int32(1), attempts.Load(), "non-retryable errors must not be retried")
}
