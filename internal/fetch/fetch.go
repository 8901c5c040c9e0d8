// Package fetch implements the guarded HTTP fetcher: protocol and SSRF
// checks, robots enforcement, per-host rate limiting, manual redirect
// handling with loop detection, bounded body reads, and content decoding.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webfetchd/internal/ratelimit"
	"github.com/fyrsmithlabs/webfetchd/internal/robots"
	"github.com/fyrsmithlabs/webfetchd/internal/ssrf"
	"github.com/fyrsmithlabs/webfetchd/internal/urlutil"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

const (
	defaultMaxBytes     = 10 * 1024 * 1024
	defaultMaxRedirects = 5
	defaultTimeout      = 30 * time.Second
	defaultAccept       = "text/html,application/xhtml+xml,application/xml;q=0.9,text/markdown;q=0.9,application/pdf;q=0.8,*/*;q=0.7"
	defaultAcceptLang   = "en-US,en;q=0.9"

	readChunkSize = 64 * 1024
)

// Options configures a single fetch.
type Options struct {
	// UserAgent sent with every hop. Required.
	UserAgent string

	// Headers are additional request headers. Accept, Accept-Language, and
	// Accept-Encoding defaults apply when absent.
	Headers map[string]string

	// MaxBytes bounds the decoded body size. Default 10 MiB.
	MaxBytes int64

	// MaxRedirects bounds the redirect chain. The initial URL is hop zero.
	MaxRedirects int

	// Timeout covers the whole fetch including redirects. Default 30s.
	Timeout time.Duration

	// RespectRobots enables robots.txt enforcement.
	RespectRobots bool

	// MaxRateWait bounds how long the fetch blocks on rate-limit admission.
	MaxRateWait time.Duration
}

func (o *Options) applyDefaults() {
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	if o.MaxRedirects < 0 {
		o.MaxRedirects = defaultMaxRedirects
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRateWait <= 0 {
		o.MaxRateWait = 10 * time.Second
	}
}

// Result is the outcome of a successful fetch.
type Result struct {
	Status      int
	Headers     map[string]string
	Body        []byte
	FinalURL    string
	ContentType string
}

// clone deep-copies a result, bytes included, for cache reuse.
func (r *Result) clone() *Result {
	out := *r
	out.Body = append([]byte(nil), r.Body...)
	out.Headers = make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		out.Headers[k] = v
	}
	return &out
}

// Fetcher performs guarded HTTP GETs. Safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	guard   *ssrf.Guard
	limiter *ratelimit.Limiter
	robots  *robots.Policy
	cache   *resultCache
	logger  *zap.Logger
}

// New creates a fetcher. The guard, limiter, and robots policy are required;
// cacheTTL <= 0 disables the fetch cache.
func New(guard *ssrf.Guard, limiter *ratelimit.Limiter, policy *robots.Policy, cacheTTL time.Duration, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		client: &http.Client{
			// Redirects are handled manually so that every hop passes the
			// SSRF and robots checks.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		guard:   guard,
		limiter: limiter,
		robots:  policy,
		logger:  logger,
	}
	if cacheTTL > 0 {
		f.cache = newResultCache(cacheTTL)
	}
	return f
}

// Fetch performs a bounded GET with manual redirect handling.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	opts.applyDefaults()
	if opts.UserAgent == "" {
		return nil, werrors.New(werrors.CodeInvalidInput, "user agent is required")
	}

	if !urlutil.IsAllowedProtocol(rawURL) {
		return nil, werrors.Newf(werrors.CodeInvalidProtocol, "only http and https are supported: %q", rawURL)
	}

	if f.cache != nil {
		if res, ok := f.cache.get(rawURL, opts); ok {
			f.logger.Debug("fetch cache hit", zap.String("url", rawURL))
			return res, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	res, err := f.follow(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		f.cache.put(rawURL, opts, res)
	}
	return res, nil
}

// follow walks the redirect chain, applying policy checks at every hop.
func (f *Fetcher) follow(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	current, err := url.Parse(rawURL)
	if err != nil {
		return nil, werrors.Wrap(werrors.CodeInvalidURL, err)
	}

	visited := map[string]struct{}{current.String(): {}}

	for hop := 0; ; hop++ {
		if err := f.admit(ctx, current, opts); err != nil {
			return nil, err
		}

		resp, err := f.do(ctx, current, opts)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			next, err := f.redirectTarget(resp, current)
			drain(resp)
			if err != nil {
				return nil, err
			}
			if _, seen := visited[next.String()]; seen {
				return nil, werrors.Newf(werrors.CodeRedirectLoop, "redirect loop via %s", next)
			}
			if hop+1 > opts.MaxRedirects {
				return nil, werrors.Newf(werrors.CodeTooManyRedirects, "more than %d redirects", opts.MaxRedirects)
			}
			visited[next.String()] = struct{}{}
			current = next
			continue
		}

		if resp.StatusCode >= 400 {
			drain(resp)
			if resp.StatusCode == http.StatusTooManyRequests {
				f.limiter.RecordError(current.Hostname(), parseRetryAfter(resp.Header.Get("Retry-After")))
			} else if resp.StatusCode >= 500 {
				f.limiter.RecordError(current.Hostname(), 0)
			}
			return nil, werrors.HTTPError(resp.StatusCode, current.String())
		}

		return f.readBody(resp, current, opts)
	}
}

// admit runs the SSRF, robots, and rate-limit gates for one hop.
func (f *Fetcher) admit(ctx context.Context, u *url.URL, opts Options) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return werrors.Newf(werrors.CodeInvalidRedirect, "redirect to unsupported scheme %q", u.Scheme)
	}
	if err := f.guard.CheckURL(ctx, u); err != nil {
		return err
	}
	if opts.RespectRobots {
		d, err := f.robots.Check(ctx, u.String(), opts.UserAgent)
		if err != nil {
			return err
		}
		if !d.Allowed {
			return werrors.Newf(werrors.CodeRobotsBlocked, "robots.txt disallows %s for %s", u.Path, opts.UserAgent)
		}
		if d.CrawlDelay > 0 {
			origin := u.Scheme + "://" + u.Host
			if err := f.robots.ApplyCrawlDelay(ctx, origin, d.CrawlDelay, opts.UserAgent); err != nil {
				return werrors.Wrap(werrors.CodeFetchError, err)
			}
		}
	}
	if err := f.limiter.WaitFor(ctx, u.Hostname(), opts.MaxRateWait); err != nil {
		return err
	}
	f.limiter.RecordRequest(u.Hostname())
	return nil
}

func (f *Fetcher) do(ctx context.Context, u *url.URL, opts Options) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, werrors.Wrap(werrors.CodeInvalidURL, err)
	}
	req.Header.Set("Accept", defaultAccept)
	req.Header.Set("Accept-Language", defaultAcceptLang)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	// Decoding is handled by this package so the byte budget applies to
	// both the wire and the decoded forms.
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, werrors.Wrap(werrors.CodeFetchError, err)
	}
	return resp, nil
}

// redirectTarget resolves the Location header of a 3xx response.
func (f *Fetcher) redirectTarget(resp *http.Response, current *url.URL) (*url.URL, error) {
	loc := resp.Header.Get("Location")
	if loc == "" {
		return nil, werrors.New(werrors.CodeInvalidRedirect, "redirect without Location header")
	}
	ref, err := url.Parse(loc)
	if err != nil {
		return nil, werrors.Wrap(werrors.CodeInvalidRedirect, err)
	}
	return current.ResolveReference(ref), nil
}

// readBody streams the response body up to MaxBytes, then decodes it.
func (f *Fetcher) readBody(resp *http.Response, u *url.URL, opts Options) (*Result, error) {
	defer resp.Body.Close()

	var body []byte
	truncated := false
	buf := make([]byte, readChunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
			if int64(len(body)) > opts.MaxBytes {
				truncated = true
				body = body[:opts.MaxBytes]
				break
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, werrors.Wrap(werrors.CodeFetchError, err)
		}
	}

	// Any overflow of the byte budget is fatal. A truncated compressed
	// stream additionally cannot be decoded at all.
	encodings := parseEncodings(resp.Header.Get("Content-Encoding"))
	if truncated {
		if len(encodings) > 0 {
			return nil, werrors.Newf(werrors.CodeContentTooLarge,
				"compressed response exceeds %d bytes", opts.MaxBytes)
		}
		return nil, werrors.Newf(werrors.CodeContentTooLarge,
			"response exceeds %d bytes", opts.MaxBytes)
	}

	decoded := false
	if len(encodings) > 0 {
		var err error
		body, err = decodeBody(body, encodings, opts.MaxBytes)
		if err != nil {
			return nil, err
		}
		decoded = true
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}
	if decoded {
		// These no longer describe the body we return.
		delete(headers, "content-encoding")
		delete(headers, "content-length")
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))

	return &Result{
		Status:      resp.StatusCode,
		Headers:     headers,
		Body:        body,
		FinalURL:    u.String(),
		ContentType: contentType,
	}, nil
}

// parseRetryAfter reads a Retry-After value in seconds. HTTP-date forms are
// ignored.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
}

// cacheKey builds the fetch cache key from everything that affects the
// response shape.
func cacheKey(rawURL string, opts Options) string {
	keys := make([]string, 0, len(opts.Headers))
	for k, v := range opts.Headers {
		keys = append(keys, strings.ToLower(k)+":"+strings.ToLower(v))
	}
	sort.Strings(keys)
	return strings.Join([]string{
		urlutil.Normalize(rawURL),
		opts.UserAgent,
		strings.Join(keys, ","),
		strconv.FormatInt(opts.MaxBytes, 10),
		strconv.Itoa(opts.MaxRedirects),
	}, "|")
}
