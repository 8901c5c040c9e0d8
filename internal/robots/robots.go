// Package robots fetches, parses, and enforces robots.txt for the fetcher.
// Parsed files are cached per (origin, user agent) for fifteen minutes; a
// missing or failing robots.txt permits everything. Crawl delays are enforced
// with a per-(origin, agent) monotonic clock.
package robots

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webfetchd/internal/cache"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

const (
	cacheTTL      = 15 * time.Minute
	cacheCapacity = 256
	fetchTimeout  = 5 * time.Second
	maxRobotsSize = 512 * 1024
)

// Decision is the outcome of a robots check.
type Decision struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// Policy checks URLs against robots.txt. Safe for concurrent use.
type Policy struct {
	client *http.Client
	cache  *cache.Cache[string, *rules]
	logger *zap.Logger

	mu          sync.Mutex
	nextAllowed map[string]time.Time

	// now and sleep are stubbed in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a policy using the given HTTP client for robots.txt fetches.
// A nil client uses a default with a five second timeout.
func New(client *http.Client, logger *zap.Logger) *Policy {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{
		client:      client,
		cache:       cache.New[string, *rules](cacheCapacity, cacheTTL),
		logger:      logger,
		nextAllowed: make(map[string]time.Time),
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Check reports whether rawURL may be fetched by userAgent, along with any
// crawl delay the origin requests. Network failures and non-200 responses
// permit everything.
func (p *Policy) Check(ctx context.Context, rawURL, userAgent string) (Decision, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Decision{}, werrors.Newf(werrors.CodeInvalidURL, "cannot parse %q", rawURL)
	}
	origin := u.Scheme + "://" + u.Host

	r := p.load(ctx, origin, userAgent)
	if r == nil {
		return Decision{Allowed: true}, nil
	}
	g := r.selectGroup(userAgent)
	if g == nil {
		return Decision{Allowed: true}, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	d := Decision{Allowed: g.allowed(path)}
	if g.hasDelay {
		d.CrawlDelay = time.Duration(g.crawlDelay * float64(time.Second))
	}
	return d, nil
}

// load returns the parsed robots.txt for origin, fetching on cache miss.
// Returns nil when robots.txt is unavailable (permit all).
func (p *Policy) load(ctx context.Context, origin, userAgent string) *rules {
	key := origin + "|" + normalizeAgent(userAgent)
	if r, ok := p.cache.Get(key); ok {
		return r
	}

	r := p.fetch(ctx, origin, userAgent)
	// Cache the permit-all outcome too, so a down origin is not re-polled
	// on every request.
	if r == nil {
		r = &rules{}
	}
	p.cache.Set(key, r)
	return r
}

func (p *Policy) fetch(ctx context.Context, origin, userAgent string) *rules {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("robots.txt fetch failed, permitting all",
			zap.String("origin", origin), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil
	}
	return parse(string(body))
}

// ApplyCrawlDelay blocks until at least delay has passed since the previous
// request to (origin, userAgent). Concurrent callers are not serialized; they
// observe the same earliest-next timestamp.
func (p *Policy) ApplyCrawlDelay(ctx context.Context, origin string, delay time.Duration, userAgent string) error {
	if delay <= 0 {
		return nil
	}
	key := origin + "|" + normalizeAgent(userAgent)

	p.mu.Lock()
	now := p.now()
	next := p.nextAllowed[key]
	wait := next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	p.nextAllowed[key] = now.Add(wait + delay)
	p.mu.Unlock()

	if wait == 0 {
		return nil
	}
	return p.sleep(ctx, wait)
}
