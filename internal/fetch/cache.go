package fetch

import (
	"time"

	"github.com/fyrsmithlabs/webfetchd/internal/cache"
)

const cacheCapacity = 128

// resultCache memoizes fetch results. Values are deep-copied on both store
// and load so callers can never mutate a shared body.
type resultCache struct {
	c *cache.Cache[string, *Result]
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{c: cache.New[string, *Result](cacheCapacity, ttl)}
}

func (rc *resultCache) get(rawURL string, opts Options) (*Result, bool) {
	res, ok := rc.c.Get(cacheKey(rawURL, opts))
	if !ok {
		return nil, false
	}
	return res.clone(), true
}

func (rc *resultCache) put(rawURL string, opts Options, res *Result) {
	rc.c.Set(cacheKey(rawURL, opts), res.clone())
}
