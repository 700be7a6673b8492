package pipeline

import (
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

// resultCache keeps the most recent extraction results by text
// fingerprint. A nil cache is a no-op.
type resultCache struct {
	lru *lru.Cache[string, extract.Result]
}

func newResultCache(size int) *resultCache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[string, extract.Result](size)
	if err != nil {
		return nil
	}
	return &resultCache{lru: c}
}

func (c *resultCache) get(key string) (extract.Result, bool) {
	if c == nil {
		return extract.Result{}, false
	}
	res, ok := c.lru.Get(key)
	if !ok {
		return extract.Result{}, false
	}
	return clone(res), true
}

func (c *resultCache) put(key string, res extract.Result) {
	if c == nil {
		return
	}
	c.lru.Add(key, clone(res))
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// clone keeps callers from mutating cached slices.
func clone(r extract.Result) extract.Result {
	r.Records = slices.Clone(r.Records)
	r.Warnings = slices.Clone(r.Warnings)
	return r
}
