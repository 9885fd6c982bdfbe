package retrieval

import (
	"encoding/hex"
	"maps"
	"slices"
	"strconv"

	"github.com/go-crypt/x/blake2b"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/metrics"
)

// DefaultCacheSize is the number of result sets kept when caching is on.
const DefaultCacheSize = 256

// cachedResults holds every ranked hit of one search, before pagination.
type cachedResults struct {
	hits  []core.ScoredResult
	total int
}

type resultCache struct {
	lru *lru.Cache[string, cachedResults]
}

func newResultCache(size int) (*resultCache, error) {
	c, err := lru.New[string, cachedResults](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{lru: c}, nil
}

// get returns a private copy of the cached hits.
func (c *resultCache) get(key string) (cachedResults, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		metrics.CacheTotal.WithLabelValues("miss").Inc()
		return cachedResults{}, false
	}
	metrics.CacheTotal.WithLabelValues("hit").Inc()
	v.hits = slices.Clone(v.hits)
	return v, true
}

// put stores a copy of v so later changes by the caller do not leak in.
func (c *resultCache) put(key string, v cachedResults) {
	v.hits = slices.Clone(v.hits)
	c.lru.Add(key, v)
}

func (c *resultCache) purge() {
	c.lru.Purge()
}

// cacheKey digests everything that determines a ranked result set.
func cacheKey(effective string, fields core.SearchFields, room, scorer string, requested core.RequestedSentiment) string {
	h, _ := blake2b.New(16, nil)
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	write(effective)
	write(fields.String())
	write(room)
	write(scorer)
	for _, label := range slices.Sorted(maps.Keys(requested)) {
		write(label)
		write(strconv.FormatFloat(requested[label], 'g', -1, 64))
	}
	return hex.EncodeToString(h.Sum(nil))
}
