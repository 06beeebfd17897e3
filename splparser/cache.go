package splparser

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// SubstanceCache remembers substance names by substance code (usually UNII).
// It is safe for concurrent use.
type SubstanceCache struct {
	c *cache.Cache
}

func NewSubstanceCache(ttl time.Duration) *SubstanceCache {
	if ttl < 0 {
		return &SubstanceCache{c: cache.New(cache.NoExpiration, 0)}
	}
	return &SubstanceCache{c: cache.New(ttl, 2*ttl)}
}

func (s *SubstanceCache) Remember(code, name string) {
	if code == "" || name == "" {
		return
	}
	s.c.Set(code, name, cache.DefaultExpiration)
}

func (s *SubstanceCache) Lookup(code string) (string, bool) {
	v, ok := s.c.Get(code)
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}

func (s *SubstanceCache) Len() int {
	return s.c.ItemCount()
}

func (s *SubstanceCache) Flush() {
	s.c.Flush()
}
