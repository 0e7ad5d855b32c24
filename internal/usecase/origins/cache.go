package origins

import (
	"sync"

	"github.com/andrsolo/Request-Relay/internal/entity"
)

// cache is the read-mostly domain index consulted on every capture and
// dispatch. It is replaced wholesale on refresh, so lookups between two
// refreshes see one consistent snapshot.
type cache struct {
	mu       sync.RWMutex
	byDomain map[string]entity.Origin
}

func newCache() *cache {
	return &cache{byDomain: make(map[string]entity.Origin)}
}

func (c *cache) refresh(origins []*entity.Origin) {
	m := make(map[string]entity.Origin, len(origins))
	for _, origin := range origins {
		m[origin.Domain] = *origin
	}

	c.mu.Lock()
	c.byDomain = m
	c.mu.Unlock()
}

func (c *cache) get(domain string) (*entity.Origin, bool) {
	c.mu.RLock()
	origin, ok := c.byDomain[domain]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	return &origin, true
}
