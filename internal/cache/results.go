package cache

import (
	"sync"

	"github.com/mechcore/firecontrol/pkg/core"
)

// ResultCache tracks the declarations a client sent and the results the
// server returned for them, keyed by declaration id.
type ResultCache struct {
	mu      sync.RWMutex
	pending map[string]core.Declaration
	results map[string]core.AttackResult
}

// NewResultCache creates a new ResultCache
func NewResultCache() *ResultCache {
	return &ResultCache{
		pending: make(map[string]core.Declaration),
		results: make(map[string]core.AttackResult),
	}
}

// Declare records an accepted declaration awaiting resolution.
func (c *ResultCache) Declare(d core.Declaration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[d.ID] = d
}

// Resolve stores a result and clears the matching pending declaration.
// It reports whether the declaration was one of ours.
func (c *ResultCache) Resolve(r core.AttackResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ours := c.pending[r.DeclarationID]
	delete(c.pending, r.DeclarationID)
	c.results[r.DeclarationID] = r
	return ours
}

// Result retrieves a result by declaration id
func (c *ResultCache) Result(id string) (core.AttackResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[id]
	return r, ok
}

// Pending returns the number of declarations without a result.
func (c *ResultCache) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}

// Reset clears everything
func (c *ResultCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[string]core.Declaration)
	c.results = make(map[string]core.AttackResult)
}
