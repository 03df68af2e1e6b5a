package catalog

import "sync"

// Pool owns the catalog currently served to the game. Callers must re-read
// Current after any swap instead of caching the pointer.
type Pool struct {
	mu  sync.RWMutex
	cur *Catalog
}

// NewPool returns a Pool serving c, which may be nil until a load finishes.
func NewPool(c *Catalog) *Pool {
	return &Pool{cur: c}
}

// Current returns the catalog in use, or nil when none is loaded.
func (p *Pool) Current() *Catalog {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cur
}

// Swap installs c and returns the previous catalog.
func (p *Pool) Swap(c *Catalog) *Catalog {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.cur
	p.cur = c
	return prev
}
