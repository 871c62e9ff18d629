package pass

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Catalog is an append-only map from pass name to Pass. It is safe for
// concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	passes map[string]Pass
	order  []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{passes: make(map[string]Pass)}
}

// Register adds p under p.Name().
func (c *Catalog) Register(p Pass) error {
	name := p.Name()
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("register pass: empty name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.passes[name]; ok {
		return &DuplicatePassError{Name: name}
	}
	c.passes[name] = p
	c.order = append(c.order, name)
	return nil
}

// MustRegister is Register that panics on error. For static bring-up only.
func (c *Catalog) MustRegister(passes ...Pass) {
	for _, p := range passes {
		if err := c.Register(p); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the pass registered under name. The error wraps
// ErrUnknownPass when there is none.
func (c *Catalog) Lookup(name string) (Pass, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.passes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPass, name)
	}
	return p, nil
}

// Has reports whether name is registered.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.passes[name]
	return ok
}

// Names returns every registered name in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// WithPrefix returns the sorted names starting with prefix.
func (c *Catalog) WithPrefix(prefix string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for _, name := range c.order {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Len returns the number of registered passes.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
