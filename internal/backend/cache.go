package backend

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached shadows repeated identical queries to another Backend. A Cached
// belongs to a single generation run; failed queries are not cached.
type Cached struct {
	next  Backend
	cache *lru.Cache[string, []string]
}

func NewCached(next Backend, size int) (*Cached, error) {
	cache, err := lru.New[string, []string](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Whatis(ctx context.Context, name string) (string, error) {
	key := whatisCommand(name)
	if v, ok := c.cache.Get(key); ok {
		return v[0], nil
	}
	v, err := c.next.Whatis(ctx, name)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, []string{v})
	return v, nil
}

func (c *Cached) Ptype(ctx context.Context, name string) ([]string, error) {
	key := ptypeCommand(name)
	if v, ok := c.cache.Get(key); ok {
		return append([]string(nil), v...), nil
	}
	lines, err := c.next.Ptype(ctx, name)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]string(nil), lines...))
	return lines, nil
}

// Len reports the number of cached answers.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// LoadModules forwards to the wrapped backend and drops every cached answer,
// since new debug information can change them.
func (c *Cached) LoadModules(ctx context.Context, names []string) error {
	ml, ok := c.next.(ModuleLoader)
	if !ok {
		return ErrModulesUnsupported
	}
	defer c.cache.Purge()
	return ml.LoadModules(ctx, names)
}

func (c *Cached) RemoveModules(ctx context.Context, names []string) error {
	ml, ok := c.next.(ModuleLoader)
	if !ok {
		return ErrModulesUnsupported
	}
	defer c.cache.Purge()
	return ml.RemoveModules(ctx, names)
}
