package cache

import (
	"context"
	"sync"

	"github.com/example/moonbaby-storefront/internal/domain"
)

// MemoryProductCache — каталог в памяти; List отдаёт товары в порядке первого поступления.
type MemoryProductCache struct {
	mu    sync.RWMutex
	order []string
	store map[string]domain.Product
}

func NewMemoryProductCache() *MemoryProductCache {
	return &MemoryProductCache{store: make(map[string]domain.Product)}
}

func (c *MemoryProductCache) Get(id string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.store[id]
	return p, ok
}

func (c *MemoryProductCache) Set(id string, p domain.Product) {
	c.mu.Lock()
	if _, ok := c.store[id]; !ok {
		c.order = append(c.order, id)
	}
	c.store[id] = p
	c.mu.Unlock()
}

func (c *MemoryProductCache) List(_ context.Context, category string) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, 0, len(c.order))
	for _, id := range c.order {
		p := c.store[id]
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

var (
	_ domain.ProductCache   = (*MemoryProductCache)(nil)
	_ domain.ProductCatalog = (*MemoryProductCache)(nil)
)
