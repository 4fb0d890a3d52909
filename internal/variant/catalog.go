package variant

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// Catalog holds the current refreshed product set. It is safe for
// concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]Product)}
}

// Replace refreshes products and swaps them in wholesale. Products that fail
// to refresh are still stored as given; the returned error lists them.
func (c *Catalog) Replace(products []Product) error {
	refreshed, err := RefreshAll(products)
	m := make(map[string]Product, len(refreshed))
	for _, p := range refreshed {
		m[p.ID] = p
	}

	c.mu.Lock()
	c.products = m
	c.mu.Unlock()
	return err
}

// Get returns a copy of the product with the given id.
func (c *Catalog) Get(id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p.Clone(), nil
}

// List returns copies of all products sorted by id.
func (c *Catalog) List() []Product {
	c.mu.RLock()
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p.Clone())
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}
