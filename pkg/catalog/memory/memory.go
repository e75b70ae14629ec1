// Package memory implements an in-memory catalog repository.
package memory

import (
	"context"
	"sync"

	"cartflow/pkg/catalog"
)

// Repository provides an in-memory implementation of catalog.Repository.
type Repository struct {
	mu       sync.RWMutex
	products map[int64]catalog.Product
	stock    map[int64]int
	order    []int64
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		products: make(map[int64]catalog.Product),
		stock:    make(map[int64]int),
	}
}

// Add stores a product and its available stock.
func (r *Repository) Add(p catalog.Product, stock int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.products[p.ID] = p
	r.stock[p.ID] = stock
}

// Product retrieves product metadata by ID.
func (r *Repository) Product(ctx context.Context, productID int64) (catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[productID]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

// Stock retrieves the available quantity for a product.
func (r *Repository) Stock(ctx context.Context, productID int64) (catalog.Stock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	amount, ok := r.stock[productID]
	if !ok {
		return catalog.Stock{}, catalog.ErrNotFound
	}
	return catalog.Stock{ID: productID, Amount: amount}, nil
}

// Products returns all products in insertion order.
func (r *Repository) Products(ctx context.Context) ([]catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]catalog.Product, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.products[id])
	}
	return out, nil
}

// SetStock sets the available quantity for an existing product.
func (r *Repository) SetStock(ctx context.Context, productID int64, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[productID]; !ok {
		return catalog.ErrNotFound
	}
	r.stock[productID] = amount
	return nil
}
