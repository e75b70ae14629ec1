// Package catalog defines the product and stock contracts consumed by the
// cart store and served by stockd.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Display attributes are opaque to the cart.
type Product struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// Stock is the available quantity for a product. It is fetched per call and
// never cached.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Service is the remote contract the cart store consumes.
type Service interface {
	Stock(ctx context.Context, productID int64) (Stock, error)
	Product(ctx context.Context, productID int64) (Product, error)
}

// Repository defines behavior for serving the catalog, as stockd does.
type Repository interface {
	Service
	Products(ctx context.Context) ([]Product, error)
	SetStock(ctx context.Context, productID int64, amount int) error
}

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")
