// Package cart implements the shopping-cart store: an ordered list of
// product entries validated against remote stock and mirrored into a
// key-value store on every mutation.
package cart

import (
	"errors"

	"cartflow/pkg/catalog"
)

// Entry is a product in the cart together with its quantity.
type Entry struct {
	catalog.Product
	Amount int `json:"amount"`
}

// User-facing messages, one per failure path.
const (
	MsgOutOfStock   = "requested quantity out of stock"
	MsgAddFailed    = "error adding product"
	MsgRemoveFailed = "error removing product"
	MsgUpdateFailed = "error updating product quantity"
)

// ErrOutOfStock indicates the requested quantity exceeds available stock.
var ErrOutOfStock = errors.New("requested quantity out of stock")

// ErrNotFound indicates the product is not in the cart.
var ErrNotFound = errors.New("product not in cart")
