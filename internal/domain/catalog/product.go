package catalog

import "errors"

var (
	ErrNotFound        = errors.New("catalog: product not found")
	ErrInvalidQuantity = errors.New("catalog: quantity must be greater than zero")
)

// Product is the catalog view the checkout path needs: the current price
// (minor currency units) and the stock counter owned by the inventory
// ledger.
type Product struct {
	ID         string
	Name       string
	PriceMinor int64
	Stock      int
}
