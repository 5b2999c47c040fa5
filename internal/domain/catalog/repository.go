package catalog

import "context"

type Repository interface {
	Get(ctx context.Context, productID string) (*Product, error)

	// DecrementStock applies "stock = stock - qty WHERE stock >= qty" and
	// reports whether the decrement took effect. Insufficient stock is not
	// an error: after payment it is a backorder condition, not a protocol
	// failure, and the stock counter must never go negative.
	DecrementStock(ctx context.Context, productID string, qty int) (bool, error)
}
