package order

import (
	"context"
	"time"
)

// Repository persists orders. Orders are never deleted; the only mutation
// after creation is the paid_at stamp applied by the reconciler.
type Repository interface {
	// Create inserts the order and all of its items as one atomic unit.
	Create(ctx context.Context, o *Order) error

	Get(ctx context.Context, id string) (*Order, error)

	Items(ctx context.Context, orderID string) ([]Item, error)

	// StampPaid sets paid_at only when it is still unset, and reports
	// whether the stamp was applied. paid_at moves null -> timestamp once
	// and is never reverted.
	StampPaid(ctx context.Context, orderID string, at time.Time) (bool, error)
}
