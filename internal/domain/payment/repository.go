package payment

import "context"

// Repository persists payments keyed uniquely by order id.
//
// The Mark* methods are the concurrency gate for the whole paid-side
// effect chain: they perform a single conditional update ("... WHERE
// status = Pending") and report whether a row actually changed. Under
// at-least-once webhook delivery only the caller that observes
// applied=true runs the downstream effects.
type Repository interface {
	// Upsert inserts the payment, or when one already exists for the
	// order refreshes its intent id and resets it to Pending. This keeps
	// checkout retries after a failed gateway call from creating
	// duplicate rows.
	Upsert(ctx context.Context, p *Payment) error

	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)

	// MarkPaidIfPending transitions the payment identified by the gateway
	// intent reference from Pending to Paid. Returns the owning order id
	// and whether the transition fired.
	MarkPaidIfPending(ctx context.Context, intentID string) (orderID string, applied bool, err error)

	// MarkFailedIfPending is the failure edge of the same state machine.
	MarkFailedIfPending(ctx context.Context, intentID string) (orderID string, applied bool, err error)
}
