package checkout

import (
	"context"

	apppayment "github.com/minimart/storefront/internal/application/payment"
)

type IDGenerator interface {
	NewID() string
}

// TxRunner scopes a function to one storage transaction carried in the
// context. Repositories called inside fn join that transaction; an error
// from fn rolls everything back.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// IntentIssuer creates the remote payment intent and persists the Pending
// payment row for an order.
type IntentIssuer interface {
	Issue(ctx context.Context, orderID string, totalMinor int64) (*apppayment.Handoff, error)
}
