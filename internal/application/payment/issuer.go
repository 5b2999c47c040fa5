package payment

import (
	"context"
	"fmt"
	"time"

	domain "github.com/minimart/storefront/internal/domain/payment"
	"github.com/minimart/storefront/internal/pkg/logging"
	"go.uber.org/zap"
)

// Handoff is what the client needs to open the gateway UI. It never
// carries the gateway's shared secret.
type Handoff struct {
	IntentID    string
	AmountMinor int64
	Currency    string
	ClientKey   string
}

// Issuer creates a remote payment intent scoped to an order's total and
// records the Pending payment. Issuing again for the same order refreshes
// the existing payment instead of duplicating it, so checkout retries
// after a failed gateway call stay safe.
type Issuer struct {
	gateway  domain.Gateway
	payments domain.Repository
	currency string
	timeout  time.Duration
}

func NewIssuer(gateway domain.Gateway, payments domain.Repository, currency string, timeout time.Duration) *Issuer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Issuer{
		gateway:  gateway,
		payments: payments,
		currency: currency,
		timeout:  timeout,
	}
}

func (i *Issuer) Issue(ctx context.Context, orderID string, totalMinor int64) (*Handoff, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "payment_issuer"))
	logger.Info("issue_intent_start",
		zap.String("order_id", orderID),
		zap.Int64("amount", totalMinor),
	)

	// A gateway timeout is GatewayUnavailable, never a successful
	// issuance; the payment upsert keeps re-issuance safe afterwards.
	gctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	ref, err := i.gateway.CreateIntent(gctx, totalMinor, i.currency, orderID)
	if err != nil {
		logger.Error("issue_intent_gateway_failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", domain.ErrGatewayRejected, err)
	}

	if err := i.payments.Upsert(ctx, domain.NewPending(orderID, ref.ID)); err != nil {
		logger.Error("issue_intent_persist_failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("payment: persist pending: %w", err)
	}

	logger.Info("issue_intent_success",
		zap.String("order_id", orderID),
		zap.String("intent_id", ref.ID),
	)
	return &Handoff{
		IntentID:    ref.ID,
		AmountMinor: ref.AmountMinor,
		Currency:    ref.Currency,
		ClientKey:   i.gateway.ClientKey(),
	}, nil
}
