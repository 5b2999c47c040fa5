package payment

import (
	"context"
	"errors"
)

var ErrGatewayRejected = errors.New("payment: gateway rejected intent")

// IntentRef is the remote intent/order created by the gateway.
type IntentRef struct {
	ID          string
	AmountMinor int64
	Currency    string
}

// Gateway is the abstract capability set required from a payment gateway.
// Any vendor that can create an amount-scoped intent and sign webhook
// bodies can be substituted without touching the reconciliation state
// machine.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (IntentRef, error)

	// VerifySignature checks the webhook signature over the exact raw
	// request bytes using a constant-time comparison.
	VerifySignature(rawBody []byte, signature string) bool

	// ClientKey is the publishable key the client needs to open the
	// gateway UI. Never the shared secret.
	ClientKey() string
}
