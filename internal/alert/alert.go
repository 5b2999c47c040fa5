// Package alert carries reconciliation problems to operators out-of-band.
// The webhook endpoint always acknowledges the gateway, so anything that
// goes wrong behind that acknowledgment must surface here instead of in
// the HTTP response.
package alert

import (
	"context"
	"time"
)

type Kind string

const (
	// KindStockShort fires when a paid order's line could not be
	// decremented without going negative. Money has already moved; this
	// is a backorder to fulfil manually.
	KindStockShort Kind = "stock_short"
	// KindUnknownReference fires for verified events whose gateway
	// reference matches no pending payment.
	KindUnknownReference Kind = "unknown_reference"
	// KindReconcileError covers internal failures swallowed behind the
	// always-200 webhook contract.
	KindReconcileError Kind = "reconcile_error"
)

type Event struct {
	Kind      Kind
	OrderID   string
	Reference string
	ProductID string
	Detail    string
	At        time.Time
}

// Sink receives alert events. Deliveries must not block indefinitely.
type Sink interface {
	Deliver(ctx context.Context, e Event)
}

// Publisher is the side services depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}
