package payment

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("payment: not found")
)

type Status string

const (
	StatusPending Status = "Pending"
	StatusPaid    Status = "Paid"
	StatusFailed  Status = "Failed"
)

// TypeOnline is the only payment type currently issued.
const TypeOnline = "Online"

// Payment ties an order to its gateway intent. Exactly one payment exists
// per order; its status leaves Pending at most once.
type Payment struct {
	OrderID   string
	Type      string
	Status    Status
	IntentID  string
	CreatedAt time.Time
}

func NewPending(orderID, intentID string) *Payment {
	return &Payment{
		OrderID:   orderID,
		Type:      TypeOnline,
		Status:    StatusPending,
		IntentID:  intentID,
		CreatedAt: time.Now().UTC(),
	}
}
