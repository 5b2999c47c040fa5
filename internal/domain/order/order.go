package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: already exists")
	ErrEmptyCart       = errors.New("order: at least one item is required")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrTotalMismatch   = errors.New("order: total does not match item sum")
)

// Shipping is the address snapshot captured at order time.
type Shipping struct {
	FullName string
	Phone    string
	Address  string
	City     string
	State    string
	Country  string
	Pincode  string
}

// Item is one order line. UnitPriceMinor is the catalog price captured at
// order time; later catalog price changes do not affect it.
type Item struct {
	OrderID        string
	ProductID      string
	Quantity       int
	UnitPriceMinor int64
}

type Order struct {
	ID         string
	BuyerID    string
	Shipping   Shipping
	TotalMinor int64
	Items      []Item
	PlacedAt   time.Time
	PaidAt     *time.Time
}

// New builds an order whose total is derived from its items. The caller
// supplies unit prices resolved from the catalog, never from the client.
func New(id, buyerID string, shipping Shipping, items []Item) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var total int64
	for i := range items {
		if items[i].Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		items[i].OrderID = id
		total += items[i].UnitPriceMinor * int64(items[i].Quantity)
	}

	return &Order{
		ID:         id,
		BuyerID:    buyerID,
		Shipping:   shipping,
		TotalMinor: total,
		Items:      items,
		PlacedAt:   time.Now().UTC(),
	}, nil
}

// Paid reports whether the order has been stamped by the reconciler.
func (o *Order) Paid() bool { return o.PaidAt != nil }

// ItemSum recomputes the total from the captured line prices.
func (o *Order) ItemSum() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.UnitPriceMinor * int64(it.Quantity)
	}
	return total
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		clone.PaidAt = &t
	}
	return &clone
}
