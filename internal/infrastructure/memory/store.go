// Package memory provides in-memory repositories with the same
// conditional-update semantics as the Postgres implementations. They back
// the test suite and dependency-free local runs.
package memory

import (
	"context"
	"sync"
)

// Store groups the repositories so a transaction can snapshot and restore
// all of them together. The shared gate keeps every repository call out
// of the window between snapshot and restore: callers outside a
// transaction hold it as readers, WithinTx holds it as the sole writer,
// so a rollback only ever undoes the transaction's own writes.
type Store struct {
	gate     *sync.RWMutex
	Orders   *OrderRepository
	Payments *PaymentRepository
	Products *ProductRepository
}

func NewStore() *Store {
	gate := &sync.RWMutex{}
	s := &Store{
		gate:     gate,
		Orders:   NewOrderRepository(),
		Payments: NewPaymentRepository(),
		Products: NewProductRepository(),
	}
	s.Orders.gate = gate
	s.Payments.gate = gate
	s.Products.gate = gate
	return s
}

type txKey struct{}

// inTx reports whether ctx was issued by an open WithinTx, whose caller
// already holds the gate exclusively.
func inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// WithinTx runs fn under a store-wide snapshot: on error the previous
// state of every repository is restored. The exclusive gate blocks
// concurrent repository calls for the duration, which is coarser than a
// real database transaction but preserves both properties checkout and
// reconciliation need, all-or-nothing placement and no loss of writes
// committed outside the transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	ctx = context.WithValue(ctx, txKey{}, struct{}{})

	orders := s.Orders.snapshot()
	payments := s.Payments.snapshot()
	products := s.Products.snapshot()

	if err := fn(ctx); err != nil {
		s.Orders.restore(orders)
		s.Payments.restore(payments)
		s.Products.restore(products)
		return err
	}
	return nil
}
