package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/minimart/storefront/internal/domain/order"
)

type OrderRepository struct {
	gate   *sync.RWMutex
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		gate:   &sync.RWMutex{},
		orders: make(map[string]*domain.Order),
	}
}

// enter acquires the store gate for a call arriving outside a
// transaction; calls inside WithinTx already hold it exclusively.
func (r *OrderRepository) enter(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	r.gate.RLock()
	return r.gate.RUnlock
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	defer r.enter(ctx)()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return domain.ErrConflict
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	defer r.enter(ctx)()

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) Items(ctx context.Context, orderID string) ([]domain.Item, error) {
	defer r.enter(ctx)()

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]domain.Item(nil), o.Items...), nil
}

func (r *OrderRepository) StampPaid(ctx context.Context, orderID string, at time.Time) (bool, error) {
	defer r.enter(ctx)()

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.PaidAt != nil {
		return false, nil
	}
	t := at
	o.PaidAt = &t
	return true, nil
}

func (r *OrderRepository) snapshot() map[string]*domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	copied := make(map[string]*domain.Order, len(r.orders))
	for id, o := range r.orders {
		copied[id] = o.Clone()
	}
	return copied
}

func (r *OrderRepository) restore(orders map[string]*domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = orders
}
