package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/minimart/storefront/internal/domain/payment"
)

type PaymentRepository struct {
	gate     *sync.RWMutex
	mu       sync.Mutex
	byOrder  map[string]*domain.Payment
	byIntent map[string]string // intent id -> order id
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		gate:     &sync.RWMutex{},
		byOrder:  make(map[string]*domain.Payment),
		byIntent: make(map[string]string),
	}
}

func (r *PaymentRepository) enter(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	r.gate.RLock()
	return r.gate.RUnlock
}

func (r *PaymentRepository) Upsert(ctx context.Context, p *domain.Payment) error {
	if p == nil || p.OrderID == "" {
		return fmt.Errorf("payment repository: order id is required")
	}
	defer r.enter(ctx)()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byOrder[p.OrderID]; ok {
		delete(r.byIntent, existing.IntentID)
		existing.IntentID = p.IntentID
		existing.Status = domain.StatusPending
		existing.CreatedAt = time.Now().UTC()
		r.byIntent[p.IntentID] = p.OrderID
		return nil
	}

	clone := *p
	r.byOrder[p.OrderID] = &clone
	r.byIntent[p.IntentID] = p.OrderID
	return nil
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	defer r.enter(ctx)()

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *PaymentRepository) MarkPaidIfPending(ctx context.Context, intentID string) (string, bool, error) {
	return r.transition(ctx, intentID, domain.StatusPaid)
}

func (r *PaymentRepository) MarkFailedIfPending(ctx context.Context, intentID string) (string, bool, error) {
	return r.transition(ctx, intentID, domain.StatusFailed)
}

func (r *PaymentRepository) transition(ctx context.Context, intentID string, to domain.Status) (string, bool, error) {
	defer r.enter(ctx)()

	r.mu.Lock()
	defer r.mu.Unlock()

	orderID, ok := r.byIntent[intentID]
	if !ok {
		return "", false, nil
	}
	p := r.byOrder[orderID]
	if p.Status != domain.StatusPending {
		return "", false, nil
	}
	p.Status = to
	return orderID, true, nil
}

type paymentSnapshot struct {
	byOrder  map[string]*domain.Payment
	byIntent map[string]string
}

func (r *PaymentRepository) snapshot() paymentSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := paymentSnapshot{
		byOrder:  make(map[string]*domain.Payment, len(r.byOrder)),
		byIntent: make(map[string]string, len(r.byIntent)),
	}
	for id, p := range r.byOrder {
		clone := *p
		snap.byOrder[id] = &clone
	}
	for k, v := range r.byIntent {
		snap.byIntent[k] = v
	}
	return snap
}

func (r *PaymentRepository) restore(snap paymentSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byOrder = snap.byOrder
	r.byIntent = snap.byIntent
}
