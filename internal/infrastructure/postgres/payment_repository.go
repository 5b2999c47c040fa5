package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	domain "github.com/minimart/storefront/internal/domain/payment"
)

type PaymentRepository struct {
	store *Store
}

func (r *PaymentRepository) Upsert(ctx context.Context, p *domain.Payment) error {
	q := r.store.q(ctx)

	_, err := q.Exec(ctx,
		`INSERT INTO payments (order_id, payment_type, payment_status, payment_intent_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (order_id)
		 DO UPDATE SET
		 	payment_status = $3,
		 	payment_intent_id = EXCLUDED.payment_intent_id,
		 	created_at = CURRENT_TIMESTAMP`,
		p.OrderID, p.Type, string(domain.StatusPending), p.IntentID,
	)
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	q := r.store.q(ctx)

	var p domain.Payment
	err := q.QueryRow(ctx,
		`SELECT order_id, payment_type, payment_status, payment_intent_id, created_at
		 FROM payments WHERE order_id = $1`,
		orderID,
	).Scan(&p.OrderID, &p.Type, &p.Status, &p.IntentID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}
	return &p, nil
}

func (r *PaymentRepository) MarkPaidIfPending(ctx context.Context, intentID string) (string, bool, error) {
	return r.transition(ctx, intentID, domain.StatusPaid)
}

func (r *PaymentRepository) MarkFailedIfPending(ctx context.Context, intentID string) (string, bool, error) {
	return r.transition(ctx, intentID, domain.StatusFailed)
}

// transition is the single-fire edge out of Pending: a conditional UPDATE
// that also tells us whether this caller won the race.
func (r *PaymentRepository) transition(ctx context.Context, intentID string, to domain.Status) (string, bool, error) {
	q := r.store.q(ctx)

	var orderID string
	err := q.QueryRow(ctx,
		`UPDATE payments SET payment_status = $1
		 WHERE payment_intent_id = $2 AND payment_status = $3
		 RETURNING order_id`,
		string(to), intentID, string(domain.StatusPending),
	).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unknown reference or already processed.
			return "", false, nil
		}
		return "", false, fmt.Errorf("transition payment: %w", err)
	}
	return orderID, true, nil
}
