package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	domain "github.com/minimart/storefront/internal/domain/order"
)

type OrderRepository struct {
	store *Store
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	q := r.store.q(ctx)

	_, err := q.Exec(ctx,
		`INSERT INTO orders (id, buyer_id, full_name, phone, address, city, state, country, pincode, total_price, placed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.BuyerID, o.Shipping.FullName, o.Shipping.Phone, o.Shipping.Address,
		o.Shipping.City, o.Shipping.State, o.Shipping.Country, o.Shipping.Pincode,
		o.TotalMinor, o.PlacedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err := q.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4)`,
			o.ID, item.ProductID, item.Quantity, item.UnitPriceMinor,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	q := r.store.q(ctx)

	var o domain.Order
	err := q.QueryRow(ctx,
		`SELECT id, buyer_id, full_name, phone, address, city, state, country, pincode, total_price, placed_at, paid_at
		 FROM orders WHERE id = $1`,
		id,
	).Scan(
		&o.ID, &o.BuyerID, &o.Shipping.FullName, &o.Shipping.Phone, &o.Shipping.Address,
		&o.Shipping.City, &o.Shipping.State, &o.Shipping.Country, &o.Shipping.Pincode,
		&o.TotalMinor, &o.PlacedAt, &o.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	items, err := r.Items(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *OrderRepository) Items(ctx context.Context, orderID string) ([]domain.Item, error) {
	q := r.store.q(ctx)

	rows, err := q.Query(ctx,
		`SELECT order_id, product_id, quantity, unit_price FROM order_items WHERE order_id = $1`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPriceMinor); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *OrderRepository) StampPaid(ctx context.Context, orderID string, at time.Time) (bool, error) {
	q := r.store.q(ctx)

	tag, err := q.Exec(ctx,
		`UPDATE orders SET paid_at = $1 WHERE id = $2 AND paid_at IS NULL`,
		at, orderID,
	)
	if err != nil {
		return false, fmt.Errorf("stamp paid_at: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
