package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	domain "github.com/minimart/storefront/internal/domain/catalog"
)

type ProductRepository struct {
	store *Store
}

func (r *ProductRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	q := r.store.q(ctx)

	var p domain.Product
	err := q.QueryRow(ctx,
		`SELECT id, name, price, stock FROM products WHERE id = $1`,
		productID,
	).Scan(&p.ID, &p.Name, &p.PriceMinor, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
}

// DecrementStock relies entirely on the row-level guard: concurrent
// decrements for different orders never block each other, and the
// counter can never go negative.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	q := r.store.q(ctx)

	tag, err := q.Exec(ctx,
		`UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1`,
		qty, productID,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
