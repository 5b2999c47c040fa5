package memory

import (
	"context"
	"sync"

	domain "github.com/minimart/storefront/internal/domain/catalog"
)

type ProductRepository struct {
	gate     *sync.RWMutex
	mu       sync.Mutex
	products map[string]*domain.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		gate:     &sync.RWMutex{},
		products: make(map[string]*domain.Product),
	}
}

func (r *ProductRepository) enter(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	r.gate.RLock()
	return r.gate.RUnlock
}

// Seed loads products for local runs and tests.
func (r *ProductRepository) Seed(products ...domain.Product) {
	r.gate.RLock()
	defer r.gate.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		clone := p
		r.products[p.ID] = &clone
	}
}

func (r *ProductRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	defer r.enter(ctx)()

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	defer r.enter(ctx)()

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return false, nil
	}
	if p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (r *ProductRepository) snapshot() map[string]*domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make(map[string]*domain.Product, len(r.products))
	for id, p := range r.products {
		clone := *p
		copied[id] = &clone
	}
	return copied
}

func (r *ProductRepository) restore(products map[string]*domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = products
}
