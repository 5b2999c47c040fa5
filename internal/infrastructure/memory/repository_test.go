package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/minimart/storefront/internal/domain/catalog"
	"github.com/minimart/storefront/internal/domain/order"
	"github.com/minimart/storefront/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(t *testing.T, id string) *order.Order {
	t.Helper()
	o, err := order.New(id, "buyer-1", order.Shipping{
		FullName: "Asha Rao", Phone: "9876543210", Address: "12 MG Road",
		City: "Bengaluru", State: "Karnataka", Country: "India", Pincode: "560001",
	}, []order.Item{
		{ProductID: "prod-a", Quantity: 1, UnitPriceMinor: 500},
	})
	require.NoError(t, err)
	return o
}

func TestOrderCreateRejectsDuplicateID(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testOrder(t, "order-1")))
	assert.ErrorIs(t, repo.Create(ctx, testOrder(t, "order-1")), order.ErrConflict)
}

func TestStampPaidFiresOnce(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testOrder(t, "order-1")))

	first := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	applied, err := repo.StampPaid(ctx, "order-1", first)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.StampPaid(ctx, "order-1", first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, applied, "paid_at is set once and never moves")

	o, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, first, *o.PaidAt)
}

func TestPaymentMarkPaidIfPendingSingleFire(t *testing.T) {
	repo := NewPaymentRepository()
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, payment.NewPending("order-1", "intent-1")))

	orderID, applied, err := repo.MarkPaidIfPending(ctx, "intent-1")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "order-1", orderID)

	_, applied, err = repo.MarkPaidIfPending(ctx, "intent-1")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestPaymentMarkPaidUnknownIntent(t *testing.T) {
	repo := NewPaymentRepository()

	orderID, applied, err := repo.MarkPaidIfPending(context.Background(), "intent-missing")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, orderID)
}

func TestPaymentMarkPaidConcurrent(t *testing.T) {
	repo := NewPaymentRepository()
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, payment.NewPending("order-1", "intent-1")))

	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, applied, err := repo.MarkPaidIfPending(ctx, "intent-1")
			assert.NoError(t, err)
			if applied {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestPaymentUpsertRefreshesIntent(t *testing.T) {
	repo := NewPaymentRepository()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, payment.NewPending("order-1", "intent-old")))
	require.NoError(t, repo.Upsert(ctx, payment.NewPending("order-1", "intent-new")))

	// The stale intent no longer resolves, so a late webhook for it acks
	// without effect.
	_, applied, err := repo.MarkPaidIfPending(ctx, "intent-old")
	require.NoError(t, err)
	assert.False(t, applied)

	orderID, applied, err := repo.MarkPaidIfPending(ctx, "intent-new")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "order-1", orderID)
}

func TestDecrementStockFloor(t *testing.T) {
	repo := NewProductRepository()
	repo.Seed(catalog.Product{ID: "prod-a", Name: "A", PriceMinor: 500, Stock: 2})
	ctx := context.Background()

	applied, err := repo.DecrementStock(ctx, "prod-a", 3)
	require.NoError(t, err)
	assert.False(t, applied)

	p, err := repo.Get(ctx, "prod-a")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock, "insufficient stock leaves the count untouched")

	applied, err = repo.DecrementStock(ctx, "prod-a", 2)
	require.NoError(t, err)
	assert.True(t, applied)

	p, err = repo.Get(ctx, "prod-a")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestDecrementStockUnknownProduct(t *testing.T) {
	repo := NewProductRepository()

	applied, err := repo.DecrementStock(context.Background(), "prod-missing", 1)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	store.Products.Seed(catalog.Product{ID: "prod-a", Name: "A", PriceMinor: 500, Stock: 5})
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		if err := store.Orders.Create(ctx, testOrder(t, "order-1")); err != nil {
			return err
		}
		if err := store.Payments.Upsert(ctx, payment.NewPending("order-1", "intent-1")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Orders.Get(ctx, "order-1")
	assert.ErrorIs(t, err, order.ErrNotFound)
	_, err = store.Payments.GetByOrderID(ctx, "order-1")
	assert.ErrorIs(t, err, payment.ErrNotFound)
}

// A rollback must only undo the transaction's own writes. A webhook
// arriving while a checkout transaction is open (say, stuck on the
// gateway) waits at the gate and lands after the rollback, so its
// payment transition, paid_at stamp and stock decrement all survive.
func TestWithinTxRollbackPreservesConcurrentWrites(t *testing.T) {
	store := NewStore()
	store.Products.Seed(catalog.Product{ID: "prod-a", Name: "A", PriceMinor: 500, Stock: 5})
	ctx := context.Background()

	require.NoError(t, store.Orders.Create(ctx, testOrder(t, "order-1")))
	require.NoError(t, store.Payments.Upsert(ctx, payment.NewPending("order-1", "intent-1")))

	boom := errors.New("boom")
	txOpen := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- store.WithinTx(ctx, func(ctx context.Context) error {
			if err := store.Orders.Create(ctx, testOrder(t, "order-2")); err != nil {
				return err
			}
			close(txOpen)
			<-release
			return boom
		})
	}()
	<-txOpen

	paidAt := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	webhookDone := make(chan struct{})
	go func() {
		defer close(webhookDone)
		_, applied, err := store.Payments.MarkPaidIfPending(ctx, "intent-1")
		assert.NoError(t, err)
		assert.True(t, applied)

		applied, err = store.Orders.StampPaid(ctx, "order-1", paidAt)
		assert.NoError(t, err)
		assert.True(t, applied)

		applied, err = store.Products.DecrementStock(ctx, "prod-a", 1)
		assert.NoError(t, err)
		assert.True(t, applied)
	}()

	// Give the webhook side a chance to reach the gate before the
	// transaction fails; correctness does not depend on it.
	time.Sleep(20 * time.Millisecond)
	close(release)
	require.ErrorIs(t, <-txDone, boom)
	<-webhookDone

	p, err := store.Payments.GetByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, p.Status)

	o, err := store.Orders.Get(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, paidAt, *o.PaidAt)

	prod, err := store.Products.Get(ctx, "prod-a")
	require.NoError(t, err)
	assert.Equal(t, 4, prod.Stock)

	// The failed transaction's own write is gone.
	_, err = store.Orders.Get(ctx, "order-2")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		return store.Orders.Create(ctx, testOrder(t, "order-1"))
	})
	require.NoError(t, err)

	o, err := store.Orders.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", o.BuyerID)
}
