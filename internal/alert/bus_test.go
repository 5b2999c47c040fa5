package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Deliver(_ context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type panickingSink struct{}

func (panickingSink) Deliver(context.Context, Event) { panic("sink blew up") }

func TestBusDeliversToAllSinks(t *testing.T) {
	bus := NewBus(zap.NewNop())
	first := &recordingSink{}
	second := &recordingSink{}
	bus.Register(first)
	bus.Register(second)

	ctx := context.Background()
	bus.Start(ctx)

	bus.Publish(ctx, Event{Kind: KindStockShort, OrderID: "order-1", ProductID: "prod-a"})
	bus.Publish(ctx, Event{Kind: KindUnknownReference, Reference: "order_rzp_x"})

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	bus.Stop(stopCtx)

	require.Len(t, first.snapshot(), 2)
	require.Len(t, second.snapshot(), 2)
	assert.Equal(t, KindStockShort, first.snapshot()[0].Kind)
	assert.Equal(t, "order-1", first.snapshot()[0].OrderID)
}

func TestBusSurvivesPanickingSink(t *testing.T) {
	bus := NewBus(zap.NewNop())
	healthy := &recordingSink{}
	bus.Register(panickingSink{})
	bus.Register(healthy)

	ctx := context.Background()
	bus.Start(ctx)
	bus.Publish(ctx, Event{Kind: KindReconcileError, Detail: "boom"})

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	bus.Stop(stopCtx)

	require.Len(t, healthy.snapshot(), 1)
	assert.Equal(t, KindReconcileError, healthy.snapshot()[0].Kind)
}

// A webhook handler can outlive the shutdown deadline and publish after
// the bus has stopped; that must drop the event, not panic.
func TestBusPublishAfterStop(t *testing.T) {
	bus := NewBus(zap.NewNop())
	sink := &recordingSink{}
	bus.Register(sink)

	ctx := context.Background()
	bus.Start(ctx)
	bus.Stop(ctx)

	assert.NotPanics(t, func() {
		bus.Publish(ctx, Event{Kind: KindStockShort, OrderID: "order-1"})
	})
	assert.Empty(t, sink.snapshot())
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus(zap.NewNop())
	// Not started: nothing drains the queue, so overfilling it must drop
	// instead of blocking the caller.
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			bus.Publish(ctx, Event{Kind: KindStockShort})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}
