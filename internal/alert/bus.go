package alert

import (
	"context"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Bus is an in-memory fanout from the reconciliation path to alert sinks.
// It is not durable; the log sink is the baseline delivery channel, and
// anything heavier (pager, ticket) registers as an additional sink.
type Bus struct {
	mu        sync.RWMutex
	sinks     []Sink
	queue     chan Event
	closed    bool
	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	log       *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.L()
	}
	return &Bus{
		queue: make(chan Event, 256),
		done:  make(chan struct{}),
		log:   logger.With(zap.String("component", "alert_bus")),
	}
}

func (b *Bus) Register(s Sink) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		go b.dispatchLoop(bg)
		b.log.Info("alert_bus_started")
	})
}

func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()
		select {
		case <-b.done:
		case <-ctx.Done():
		}
		if b.cancel != nil {
			b.cancel()
		}
		b.log.Info("alert_bus_stopped")
	})
}

// Publish enqueues without blocking: the webhook path must never stall on
// a slow sink. A full queue drops the event after logging it, so the
// information is not lost entirely. The read lock keeps the send from
// racing Stop's close of the queue, which matters for requests that
// outlive the shutdown deadline.
func (b *Bus) Publish(_ context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.log.Warn("alert_dropped_bus_stopped",
			zap.String("kind", string(e.Kind)),
			zap.String("order_id", e.OrderID),
			zap.String("detail", e.Detail),
		)
		return
	}
	select {
	case b.queue <- e:
	default:
		b.log.Warn("alert_dropped_queue_full",
			zap.String("kind", string(e.Kind)),
			zap.String("order_id", e.OrderID),
			zap.String("detail", e.Detail),
		)
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for e := range b.queue {
		b.fanout(ctx, e)
	}
}

func (b *Bus) fanout(ctx context.Context, e Event) {
	b.mu.RLock()
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, s := range sinks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("alert_sink_panic",
						zap.String("kind", string(e.Kind)),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
				}
			}()
			s.Deliver(ctx, e)
		}()
	}
}
