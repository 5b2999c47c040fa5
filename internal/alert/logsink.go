package alert

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes alerts to the structured log, with enough context
// (gateway reference, order, product) for manual reconciliation.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.L()
	}
	return &LogSink{log: logger.With(zap.String("component", "alert"))}
}

func (s *LogSink) Deliver(_ context.Context, e Event) {
	fields := []zap.Field{
		zap.String("kind", string(e.Kind)),
		zap.String("order_id", e.OrderID),
		zap.String("gateway_reference", e.Reference),
		zap.String("detail", e.Detail),
		zap.Time("at", e.At),
	}
	if e.ProductID != "" {
		fields = append(fields, zap.String("product_id", e.ProductID))
	}

	switch e.Kind {
	case KindUnknownReference:
		s.log.Warn("reconcile_alert", fields...)
	default:
		s.log.Error("reconcile_alert", fields...)
	}
}
