package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/minimart/storefront/internal/alert"
	"github.com/minimart/storefront/internal/domain/catalog"
	"github.com/minimart/storefront/internal/domain/order"
	"github.com/minimart/storefront/internal/domain/payment"
	"github.com/minimart/storefront/internal/metrics"
	"github.com/minimart/storefront/internal/pkg/logging"
	"go.uber.org/zap"
)

// ErrSignatureInvalid is the only error Handle returns. Every other
// problem is absorbed: the gateway retries on non-2xx, and retrying an
// already-handled or unknowable event changes nothing.
var ErrSignatureInvalid = errors.New("reconcile: invalid webhook signature")

// Service applies gateway callbacks to payment, order and stock state.
//
// The whole design hangs on one pattern: a conditional update on the
// payment status whose affected-row count decides whether this delivery
// is the first. Duplicate and concurrent deliveries of the same event
// lose that race and become no-ops, which gives exactly-once side effects
// under at-least-once delivery without any locks.
type Service struct {
	gateway  payment.Gateway
	payments payment.Repository
	orders   order.Repository
	products catalog.Repository
	alerts   alert.Publisher
	met      *metrics.Metrics
}

func NewService(gateway payment.Gateway, payments payment.Repository, orders order.Repository, products catalog.Repository, alerts alert.Publisher, met *metrics.Metrics) *Service {
	return &Service{
		gateway:  gateway,
		payments: payments,
		orders:   orders,
		products: products,
		alerts:   alerts,
		met:      met,
	}
}

// Handle processes one webhook delivery. rawBody must be the exact bytes
// the gateway sent; the signature covers them, not a reparsed form.
func (s *Service) Handle(ctx context.Context, rawBody []byte, signature string) error {
	logger := logging.FromContext(ctx).With(zap.String("component", "webhook_reconciler"))

	if !s.gateway.VerifySignature(rawBody, signature) {
		logger.Warn("webhook_signature_invalid", zap.Int("body_bytes", len(rawBody)))
		s.met.WebhookEvent("signature_invalid")
		return ErrSignatureInvalid
	}

	var evt envelope
	if err := json.Unmarshal(rawBody, &evt); err != nil {
		// Signed but unparseable. Ack it: the gateway would retry the
		// same bytes forever.
		logger.Warn("webhook_body_unparseable", zap.Error(err))
		s.met.WebhookEvent("unparseable")
		return nil
	}

	logger = logger.With(zap.String("event_type", evt.Event))

	switch evt.Event {
	case EventPaymentCaptured:
		s.handleCaptured(ctx, logger, &evt)
	case EventPaymentFailed:
		s.handleFailed(ctx, logger, &evt)
	default:
		logger.Debug("webhook_event_ignored")
		s.met.WebhookEvent("ignored")
	}
	return nil
}

func (s *Service) handleCaptured(ctx context.Context, logger *zap.Logger, evt *envelope) {
	ref := evt.reference()
	if ref == "" {
		logger.Warn("webhook_reference_missing")
		s.met.WebhookEvent("reference_missing")
		return
	}
	logger = logger.With(zap.String("gateway_reference", ref))

	orderID, applied, err := s.payments.MarkPaidIfPending(ctx, ref)
	if err != nil {
		s.internalError(ctx, logger, "", ref, "mark paid", err)
		return
	}
	if !applied {
		// Unknown reference or already processed; either way there is
		// nothing left to do.
		logger.Info("webhook_no_pending_payment")
		s.met.WebhookEvent("no_op")
		s.publishAlert(ctx, alert.Event{
			Kind:      alert.KindUnknownReference,
			Reference: ref,
			Detail:    "captured event matched no pending payment",
			At:        time.Now().UTC(),
		})
		return
	}

	logger = logger.With(zap.String("order_id", orderID))
	logger.Info("payment_marked_paid")

	if _, err := s.orders.StampPaid(ctx, orderID, time.Now().UTC()); err != nil {
		s.internalError(ctx, logger, orderID, ref, "stamp paid_at", err)
		// Keep going: the payment transition already fired and the stock
		// decrements are independently guarded.
	}

	items, err := s.orders.Items(ctx, orderID)
	if err != nil {
		s.internalError(ctx, logger, orderID, ref, "load order items", err)
		return
	}

	for _, item := range items {
		ok, err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.internalError(ctx, logger, orderID, ref, "decrement stock", err)
			continue
		}
		if !ok {
			// Money has moved; a short line is a backorder, not a reason
			// to fail the delivery.
			logger.Warn("stock_decrement_skipped",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
			)
			s.met.StockDecrementSkipped()
			s.publishAlert(ctx, alert.Event{
				Kind:      alert.KindStockShort,
				OrderID:   orderID,
				Reference: ref,
				ProductID: item.ProductID,
				Detail:    "insufficient stock for paid order line",
				At:        time.Now().UTC(),
			})
		}
	}

	logger.Info("webhook_reconciled")
	s.met.WebhookEvent("applied")
}

func (s *Service) handleFailed(ctx context.Context, logger *zap.Logger, evt *envelope) {
	ref := evt.reference()
	if ref == "" {
		logger.Warn("webhook_reference_missing")
		s.met.WebhookEvent("reference_missing")
		return
	}

	orderID, applied, err := s.payments.MarkFailedIfPending(ctx, ref)
	if err != nil {
		s.internalError(ctx, logger, "", ref, "mark failed", err)
		return
	}
	if !applied {
		logger.Info("webhook_no_pending_payment", zap.String("gateway_reference", ref))
		s.met.WebhookEvent("no_op")
		return
	}

	logger.Info("payment_marked_failed",
		zap.String("gateway_reference", ref),
		zap.String("order_id", orderID),
	)
	s.met.WebhookEvent("failed_applied")
}

func (s *Service) internalError(ctx context.Context, logger *zap.Logger, orderID, ref, op string, err error) {
	logger.Error("webhook_internal_error", zap.String("op", op), zap.Error(err))
	s.met.WebhookEvent("internal_error")
	s.publishAlert(ctx, alert.Event{
		Kind:      alert.KindReconcileError,
		OrderID:   orderID,
		Reference: ref,
		Detail:    op + ": " + err.Error(),
		At:        time.Now().UTC(),
	})
}

func (s *Service) publishAlert(ctx context.Context, e alert.Event) {
	if s.alerts == nil {
		return
	}
	s.alerts.Publish(ctx, e)
}
