package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	apppayment "github.com/minimart/storefront/internal/application/payment"
	"github.com/minimart/storefront/internal/domain/catalog"
	"github.com/minimart/storefront/internal/domain/order"
	dompayment "github.com/minimart/storefront/internal/domain/payment"
	"github.com/minimart/storefront/internal/metrics"
	"github.com/minimart/storefront/internal/pkg/logging"
	"go.uber.org/zap"
)

// CartItem is the untrusted client input: a product reference and a
// quantity. Prices are re-resolved from the catalog, never taken from the
// client.
type CartItem struct {
	ProductID string
	Quantity  int
}

type PlaceOrderInput struct {
	BuyerID  string
	Shipping order.Shipping
	Items    []CartItem
}

type PlaceOrderResult struct {
	OrderID    string
	TotalMinor int64
	Handoff    *apppayment.Handoff
}

// Service turns a cart snapshot into a durable order with a Pending
// payment and gateway handoff data.
type Service struct {
	orders   order.Repository
	products catalog.Repository
	issuer   IntentIssuer
	tx       TxRunner
	ids      IDGenerator
	met      *metrics.Metrics
}

func NewService(orders order.Repository, products catalog.Repository, issuer IntentIssuer, tx TxRunner, ids IDGenerator, met *metrics.Metrics) *Service {
	return &Service{
		orders:   orders,
		products: products,
		issuer:   issuer,
		tx:       tx,
		ids:      ids,
		met:      met,
	}
}

// PlaceOrder validates the cart, captures prices from the catalog, and
// creates the order, its items and the Pending payment in one atomic
// unit. Stock sufficiency is not checked here: stock is only enforced at
// decrement time, after the payment is captured.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "checkout_service"))
	logger.Info("place_order_start",
		zap.String("buyer_id", input.BuyerID),
		zap.Int("items", len(input.Items)),
	)

	start := time.Now()
	defer func() {
		s.met.CheckoutObserved(outcomeOf(err), time.Since(start).Seconds())
	}()

	if err := validateInput(input); err != nil {
		logger.Info("place_order_rejected", zap.Error(err))
		return nil, err
	}

	items, err := s.resolveItems(ctx, input.Items)
	if err != nil {
		logger.Info("place_order_rejected", zap.Error(err))
		return nil, err
	}

	entity, err := order.New(s.ids.NewID(), input.BuyerID, input.Shipping, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var handoff *apppayment.Handoff
	txErr := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, entity); err != nil {
			return fmt.Errorf("checkout: create order: %w", err)
		}
		h, err := s.issuer.Issue(ctx, entity.ID, entity.TotalMinor)
		if err != nil {
			return err
		}
		handoff = h
		return nil
	})
	if txErr != nil {
		logger.Error("place_order_failed",
			zap.String("order_id", entity.ID),
			zap.Error(txErr),
		)
		if isGatewayFailure(txErr) {
			return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, txErr)
		}
		return nil, txErr
	}

	logger.Info("place_order_success",
		zap.String("order_id", entity.ID),
		zap.Int64("total", entity.TotalMinor),
		zap.String("intent_id", handoff.IntentID),
	)
	return &PlaceOrderResult{
		OrderID:    entity.ID,
		TotalMinor: entity.TotalMinor,
		Handoff:    handoff,
	}, nil
}

// GetOrder returns an order with its payment-facing fields for the
// client's "processing" view.
func (s *Service) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	return s.orders.Get(ctx, id)
}

// resolveItems re-resolves every cart line against the catalog, capturing
// the current price as the order-time snapshot.
func (s *Service) resolveItems(ctx context.Context, cart []CartItem) ([]order.Item, error) {
	items := make([]order.Item, 0, len(cart))
	for _, line := range cart {
		product, err := s.products.Get(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: product %s", ErrProductUnavailable, line.ProductID)
			}
			return nil, fmt.Errorf("checkout: resolve product %s: %w", line.ProductID, err)
		}
		items = append(items, order.Item{
			ProductID:      product.ID,
			Quantity:       line.Quantity,
			UnitPriceMinor: product.PriceMinor,
		})
	}
	return items, nil
}

func validateInput(input PlaceOrderInput) error {
	if input.BuyerID == "" {
		return fmt.Errorf("%w: buyer is required", ErrInvalidInput)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	}
	for _, line := range input.Items {
		if line.ProductID == "" {
			return fmt.Errorf("%w: product id is required", ErrInvalidInput)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
		}
	}
	return validateShipping(input.Shipping)
}

func validateShipping(s order.Shipping) error {
	required := map[string]string{
		"full_name": s.FullName,
		"phone":     s.Phone,
		"address":   s.Address,
		"city":      s.City,
		"pincode":   s.Pincode,
	}
	for field, value := range required {
		if value == "" {
			return fmt.Errorf("%w: shipping %s is required", ErrInvalidInput, field)
		}
	}
	if !allowedCountries[s.Country] {
		return fmt.Errorf("%w: shipping country %q is not served", ErrInvalidInput, s.Country)
	}
	if !allowedStates[s.State] {
		return fmt.Errorf("%w: shipping state %q is not served", ErrInvalidInput, s.State)
	}
	return nil
}

func isGatewayFailure(err error) bool {
	return errors.Is(err, dompayment.ErrGatewayRejected)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, ErrGatewayUnavailable):
		return "gateway_unavailable"
	default:
		return "error"
	}
}
