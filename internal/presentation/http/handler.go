// Package httppresentation exposes the checkout and webhook endpoints.
package httppresentation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/minimart/storefront/internal/application/checkout"
	"github.com/minimart/storefront/internal/application/reconcile"
	"github.com/minimart/storefront/internal/domain/order"
	domainpayment "github.com/minimart/storefront/internal/domain/payment"
	"github.com/minimart/storefront/internal/metrics"
	"github.com/minimart/storefront/internal/pkg/logging"
	"go.uber.org/zap"
)

const (
	headerBuyerID   = "X-Buyer-ID"
	headerSignature = "X-Razorpay-Signature"

	// Webhook bodies are small event envelopes; anything larger is junk.
	maxWebhookBody = 1 << 20
)

type Handler struct {
	checkoutSvc  *checkout.Service
	reconcileSvc *reconcile.Service
	payments     domainpayment.Repository
	log          *zap.Logger
	met          *metrics.Metrics
}

func NewHandler(checkoutSvc *checkout.Service, reconcileSvc *reconcile.Service, payments domainpayment.Repository, logger *zap.Logger, met *metrics.Metrics) *Handler {
	if logger == nil {
		logger = zap.L()
	}
	return &Handler{
		checkoutSvc:  checkoutSvc,
		reconcileSvc: reconcileSvc,
		payments:     payments,
		log:          logger.With(zap.String("component", "http_server")),
		met:          met,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(h.withTrace)
	r.Use(h.withRequestLogger)
	r.Use(h.withHTTPMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/order", h.handlePlaceOrder)
		r.Get("/order/{id}", h.handleGetOrder)
		r.Post("/payment/webhook", h.handleWebhook)
	})
	r.Get("/health", h.handleHealth)

	return r
}

type shippingRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Pincode  string `json:"pincode"`
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	Shipping shippingRequest   `json:"shipping"`
	Items    []cartItemRequest `json:"items"`
}

type gatewayHandoffResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Key      string `json:"key"`
}

type placeOrderResponse struct {
	OrderID  string                 `json:"order_id"`
	Total    int64                  `json:"total_price"`
	Razorpay gatewayHandoffResponse `json:"razorpay"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	buyerID := r.Header.Get(headerBuyerID)

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := make([]checkout.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, checkout.CartItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	result, err := h.checkoutSvc.PlaceOrder(r.Context(), checkout.PlaceOrderInput{
		BuyerID: buyerID,
		Shipping: order.Shipping{
			FullName: req.Shipping.FullName,
			Phone:    req.Shipping.Phone,
			Address:  req.Shipping.Address,
			City:     req.Shipping.City,
			State:    req.Shipping.State,
			Country:  req.Shipping.Country,
			Pincode:  req.Shipping.Pincode,
		},
		Items: items,
	})
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		OrderID: result.OrderID,
		Total:   result.TotalMinor,
		Razorpay: gatewayHandoffResponse{
			OrderID:  result.Handoff.IntentID,
			Amount:   result.Handoff.AmountMinor,
			Currency: result.Handoff.Currency,
			Key:      result.Handoff.ClientKey,
		},
	})
}

type orderStatusResponse struct {
	OrderID       string     `json:"order_id"`
	Total         int64      `json:"total_price"`
	PlacedAt      time.Time  `json:"placed_at"`
	PaidAt        *time.Time `json:"paid_at"`
	PaymentStatus string     `json:"payment_status"`
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o, err := h.checkoutSvc.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeCheckoutError(w, err)
		return
	}

	// A missing payment row shows as Pending: the client just sees
	// "processing" until the webhook lands.
	status := string(domainpayment.StatusPending)
	if p, err := h.payments.GetByOrderID(r.Context(), id); err == nil {
		status = string(p.Status)
	}

	writeJSON(w, http.StatusOK, orderStatusResponse{
		OrderID:       o.ID,
		Total:         o.TotalMinor,
		PlacedAt:      o.PlacedAt,
		PaidAt:        o.PaidAt,
		PaymentStatus: status,
	})
}

// handleWebhook verifies and applies a gateway callback. The signature is
// computed over the exact raw bytes, so the body is read once and passed
// through untouched. Every outcome other than a signature mismatch is a
// 200: a non-2xx only provokes gateway retries that cannot change an
// already-handled result.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("webhook_handler_panic", zap.Any("panic", rec))
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		// An oversized body would truncate, fail verification and draw
		// endless gateway retries as a 400. Detect it, log it, ack it.
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("webhook_body_too_large", zap.Int64("limit_bytes", tooLarge.Limit))
		} else {
			logger.Error("webhook_body_read_failed", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	err = h.reconcileSvc.Handle(r.Context(), rawBody, r.Header.Get(headerSignature))
	if errors.Is(err, reconcile.ErrSignatureInvalid) {
		writeError(w, http.StatusBadRequest, errors.New("invalid signature"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrInvalidInput),
		errors.Is(err, checkout.ErrProductUnavailable):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, checkout.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, errors.New("payment gateway unavailable, please retry"))
	default:
		// Opaque failures stay opaque to the client.
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
