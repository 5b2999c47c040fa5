package httppresentation

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minimart/storefront/internal/application/checkout"
	apppayment "github.com/minimart/storefront/internal/application/payment"
	"github.com/minimart/storefront/internal/application/reconcile"
	"github.com/minimart/storefront/internal/domain/catalog"
	"github.com/minimart/storefront/internal/infrastructure/gateway/razorpay"
	"github.com/minimart/storefront/internal/infrastructure/id"
	"github.com/minimart/storefront/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_handler"

// newTestServer wires the full stack against an in-memory store and a
// stubbed Razorpay Orders API.
func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	store.Products.Seed(
		catalog.Product{ID: "prod-a", Name: "Masala Chai", PriceMinor: 500, Stock: 10},
		catalog.Product{ID: "prod-b", Name: "Filter Coffee", PriceMinor: 1250, Stock: 4},
	)

	var intentSeq int
	gatewayAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		intentSeq++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"order_rzp_%d","amount":%d,"currency":%q}`, intentSeq, req.Amount, req.Currency)
	}))
	t.Cleanup(gatewayAPI.Close)

	gw := razorpay.NewClient("rzp_test_key", "secret", testWebhookSecret, razorpay.WithBaseURL(gatewayAPI.URL))

	issuer := apppayment.NewIssuer(gw, store.Payments, "INR", 5*time.Second)
	checkoutSvc := checkout.NewService(store.Orders, store.Products, issuer, store, id.UUIDGenerator{}, nil)
	reconcileSvc := reconcile.NewService(gw, store.Payments, store.Orders, store.Products, nil, nil)

	h := NewHandler(checkoutSvc, reconcileSvc, store.Payments, zap.NewNop(), nil)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv, store
}

func placeOrderBody() []byte {
	return []byte(`{
		"shipping": {
			"full_name": "Asha Rao",
			"phone": "9876543210",
			"address": "12 MG Road",
			"city": "Bengaluru",
			"state": "Karnataka",
			"country": "India",
			"pincode": "560001"
		},
		"items": [
			{"product_id": "prod-a", "quantity": 2},
			{"product_id": "prod-b", "quantity": 1}
		]
	}`)
}

func placeOrder(t *testing.T, srv *httptest.Server) placeOrderResponse {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/order", bytes.NewReader(placeOrderBody()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerBuyerID, "buyer-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out placeOrderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, srv *httptest.Server, body []byte, signature string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/payment/webhook", bytes.NewReader(body))
	require.NoError(t, err)
	if signature != "" {
		req.Header.Set(headerSignature, signature)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestPlaceOrderEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	out := placeOrder(t, srv)
	assert.NotEmpty(t, out.OrderID)
	assert.Equal(t, int64(2250), out.Total)
	assert.Equal(t, "order_rzp_1", out.Razorpay.OrderID)
	assert.Equal(t, int64(2250), out.Razorpay.Amount)
	assert.Equal(t, "INR", out.Razorpay.Currency)
	assert.Equal(t, "rzp_test_key", out.Razorpay.Key)
}

func TestPlaceOrderEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := map[string]string{
		"empty cart":      `{"shipping":{"full_name":"Asha Rao","phone":"9876543210","address":"12 MG Road","city":"Bengaluru","state":"Karnataka","country":"India","pincode":"560001"},"items":[]}`,
		"unknown product": `{"shipping":{"full_name":"Asha Rao","phone":"9876543210","address":"12 MG Road","city":"Bengaluru","state":"Karnataka","country":"India","pincode":"560001"},"items":[{"product_id":"prod-zzz","quantity":1}]}`,
		"missing state":   `{"shipping":{"full_name":"Asha Rao","phone":"9876543210","address":"12 MG Road","city":"Bengaluru","country":"India","pincode":"560001"},"items":[{"product_id":"prod-a","quantity":1}]}`,
		"malformed json":  `{"shipping":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/order", bytes.NewReader([]byte(body)))
			require.NoError(t, err)
			req.Header.Set(headerBuyerID, "buyer-1")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetOrderEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	placed := placeOrder(t, srv)

	resp, err := http.Get(srv.URL + "/api/v1/order/" + placed.OrderID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out orderStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, placed.OrderID, out.OrderID)
	assert.Equal(t, int64(2250), out.Total)
	assert.Equal(t, "Pending", out.PaymentStatus)
	assert.Nil(t, out.PaidAt)
}

func TestGetOrderEndpointNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/order/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhookDrivesOrderToPaid(t *testing.T) {
	srv, store := newTestServer(t)
	placed := placeOrder(t, srv)

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":%q}}}}`,
		placed.Razorpay.OrderID))

	resp := postWebhook(t, srv, body, signBody(body))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	statusResp, err := http.Get(srv.URL + "/api/v1/order/" + placed.OrderID)
	require.NoError(t, err)
	defer statusResp.Body.Close()

	var out orderStatusResponse
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&out))
	assert.Equal(t, "Paid", out.PaymentStatus)
	require.NotNil(t, out.PaidAt)

	prod, err := store.Products.Get(context.Background(), "prod-a")
	require.NoError(t, err)
	assert.Equal(t, 8, prod.Stock)
}

func TestWebhookBadSignature(t *testing.T) {
	srv, _ := newTestServer(t)
	placed := placeOrder(t, srv)

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":%q}}}}`,
		placed.Razorpay.OrderID))

	resp := postWebhook(t, srv, body, "deadbeef")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	missing := postWebhook(t, srv, body, "")
	defer missing.Body.Close()
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestWebhookUnknownReferenceStill200(t *testing.T) {
	srv, _ := newTestServer(t)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_rzp_unknown"}}}}`)
	resp := postWebhook(t, srv, body, signBody(body))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookRedelivery(t *testing.T) {
	srv, store := newTestServer(t)
	placed := placeOrder(t, srv)

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":%q}}}}`,
		placed.Razorpay.OrderID))

	for i := 0; i < 3; i++ {
		resp := postWebhook(t, srv, body, signBody(body))
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	prod, err := store.Products.Get(context.Background(), "prod-a")
	require.NoError(t, err)
	assert.Equal(t, 8, prod.Stock, "redeliveries must not decrement twice")
}

// An oversized webhook body can never verify, so a 400 would only
// provoke endless gateway retries. It is acked instead.
func TestWebhookOversizedBodyAcked(t *testing.T) {
	srv, _ := newTestServer(t)

	body := bytes.Repeat([]byte("x"), maxWebhookBody+1)
	resp := postWebhook(t, srv, body, signBody(body))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
