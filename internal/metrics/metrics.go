// Package metrics registers the Prometheus instruments for the order
// placement and reconciliation pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "storefront"

// Metrics groups the vectors so they are instantiated once at startup and
// injected, never created inside handlers. All methods are nil-safe so
// tests can pass a nil *Metrics.
type Metrics struct {
	checkoutRequests *prometheus.CounterVec
	checkoutDuration *prometheus.HistogramVec
	webhookEvents    *prometheus.CounterVec
	stockSkips       prometheus.Counter
	gatewayRequests  *prometheus.CounterVec
	gatewayDuration  *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the vectors with the given registerer (the default
// registry in main, a throwaway one in tests).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkoutRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkout_requests_total",
				Help:      "Checkout invocations by outcome.",
			},
			[]string{"outcome"},
		),
		checkoutDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "checkout_duration_seconds",
				Help:      "Checkout latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Gateway webhook deliveries by outcome.",
			},
			[]string{"outcome"},
		),
		stockSkips: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_decrement_skipped_total",
				Help:      "Paid order lines skipped because stock was insufficient.",
			},
		),
		gatewayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_requests_total",
				Help:      "Outbound payment gateway calls by outcome.",
			},
			[]string{"outcome"},
		),
		gatewayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_request_duration_seconds",
				Help:      "Outbound payment gateway call latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.checkoutRequests,
		m.checkoutDuration,
		m.webhookEvents,
		m.stockSkips,
		m.gatewayRequests,
		m.gatewayDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) CheckoutObserved(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.checkoutRequests.WithLabelValues(outcome).Inc()
	m.checkoutDuration.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) WebhookEvent(outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StockDecrementSkipped() {
	if m == nil {
		return
	}
	m.stockSkips.Inc()
}

func (m *Metrics) GatewayObserved(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(outcome).Inc()
	m.gatewayDuration.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) HTTPObserved(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
