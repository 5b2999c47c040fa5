package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/minimart/storefront/internal/alert"
	appcheckout "github.com/minimart/storefront/internal/application/checkout"
	apppayment "github.com/minimart/storefront/internal/application/payment"
	appreconcile "github.com/minimart/storefront/internal/application/reconcile"
	"github.com/minimart/storefront/internal/config"
	domaincatalog "github.com/minimart/storefront/internal/domain/catalog"
	domainorder "github.com/minimart/storefront/internal/domain/order"
	domainpayment "github.com/minimart/storefront/internal/domain/payment"
	"github.com/minimart/storefront/internal/infrastructure/gateway/razorpay"
	"github.com/minimart/storefront/internal/infrastructure/id"
	"github.com/minimart/storefront/internal/infrastructure/memory"
	"github.com/minimart/storefront/internal/infrastructure/postgres"
	"github.com/minimart/storefront/internal/metrics"
	httppresentation "github.com/minimart/storefront/internal/presentation/http"
	"github.com/minimart/storefront/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	met := metrics.New(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		orders   domainorder.Repository
		payments domainpayment.Repository
		products domaincatalog.Repository
		tx       appcheckout.TxRunner
	)
	if cfg.DatabaseURL != "" {
		store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			baseLogger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			baseLogger.Fatal("schema_bootstrap_failed", zap.Error(err))
		}
		orders = store.Orders()
		payments = store.Payments()
		products = store.Products()
		tx = store
		baseLogger.Info("storage_ready", zap.String("backend", "postgres"))
	} else {
		store := memory.NewStore()
		store.Products.Seed(
			domaincatalog.Product{ID: "demo-tee", Name: "Demo Tee", PriceMinor: 49900, Stock: 20},
			domaincatalog.Product{ID: "demo-mug", Name: "Demo Mug", PriceMinor: 29900, Stock: 50},
		)
		orders = store.Orders
		payments = store.Payments
		products = store.Products
		tx = store
		baseLogger.Warn("storage_ready", zap.String("backend", "memory"))
	}

	gateway := razorpay.NewClient(
		cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayWebhookSecret,
		razorpay.WithBaseURL(cfg.GatewayBaseURL),
		razorpay.WithHTTPClient(&http.Client{Timeout: cfg.GatewayTimeout}),
		razorpay.WithMetrics(met),
	)

	alerts := alert.NewBus(baseLogger)
	alerts.Register(alert.NewLogSink(baseLogger))
	alerts.Start(ctx)
	defer alerts.Stop(context.Background())

	issuer := apppayment.NewIssuer(gateway, payments, cfg.Currency, cfg.GatewayTimeout)
	checkoutSvc := appcheckout.NewService(orders, products, issuer, tx, id.NewUUIDGenerator(), met)
	reconcileSvc := appreconcile.NewService(gateway, payments, orders, products, alerts, met)

	handler := httppresentation.NewHandler(checkoutSvc, reconcileSvc, payments, baseLogger, met)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	go func() {
		baseLogger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}
