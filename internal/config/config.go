// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServiceName string
	Env         string
	Addr        string

	// DatabaseURL selects the Postgres store. When empty the service falls
	// back to in-memory repositories, which is only meant for local runs.
	DatabaseURL string

	GatewayKeyID         string
	GatewayKeySecret     string
	GatewayWebhookSecret string
	GatewayBaseURL       string
	GatewayTimeout       time.Duration

	Currency string
}

// Load reads configuration from env vars, applying defaults where a value
// is optional. The gateway credentials are required: without them neither
// intent issuance nor webhook verification can work.
func Load() (Config, error) {
	cfg := Config{
		ServiceName:          getenvDefault("SERVICE_NAME", "storefront"),
		Env:                  getenvDefault("ENV", "dev"),
		Addr:                 getenvDefault("ADDR", ":8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		GatewayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		GatewayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		GatewayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		GatewayBaseURL:       getenvDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		Currency:             getenvDefault("CURRENCY", "INR"),
	}

	timeoutMS, _ := strconv.Atoi(getenvDefault("GATEWAY_TIMEOUT_MS", "5000"))
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}
	cfg.GatewayTimeout = time.Duration(timeoutMS) * time.Millisecond

	if cfg.GatewayKeyID == "" || cfg.GatewayKeySecret == "" {
		return Config{}, errors.New("config: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
	}
	if cfg.GatewayWebhookSecret == "" {
		return Config{}, errors.New("config: RAZORPAY_WEBHOOK_SECRET is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
