package checkout

import "errors"

var (
	// ErrInvalidInput covers missing or malformed client input; the caller
	// can correct and retry.
	ErrInvalidInput = errors.New("checkout: invalid input")
	// ErrProductUnavailable means a cart line references a product that
	// does not exist. Stock sufficiency is deliberately not checked here.
	ErrProductUnavailable = errors.New("checkout: product unavailable")
	// ErrGatewayUnavailable means intent issuance failed or timed out; the
	// whole placement was rolled back and the client may retry.
	ErrGatewayUnavailable = errors.New("checkout: payment gateway unavailable")
)
