package reconcile

// Event types the gateway delivers. Only the captured and failed types
// drive state; everything else is acknowledged and ignored.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// envelope is the gateway's webhook body: an event type and a nested
// payment entity carrying the gateway order/intent reference.
type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// reference extracts the gateway order/intent reference the payment row
// is keyed by.
func (e *envelope) reference() string {
	return e.Payload.Payment.Entity.OrderID
}
