package models

import "time"

// CartEvent is a single front-end cart interaction. Events are append-only;
// the collectors never mutate them.
type CartEvent struct {
	Timestamp  time.Time `json:"@timestamp"`
	CartID     string    `json:"cart_id"`
	CustomerID string    `json:"customer_id"`
	SessionID  string    `json:"session_id,omitempty"`
	EventType  string    `json:"event_type"`
	ProductID  string    `json:"product_id,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	UnitPrice  float64   `json:"unit_price,omitempty"`
	CartValue  float64   `json:"cart_value"`
	Currency   string    `json:"currency,omitempty"`
	DeviceType string    `json:"device_type,omitempty"`
	Page       string    `json:"page,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
}

// CheckoutEvent is one step of a checkout flow. Step values include
// "shipping" and "payment" plus step-failed variants; status "completed"
// marks a converted cart.
type CheckoutEvent struct {
	Timestamp      time.Time `json:"@timestamp"`
	CheckoutID     string    `json:"checkout_id"`
	CartID         string    `json:"cart_id"`
	CustomerID     string    `json:"customer_id"`
	SessionID      string    `json:"session_id,omitempty"`
	Step           string    `json:"step"`
	Status         string    `json:"status"`
	ShippingMethod string    `json:"shipping_method,omitempty"`
	ShippingCost   *float64  `json:"shipping_cost,omitempty"`
	Tax            *float64  `json:"tax,omitempty"`
	Total          *float64  `json:"total,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	PaymentMethod  string    `json:"payment_method,omitempty"`
}

// PaymentLog records one payment attempt against a checkout.
type PaymentLog struct {
	Timestamp        time.Time `json:"@timestamp"`
	PaymentID        string    `json:"payment_id"`
	CheckoutID       string    `json:"checkout_id"`
	CartID           string    `json:"cart_id"`
	CustomerID       string    `json:"customer_id"`
	Provider         string    `json:"provider,omitempty"`
	Status           string    `json:"status"`
	FailureCode      string    `json:"failure_code,omitempty"`
	FailureMessage   string    `json:"failure_message,omitempty"`
	Retryable        *bool     `json:"retryable,omitempty"`
	GatewayLatencyMS int       `json:"gateway_latency_ms,omitempty"`
	Attempt          int       `json:"attempt,omitempty"`
}

// PaymentStatusFailed is the payment log status the diagnoser keys on.
const PaymentStatusFailed = "failed"

// SessionMetrics is a telemetry sample for one browsing session.
type SessionMetrics struct {
	Timestamp    time.Time `json:"@timestamp"`
	SessionID    string    `json:"session_id"`
	CustomerID   string    `json:"customer_id,omitempty"`
	Route        string    `json:"route,omitempty"`
	DeviceType   string    `json:"device_type,omitempty"`
	P95LatencyMS *int      `json:"p95_latency_ms,omitempty"`
	ErrorRate    *float64  `json:"error_rate,omitempty"`
	Apdex        *float64  `json:"apdex,omitempty"`
}

// CustomerProfile is the externally maintained customer record. Missing
// fields are filled with defaults by the profile reader, not here.
type CustomerProfile struct {
	CustomerID       string     `json:"customer_id"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	PushToken        string     `json:"push_token,omitempty"`
	Segment          string     `json:"segment,omitempty"`
	LifetimeValue    float64    `json:"lifetime_value,omitempty"`
	PreferredChannel Channel    `json:"preferred_channel,omitempty"`
	FraudRisk        FraudRisk  `json:"fraud_risk,omitempty"`
	Locale           string     `json:"locale,omitempty"`
	Timezone         string     `json:"timezone,omitempty"`
	LastPurchaseAt   *time.Time `json:"last_purchase_at,omitempty"`
}

// CartCandidate is an abandoned-cart candidate produced by the detector.
// It lives only for the duration of an orchestration pass.
type CartCandidate struct {
	CartID     string    `json:"cart_id"`
	CustomerID string    `json:"customer_id"`
	SessionID  string    `json:"session_id,omitempty"`
	LastSeen   time.Time `json:"last_seen"`
	CartValue  float64   `json:"cart_value"`
	Currency   string    `json:"currency"`
	DeviceType string    `json:"device_type,omitempty"`
}
