package models

// Diagnosis is the structured output of the abandonment diagnoser.
type Diagnosis struct {
	RootCause RootCause `json:"root_cause"`
	Signals   []string  `json:"signals"`
	Evidence  Evidence  `json:"evidence"`
}

// Evidence carries the measurements that justified a diagnosis. Exactly one
// per-cause block is populated, matching the root cause; the counters and the
// resolved session id are filled for every diagnosis. Attributes is an open
// bag for fields future rules may attach without a schema change.
type Evidence struct {
	Payment     *PaymentEvidence     `json:"payment,omitempty"`
	Performance *PerformanceEvidence `json:"performance,omitempty"`
	Shipping    *ShippingEvidence    `json:"shipping,omitempty"`
	Friction    *FrictionEvidence    `json:"friction,omitempty"`

	CheckoutEventsCount int    `json:"checkout_events_count"`
	PaymentLogsCount    int    `json:"payment_logs_count"`
	SessionID           string `json:"session_id,omitempty"`

	Attributes map[string]any `json:"attributes,omitempty"`
}

// PaymentEvidence backs a payment_failure diagnosis.
type PaymentEvidence struct {
	FailureCode    string `json:"failure_code,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
	Retryable      *bool  `json:"retryable,omitempty"`
}

// PerformanceEvidence backs a performance_latency diagnosis.
type PerformanceEvidence struct {
	P95LatencyMS int     `json:"p95_latency_ms"`
	Apdex        float64 `json:"apdex"`
	ErrorRate    float64 `json:"error_rate"`
}

// ShippingEvidence backs a pricing_shipping diagnosis.
type ShippingEvidence struct {
	ShippingCost float64 `json:"shipping_cost"`
	Total        float64 `json:"total"`
}

// FrictionEvidence backs a checkout_friction diagnosis. Steps holds up to
// the first ten step values observed, most recent first.
type FrictionEvidence struct {
	Steps []string `json:"steps"`
}

// RecoveryAction is the intervention chosen by the policy decider.
type RecoveryAction struct {
	Type            ActionType     `json:"type"`
	Channel         Channel        `json:"channel"`
	Template        string         `json:"template"`
	DiscountPercent float64        `json:"discount_percent"`
	FreeShipping    bool           `json:"free_shipping"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// ActionOutcomeStats summarizes recovery history for one action type within
// a similarity band. SuccessRate is recovered/total, 0 when total is 0.
type ActionOutcomeStats struct {
	ActionType          ActionType `json:"action_type"`
	Total               int        `json:"total"`
	Recovered           int        `json:"recovered"`
	SuccessRate         float64    `json:"success_rate"`
	AvgRevenueRecovered float64    `json:"avg_revenue_recovered"`
}
