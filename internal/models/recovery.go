package models

import "time"

// RecoveryRecord is the persisted form of one recovery attempt. The document
// id in the store equals RecoveryID. Records are written once with a pending
// outcome; this service never updates them.
type RecoveryRecord struct {
	Timestamp  time.Time        `json:"@timestamp"`
	RecoveryID string           `json:"recovery_id"`
	CartID     string           `json:"cart_id"`
	CustomerID string           `json:"customer_id"`
	Segment    string           `json:"segment"`
	CartValue  float64          `json:"cart_value"`
	Currency   string           `json:"currency"`
	Diagnosis  RecordDiagnosis  `json:"diagnosis"`
	Action     RecordAction     `json:"action"`
	SentAt     time.Time        `json:"sent_at"`
	Outcome    RecoveryOutcome  `json:"outcome"`
}

// RecordDiagnosis is the diagnosis subset kept in recovery history. The full
// evidence block stays out of the history index; similarity lookups only
// need the root cause and signal tags.
type RecordDiagnosis struct {
	RootCause RootCause `json:"root_cause"`
	Signals   []string  `json:"signals"`
}

// RecordAction is the action subset kept in recovery history.
type RecordAction struct {
	Type            ActionType `json:"type"`
	Channel         Channel    `json:"channel"`
	DiscountPercent float64    `json:"discount_percent"`
	FreeShipping    bool       `json:"free_shipping"`
	Template        string     `json:"template"`
}

// RecoveryOutcome is filled in asynchronously by the external reconciler.
type RecoveryOutcome struct {
	Status           OutcomeStatus `json:"status"`
	OrderID          string        `json:"order_id,omitempty"`
	RevenueRecovered float64       `json:"revenue_recovered,omitempty"`
	OutcomeAt        *time.Time    `json:"outcome_at,omitempty"`
}
