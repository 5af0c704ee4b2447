package models

// RootCause is the primary diagnosed reason a cart was abandoned. Its textual
// form is the interchange form stored in recovery history documents.
type RootCause string

const (
	RootCausePaymentFailure     RootCause = "payment_failure"
	RootCausePerformanceLatency RootCause = "performance_latency"
	RootCauseCheckoutFriction   RootCause = "checkout_friction"
	RootCausePricingShipping    RootCause = "pricing_shipping"
	RootCauseUnknown            RootCause = "unknown"
)

// ActionType identifies a recovery intervention.
type ActionType string

const (
	ActionDiscount     ActionType = "discount"
	ActionFreeShipping ActionType = "free_shipping"
	ActionReminder     ActionType = "reminder"
	ActionPaymentRetry ActionType = "payment_retry"
)

// Channel is the delivery channel a recovery action is carried on.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

// FraudRisk is the customer's fraud risk band.
type FraudRisk string

const (
	FraudRiskLow    FraudRisk = "low"
	FraudRiskMedium FraudRisk = "medium"
	FraudRiskHigh   FraudRisk = "high"
)

// OutcomeStatus tracks the lifecycle of a recovery attempt. Attempts are
// created pending; only the external reconciler transitions them.
type OutcomeStatus string

const (
	OutcomePending      OutcomeStatus = "pending"
	OutcomeRecovered    OutcomeStatus = "recovered"
	OutcomeNotRecovered OutcomeStatus = "not_recovered"
)

// DispatchStatus is the verdict of the dispatch gate.
type DispatchStatus string

const (
	DispatchSent    DispatchStatus = "sent"
	DispatchSkipped DispatchStatus = "skipped"
	DispatchFailed  DispatchStatus = "failed"
)

// Customer segments referenced by policy branches. The segment field itself is
// open-ended; these are the values the decider cares about.
const (
	SegmentVIP      = "vip"
	SegmentStandard = "standard"
)
