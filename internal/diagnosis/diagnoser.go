// Package diagnosis classifies why a cart was abandoned. Evidence is pulled
// from four event streams and run through a prioritized rule cascade; the
// first rule that fires names the root cause.
package diagnosis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/models"
	"github.com/recoverly/cart-recovery/internal/store"
)

// How much history each stream contributes to a diagnosis.
const (
	cartEventLimit      = 50
	checkoutEventLimit  = 50
	paymentLogLimit     = 25
	sessionMetricsLimit = 10
)

// Rule thresholds.
const (
	latencyThresholdMS     = 1000
	apdexThreshold         = 0.85
	errorRateThreshold     = 0.05
	shippingRatioThreshold = 0.18
	frictionMinCheckouts   = 3
	frictionMaxSteps       = 10
)

// Signal tags emitted by the cascade.
const (
	SignalPaymentFailed       = "payment_failed"
	SignalHighLatency         = "high_latency"
	SignalLowApdex            = "low_apdex"
	SignalHighErrorRate       = "high_error_rate"
	SignalHighShippingCost    = "high_shipping_cost"
	SignalStalledBeforePay    = "stalled_before_payment"
	SignalInsufficientSignals = "insufficient_signals"
)

// Diagnoser loads a cart's event history and classifies the abandonment.
type Diagnoser struct {
	store  *store.Gateway
	logger *zap.Logger
}

// New creates a diagnoser.
func New(gateway *store.Gateway, logger *zap.Logger) *Diagnoser {
	return &Diagnoser{store: gateway, logger: logger}
}

// Diagnose loads the four streams for a cart and runs the rule cascade.
func (d *Diagnoser) Diagnose(ctx context.Context, cartID string) (models.Diagnosis, error) {
	cartEvents, err := loadRecent[models.CartEvent](ctx, d.store, store.IndexCartEvents, "cart_id", cartID, cartEventLimit)
	if err != nil {
		return models.Diagnosis{}, err
	}
	checkoutEvents, err := loadRecent[models.CheckoutEvent](ctx, d.store, store.IndexCheckoutEvents, "cart_id", cartID, checkoutEventLimit)
	if err != nil {
		return models.Diagnosis{}, err
	}
	paymentLogs, err := loadRecent[models.PaymentLog](ctx, d.store, store.IndexPaymentLogs, "cart_id", cartID, paymentLogLimit)
	if err != nil {
		return models.Diagnosis{}, err
	}

	sessionID := mostRecentSessionID(cartEvents, checkoutEvents)

	var metrics []models.SessionMetrics
	if sessionID != "" {
		metrics, err = loadRecent[models.SessionMetrics](ctx, d.store, store.IndexSessionMetrics, "session_id", sessionID, sessionMetricsLimit)
		if err != nil {
			return models.Diagnosis{}, err
		}
	}

	diag := Classify(checkoutEvents, paymentLogs, metrics)
	diag.Evidence.SessionID = sessionID

	d.logger.Info("Cart abandonment diagnosed",
		zap.String("cart_id", cartID),
		zap.String("root_cause", string(diag.RootCause)),
		zap.Strings("signals", diag.Signals))

	return diag, nil
}

// Classify runs the rule cascade over already-loaded history, most recent
// first in every slice. Rules are checked strictly in order; the first match
// wins: payment_failure, performance_latency, pricing_shipping,
// checkout_friction, unknown.
func Classify(checkoutEvents []models.CheckoutEvent, paymentLogs []models.PaymentLog, metrics []models.SessionMetrics) models.Diagnosis {
	diag := classify(checkoutEvents, paymentLogs, metrics)
	diag.Evidence.CheckoutEventsCount = len(checkoutEvents)
	diag.Evidence.PaymentLogsCount = len(paymentLogs)
	return diag
}

func classify(checkoutEvents []models.CheckoutEvent, paymentLogs []models.PaymentLog, metrics []models.SessionMetrics) models.Diagnosis {
	// Rule 1: any failed payment attempt.
	for _, log := range paymentLogs {
		if log.Status != models.PaymentStatusFailed {
			continue
		}
		signal := log.FailureCode
		if signal == "" {
			signal = SignalPaymentFailed
		}
		return models.Diagnosis{
			RootCause: models.RootCausePaymentFailure,
			Signals:   []string{signal},
			Evidence: models.Evidence{
				Payment: &models.PaymentEvidence{
					FailureCode:    log.FailureCode,
					FailureMessage: log.FailureMessage,
					Retryable:      log.Retryable,
				},
			},
		}
	}

	// Rule 2: degraded session performance. Only the most recent sample with
	// a latency reading counts; missing apdex or error rate reads as zero.
	for _, m := range metrics {
		if m.P95LatencyMS == nil {
			continue
		}
		p95 := *m.P95LatencyMS
		apdex := 0.0
		if m.Apdex != nil {
			apdex = *m.Apdex
		}
		errRate := 0.0
		if m.ErrorRate != nil {
			errRate = *m.ErrorRate
		}

		var signals []string
		if p95 >= latencyThresholdMS {
			signals = append(signals, SignalHighLatency)
		}
		if apdex < apdexThreshold {
			signals = append(signals, SignalLowApdex)
		}
		if errRate >= errorRateThreshold {
			signals = append(signals, SignalHighErrorRate)
		}
		if len(signals) > 0 {
			return models.Diagnosis{
				RootCause: models.RootCausePerformanceLatency,
				Signals:   signals,
				Evidence: models.Evidence{
					Performance: &models.PerformanceEvidence{
						P95LatencyMS: p95,
						Apdex:        apdex,
						ErrorRate:    errRate,
					},
				},
			}
		}
		break
	}

	// Rule 3: shipping cost dominates the total.
	for _, ce := range checkoutEvents {
		if ce.ShippingCost == nil || ce.Total == nil {
			continue
		}
		shipping, total := *ce.ShippingCost, *ce.Total
		if total > 0 && shipping/total >= shippingRatioThreshold {
			return models.Diagnosis{
				RootCause: models.RootCausePricingShipping,
				Signals:   []string{SignalHighShippingCost},
				Evidence: models.Evidence{
					Shipping: &models.ShippingEvidence{
						ShippingCost: shipping,
						Total:        total,
					},
				},
			}
		}
		break
	}

	// Rule 4: checkout stalled between shipping and payment.
	if len(checkoutEvents) >= frictionMinCheckouts {
		var steps []string
		sawShipping, sawPayment := false, false
		for _, ce := range checkoutEvents {
			if ce.Step == "" {
				continue
			}
			steps = append(steps, ce.Step)
			switch ce.Step {
			case "shipping":
				sawShipping = true
			case "payment":
				sawPayment = true
			}
		}
		if sawShipping && !sawPayment {
			if len(steps) > frictionMaxSteps {
				steps = steps[:frictionMaxSteps]
			}
			return models.Diagnosis{
				RootCause: models.RootCauseCheckoutFriction,
				Signals:   []string{SignalStalledBeforePay},
				Evidence: models.Evidence{
					Friction: &models.FrictionEvidence{Steps: steps},
				},
			}
		}
	}

	return models.Diagnosis{
		RootCause: models.RootCauseUnknown,
		Signals:   []string{SignalInsufficientSignals},
	}
}

// mostRecentSessionID picks the session for telemetry lookup: the first
// non-empty session id scanning cart events, then checkout events.
func mostRecentSessionID(cartEvents []models.CartEvent, checkoutEvents []models.CheckoutEvent) string {
	for _, e := range cartEvents {
		if e.SessionID != "" {
			return e.SessionID
		}
	}
	for _, e := range checkoutEvents {
		if e.SessionID != "" {
			return e.SessionID
		}
	}
	return ""
}

func loadRecent[T any](ctx context.Context, g *store.Gateway, index, field, value string, limit int) ([]T, error) {
	body := map[string]any{
		"size": limit,
		"sort": []any{map[string]any{"@timestamp": map[string]any{"order": "desc"}}},
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{field: value}},
				},
			},
		},
	}

	res, err := g.Search(ctx, index, body)
	if err != nil {
		return nil, err
	}

	docs, err := store.DecodeHits[T](res.Hits)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s history: %w", index, err)
	}

	return docs, nil
}
