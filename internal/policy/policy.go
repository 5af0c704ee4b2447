// Package policy chooses the recovery intervention for a diagnosed
// abandonment. Decide is a pure function; everything it needs arrives as
// arguments and the same inputs always produce the same decision.
package policy

import "github.com/recoverly/cart-recovery/internal/models"

// Templates named by policy branches.
const (
	TemplateRetryPayment       = "retry_payment"
	TemplateSupportiveReminder = "supportive_reminder"
	TemplateFreeShippingOffer  = "free_shipping_offer"
	TemplateDiscountOffer      = "discount_offer"
	TemplateSimpleReminder     = "simple_reminder"
)

// Discount schedule. Pricing-driven discounts run slightly hotter than
// history-driven ones; VIPs get the larger cut in both.
const (
	pricingDiscountVIP      = 12.5
	pricingDiscountStandard = 10.0
	historyDiscountVIP      = 10.0
	historyDiscountStandard = 7.5
	vipFallbackDiscount     = 10.0
	vipFallbackMinCartValue = 75.0
)

// Decision pairs the chosen action with a human-readable rationale.
type Decision struct {
	Action    models.RecoveryAction `json:"action"`
	Rationale string                `json:"rationale"`
}

// Decide picks a recovery action for the cart. Branches are checked in
// order and the first that fires wins; customers flagged high fraud risk
// never receive discounts or free shipping.
func Decide(cart models.CartCandidate, diagnosis models.Diagnosis, customer models.CustomerProfile, similarStats []models.ActionOutcomeStats) Decision {
	allowed := map[models.ActionType]bool{
		models.ActionDiscount:     true,
		models.ActionFreeShipping: true,
		models.ActionReminder:     true,
		models.ActionPaymentRetry: true,
	}
	if customer.FraudRisk == models.FraudRiskHigh {
		delete(allowed, models.ActionDiscount)
		delete(allowed, models.ActionFreeShipping)
	}

	channel := customer.PreferredChannel

	if diagnosis.RootCause == models.RootCausePaymentFailure && allowed[models.ActionPaymentRetry] {
		return Decision{
			Action: models.RecoveryAction{
				Type:     models.ActionPaymentRetry,
				Channel:  channel,
				Template: TemplateRetryPayment,
				Metadata: map[string]any{"priority": "high"},
			},
			Rationale: "Payment signals indicate a failure; retrying payment is the least-discounting recovery path.",
		}
	}

	if diagnosis.RootCause == models.RootCausePerformanceLatency && allowed[models.ActionReminder] {
		return Decision{
			Action: models.RecoveryAction{
				Type:     models.ActionReminder,
				Channel:  channel,
				Template: TemplateSupportiveReminder,
				Metadata: map[string]any{"offer_support": true},
			},
			Rationale: "Session performance signals are degraded; a low-friction reminder + support is preferred over discounts.",
		}
	}

	if diagnosis.RootCause == models.RootCausePricingShipping {
		best, ok := bestFromHistory(similarStats, allowed)
		if ok && best == models.ActionFreeShipping && allowed[models.ActionFreeShipping] {
			return Decision{
				Action: models.RecoveryAction{
					Type:         models.ActionFreeShipping,
					Channel:      channel,
					Template:     TemplateFreeShippingOffer,
					FreeShipping: true,
				},
				Rationale: "Historical recoveries for pricing/shipping issues perform well with free shipping.",
			}
		}

		if allowed[models.ActionDiscount] {
			discount := pricingDiscountStandard
			if customer.Segment == models.SegmentVIP {
				discount = pricingDiscountVIP
			}
			return Decision{
				Action: models.RecoveryAction{
					Type:            models.ActionDiscount,
					Channel:         channel,
					Template:        TemplateDiscountOffer,
					DiscountPercent: discount,
					Metadata:        map[string]any{"reason": "shipping_or_price_sensitivity"},
				},
				Rationale: "Price/shipping sensitivity detected; discounting can reduce total cost perception.",
			}
		}
	}

	if best, ok := bestFromHistory(similarStats, allowed); ok {
		switch best {
		case models.ActionFreeShipping:
			return Decision{
				Action: models.RecoveryAction{
					Type:         models.ActionFreeShipping,
					Channel:      channel,
					Template:     TemplateFreeShippingOffer,
					FreeShipping: true,
				},
				Rationale: "Similarity search indicates free shipping yields the highest success rate for comparable cases.",
			}
		case models.ActionDiscount:
			discount := historyDiscountStandard
			if customer.Segment == models.SegmentVIP {
				discount = historyDiscountVIP
			}
			return Decision{
				Action: models.RecoveryAction{
					Type:            models.ActionDiscount,
					Channel:         channel,
					Template:        TemplateDiscountOffer,
					DiscountPercent: discount,
				},
				Rationale: "Similarity search indicates a discount yields the highest success rate for comparable cases.",
			}
		case models.ActionPaymentRetry:
			return Decision{
				Action: models.RecoveryAction{
					Type:     models.ActionPaymentRetry,
					Channel:  channel,
					Template: TemplateRetryPayment,
				},
				Rationale: "Similarity search indicates payment retry yields the highest success rate for comparable cases.",
			}
		default:
			return Decision{
				Action: models.RecoveryAction{
					Type:     models.ActionReminder,
					Channel:  channel,
					Template: TemplateSimpleReminder,
				},
				Rationale: "Similarity search indicates reminders are most effective for comparable cases.",
			}
		}
	}

	if customer.Segment == models.SegmentVIP && allowed[models.ActionDiscount] && cart.CartValue >= vipFallbackMinCartValue {
		return Decision{
			Action: models.RecoveryAction{
				Type:            models.ActionDiscount,
				Channel:         channel,
				Template:        TemplateDiscountOffer,
				DiscountPercent: vipFallbackDiscount,
			},
			Rationale: "VIP segment with high cart value; applying a modest discount increases conversion probability.",
		}
	}

	return Decision{
		Action: models.RecoveryAction{
			Type:     models.ActionReminder,
			Channel:  channel,
			Template: TemplateSimpleReminder,
		},
		Rationale: "Defaulting to a reminder due to insufficient evidence for a stronger intervention.",
	}
}

// bestFromHistory returns the allowed action type with the highest success
// rate. Strict comparison keeps the first-seen entry on ties, which makes
// the policy deterministic for a given stats ordering.
func bestFromHistory(stats []models.ActionOutcomeStats, allowed map[models.ActionType]bool) (models.ActionType, bool) {
	var best models.ActionType
	bestRate := -1.0
	found := false

	for _, s := range stats {
		if !allowed[s.ActionType] {
			continue
		}
		if s.SuccessRate > bestRate {
			bestRate = s.SuccessRate
			best = s.ActionType
			found = true
		}
	}

	return best, found
}
