package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/recoverly/cart-recovery/internal/models"
)

func vipCustomer() models.CustomerProfile {
	return models.CustomerProfile{
		CustomerID:       "cust_001",
		Segment:          models.SegmentVIP,
		PreferredChannel: models.ChannelEmail,
		FraudRisk:        models.FraudRiskLow,
	}
}

func standardCustomer() models.CustomerProfile {
	return models.CustomerProfile{
		CustomerID:       "cust_002",
		Segment:          models.SegmentStandard,
		PreferredChannel: models.ChannelPush,
		FraudRisk:        models.FraudRiskLow,
	}
}

func TestDecidePaymentFailure(t *testing.T) {
	cart := models.CartCandidate{CartID: "cart_1001", CartValue: 89.0}
	diag := models.Diagnosis{RootCause: models.RootCausePaymentFailure, Signals: []string{"card_declined"}}

	decision := Decide(cart, diag, vipCustomer(), nil)

	assert.Equal(t, models.ActionPaymentRetry, decision.Action.Type)
	assert.Equal(t, models.ChannelEmail, decision.Action.Channel)
	assert.Equal(t, TemplateRetryPayment, decision.Action.Template)
	assert.Equal(t, "high", decision.Action.Metadata["priority"])
	assert.Equal(t, "Payment signals indicate a failure; retrying payment is the least-discounting recovery path.", decision.Rationale)
}

func TestDecidePerformanceLatency(t *testing.T) {
	cart := models.CartCandidate{CartID: "cart_1001", CartValue: 89.0}
	diag := models.Diagnosis{RootCause: models.RootCausePerformanceLatency}

	decision := Decide(cart, diag, standardCustomer(), nil)

	assert.Equal(t, models.ActionReminder, decision.Action.Type)
	assert.Equal(t, models.ChannelPush, decision.Action.Channel)
	assert.Equal(t, TemplateSupportiveReminder, decision.Action.Template)
	assert.Equal(t, true, decision.Action.Metadata["offer_support"])
}

func TestDecidePricingShippingPrefersFreeShippingFromHistory(t *testing.T) {
	cart := models.CartCandidate{CartID: "cart_2002", CartValue: 24.0}
	diag := models.Diagnosis{RootCause: models.RootCausePricingShipping}
	stats := []models.ActionOutcomeStats{
		{ActionType: models.ActionDiscount, Total: 10, Recovered: 3, SuccessRate: 0.3},
		{ActionType: models.ActionFreeShipping, Total: 10, Recovered: 6, SuccessRate: 0.6},
	}

	decision := Decide(cart, diag, standardCustomer(), stats)

	assert.Equal(t, models.ActionFreeShipping, decision.Action.Type)
	assert.True(t, decision.Action.FreeShipping)
	assert.Equal(t, TemplateFreeShippingOffer, decision.Action.Template)
	assert.Equal(t, "Historical recoveries for pricing/shipping issues perform well with free shipping.", decision.Rationale)
}

func TestDecidePricingShippingDiscountFallback(t *testing.T) {
	cart := models.CartCandidate{CartID: "cart_2002", CartValue: 24.0}
	diag := models.Diagnosis{RootCause: models.RootCausePricingShipping}

	t.Run("standard segment", func(t *testing.T) {
		decision := Decide(cart, diag, standardCustomer(), nil)
		assert.Equal(t, models.ActionDiscount, decision.Action.Type)
		assert.Equal(t, 10.0, decision.Action.DiscountPercent)
		assert.Equal(t, "shipping_or_price_sensitivity", decision.Action.Metadata["reason"])
	})

	t.Run("vip segment", func(t *testing.T) {
		decision := Decide(cart, diag, vipCustomer(), nil)
		assert.Equal(t, models.ActionDiscount, decision.Action.Type)
		assert.Equal(t, 12.5, decision.Action.DiscountPercent)
	})
}

func TestDecideHistoryDrivenBranches(t *testing.T) {
	cart := models.CartCandidate{CartID: "cart_3003", CartValue: 50.0}
	diag := models.Diagnosis{RootCause: models.RootCauseCheckoutFriction}

	tests := []struct {
		name         string
		best         models.ActionType
		wantType     models.ActionType
		wantTemplate string
	}{
		{"free shipping wins", models.ActionFreeShipping, models.ActionFreeShipping, TemplateFreeShippingOffer},
		{"discount wins", models.ActionDiscount, models.ActionDiscount, TemplateDiscountOffer},
		{"payment retry wins", models.ActionPaymentRetry, models.ActionPaymentRetry, TemplateRetryPayment},
		{"reminder wins", models.ActionReminder, models.ActionReminder, TemplateSimpleReminder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := []models.ActionOutcomeStats{
				{ActionType: tt.best, Total: 10, Recovered: 9, SuccessRate: 0.9},
			}
			decision := Decide(cart, diag, standardCustomer(), stats)
			assert.Equal(t, tt.wantType, decision.Action.Type)
			assert.Equal(t, tt.wantTemplate, decision.Action.Template)
		})
	}
}

func TestDecideHistoryDiscountBySegment(t *testing.T) {
	cart := models.CartCandidate{CartID: "cart_3003", CartValue: 50.0}
	diag := models.Diagnosis{RootCause: models.RootCauseUnknown}
	stats := []models.ActionOutcomeStats{
		{ActionType: models.ActionDiscount, Total: 8, Recovered: 4, SuccessRate: 0.5},
	}

	standard := Decide(cart, diag, standardCustomer(), stats)
	assert.Equal(t, 7.5, standard.Action.DiscountPercent)

	vip := Decide(cart, diag, vipCustomer(), stats)
	assert.Equal(t, 10.0, vip.Action.DiscountPercent)
}

func TestDecideHistoryTieKeepsFirstSeen(t *testing.T) {
	cart := models.CartCandidate{CartID: "cart_3003", CartValue: 50.0}
	diag := models.Diagnosis{RootCause: models.RootCauseUnknown}
	stats := []models.ActionOutcomeStats{
		{ActionType: models.ActionReminder, Total: 10, Recovered: 5, SuccessRate: 0.5},
		{ActionType: models.ActionDiscount, Total: 10, Recovered: 5, SuccessRate: 0.5},
	}

	decision := Decide(cart, diag, standardCustomer(), stats)

	assert.Equal(t, models.ActionReminder, decision.Action.Type)
}

func TestDecideVIPFallbackDiscount(t *testing.T) {
	diag := models.Diagnosis{RootCause: models.RootCauseUnknown}

	t.Run("high value cart gets discount", func(t *testing.T) {
		cart := models.CartCandidate{CartID: "cart_1001", CartValue: 89.0}
		decision := Decide(cart, diag, vipCustomer(), nil)
		assert.Equal(t, models.ActionDiscount, decision.Action.Type)
		assert.Equal(t, 10.0, decision.Action.DiscountPercent)
	})

	t.Run("low value cart falls through to reminder", func(t *testing.T) {
		cart := models.CartCandidate{CartID: "cart_1001", CartValue: 40.0}
		decision := Decide(cart, diag, vipCustomer(), nil)
		assert.Equal(t, models.ActionReminder, decision.Action.Type)
		assert.Equal(t, TemplateSimpleReminder, decision.Action.Template)
	})
}

func TestDecideDefaultReminder(t *testing.T) {
	cart := models.CartCandidate{CartID: "cart_4004", CartValue: 15.0}
	diag := models.Diagnosis{RootCause: models.RootCauseUnknown}

	decision := Decide(cart, diag, standardCustomer(), nil)

	assert.Equal(t, models.ActionReminder, decision.Action.Type)
	assert.Equal(t, "Defaulting to a reminder due to insufficient evidence for a stronger intervention.", decision.Rationale)
}

func TestDecideFraudGuardrail(t *testing.T) {
	risky := standardCustomer()
	risky.FraudRisk = models.FraudRiskHigh

	t.Run("pricing diagnosis cannot discount", func(t *testing.T) {
		cart := models.CartCandidate{CartID: "cart_2002", CartValue: 24.0}
		diag := models.Diagnosis{RootCause: models.RootCausePricingShipping}
		stats := []models.ActionOutcomeStats{
			{ActionType: models.ActionFreeShipping, Total: 10, Recovered: 6, SuccessRate: 0.6},
		}

		decision := Decide(cart, diag, risky, stats)

		assert.Equal(t, models.ActionReminder, decision.Action.Type)
	})

	t.Run("history skips blocked actions", func(t *testing.T) {
		cart := models.CartCandidate{CartID: "cart_3003", CartValue: 50.0}
		diag := models.Diagnosis{RootCause: models.RootCauseUnknown}
		stats := []models.ActionOutcomeStats{
			{ActionType: models.ActionDiscount, Total: 10, Recovered: 9, SuccessRate: 0.9},
			{ActionType: models.ActionPaymentRetry, Total: 10, Recovered: 4, SuccessRate: 0.4},
		}

		decision := Decide(cart, diag, risky, stats)

		assert.Equal(t, models.ActionPaymentRetry, decision.Action.Type)
	})

	t.Run("payment retry still allowed", func(t *testing.T) {
		cart := models.CartCandidate{CartID: "cart_1001", CartValue: 89.0}
		diag := models.Diagnosis{RootCause: models.RootCausePaymentFailure}

		decision := Decide(cart, diag, risky, nil)

		assert.Equal(t, models.ActionPaymentRetry, decision.Action.Type)
	})

	t.Run("vip fallback blocked", func(t *testing.T) {
		riskyVIP := vipCustomer()
		riskyVIP.FraudRisk = models.FraudRiskHigh
		cart := models.CartCandidate{CartID: "cart_1001", CartValue: 200.0}
		diag := models.Diagnosis{RootCause: models.RootCauseUnknown}

		decision := Decide(cart, diag, riskyVIP, nil)

		assert.Equal(t, models.ActionReminder, decision.Action.Type)
	})
}

func TestDecideUsesPreferredChannel(t *testing.T) {
	cart := models.CartCandidate{CartID: "cart_1001", CartValue: 89.0}
	diag := models.Diagnosis{RootCause: models.RootCausePaymentFailure}

	customer := standardCustomer()
	customer.PreferredChannel = models.ChannelSMS

	decision := Decide(cart, diag, customer, nil)

	assert.Equal(t, models.ChannelSMS, decision.Action.Channel)
}
