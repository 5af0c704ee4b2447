// Package seed loads a small demonstration corpus into the document store:
// two customers, two stalled carts, a declined payment, a laggy session,
// and two historical recoveries for the similarity lookup to find.
package seed

import (
	"context"
	"time"

	"github.com/recoverly/cart-recovery/internal/models"
	"github.com/recoverly/cart-recovery/internal/store"
)

type doc struct {
	index string
	id    string
	body  any
}

// Apply indexes the sample corpus relative to now and refreshes the
// indices so the data is immediately searchable.
func Apply(ctx context.Context, gateway *store.Gateway, now time.Time) error {
	now = now.UTC()

	for _, d := range documents(now) {
		if err := gateway.Index(ctx, d.index, d.id, d.body); err != nil {
			return err
		}
	}

	return gateway.Refresh(ctx,
		store.IndexCustomerProfiles,
		store.IndexCartEvents,
		store.IndexCheckoutEvents,
		store.IndexPaymentLogs,
		store.IndexSessionMetrics,
		store.IndexRecoveryHistory,
	)
}

func documents(now time.Time) []doc {
	vipLastPurchase := now.AddDate(0, 0, -12)
	stdLastPurchase := now.AddDate(0, 0, -45)

	type timedProfile struct {
		Timestamp time.Time `json:"@timestamp"`
		models.CustomerProfile
	}

	return []doc{
		{store.IndexCustomerProfiles, "cust_001", timedProfile{
			Timestamp: now,
			CustomerProfile: models.CustomerProfile{
				CustomerID:       "cust_001",
				Email:            "alex@example.com",
				Phone:            "+155555501",
				PushToken:        "push_token_001",
				Segment:          models.SegmentVIP,
				LifetimeValue:    4200.0,
				PreferredChannel: models.ChannelEmail,
				FraudRisk:        models.FraudRiskLow,
				Locale:           "en-US",
				Timezone:         "America/Chicago",
				LastPurchaseAt:   &vipLastPurchase,
			},
		}},
		{store.IndexCustomerProfiles, "cust_002", timedProfile{
			Timestamp: now,
			CustomerProfile: models.CustomerProfile{
				CustomerID:       "cust_002",
				Email:            "jamie@example.com",
				Phone:            "+155555502",
				PushToken:        "push_token_002",
				Segment:          models.SegmentStandard,
				LifetimeValue:    180.0,
				PreferredChannel: models.ChannelPush,
				FraudRisk:        models.FraudRiskLow,
				Locale:           "en-US",
				Timezone:         "America/Chicago",
				LastPurchaseAt:   &stdLastPurchase,
			},
		}},

		{store.IndexCartEvents, "cart_evt_001", models.CartEvent{
			Timestamp:  now.Add(-85 * time.Minute),
			CartID:     "cart_1001",
			CustomerID: "cust_001",
			SessionID:  "sess_aaa",
			EventType:  "add_to_cart",
			ProductID:  "sku_hoodie_01",
			Quantity:   1,
			UnitPrice:  89.0,
			CartValue:  89.0,
			Currency:   "USD",
			DeviceType: "mobile",
			Page:       "/product/sku_hoodie_01",
			Referrer:   "google",
		}},
		{store.IndexCartEvents, "cart_evt_002", models.CartEvent{
			Timestamp:  now.Add(-80 * time.Minute),
			CartID:     "cart_1001",
			CustomerID: "cust_001",
			SessionID:  "sess_aaa",
			EventType:  "view_cart",
			ProductID:  "sku_hoodie_01",
			Quantity:   1,
			UnitPrice:  89.0,
			CartValue:  89.0,
			Currency:   "USD",
			DeviceType: "mobile",
			Page:       "/cart",
			Referrer:   "direct",
		}},
		{store.IndexCartEvents, "cart_evt_003", models.CartEvent{
			Timestamp:  now.Add(-50 * time.Minute),
			CartID:     "cart_2002",
			CustomerID: "cust_002",
			SessionID:  "sess_bbb",
			EventType:  "add_to_cart",
			ProductID:  "sku_socks_02",
			Quantity:   2,
			UnitPrice:  12.0,
			CartValue:  24.0,
			Currency:   "USD",
			DeviceType: "desktop",
			Page:       "/product/sku_socks_02",
			Referrer:   "email_campaign",
		}},

		{store.IndexCheckoutEvents, "chk_evt_001", models.CheckoutEvent{
			Timestamp:      now.Add(-78 * time.Minute),
			CheckoutID:     "chk_9001",
			CartID:         "cart_1001",
			CustomerID:     "cust_001",
			SessionID:      "sess_aaa",
			Step:           "payment",
			Status:         "started",
			ShippingMethod: "standard",
			ShippingCost:   f(7.0),
			Tax:            f(8.3),
			Total:          f(104.3),
			Currency:       "USD",
			PaymentMethod:  "visa",
		}},
		{store.IndexCheckoutEvents, "chk_evt_002", models.CheckoutEvent{
			Timestamp:      now.Add(-46 * time.Minute),
			CheckoutID:     "chk_9002",
			CartID:         "cart_2002",
			CustomerID:     "cust_002",
			SessionID:      "sess_bbb",
			Step:           "shipping",
			Status:         "started",
			ShippingMethod: "standard",
			ShippingCost:   f(6.0),
			Tax:            f(2.1),
			Total:          f(32.1),
			Currency:       "USD",
			PaymentMethod:  "unknown",
		}},

		{store.IndexPaymentLogs, "pay_log_001", models.PaymentLog{
			Timestamp:        now.Add(-77 * time.Minute),
			PaymentID:        "pay_7001",
			CheckoutID:       "chk_9001",
			CartID:           "cart_1001",
			CustomerID:       "cust_001",
			Provider:         "stripe",
			Status:           models.PaymentStatusFailed,
			FailureCode:      "card_declined",
			FailureMessage:   "Card was declined",
			Retryable:        b(true),
			GatewayLatencyMS: 850,
			Attempt:          1,
		}},

		{store.IndexSessionMetrics, "sess_met_001", models.SessionMetrics{
			Timestamp:    now.Add(-78 * time.Minute),
			SessionID:    "sess_aaa",
			CustomerID:   "cust_001",
			Route:        "/checkout/payment",
			DeviceType:   "mobile",
			P95LatencyMS: i(1200),
			ErrorRate:    f(0.02),
			Apdex:        f(0.78),
		}},
		{store.IndexSessionMetrics, "sess_met_002", models.SessionMetrics{
			Timestamp:    now.Add(-45 * time.Minute),
			SessionID:    "sess_bbb",
			CustomerID:   "cust_002",
			Route:        "/checkout/shipping",
			DeviceType:   "desktop",
			P95LatencyMS: i(380),
			ErrorRate:    f(0.0),
			Apdex:        f(0.94),
		}},

		{store.IndexRecoveryHistory, "rec_hist_001", recoveredRecord(
			now.AddDate(0, 0, -14), "rec_001", "cart_hist_001", "cust_001",
			models.SegmentVIP, 110.0,
			models.RootCausePaymentFailure, []string{"card_declined"},
			models.RecordAction{
				Type:     models.ActionPaymentRetry,
				Channel:  models.ChannelEmail,
				Template: "retry_payment",
			},
			"ord_abc", 110.0,
		)},
		{store.IndexRecoveryHistory, "rec_hist_002", recoveredRecord(
			now.AddDate(0, 0, -60), "rec_002", "cart_hist_002", "cust_002",
			models.SegmentStandard, 35.0,
			models.RootCausePricingShipping, []string{"high_shipping_cost"},
			models.RecordAction{
				Type:         models.ActionFreeShipping,
				Channel:      models.ChannelPush,
				FreeShipping: true,
				Template:     "free_shipping_offer",
			},
			"ord_def", 35.0,
		)},
	}
}

func recoveredRecord(ts time.Time, recoveryID, cartID, customerID, segment string, cartValue float64, rootCause models.RootCause, signals []string, action models.RecordAction, orderID string, revenue float64) models.RecoveryRecord {
	outcomeAt := ts.Add(8 * time.Minute)
	return models.RecoveryRecord{
		Timestamp:  ts,
		RecoveryID: recoveryID,
		CartID:     cartID,
		CustomerID: customerID,
		Segment:    segment,
		CartValue:  cartValue,
		Currency:   "USD",
		Diagnosis:  models.RecordDiagnosis{RootCause: rootCause, Signals: signals},
		Action:     action,
		SentAt:     ts.Add(-10 * time.Minute),
		Outcome: models.RecoveryOutcome{
			Status:           models.OutcomeRecovered,
			OrderID:          orderID,
			RevenueRecovered: revenue,
			OutcomeAt:        &outcomeAt,
		},
	}
}

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }
func b(v bool) *bool       { return &v }
