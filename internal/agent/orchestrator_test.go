package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/models"
)

// toolsServer fakes the tools API with canned per-path responses and records
// every call in order.
type toolsServer struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]func(body map[string]any) (int, string)
}

func (s *toolsServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		s.mu.Lock()
		s.calls = append(s.calls, r.URL.Path)
		s.mu.Unlock()

		respond, ok := s.responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `{"error": "no handler for %s"}`, r.URL.Path)
			return
		}

		status, payload := respond(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, payload)
	}
}

func staticResponse(payload string) func(map[string]any) (int, string) {
	return func(map[string]any) (int, string) { return http.StatusOK, payload }
}

func happyPathServer() *toolsServer {
	return &toolsServer{responses: map[string]func(map[string]any) (int, string){
		"/tools/detect_abandoned_carts": staticResponse(`{"candidates": [
			{"cart_id": "cart_1001", "customer_id": "cust_001", "cart_value": 89.0, "currency": "USD"},
			{"cart_id": "cart_2002", "customer_id": "cust_002", "cart_value": 24.0, "currency": "USD"}
		]}`),
		"/tools/analyze_abandonment": func(body map[string]any) (int, string) {
			if body["cart_id"] == "cart_1001" {
				return http.StatusOK, `{"cart_id": "cart_1001", "diagnosis": {"root_cause": "payment_failure", "signals": ["card_declined"]}}`
			}
			return http.StatusOK, `{"cart_id": "cart_2002", "diagnosis": {"root_cause": "pricing_shipping", "signals": ["high_shipping_cost"]}}`
		},
		"/tools/get_customer_profile": func(body map[string]any) (int, string) {
			if body["customer_id"] == "cust_001" {
				return http.StatusOK, `{"profile": {"customer_id": "cust_001", "email": "alex@example.com", "segment": "vip", "preferred_channel": "email", "fraud_risk": "low"}}`
			}
			return http.StatusOK, `{"profile": {"customer_id": "cust_002", "segment": "standard", "preferred_channel": "push", "fraud_risk": "low"}}`
		},
		"/tools/find_similar_abandonments": staticResponse(`{"stats": [], "examples": []}`),
		"/tools/decide_recovery_action": func(body map[string]any) (int, string) {
			diag := body["diagnosis"].(map[string]any)
			if diag["root_cause"] == "payment_failure" {
				return http.StatusOK, `{"action": {"type": "payment_retry", "channel": "email", "template": "retry_payment"}, "rationale": "retry"}`
			}
			return http.StatusOK, `{"action": {"type": "discount", "channel": "push", "template": "discount_offer", "discount_percent": 10.0}, "rationale": "discount"}`
		},
		"/tools/trigger_recovery_action": func(body map[string]any) (int, string) {
			customer := body["customer"].(map[string]any)
			if customer["customer_id"] == "cust_001" {
				return http.StatusOK, `{"status": "sent", "message_id": "msg_abc123def456", "channel": "email"}`
			}
			// cust_002 has no push token on file.
			return http.StatusOK, `{"status": "skipped"}`
		},
		"/tools/record_recovery_attempt": staticResponse(`{"recovery_id": "rec_0123456789abcdef0123456789abcdef"}`),
	}}
}

func TestRunPass(t *testing.T) {
	tools := happyPathServer()
	srv := httptest.NewServer(tools.handler())
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())

	outcomes, err := client.RunPass(context.Background(), PassOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	first := outcomes[0]
	assert.NoError(t, first.Err)
	assert.Equal(t, "cart_1001", first.CartID)
	assert.Equal(t, models.RootCausePaymentFailure, first.RootCause)
	assert.Equal(t, models.ActionPaymentRetry, first.Action.Type)
	assert.Equal(t, models.DispatchSent, first.DispatchStatus)
	assert.Equal(t, "msg_abc123def456", first.MessageID)
	assert.Equal(t, "rec_0123456789abcdef0123456789abcdef", first.RecoveryID)

	// The skipped candidate never reaches recording.
	second := outcomes[1]
	assert.NoError(t, second.Err)
	assert.Equal(t, models.DispatchSkipped, second.DispatchStatus)
	assert.Empty(t, second.RecoveryID)

	recordCalls := 0
	for _, path := range tools.calls {
		if path == "/tools/record_recovery_attempt" {
			recordCalls++
		}
	}
	assert.Equal(t, 1, recordCalls)
}

func TestRunPassProcessTopLimit(t *testing.T) {
	tools := happyPathServer()
	srv := httptest.NewServer(tools.handler())
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())

	outcomes, err := client.RunPass(context.Background(), PassOptions{ProcessTop: 1})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "cart_1001", outcomes[0].CartID)
}

func TestRunPassDetectionFailureAborts(t *testing.T) {
	tools := &toolsServer{responses: map[string]func(map[string]any) (int, string){
		"/tools/detect_abandoned_carts": func(map[string]any) (int, string) {
			return http.StatusBadGateway, `{"error": "store unreachable"}`
		},
	}}
	srv := httptest.NewServer(tools.handler())
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())

	_, err := client.RunPass(context.Background(), PassOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detection failed")
}

func TestRunPassIsolatesCandidateFailures(t *testing.T) {
	tools := happyPathServer()
	tools.responses["/tools/analyze_abandonment"] = func(body map[string]any) (int, string) {
		if body["cart_id"] == "cart_1001" {
			return http.StatusInternalServerError, `{"error": "boom"}`
		}
		return http.StatusOK, `{"cart_id": "cart_2002", "diagnosis": {"root_cause": "unknown", "signals": ["insufficient_signals"]}}`
	}
	srv := httptest.NewServer(tools.handler())
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())

	outcomes, err := client.RunPass(context.Background(), PassOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Error(t, outcomes[0].Err)
	assert.NoError(t, outcomes[1].Err)
	assert.Equal(t, models.RootCauseUnknown, outcomes[1].RootCause)
}
