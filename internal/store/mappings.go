package store

// Mappings returns the mapping body for every index the pipeline touches.
// Ids and enum-like fields are keywords so term filters and terms
// aggregations work without analysis; money and ratios are doubles.
func Mappings() map[string]map[string]any {
	return map[string]map[string]any{
		IndexCartEvents: {
			"mappings": map[string]any{
				"properties": map[string]any{
					"@timestamp":  map[string]any{"type": "date"},
					"cart_id":     map[string]any{"type": "keyword"},
					"customer_id": map[string]any{"type": "keyword"},
					"session_id":  map[string]any{"type": "keyword"},
					"event_type":  map[string]any{"type": "keyword"},
					"product_id":  map[string]any{"type": "keyword"},
					"quantity":    map[string]any{"type": "integer"},
					"unit_price":  map[string]any{"type": "double"},
					"cart_value":  map[string]any{"type": "double"},
					"currency":    map[string]any{"type": "keyword"},
					"device_type": map[string]any{"type": "keyword"},
					"page":        map[string]any{"type": "keyword"},
					"referrer":    map[string]any{"type": "keyword"},
				},
			},
		},
		IndexCheckoutEvents: {
			"mappings": map[string]any{
				"properties": map[string]any{
					"@timestamp":      map[string]any{"type": "date"},
					"checkout_id":     map[string]any{"type": "keyword"},
					"cart_id":         map[string]any{"type": "keyword"},
					"customer_id":     map[string]any{"type": "keyword"},
					"session_id":      map[string]any{"type": "keyword"},
					"step":            map[string]any{"type": "keyword"},
					"status":          map[string]any{"type": "keyword"},
					"shipping_method": map[string]any{"type": "keyword"},
					"shipping_cost":   map[string]any{"type": "double"},
					"tax":             map[string]any{"type": "double"},
					"total":           map[string]any{"type": "double"},
					"currency":        map[string]any{"type": "keyword"},
					"payment_method":  map[string]any{"type": "keyword"},
				},
			},
		},
		IndexPaymentLogs: {
			"mappings": map[string]any{
				"properties": map[string]any{
					"@timestamp":         map[string]any{"type": "date"},
					"payment_id":         map[string]any{"type": "keyword"},
					"checkout_id":        map[string]any{"type": "keyword"},
					"cart_id":            map[string]any{"type": "keyword"},
					"customer_id":        map[string]any{"type": "keyword"},
					"provider":           map[string]any{"type": "keyword"},
					"status":             map[string]any{"type": "keyword"},
					"failure_code":       map[string]any{"type": "keyword"},
					"failure_message":    map[string]any{"type": "text"},
					"retryable":          map[string]any{"type": "boolean"},
					"gateway_latency_ms": map[string]any{"type": "integer"},
					"attempt":            map[string]any{"type": "integer"},
				},
			},
		},
		IndexSessionMetrics: {
			"mappings": map[string]any{
				"properties": map[string]any{
					"@timestamp":     map[string]any{"type": "date"},
					"session_id":     map[string]any{"type": "keyword"},
					"customer_id":    map[string]any{"type": "keyword"},
					"route":          map[string]any{"type": "keyword"},
					"device_type":    map[string]any{"type": "keyword"},
					"p95_latency_ms": map[string]any{"type": "integer"},
					"error_rate":     map[string]any{"type": "double"},
					"apdex":          map[string]any{"type": "double"},
				},
			},
		},
		IndexCustomerProfiles: {
			"mappings": map[string]any{
				"properties": map[string]any{
					"@timestamp":        map[string]any{"type": "date"},
					"customer_id":       map[string]any{"type": "keyword"},
					"email":             map[string]any{"type": "keyword"},
					"phone":             map[string]any{"type": "keyword"},
					"push_token":        map[string]any{"type": "keyword"},
					"segment":           map[string]any{"type": "keyword"},
					"lifetime_value":    map[string]any{"type": "double"},
					"preferred_channel": map[string]any{"type": "keyword"},
					"fraud_risk":        map[string]any{"type": "keyword"},
					"locale":            map[string]any{"type": "keyword"},
					"timezone":          map[string]any{"type": "keyword"},
					"last_purchase_at":  map[string]any{"type": "date"},
				},
			},
		},
		IndexRecoveryHistory: {
			"mappings": map[string]any{
				"properties": map[string]any{
					"@timestamp":  map[string]any{"type": "date"},
					"recovery_id": map[string]any{"type": "keyword"},
					"cart_id":     map[string]any{"type": "keyword"},
					"customer_id": map[string]any{"type": "keyword"},
					"segment":     map[string]any{"type": "keyword"},
					"cart_value":  map[string]any{"type": "double"},
					"currency":    map[string]any{"type": "keyword"},
					"diagnosis": map[string]any{
						"properties": map[string]any{
							"root_cause": map[string]any{"type": "keyword"},
							"signals":    map[string]any{"type": "keyword"},
						},
					},
					"action": map[string]any{
						"properties": map[string]any{
							"type":             map[string]any{"type": "keyword"},
							"channel":          map[string]any{"type": "keyword"},
							"discount_percent": map[string]any{"type": "double"},
							"free_shipping":    map[string]any{"type": "boolean"},
							"template":         map[string]any{"type": "keyword"},
						},
					},
					"sent_at": map[string]any{"type": "date"},
					"outcome": map[string]any{
						"properties": map[string]any{
							"status":            map[string]any{"type": "keyword"},
							"order_id":          map[string]any{"type": "keyword"},
							"revenue_recovered": map[string]any{"type": "double"},
							"outcome_at":        map[string]any{"type": "date"},
						},
					},
				},
			},
		},
	}
}
