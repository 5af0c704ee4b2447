// Package detector finds carts that look abandoned: active inside the
// lookback window, quiet past the abandonment threshold, and never followed
// by a completed checkout.
package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/models"
	"github.com/recoverly/cart-recovery/internal/store"
)

// Parameter bounds for a detection run.
const (
	MinLookbackMinutes    = 1
	MaxLookbackMinutes    = 43200
	MinAbandonmentMinutes = 5
	MaxAbandonmentMinutes = 1440
	MinCandidates         = 1
	MaxCandidates         = 200

	// maxCartGroups caps the terms aggregation to bound query cost.
	maxCartGroups = 1000
)

// Params configures one detection run.
type Params struct {
	LookbackMinutes    int `json:"lookback_minutes"`
	AbandonmentMinutes int `json:"abandonment_minutes"`
	MaxCandidates      int `json:"max_candidates"`
}

// Validate checks the stated parameter bounds.
func (p Params) Validate() error {
	if p.LookbackMinutes < MinLookbackMinutes || p.LookbackMinutes > MaxLookbackMinutes {
		return fmt.Errorf("lookback_minutes must be between %d and %d, got %d",
			MinLookbackMinutes, MaxLookbackMinutes, p.LookbackMinutes)
	}
	if p.AbandonmentMinutes < MinAbandonmentMinutes || p.AbandonmentMinutes > MaxAbandonmentMinutes {
		return fmt.Errorf("abandonment_minutes must be between %d and %d, got %d",
			MinAbandonmentMinutes, MaxAbandonmentMinutes, p.AbandonmentMinutes)
	}
	if p.MaxCandidates < MinCandidates || p.MaxCandidates > MaxCandidates {
		return fmt.Errorf("max_candidates must be between %d and %d, got %d",
			MinCandidates, MaxCandidates, p.MaxCandidates)
	}
	return nil
}

// Detector aggregates recent cart activity into abandoned-cart candidates.
type Detector struct {
	store  *store.Gateway
	logger *zap.Logger
	now    func() time.Time
}

// New creates a detector.
func New(gateway *store.Gateway, logger *zap.Logger) *Detector {
	return &Detector{store: gateway, logger: logger, now: time.Now}
}

type cartBuckets struct {
	ByCart struct {
		Buckets []struct {
			Key      string `json:"key"`
			LastSeen struct {
				Value         *float64 `json:"value"`
				ValueAsString string   `json:"value_as_string"`
			} `json:"last_seen"`
			LastEvent struct {
				Hits struct {
					Hits []struct {
						Source json.RawMessage `json:"_source"`
					} `json:"hits"`
				} `json:"hits"`
			} `json:"last_event"`
		} `json:"buckets"`
	} `json:"by_cart"`
}

// Detect returns up to MaxCandidates abandoned carts ordered by cart value
// descending, ties broken by earlier last activity. Engine failures on the
// primary aggregation or on any completion check abort the run: silently
// including a possibly converted cart is worse than no answer.
func (d *Detector) Detect(ctx context.Context, p Params) ([]models.CartCandidate, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := d.now().UTC()
	windowStart := now.Add(-time.Duration(p.LookbackMinutes) * time.Minute)
	cutoff := now.Add(-time.Duration(p.AbandonmentMinutes) * time.Minute)

	body := map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"range": map[string]any{"@timestamp": map[string]any{"gte": windowStart.Format(time.RFC3339)}}},
				},
			},
		},
		"aggs": map[string]any{
			"by_cart": map[string]any{
				"terms": map[string]any{"field": "cart_id", "size": maxCartGroups},
				"aggs": map[string]any{
					"last_seen": map[string]any{"max": map[string]any{"field": "@timestamp"}},
					"last_event": map[string]any{
						"top_hits": map[string]any{
							"size": 1,
							"sort": []any{map[string]any{"@timestamp": map[string]any{"order": "desc"}}},
							"_source": map[string]any{
								"includes": []string{
									"cart_id", "customer_id", "session_id",
									"cart_value", "currency", "device_type", "@timestamp",
								},
							},
						},
					},
				},
			},
		},
	}

	res, err := d.store.Search(ctx, store.IndexCartEvents, body)
	if err != nil {
		return nil, err
	}

	var aggs cartBuckets
	if err := json.Unmarshal(res.Aggregations, &aggs); err != nil {
		return nil, fmt.Errorf("failed to decode cart aggregation: %w", err)
	}

	var candidates []models.CartCandidate
	for _, bucket := range aggs.ByCart.Buckets {
		lastSeen, ok := parseLastSeen(bucket.LastSeen.ValueAsString, bucket.LastSeen.Value)
		if !ok {
			continue
		}
		if lastSeen.After(cutoff) {
			// Still active.
			continue
		}
		if len(bucket.LastEvent.Hits.Hits) == 0 {
			continue
		}

		var last models.CartEvent
		if err := json.Unmarshal(bucket.LastEvent.Hits.Hits[0].Source, &last); err != nil {
			return nil, fmt.Errorf("failed to decode representative event for cart %s: %w", bucket.Key, err)
		}
		if last.CartID == "" || last.CustomerID == "" {
			continue
		}

		converted, err := d.checkoutCompleted(ctx, last.CartID, windowStart)
		if err != nil {
			return nil, err
		}
		if converted {
			continue
		}

		currency := last.Currency
		if currency == "" {
			currency = "USD"
		}

		candidates = append(candidates, models.CartCandidate{
			CartID:     last.CartID,
			CustomerID: last.CustomerID,
			SessionID:  last.SessionID,
			LastSeen:   lastSeen,
			CartValue:  last.CartValue,
			Currency:   currency,
			DeviceType: last.DeviceType,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CartValue != candidates[j].CartValue {
			return candidates[i].CartValue > candidates[j].CartValue
		}
		return candidates[i].LastSeen.Before(candidates[j].LastSeen)
	})

	if len(candidates) > p.MaxCandidates {
		candidates = candidates[:p.MaxCandidates]
	}

	d.logger.Info("Abandoned cart detection completed",
		zap.Int("buckets", len(aggs.ByCart.Buckets)),
		zap.Int("candidates", len(candidates)))

	return candidates, nil
}

// checkoutCompleted reports whether the cart has a completed checkout in the
// lookback window, meaning it converted and is not abandoned.
func (d *Detector) checkoutCompleted(ctx context.Context, cartID string, windowStart time.Time) (bool, error) {
	body := map[string]any{
		"size": 1,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"cart_id": cartID}},
					map[string]any{"term": map[string]any{"status": "completed"}},
					map[string]any{"range": map[string]any{"@timestamp": map[string]any{"gte": windowStart.Format(time.RFC3339)}}},
				},
			},
		},
	}

	res, err := d.store.Search(ctx, store.IndexCheckoutEvents, body)
	if err != nil {
		return false, err
	}

	return res.Total > 0, nil
}

func parseLastSeen(asString string, epochMillis *float64) (time.Time, bool) {
	if asString != "" {
		if t, err := time.Parse(time.RFC3339, asString); err == nil {
			return t.UTC(), true
		}
	}
	if epochMillis != nil {
		return time.UnixMilli(int64(*epochMillis)).UTC(), true
	}
	return time.Time{}, false
}
