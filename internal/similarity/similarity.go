// Package similarity looks up recovery history comparable to a fresh
// abandonment and aggregates how each action type performed.
package similarity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/models"
	"github.com/recoverly/cart-recovery/internal/store"
)

// Parameter bounds for a similarity lookup.
const (
	MinLookbackDays = 7
	MaxLookbackDays = 730
	MinSize         = 1
	MaxSize         = 100

	// bandCeiling stands in for an upper bound when the cart value is zero,
	// where a multiplicative band would collapse to [0, 0].
	bandCeiling = 999999

	maxActionBuckets = 10
)

// Query selects the similarity cohort: same root cause, same segment, and a
// cart value within the band around the query value.
type Query struct {
	RootCause models.RootCause `json:"root_cause"`
	Segment   string           `json:"segment"`
	CartValue float64          `json:"cart_value"`
}

// Params configures a lookup.
type Params struct {
	Similarity   Query `json:"similarity"`
	LookbackDays int   `json:"lookback_days"`
	Size         int   `json:"size"`
}

// Validate checks the stated parameter bounds.
func (p Params) Validate() error {
	if p.LookbackDays < MinLookbackDays || p.LookbackDays > MaxLookbackDays {
		return fmt.Errorf("lookback_days must be between %d and %d, got %d",
			MinLookbackDays, MaxLookbackDays, p.LookbackDays)
	}
	if p.Size < MinSize || p.Size > MaxSize {
		return fmt.Errorf("size must be between %d and %d, got %d", MinSize, MaxSize, p.Size)
	}
	return nil
}

// Result is the outcome of a lookup: per-action success stats plus up to
// Size raw matching records, newest first, for inspection.
type Result struct {
	Stats    []models.ActionOutcomeStats `json:"stats"`
	Examples []json.RawMessage           `json:"examples"`
}

// ValueBand returns the cart-value range used to match history. Zero-value
// carts match everything up to the ceiling.
func ValueBand(cartValue float64) (low, high float64) {
	low = cartValue * 0.8
	if low < 0 {
		low = 0
	}
	high = cartValue * 1.2
	if cartValue <= 0 {
		high = bandCeiling
	}
	return low, high
}

// Aggregator searches recovery history for comparable abandonments.
type Aggregator struct {
	store  *store.Gateway
	logger *zap.Logger
	now    func() time.Time
}

// New creates an aggregator.
func New(gateway *store.Gateway, logger *zap.Logger) *Aggregator {
	return &Aggregator{store: gateway, logger: logger, now: time.Now}
}

type actionBuckets struct {
	ByAction struct {
		Buckets []struct {
			Key      string `json:"key"`
			DocCount int    `json:"doc_count"`
			ByOutcome struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int    `json:"doc_count"`
				} `json:"buckets"`
			} `json:"by_outcome"`
			AvgRecovered struct {
				Value *float64 `json:"value"`
			} `json:"avg_recovered"`
		} `json:"buckets"`
	} `json:"by_action"`
}

// FindSimilar aggregates recovery outcomes for history matching the query.
func (a *Aggregator) FindSimilar(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	windowStart := a.now().UTC().AddDate(0, 0, -p.LookbackDays)
	low, high := ValueBand(p.Similarity.CartValue)

	body := map[string]any{
		"size": p.Size,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"diagnosis.root_cause": string(p.Similarity.RootCause)}},
					map[string]any{"term": map[string]any{"segment": p.Similarity.Segment}},
					map[string]any{"range": map[string]any{"cart_value": map[string]any{"gte": low, "lte": high}}},
					map[string]any{"range": map[string]any{"@timestamp": map[string]any{"gte": windowStart.Format(time.RFC3339)}}},
				},
			},
		},
		"aggs": map[string]any{
			"by_action": map[string]any{
				"terms": map[string]any{"field": "action.type", "size": maxActionBuckets},
				"aggs": map[string]any{
					"by_outcome":    map[string]any{"terms": map[string]any{"field": "outcome.status", "size": maxActionBuckets}},
					"avg_recovered": map[string]any{"avg": map[string]any{"field": "outcome.revenue_recovered"}},
				},
			},
		},
		"sort": []any{map[string]any{"@timestamp": map[string]any{"order": "desc"}}},
	}

	res, err := a.store.Search(ctx, store.IndexRecoveryHistory, body)
	if err != nil {
		return nil, err
	}

	var aggs actionBuckets
	if len(res.Aggregations) > 0 {
		if err := json.Unmarshal(res.Aggregations, &aggs); err != nil {
			return nil, fmt.Errorf("failed to decode action aggregation: %w", err)
		}
	}

	result := &Result{}
	for _, bucket := range aggs.ByAction.Buckets {
		recovered := 0
		for _, outcome := range bucket.ByOutcome.Buckets {
			if outcome.Key == string(models.OutcomeRecovered) {
				recovered = outcome.DocCount
			}
		}

		successRate := 0.0
		if bucket.DocCount > 0 {
			successRate = float64(recovered) / float64(bucket.DocCount)
		}

		avgRecovered := 0.0
		if bucket.AvgRecovered.Value != nil {
			avgRecovered = *bucket.AvgRecovered.Value
		}

		result.Stats = append(result.Stats, models.ActionOutcomeStats{
			ActionType:          models.ActionType(bucket.Key),
			Total:               bucket.DocCount,
			Recovered:           recovered,
			SuccessRate:         successRate,
			AvgRevenueRecovered: avgRecovered,
		})
	}

	for _, hit := range res.Hits {
		result.Examples = append(result.Examples, hit.Source)
	}

	a.logger.Debug("Similarity lookup completed",
		zap.String("root_cause", string(p.Similarity.RootCause)),
		zap.String("segment", p.Similarity.Segment),
		zap.Int("action_types", len(result.Stats)),
		zap.Int("examples", len(result.Examples)))

	return result, nil
}
