// Package agent drives recovery passes against the tools server: detect
// candidates, then walk each one through diagnosis, profile lookup,
// similarity, decision, dispatch, and recording.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/detector"
	"github.com/recoverly/cart-recovery/internal/dispatch"
	"github.com/recoverly/cart-recovery/internal/models"
	"github.com/recoverly/cart-recovery/internal/policy"
	"github.com/recoverly/cart-recovery/internal/similarity"
)

const requestTimeout = 30 * time.Second

// Defaults for a pass.
const (
	DefaultLookbackMinutes    = 1440
	DefaultAbandonmentMinutes = 30
	DefaultMaxCandidates      = 20
	DefaultProcessTop         = 3
	DefaultLookbackDays       = 180
	DefaultSimilaritySize     = 20
)

// Client calls the tools server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a tools server client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// PassOptions configures one orchestration pass.
type PassOptions struct {
	LookbackMinutes    int
	AbandonmentMinutes int
	MaxCandidates      int
	ProcessTop         int
}

func (o PassOptions) withDefaults() PassOptions {
	if o.LookbackMinutes == 0 {
		o.LookbackMinutes = DefaultLookbackMinutes
	}
	if o.AbandonmentMinutes == 0 {
		o.AbandonmentMinutes = DefaultAbandonmentMinutes
	}
	if o.MaxCandidates == 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.ProcessTop == 0 {
		o.ProcessTop = DefaultProcessTop
	}
	return o
}

// CandidateOutcome summarizes what happened to one candidate in a pass.
// Err is set when a step failed and the candidate was abandoned mid-pipeline;
// other candidates are unaffected.
type CandidateOutcome struct {
	CartID         string
	RootCause      models.RootCause
	Action         models.RecoveryAction
	Rationale      string
	DispatchStatus models.DispatchStatus
	MessageID      string
	RecoveryID     string
	Err            error
}

// RunPass detects abandoned carts and processes the top candidates. Each
// candidate's pipeline is strictly serialized; a failure in one candidate
// does not taint the others.
func (c *Client) RunPass(ctx context.Context, opts PassOptions) ([]CandidateOutcome, error) {
	opts = opts.withDefaults()

	var detected struct {
		Candidates []models.CartCandidate `json:"candidates"`
	}
	err := c.post(ctx, "/tools/detect_abandoned_carts", detector.Params{
		LookbackMinutes:    opts.LookbackMinutes,
		AbandonmentMinutes: opts.AbandonmentMinutes,
		MaxCandidates:      opts.MaxCandidates,
	}, &detected)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	top := detected.Candidates
	if len(top) > opts.ProcessTop {
		top = top[:opts.ProcessTop]
	}

	c.logger.Info("Detected abandoned cart candidates",
		zap.Int("total", len(detected.Candidates)),
		zap.Int("processing", len(top)))

	outcomes := make([]CandidateOutcome, 0, len(top))
	for _, candidate := range top {
		outcomes = append(outcomes, c.processCandidate(ctx, candidate))
	}

	return outcomes, nil
}

func (c *Client) processCandidate(ctx context.Context, candidate models.CartCandidate) CandidateOutcome {
	outcome := CandidateOutcome{CartID: candidate.CartID}

	var analysis struct {
		CartID    string           `json:"cart_id"`
		Diagnosis models.Diagnosis `json:"diagnosis"`
	}
	if err := c.post(ctx, "/tools/analyze_abandonment", map[string]any{"cart_id": candidate.CartID}, &analysis); err != nil {
		outcome.Err = fmt.Errorf("analyze failed: %w", err)
		return outcome
	}
	outcome.RootCause = analysis.Diagnosis.RootCause

	var profileResp struct {
		Profile models.CustomerProfile `json:"profile"`
	}
	if err := c.post(ctx, "/tools/get_customer_profile", map[string]any{"customer_id": candidate.CustomerID}, &profileResp); err != nil {
		outcome.Err = fmt.Errorf("profile lookup failed: %w", err)
		return outcome
	}

	var similar similarity.Result
	err := c.post(ctx, "/tools/find_similar_abandonments", map[string]any{
		"similarity": similarity.Query{
			RootCause: analysis.Diagnosis.RootCause,
			Segment:   profileResp.Profile.Segment,
			CartValue: candidate.CartValue,
		},
		"lookback_days": DefaultLookbackDays,
		"size":          DefaultSimilaritySize,
	}, &similar)
	if err != nil {
		outcome.Err = fmt.Errorf("similarity lookup failed: %w", err)
		return outcome
	}

	var decision policy.Decision
	err = c.post(ctx, "/tools/decide_recovery_action", map[string]any{
		"cart":          candidate,
		"diagnosis":     analysis.Diagnosis,
		"customer":      profileResp.Profile,
		"similar_stats": similar.Stats,
	}, &decision)
	if err != nil {
		outcome.Err = fmt.Errorf("decision failed: %w", err)
		return outcome
	}
	outcome.Action = decision.Action
	outcome.Rationale = decision.Rationale

	c.logger.Info("Recovery action decided",
		zap.String("cart_id", candidate.CartID),
		zap.String("root_cause", string(analysis.Diagnosis.RootCause)),
		zap.String("action", string(decision.Action.Type)),
		zap.String("rationale", decision.Rationale))

	var triggered dispatch.Result
	err = c.post(ctx, "/tools/trigger_recovery_action", map[string]any{
		"cart":     candidate,
		"customer": profileResp.Profile,
		"action":   decision.Action,
	}, &triggered)
	if err != nil {
		outcome.Err = fmt.Errorf("trigger failed: %w", err)
		return outcome
	}
	outcome.DispatchStatus = triggered.Status
	outcome.MessageID = triggered.MessageID

	// Only sent attempts are recorded; skips and failures leave no trace.
	if triggered.Status != models.DispatchSent {
		return outcome
	}

	var recorded struct {
		RecoveryID string `json:"recovery_id"`
	}
	err = c.post(ctx, "/tools/record_recovery_attempt", map[string]any{
		"cart":      candidate,
		"customer":  profileResp.Profile,
		"diagnosis": analysis.Diagnosis,
		"action":    decision.Action,
		"sent_at":   time.Now().UTC().Format(time.RFC3339),
	}, &recorded)
	if err != nil {
		outcome.Err = fmt.Errorf("record failed: %w", err)
		return outcome
	}
	outcome.RecoveryID = recorded.RecoveryID

	return outcome
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", path, res.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}

	return nil
}
