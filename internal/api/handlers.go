// Package api exposes each pipeline step as a JSON tool operation for the
// orchestrator agent.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/detector"
	"github.com/recoverly/cart-recovery/internal/diagnosis"
	"github.com/recoverly/cart-recovery/internal/dispatch"
	"github.com/recoverly/cart-recovery/internal/models"
	"github.com/recoverly/cart-recovery/internal/policy"
	"github.com/recoverly/cart-recovery/internal/profiles"
	"github.com/recoverly/cart-recovery/internal/recorder"
	"github.com/recoverly/cart-recovery/internal/similarity"
	"github.com/recoverly/cart-recovery/internal/store"
)

// Request defaults for the tool operations.
const (
	defaultLookbackMinutes    = 1440
	defaultAbandonmentMinutes = 30
	defaultMaxCandidates      = 20
	defaultLookbackDays       = 180
	defaultSimilaritySize     = 20
)

// Handlers wires the pipeline components to the tools endpoints.
type Handlers struct {
	detector   *detector.Detector
	diagnoser  *diagnosis.Diagnoser
	profiles   *profiles.Reader
	similarity *similarity.Aggregator
	gate       *dispatch.Gate
	recorder   *recorder.Recorder
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewHandlers creates the tools handlers.
func NewHandlers(
	det *detector.Detector,
	diag *diagnosis.Diagnoser,
	prof *profiles.Reader,
	sim *similarity.Aggregator,
	gate *dispatch.Gate,
	rec *recorder.Recorder,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		detector:   det,
		diagnoser:  diag,
		profiles:   prof,
		similarity: sim,
		gate:       gate,
		recorder:   rec,
		logger:     logger,
		tracer:     otel.Tracer("tools-handlers"),
	}
}

// RegisterRoutes mounts the tool operations under /tools.
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	tools := router.Group("/tools")
	{
		tools.POST("/detect_abandoned_carts", h.DetectAbandonedCarts)
		tools.POST("/analyze_abandonment", h.AnalyzeAbandonment)
		tools.POST("/get_customer_profile", h.GetCustomerProfile)
		tools.POST("/find_similar_abandonments", h.FindSimilarAbandonments)
		tools.POST("/decide_recovery_action", h.DecideRecoveryAction)
		tools.POST("/trigger_recovery_action", h.TriggerRecoveryAction)
		tools.POST("/record_recovery_attempt", h.RecordRecoveryAttempt)
	}
}

// storeError maps pipeline failures onto HTTP statuses: lookup misses are
// 404, store outages are 502, anything else is 500.
func (h *Handlers) storeError(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// DetectAbandonedCarts handles POST /tools/detect_abandoned_carts.
func (h *Handlers) DetectAbandonedCarts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "detect_abandoned_carts")
	defer span.End()

	var req struct {
		LookbackMinutes    int `json:"lookback_minutes"`
		AbandonmentMinutes int `json:"abandonment_minutes"`
		MaxCandidates      int `json:"max_candidates"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := detector.Params{
		LookbackMinutes:    req.LookbackMinutes,
		AbandonmentMinutes: req.AbandonmentMinutes,
		MaxCandidates:      req.MaxCandidates,
	}
	if params.LookbackMinutes == 0 {
		params.LookbackMinutes = defaultLookbackMinutes
	}
	if params.AbandonmentMinutes == 0 {
		params.AbandonmentMinutes = defaultAbandonmentMinutes
	}
	if params.MaxCandidates == 0 {
		params.MaxCandidates = defaultMaxCandidates
	}
	if err := params.Validate(); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidates, err := h.detector.Detect(ctx, params)
	if err != nil {
		h.storeError(c, span, err)
		return
	}

	span.SetAttributes(attribute.Int("candidates_count", len(candidates)))

	if candidates == nil {
		candidates = []models.CartCandidate{}
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// AnalyzeAbandonment handles POST /tools/analyze_abandonment.
func (h *Handlers) AnalyzeAbandonment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "analyze_abandonment")
	defer span.End()

	var req struct {
		CartID string `json:"cart_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	diag, err := h.diagnoser.Diagnose(ctx, req.CartID)
	if err != nil {
		h.storeError(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("cart_id", req.CartID),
		attribute.String("root_cause", string(diag.RootCause)),
	)

	c.JSON(http.StatusOK, gin.H{"cart_id": req.CartID, "diagnosis": diag})
}

// GetCustomerProfile handles POST /tools/get_customer_profile.
func (h *Handlers) GetCustomerProfile(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_customer_profile")
	defer span.End()

	var req struct {
		CustomerID string `json:"customer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profiles.Get(ctx, req.CustomerID)
	if err != nil {
		h.storeError(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("customer_id", req.CustomerID),
		attribute.String("segment", profile.Segment),
	)

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// FindSimilarAbandonments handles POST /tools/find_similar_abandonments.
func (h *Handlers) FindSimilarAbandonments(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "find_similar_abandonments")
	defer span.End()

	var req struct {
		Similarity   similarity.Query `json:"similarity" binding:"required"`
		LookbackDays int              `json:"lookback_days"`
		Size         int              `json:"size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := similarity.Params{
		Similarity:   req.Similarity,
		LookbackDays: req.LookbackDays,
		Size:         req.Size,
	}
	if params.LookbackDays == 0 {
		params.LookbackDays = defaultLookbackDays
	}
	if params.Size == 0 {
		params.Size = defaultSimilaritySize
	}
	if err := params.Validate(); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.similarity.FindSimilar(ctx, params)
	if err != nil {
		h.storeError(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("root_cause", string(req.Similarity.RootCause)),
		attribute.Int("stats_count", len(result.Stats)),
	)

	if result.Stats == nil {
		result.Stats = []models.ActionOutcomeStats{}
	}
	if result.Examples == nil {
		result.Examples = []json.RawMessage{}
	}
	c.JSON(http.StatusOK, result)
}

// DecideRecoveryAction handles POST /tools/decide_recovery_action. The
// decision itself is pure; this endpoint only adds transport.
func (h *Handlers) DecideRecoveryAction(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "decide_recovery_action")
	defer span.End()

	var req struct {
		Cart         models.CartCandidate        `json:"cart" binding:"required"`
		Diagnosis    models.Diagnosis            `json:"diagnosis" binding:"required"`
		Customer     models.CustomerProfile      `json:"customer" binding:"required"`
		SimilarStats []models.ActionOutcomeStats `json:"similar_stats"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision := policy.Decide(req.Cart, req.Diagnosis, req.Customer, req.SimilarStats)

	span.SetAttributes(
		attribute.String("cart_id", req.Cart.CartID),
		attribute.String("action_type", string(decision.Action.Type)),
		attribute.String("channel", string(decision.Action.Channel)),
	)

	c.JSON(http.StatusOK, decision)
}

// TriggerRecoveryAction handles POST /tools/trigger_recovery_action.
func (h *Handlers) TriggerRecoveryAction(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "trigger_recovery_action")
	defer span.End()

	var req struct {
		Cart     models.CartCandidate   `json:"cart" binding:"required"`
		Customer models.CustomerProfile `json:"customer" binding:"required"`
		Action   models.RecoveryAction  `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.gate.Trigger(ctx, req.Cart, req.Customer, req.Action)
	if err != nil {
		// Provider failures still carry a verdict worth returning.
		span.RecordError(err)
	}

	span.SetAttributes(
		attribute.String("cart_id", req.Cart.CartID),
		attribute.String("status", string(result.Status)),
	)

	c.JSON(http.StatusOK, result)
}

// RecordRecoveryAttempt handles POST /tools/record_recovery_attempt.
func (h *Handlers) RecordRecoveryAttempt(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "record_recovery_attempt")
	defer span.End()

	var req struct {
		Cart      models.CartCandidate   `json:"cart" binding:"required"`
		Customer  models.CustomerProfile `json:"customer" binding:"required"`
		Diagnosis models.Diagnosis       `json:"diagnosis" binding:"required"`
		Action    models.RecoveryAction  `json:"action" binding:"required"`
		SentAt    time.Time              `json:"sent_at" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recoveryID, err := h.recorder.Record(ctx, req.Cart, req.Customer, req.Diagnosis, req.Action, req.SentAt)
	if err != nil {
		h.storeError(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("cart_id", req.Cart.CartID),
		attribute.String("recovery_id", recoveryID),
	)

	c.JSON(http.StatusOK, gin.H{"recovery_id": recoveryID})
}
