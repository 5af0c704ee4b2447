// Package store is the gateway to the document store backing the recovery
// pipeline. It wraps the Elasticsearch client with the handful of capabilities
// the pipeline needs: filtered searches, aggregations, get-by-id, and indexed
// writes with caller-supplied document ids.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// Index names for the collections the pipeline reads and writes.
const (
	IndexCartEvents       = "cart_events"
	IndexCheckoutEvents   = "checkout_events"
	IndexPaymentLogs      = "payment_logs"
	IndexSessionMetrics   = "session_metrics"
	IndexCustomerProfiles = "customer_profiles"
	IndexRecoveryHistory  = "recovery_history"
)

// DefaultTimeout bounds every round-trip to the store.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound reports a get-by-id miss.
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable reports an engine or transport failure. Callers surface
	// it without retrying; retries are an orchestrator concern.
	ErrUnavailable = errors.New("document store unavailable")
)

// Config carries connection settings for the store. An API key takes
// precedence over basic auth when both are set.
type Config struct {
	URL      string
	APIKey   string
	Username string
	Password string
	Timeout  time.Duration
}

// Gateway is a shared handle to the document store. It is safe for use by
// concurrent orchestration passes.
type Gateway struct {
	es      *elasticsearch.Client
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a gateway from config. It does not probe the cluster; the first
// call surfaces connectivity problems.
func New(cfg Config, logger *zap.Logger) (*Gateway, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
	}

	if cfg.APIKey != "" {
		esCfg.APIKey = cfg.APIKey
	} else if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create document store client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Gateway{es: es, timeout: timeout, logger: logger}, nil
}

// Hit is one search hit with its raw source document.
type Hit struct {
	ID     string
	Source json.RawMessage
}

// SearchResult is the typed subset of a search response the pipeline uses.
type SearchResult struct {
	Total        int
	Hits         []Hit
	Aggregations json.RawMessage
}

type searchEnvelope struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations"`
}

// Search runs a search request body against one index.
func (g *Gateway) Search(ctx context.Context, index string, body map[string]any) (*SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search body for %s: %w", index, err)
	}

	res, err := g.es.Search(
		g.es.Search.WithContext(ctx),
		g.es.Search.WithIndex(index),
		g.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w: %w", index, ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %s: %w: %s", index, ErrUnavailable, res.String())
	}

	var env searchEnvelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("search %s: failed to decode response: %w", index, err)
	}

	result := &SearchResult{
		Total:        env.Hits.Total.Value,
		Aggregations: env.Aggregations,
	}
	for _, h := range env.Hits.Hits {
		result.Hits = append(result.Hits, Hit{ID: h.ID, Source: h.Source})
	}

	return result, nil
}

// GetByID fetches a single document by id. A miss returns ErrNotFound.
func (g *Gateway) GetByID(ctx context.Context, index, id string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.es.Get(index, id, g.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w: %w", index, id, ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("get %s/%s: %w", index, id, ErrNotFound)
	}
	if res.IsError() {
		return nil, fmt.Errorf("get %s/%s: %w: %s", index, id, ErrUnavailable, res.String())
	}

	var env struct {
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("get %s/%s: failed to decode response: %w", index, id, err)
	}

	return env.Source, nil
}

// Index writes a document under the given id. Writing the same id twice is
// idempotent at the store, which is what makes attempt recording retry-safe.
func (g *Gateway) Index(ctx context.Context, index, id string, doc any) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document for %s: %w", index, err)
	}

	res, err := g.es.Index(
		index,
		bytes.NewReader(payload),
		g.es.Index.WithDocumentID(id),
		g.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index %s/%s: %w: %w", index, id, ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index %s/%s: %w: %s", index, id, ErrUnavailable, res.String())
	}

	return nil
}

// Refresh makes recent writes visible to search. Used by bootstrap seeding
// and tests, not by the pipeline itself.
func (g *Gateway) Refresh(ctx context.Context, indices ...string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.es.Indices.Refresh(
		g.es.Indices.Refresh.WithContext(ctx),
		g.es.Indices.Refresh.WithIndex(indices...),
	)
	if err != nil {
		return fmt.Errorf("refresh: %w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("refresh: %w: %s", ErrUnavailable, res.String())
	}

	return nil
}

// IndexExists reports whether an index is present.
func (g *Gateway) IndexExists(ctx context.Context, index string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.es.Indices.Exists([]string{index}, g.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("exists %s: %w: %w", index, ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("exists %s: %w: %s", index, ErrUnavailable, res.String())
	}

	return true, nil
}

// CreateIndex creates an index with the given mapping body.
func (g *Gateway) CreateIndex(ctx context.Context, index string, body map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode mapping for %s: %w", index, err)
	}

	res, err := g.es.Indices.Create(
		index,
		g.es.Indices.Create.WithBody(bytes.NewReader(payload)),
		g.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w: %w", index, ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create %s: %w: %s", index, ErrUnavailable, res.String())
	}

	g.logger.Info("Created index", zap.String("index", index))
	return nil
}

// DecodeHits unmarshals hit sources into a typed slice, preserving order.
func DecodeHits[T any](hits []Hit) ([]T, error) {
	out := make([]T, 0, len(hits))
	for _, h := range hits {
		var v T
		if err := json.Unmarshal(h.Source, &v); err != nil {
			return nil, fmt.Errorf("failed to decode hit %s: %w", h.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
