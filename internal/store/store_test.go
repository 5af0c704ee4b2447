package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	gateway, err := New(Config{URL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	return gateway
}

func TestSearch(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		fmt.Fprint(w, `{
			"hits": {"total": {"value": 2}, "hits": [
				{"_id": "a", "_source": {"cart_id": "cart_1"}},
				{"_id": "b", "_source": {"cart_id": "cart_2"}}
			]},
			"aggregations": {"by_cart": {"buckets": []}}
		}`)
	})

	res, err := gateway.Search(context.Background(), IndexCartEvents, map[string]any{"size": 2})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotPath, "/"+IndexCartEvents))
	assert.Equal(t, float64(2), gotBody["size"])

	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "a", res.Hits[0].ID)
	assert.NotNil(t, res.Aggregations)
}

func TestSearchEngineError(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"reason":"bad query"}}`)
	})

	_, err := gateway.Search(context.Background(), IndexCartEvents, map[string]any{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetByID(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/cust_001"))
		fmt.Fprint(w, `{"found": true, "_source": {"customer_id": "cust_001"}}`)
	})

	raw, err := gateway.GetByID(context.Background(), IndexCustomerProfiles, "cust_001")
	require.NoError(t, err)
	assert.JSONEq(t, `{"customer_id": "cust_001"}`, string(raw))
}

func TestGetByIDNotFound(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"found": false}`)
	})

	_, err := gateway.GetByID(context.Background(), IndexCustomerProfiles, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestIndexUsesDocumentID(t *testing.T) {
	var gotPath string
	var gotDoc map[string]any

	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotDoc))
		fmt.Fprint(w, `{"result":"created"}`)
	})

	err := gateway.Index(context.Background(), IndexRecoveryHistory, "rec_abc", map[string]any{"recovery_id": "rec_abc"})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(gotPath, "/rec_abc"), "path %s should carry the document id", gotPath)
	assert.Equal(t, "rec_abc", gotDoc["recovery_id"])
}

func TestIndexEngineError(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":"full"}`)
	})

	err := gateway.Index(context.Background(), IndexRecoveryHistory, "rec_abc", map[string]any{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestIndexExists(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	exists, err := gateway.IndexExists(context.Background(), IndexCartEvents)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = gateway.IndexExists(context.Background(), "missing_index")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDecodeHits(t *testing.T) {
	type row struct {
		CartID string `json:"cart_id"`
	}

	hits := []Hit{
		{ID: "a", Source: json.RawMessage(`{"cart_id": "cart_1"}`)},
		{ID: "b", Source: json.RawMessage(`{"cart_id": "cart_2"}`)},
	}

	rows, err := DecodeHits[row](hits)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cart_1", rows[0].CartID)
	assert.Equal(t, "cart_2", rows[1].CartID)

	_, err = DecodeHits[row]([]Hit{{ID: "bad", Source: json.RawMessage(`not json`)}})
	assert.Error(t, err)
}

func TestMappingsCoverAllIndices(t *testing.T) {
	mappings := Mappings()

	for _, index := range []string{
		IndexCartEvents, IndexCheckoutEvents, IndexPaymentLogs,
		IndexSessionMetrics, IndexCustomerProfiles, IndexRecoveryHistory,
	} {
		assert.Contains(t, mappings, index)
	}
}
