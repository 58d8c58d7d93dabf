// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playbook-dev/playbook/internal/embedding"
	"github.com/playbook-dev/playbook/internal/metrics"
)

var _ embedding.Observer = (*metrics.Metrics)(nil)

func newRouter(m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/plays/{play_id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := metrics.New(metrics.Config{})
	h := newRouter(m)

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plays/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// One series per route pattern, not per play id.
	n, err := testutil.GatherAndCount(m.Registry(), "playbook_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMiddleware_CountsRequests(t *testing.T) {
	m := metrics.New(metrics.Config{})
	h := newRouter(m)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/plays/a", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/plays/b", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	body := scrape(t, m)
	assert.Contains(t, body, `playbook_http_requests_total{method="GET",route="/api/v1/plays/{play_id}",status="404"} 2`)
	assert.Contains(t, body, `playbook_http_requests_total{method="GET",route="/ok",status="200"} 1`)
	assert.Contains(t, body, `route="unmatched"`)
}

func TestObserveEmbedding(t *testing.T) {
	m := metrics.New(metrics.Config{})

	m.ObserveEmbedding("openai", 20*time.Millisecond, nil)
	m.ObserveEmbedding("openai", 30*time.Millisecond, errors.New("boom"))

	body := scrape(t, m)
	assert.Contains(t, body, `playbook_embedding_failures_total{provider="openai"} 1`)
	assert.Contains(t, body, `playbook_embedding_duration_seconds_count{provider="openai"} 2`)
}

func TestRuntimeCollectors(t *testing.T) {
	m := metrics.New(metrics.DefaultConfig())
	assert.Contains(t, scrape(t, m), "go_goroutines")

	bare := metrics.New(metrics.Config{})
	assert.NotContains(t, scrape(t, bare), "go_goroutines")
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	b, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(b)
}
