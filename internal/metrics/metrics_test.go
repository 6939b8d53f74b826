package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

func TestObservers(t *testing.T) {
	c := New()

	c.ObserveFlow("summarize", nil)
	c.ObserveFlow("summarize", errors.New("boom"))
	c.ObserveFetch(true, nil)
	c.ObserveStore(encyclopedia.Event{Type: encyclopedia.EventLinkAdded})
	c.ObserveStore(encyclopedia.Event{Type: encyclopedia.EventLinkAdded})
	c.ObservePipelineRun(nil)
	c.ObservePipelineStep("collect", "added", 3)
	c.ObservePipelineStep("collect", "failed", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.FlowCalls.WithLabelValues("summarize", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FlowCalls.WithLabelValues("summarize", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Fetches.WithLabelValues("proxy", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.StoreEvents.WithLabelValues("link_added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PipelineRuns.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.PipelineItems.WithLabelValues("collect", "added")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.PipelineItems))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	c := New()
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/categories/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", c.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/categories/enc-news", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/categories/{id}", "418")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "repwatch_http_requests_total"))
}
