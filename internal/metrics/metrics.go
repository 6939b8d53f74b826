// Package metrics exposes Prometheus counters for flows, fetches, store
// mutations, pipeline runs and HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

const namespace = "repwatch"

// Collector holds the application's metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	FlowCalls     *prometheus.CounterVec
	Fetches       *prometheus.CounterVec
	StoreEvents   *prometheus.CounterVec
	PipelineRuns  *prometheus.CounterVec
	PipelineItems *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// New creates a collector with every metric registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		FlowCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_calls_total",
			Help:      "AI flow calls by flow and outcome.",
		}, []string{"flow", "outcome"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_fetches_total",
			Help:      "Page fetches by route (direct or proxy) and outcome.",
		}, []string{"route", "outcome"}),
		StoreEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_events_total",
			Help:      "Encyclopedia store mutations by type.",
		}, []string{"type"}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Refresh pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_items_total",
			Help:      "Items handled by each pipeline step.",
		}, []string{"step", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.FlowCalls, c.Fetches, c.StoreEvents,
		c.PipelineRuns, c.PipelineItems,
		c.HTTPRequests, c.HTTPDuration,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveFlow implements flows.Observer.
func (c *Collector) ObserveFlow(flow string, err error) {
	c.FlowCalls.WithLabelValues(flow, outcome(err)).Inc()
}

// ObserveFetch implements fetch.Observer.
func (c *Collector) ObserveFetch(viaProxy bool, err error) {
	route := "direct"
	if viaProxy {
		route = "proxy"
	}
	c.Fetches.WithLabelValues(route, outcome(err)).Inc()
}

// ObserveStore counts a store event. Pass it to Store.Subscribe.
func (c *Collector) ObserveStore(e encyclopedia.Event) {
	c.StoreEvents.WithLabelValues(string(e.Type)).Inc()
}

// ObservePipelineRun counts a finished pipeline run.
func (c *Collector) ObservePipelineRun(err error) {
	c.PipelineRuns.WithLabelValues(outcome(err)).Inc()
}

// ObservePipelineStep adds n items with the given result to a step's count.
func (c *Collector) ObservePipelineStep(step, result string, n int) {
	if n <= 0 {
		return
	}
	c.PipelineItems.WithLabelValues(step, result).Add(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and durations, labelled by the chi
// route pattern so path parameters do not explode the label space.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
