// Package metrics exposes Prometheus collectors for default-value resolution.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "persistent_params"

// Recorder counts owner resolutions, history lookups and HTTP requests.
// It satisfies resolver.Observer and history.Observer.
type Recorder struct {
	registry *prometheus.Registry

	resolutions     *prometheus.CounterVec
	lookups         *prometheus.CounterVec
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// NewRecorder creates a Recorder with its own registry, including the Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "owner_resolutions_total",
			Help:      "Owner resolution attempts by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_lookups_total",
			Help:      "Build history lookups by outcome",
		}, []string{"outcome"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.resolutions,
		r.lookups,
		r.requestTotal,
		r.requestDuration,
	)
	return r
}

// ObserveResolution counts one owner resolution attempt.
func (r *Recorder) ObserveResolution(strategy, outcome string) {
	r.resolutions.WithLabelValues(strategy, outcome).Inc()
}

// ObserveLookup counts one history lookup.
func (r *Recorder) ObserveLookup(outcome string) {
	r.lookups.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one served HTTP request.
func (r *Recorder) ObserveRequest(method, route, status string, seconds float64) {
	r.requestTotal.WithLabelValues(method, route, status).Inc()
	r.requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// Registry returns the registry the collectors are registered with.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
