// Package metrics exposes render telemetry as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-treads/pkg/resolver"
)

// Collectors records resolver activity. It implements resolver.Observer.
type Collectors struct {
	registry *prometheus.Registry

	Renders        *prometheus.CounterVec
	RenderFailures *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
}

var _ resolver.Observer = (*Collectors)(nil)

// New registers the collectors on registry. A nil registry gets a fresh one
// with the Go and process collectors.
func New(registry *prometheus.Registry) *Collectors {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collectors{
		registry: registry,
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "treads_renders_total",
				Help: "Total number of rendered fragments by fallback stage",
			},
			[]string{"stage"},
		),
		RenderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "treads_render_failures_total",
				Help: "Total number of failed renders by failure kind",
			},
			[]string{"kind"},
		),
		LookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "treads_lookup_duration_seconds",
				Help:    "Duration of template lookups in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"scope", "outcome"},
		),
	}
	registry.MustRegister(c.Renders, c.RenderFailures, c.LookupDuration)
	return c
}

// Registry returns the registry the collectors live on.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collectors) ObserveLookup(stage resolver.Stage, outcome string, elapsed time.Duration) {
	c.LookupDuration.WithLabelValues(stage.String(), outcome).Observe(elapsed.Seconds())
}

func (c *Collectors) ObserveRender(stage resolver.Stage) {
	c.Renders.WithLabelValues(stage.String()).Inc()
}

func (c *Collectors) ObserveFailure(kind string) {
	c.RenderFailures.WithLabelValues(kind).Inc()
}
