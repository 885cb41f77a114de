// Package metrics builds the per-generation Prometheus registry:
// one counter and one histogram per target, populated from the
// outcome stream. Grounded on the teacher's main.go, which builds a
// single prometheus.NewRegistry() per process and registers one
// collector into it — generalized here to many dynamically named
// counters/histograms built fresh for every config generation.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sonarwatch/sonar/internal/config"
	"github.com/sonarwatch/sonar/internal/metricname"
	"github.com/sonarwatch/sonar/internal/probe"
)

type entry struct {
	counter   prometheus.Counter
	histogram prometheus.Histogram
}

// Registry holds one generation's worth of per-target metrics. It is
// built once at generation start and discarded at shutdown; nothing
// about it is mutated afterward except the counters/histograms
// themselves via Record.
type Registry struct {
	prom    *prometheus.Registry
	entries map[string]*entry
}

// New builds a fresh registry with a counter and histogram registered
// for every target. Target names must be unique (config.Load
// guarantees this); each is normalized here to derive metric names.
func New(targets []config.Target) (*Registry, error) {
	prom := prometheus.NewRegistry()
	entries := make(map[string]*entry, len(targets))

	for _, t := range targets {
		// t.Name may be an explicit name from config (never re-validated
		// for metric-safety at load time) rather than one already derived
		// from a URL via metricname.Normalize, so it is normalized again
		// here at the point of use.
		normalized := metricname.Normalize(t.Name)

		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricname.CounterName(normalized),
			Help: fmt.Sprintf("Successful probes of target %s", t.Name),
		})
		histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricname.HistogramName(normalized),
			Help:    fmt.Sprintf("Probe latency in milliseconds for target %s", t.Name),
			Buckets: t.Buckets,
		})

		if err := prom.Register(counter); err != nil {
			return nil, fmt.Errorf("registering counter for target %s: %w", t.Name, err)
		}
		if err := prom.Register(histogram); err != nil {
			return nil, fmt.Errorf("registering histogram for target %s: %w", t.Name, err)
		}

		entries[t.Name] = &entry{counter: counter, histogram: histogram}
	}

	return &Registry{prom: prom, entries: entries}, nil
}

// Record observes one outcome. An outcome whose target_ref is not
// present in this registry is discarded, not errored — it belongs to
// a generation that has already been replaced.
func (r *Registry) Record(o probe.Outcome) {
	e, ok := r.entries[o.TargetRef]
	if !ok {
		return
	}
	if o.Success {
		e.counter.Inc()
	}
	e.histogram.Observe(float64(o.LatencyMS))
}

// Gatherer exposes the underlying prometheus.Gatherer for the HTTP
// server's exposition handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.prom
}
