// Package metrics holds the Prometheus counters recorded during a pipeline run.
//
// A run is a batch process, so nothing is served over HTTP; the registry is
// written once to a node-exporter textfile at the end of the run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "briefings"

// Registry groups every counter of a run on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	FetchRequests prometheus.Counter
	FetchErrors   prometheus.Counter
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter

	// Documents counts artifacts written per stage.
	Documents *prometheus.CounterVec
	// Skipped counts inputs a stage ignored (filtered rows, mismatched years, ...).
	Skipped *prometheus.CounterVec
}

// New creates a Registry with all counters registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		FetchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fetch", Name: "requests_total",
			Help: "Network requests issued by the fetcher.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fetch", Name: "errors_total",
			Help: "Fetches that ended in a FetchError.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Fetches answered from the response cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Fetches that had to go to the network.",
		}),
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "documents_total",
			Help: "Artifacts written, by stage.",
		}, []string{"stage"}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "skipped_total",
			Help: "Inputs skipped, by stage and reason.",
		}, []string{"stage", "reason"}),
	}

	r.reg.MustRegister(r.FetchRequests, r.FetchErrors, r.CacheHits, r.CacheMisses, r.Documents, r.Skipped)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteFile writes all metrics in the Prometheus text format to path.
func (r *Registry) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
