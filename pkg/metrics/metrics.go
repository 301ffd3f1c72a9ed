// Package metrics collects per-list run statistics in a dedicated prometheus
// registry. The blocklist runs as a one-shot job, so the registry is written
// out in the node-exporter textfile format instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

const namespace = "blocklist"

// Recorder holds the run metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	invalid            *prometheus.CounterVec
	added              *prometheus.CounterVec
	removed            *prometheus.CounterVec
	enrichmentFailures *prometheus.CounterVec
	entries            *prometheus.GaugeVec
	outputBytes        *prometheus.GaugeVec
	lastSuccess        *prometheus.GaugeVec
	lookupDuration     *prometheus.HistogramVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	label := []string{"list"}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		invalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "invalid_entries_total",
			Help: "Input lines rejected by validation.",
		}, label),
		added: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "added_entries_total",
			Help: "Entries added compared to the previously published list.",
		}, label),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "removed_entries_total",
			Help: "Entries removed compared to the previously published list.",
		}, label),
		enrichmentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "enrichment_failures_total",
			Help: "Enrichment lookups that failed.",
		}, label),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "entries",
			Help: "Entries in the last written list.",
		}, label),
		outputBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "output_bytes",
			Help: "Size of the last written list.",
		}, label),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, label),
		lookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "enrichment_lookup_duration_seconds",
			Help:    "Duration of enrichment lookups.",
			Buckets: DefaultBuckets,
		}, label),
	}

	r.registry.MustRegister(
		r.invalid, r.added, r.removed, r.enrichmentFailures,
		r.entries, r.outputBytes, r.lastSuccess, r.lookupDuration,
	)

	return r
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// Invalid counts n rejected input lines.
func (r *Recorder) Invalid(list string, n int) {
	if r == nil {
		return
	}
	r.invalid.WithLabelValues(list).Add(float64(n))
}

// Diff counts added and removed entries.
func (r *Recorder) Diff(list string, added, removed int) {
	if r == nil {
		return
	}
	r.added.WithLabelValues(list).Add(float64(added))
	r.removed.WithLabelValues(list).Add(float64(removed))
}

// Lookup observes one enrichment lookup.
func (r *Recorder) Lookup(list string, d time.Duration, ok bool) {
	if r == nil {
		return
	}
	r.lookupDuration.WithLabelValues(list).Observe(d.Seconds())
	if !ok {
		r.enrichmentFailures.WithLabelValues(list).Inc()
	}
}

// Written records a list that was written and accepted.
func (r *Recorder) Written(list string, entries int, size int64, at time.Time) {
	if r == nil {
		return
	}
	r.entries.WithLabelValues(list).Set(float64(entries))
	r.outputBytes.WithLabelValues(list).Set(float64(size))
	r.lastSuccess.WithLabelValues(list).Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("could not write metrics textfile: %w", err)
	}

	return nil
}
