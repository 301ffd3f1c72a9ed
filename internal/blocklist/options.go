package blocklist

import (
	"blocklist/internal/config"
	"path/filepath"
	"strings"
)

// Limits are the hard limits a published list must respect.
type Limits struct {
	// MaxEntries is the maximum number of entries in one list.
	MaxEntries int
	// MaxAnnotationLength is the maximum length of the "# annotation" part of a line.
	MaxAnnotationLength int
	// MaxSizeBytes is the maximum size of a written list.
	MaxSizeBytes int64
}

// Options configure a Processor. They are plain values; the processor reads
// no global state.
type Options struct {
	// Aggregate controls the collapsing of host entries into subnets.
	Aggregate AggregateOptions
	// Limits are checked before anything is committed.
	Limits Limits
	// EnrichmentConcurrency is the number of lookups running at once.
	EnrichmentConcurrency int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Aggregate: AggregateOptions{
			Threshold:     cfg.Aggregation.Threshold,
			IPv6GroupBits: cfg.Aggregation.IPv6GroupBits,
		},
		Limits: Limits{
			MaxEntries:          cfg.Limits.MaxEntries,
			MaxAnnotationLength: cfg.Limits.MaxAnnotationLength,
			MaxSizeBytes:        cfg.Limits.MaxSizeBytes,
		},
		EnrichmentConcurrency: cfg.Enrichment.Concurrency,
	}
}

// NewJobs returns one job per configured input.
func NewJobs(cfg *config.Config) []Job {
	jobs := make([]Job, 0, len(cfg.Inputs))
	for _, in := range cfg.Inputs {
		jobs = append(jobs, Job{
			Name:   strings.TrimSuffix(filepath.Base(in.Output), filepath.Ext(in.Output)),
			Input:  in.Path,
			Output: in.Output,
		})
	}

	return jobs
}
