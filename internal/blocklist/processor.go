package blocklist

import (
	"blocklist/pkg/domain"
	"blocklist/pkg/enricher"
	"blocklist/pkg/logger"
	"blocklist/pkg/metrics"
	"blocklist/pkg/serrors"
	"blocklist/pkg/storage"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("blocklist/internal/blocklist") //nolint: gochecknoglobals

// Job describes one input list and the published list built from it.
type Job struct {
	// Name labels the job in logs and metrics.
	Name string
	// Input is the raw input list.
	Input string
	// Output is the published list, also the diff baseline.
	Output string
}

// Stats are the counts collected while processing one job.
type Stats struct {
	Lines              int   // Lines is the number of candidate lines read.
	Invalid            int   // Invalid is the number of lines rejected by validation.
	Unique             int   // Unique is the number of distinct valid entries.
	Collapsed          int   // Collapsed is the number of groups replaced by a subnet.
	Subsumed           int   // Subsumed is the number of hosts dropped in favour of a block.
	Entries            int   // Entries is the number of entries in the new list.
	Added              int   // Added is the number of entries not in the published list.
	Removed            int   // Removed is the number of published entries dropped.
	EnrichmentFailures int   // EnrichmentFailures is the number of failed lookups.
	Bytes              int64 // Bytes is the size of the new list.
}

// Result is the outcome of one job.
type Result struct {
	Job   Job
	Stats Stats
	// Changed reports whether the published list was replaced with different content.
	Changed bool
	// Err is nil on success. Its kind is serrors.ErrIO or serrors.ErrLimitExceeded
	// for input/output and limit failures.
	Err error
}

// OK reports whether the job succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Report aggregates the results of a run.
type Report struct {
	Results []Result
	// Added and Removed sum the diff counts of all successful jobs.
	Added   int
	Removed int
	// Failed is the number of failed jobs.
	Failed int
}

// ChangedOutputs returns the outputs of successful jobs whose published list changed.
func (r Report) ChangedOutputs() []string {
	var out []string
	for _, res := range r.Results {
		if res.OK() && res.Changed {
			out = append(out, res.Job.Output)
		}
	}

	return out
}

// processor is the concrete implementation of the Processor interface.
type processor struct {
	options  Options
	store    storage.Store
	enricher enricher.Client
	metrics  *metrics.Recorder
	now      func() time.Time
}

// New creates a Processor reading and writing through store and annotating new
// entries with client. recorder may be nil.
func New(store storage.Store, client enricher.Client, recorder *metrics.Recorder, options Options) Processor {
	if client == nil {
		client = enricher.Nop{}
	}

	return &processor{
		options:  options,
		store:    store,
		enricher: client,
		metrics:  recorder,
		now:      time.Now,
	}
}

// Process runs the whole pipeline for job.
func (p *processor) Process(ctx context.Context, job Job) Result {
	ctx, span := tracer.Start(ctx, "blocklist.Process", trace.WithAttributes(
		attribute.String("blocklist.input", job.Input),
		attribute.String("blocklist.output", job.Output),
	))
	defer span.End()
	ctx = logger.WithFields(ctx, zap.String("list", job.Name), zap.String("input", job.Input),
		zap.String("output", job.Output))

	res := Result{Job: job}
	res.Err = p.process(ctx, job, &res)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		logger.Error(ctx, "could not process list", zap.Error(res.Err))

		return res
	}

	span.SetAttributes(attribute.Int("blocklist.entries", res.Stats.Entries),
		attribute.Bool("blocklist.changed", res.Changed))
	logger.Info(ctx, "list processed",
		zap.Int("entries", res.Stats.Entries),
		zap.Int("added", res.Stats.Added),
		zap.Int("removed", res.Stats.Removed),
		zap.Int64("bytes", res.Stats.Bytes),
		zap.Bool("changed", res.Changed))

	return res
}

func (p *processor) process(ctx context.Context, job Job, res *Result) error {
	lines, err := p.readInput(ctx, job.Input)
	if err != nil {
		return err
	}
	res.Stats.Lines = len(lines)

	valid, invalid := Validate(ctx, lines)
	res.Stats.Invalid = len(invalid)
	p.metrics.Invalid(job.Name, len(invalid))

	unique := Deduplicate(valid)
	res.Stats.Unique = len(unique)
	logger.Info(ctx, "removed duplicates", zap.Int("before", len(valid)), zap.Int("after", len(unique)))

	current, aggStats := Aggregate(unique, p.options.Aggregate)
	res.Stats.Collapsed, res.Stats.Subsumed = aggStats.Collapsed, aggStats.Subsumed
	logger.Info(ctx, "grouped into subnets",
		zap.Int("entries", len(current)),
		zap.Int("collapsed", aggStats.Collapsed),
		zap.Int("subsumed", aggStats.Subsumed))

	previous, err := p.readPublished(ctx, job.Output)
	if err != nil {
		return err
	}

	merged := Merge(current, previous)
	res.Stats.Entries, res.Stats.Added, res.Stats.Removed = len(merged.Entries), merged.Added, merged.Removed

	// fail before spending lookups on a list that cannot be published anyway
	if err := CheckCount(len(merged.Entries), p.options.Limits); err != nil {
		return err
	}

	if err := p.enrich(ctx, job, merged, res); err != nil {
		return err
	}

	changed, size, err := p.write(ctx, job.Output, Order(merged.Entries))
	res.Stats.Bytes = size
	if err != nil {
		return err
	}
	res.Changed = changed

	p.metrics.Diff(job.Name, merged.Added, merged.Removed)
	p.metrics.Written(job.Name, len(merged.Entries), size, p.now())

	return nil
}

func (p *processor) readInput(ctx context.Context, name string) ([]string, error) {
	rc, err := p.store.Open(ctx, name)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrIO, err, "could not open input")
	}
	defer func() {
		_ = rc.Close()
	}()

	lines, err := ReadLines(rc)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrIO, err, "could not read input")
	}
	logger.Info(ctx, "loaded input", zap.Int("lines", len(lines)))

	return lines, nil
}

func (p *processor) readPublished(ctx context.Context, name string) (domain.EntrySet, error) {
	rc, err := p.store.Open(ctx, name)
	if errors.Is(err, serrors.ErrNotFound) {
		logger.Info(ctx, "no published list found, starting empty")

		return domain.EntrySet{}, nil
	}
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrIO, err, "could not open published list")
	}
	defer func() {
		_ = rc.Close()
	}()

	previous, err := ParsePublished(ctx, rc)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrIO, err, "could not read published list")
	}
	logger.Info(ctx, "loaded published list", zap.Int("entries", len(previous)))

	return previous, nil
}

func (p *processor) enrich(ctx context.Context, job Job, merged Merged, res *Result) error {
	ctx, span := tracer.Start(ctx, "blocklist.Enrich", trace.WithAttributes(
		attribute.Int("blocklist.pending", len(merged.Pending))))
	defer span.End()

	results, err := Enrich(ctx, p.enricher, merged.Pending, p.options.EnrichmentConcurrency,
		func(d time.Duration, ok bool) { p.metrics.Lookup(job.Name, d, ok) })
	if err != nil {
		span.RecordError(err)

		return err
	}

	res.Stats.EnrichmentFailures = ApplyResults(merged.Entries, results)
	logger.Info(ctx, "enrichment processed",
		zap.Int("looked_up", len(results)),
		zap.Int("failed", res.Stats.EnrichmentFailures))

	return nil
}

// write stages the ordered entries, checks the size limit and commits.
func (p *processor) write(ctx context.Context, name string, entries []domain.AnnotatedEntry) (bool, int64, error) {
	_, span := tracer.Start(ctx, "blocklist.Write")
	defer span.End()

	staged, err := p.store.Stage(ctx, name)
	if err != nil {
		return false, 0, serrors.Wrap(serrors.ErrIO, err, "could not stage output")
	}

	discard := func(cause error) error {
		if err := staged.Discard(); err != nil {
			logger.Warn(ctx, "could not discard staged output", zap.Error(err))
		}

		return cause
	}

	if _, err := WriteEntries(staged, entries, p.options.Limits); err != nil {
		return false, 0, discard(fmt.Errorf("could not write output: %w", err))
	}

	size, err := staged.Size()
	if err != nil {
		return false, 0, discard(serrors.Wrap(serrors.ErrIO, err, "could not determine output size"))
	}
	if size > p.options.Limits.MaxSizeBytes {
		return false, size, discard(serrors.With(serrors.ErrLimitExceeded,
			"output of %d bytes exceeds the limit of %d bytes", size, p.options.Limits.MaxSizeBytes))
	}

	changed, err := staged.Commit()
	if err != nil {
		return false, size, serrors.Wrap(serrors.ErrIO, err, "could not commit output")
	}

	return changed, size, nil
}

// ProcessAll processes jobs one after another and sums their diff counts.
func (p *processor) ProcessAll(ctx context.Context, jobs []Job) Report {
	var report Report
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, Result{Job: job, Err: fmt.Errorf("run interrupted: %w", err)})
			report.Failed++

			continue
		}

		res := p.Process(ctx, job)
		report.Results = append(report.Results, res)
		if !res.OK() {
			report.Failed++

			continue
		}
		report.Added += res.Stats.Added
		report.Removed += res.Stats.Removed
	}

	logger.Info(ctx, "run finished",
		zap.Int("lists", len(jobs)),
		zap.Int("failed", report.Failed),
		zap.Int("additions", report.Added),
		zap.Int("deletions", report.Removed))

	return report
}
