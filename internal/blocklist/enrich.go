package blocklist

import (
	"blocklist/pkg/domain"
	"blocklist/pkg/enricher"
	"blocklist/pkg/logger"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LookupObserver is notified after every lookup.
type LookupObserver func(d time.Duration, ok bool)

// Enrich looks up an annotation for every pending entry, running at most
// concurrency lookups at once. Each entry is looked up exactly once with its
// bare network address. A failed lookup is logged and reported in its Result;
// it never fails the call. Only a cancelled context does, in which case no
// results are returned.
func Enrich(ctx context.Context,
	client enricher.Client,
	pending []domain.Entry,
	concurrency int,
	observe LookupObserver) (map[domain.Entry]enricher.Result, error) {
	results := make(map[domain.Entry]enricher.Result, len(pending))
	if len(pending) == 0 {
		return results, nil
	}

	logger.Info(ctx, "enriching new entries", zap.Int("pending", len(pending)), zap.Int("concurrency", concurrency))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for _, e := range pending {
		e := e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			addr := e.Addr().String()
			start := time.Now()
			r := enricher.Resolve(gctx, client, addr)
			if observe != nil {
				observe(time.Since(start), r.OK())
			}
			if !r.OK() {
				logger.Error(ctx, "could not enrich entry", zap.String("entry", e.String()), zap.Error(r.Err))
			}

			mu.Lock()
			results[e] = r
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrichment interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enrichment interrupted: %w", err)
	}

	return results, nil
}

// ApplyResults stores successful annotations in entries and returns the number
// of failed lookups. Failed entries keep an empty annotation.
func ApplyResults(entries domain.EntrySet, results map[domain.Entry]enricher.Result) int {
	failures := 0
	for e, r := range results {
		if !r.OK() {
			failures++

			continue
		}
		if _, ok := entries[e]; ok {
			entries[e] = r.Annotation
		}
	}

	return failures
}
