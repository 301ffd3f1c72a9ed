package main

import (
	"blocklist/internal/blocklist"
	"blocklist/internal/config"
	"blocklist/pkg/logger"
	"blocklist/pkg/metrics"
	"blocklist/pkg/publish"
	"blocklist/pkg/publish/git"
	"blocklist/pkg/storage/file"
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runOptions control a single run of the process command.
type runOptions struct {
	// Force processes the lists even when upstream had no changes.
	Force bool
	// CommitMessage is used when changed lists are published.
	CommitMessage string
	// MetricsPath is where run metrics are written. Empty disables the export.
	MetricsPath string
}

// run syncs the working copy, processes every job and publishes the changed
// lists. publisher may be nil, in which case lists are written but nothing is
// synced or pushed. An error is returned when any list failed.
func run(ctx context.Context,
	processor blocklist.Processor,
	publisher publish.Publisher,
	recorder *metrics.Recorder,
	jobs []blocklist.Job,
	opts runOptions) error {
	if publisher != nil {
		changed, err := publisher.Sync(ctx)
		if err != nil {
			return fmt.Errorf("could not sync working copy: %w", err)
		}
		if !changed && !opts.Force {
			logger.Info(ctx, "no remote changes detected, skipping processing")

			return nil
		}
	}

	report := processor.ProcessAll(ctx, jobs)

	if opts.MetricsPath != "" {
		if err := recorder.WriteTextfile(opts.MetricsPath); err != nil {
			logger.Warn(ctx, "could not export metrics", zap.Error(err))
		}
	}

	changed := report.ChangedOutputs()
	switch {
	case len(changed) == 0:
		logger.Info(ctx, "no list changed, nothing to publish")
	case publisher == nil:
		logger.Warn(ctx, "publishing disabled, not pushing", zap.Strings("changed", changed))
	default:
		if _, err := publisher.Publish(ctx, changed, opts.CommitMessage); err != nil {
			return fmt.Errorf("could not publish lists: %w", err)
		}
	}

	logger.Info(ctx, "stats",
		zap.Int("additions", report.Added),
		zap.Int("deletions", report.Removed))

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d lists failed", report.Failed, len(jobs))
	}

	return nil
}

func processCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Validates, consolidates and publishes the configured lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			force, _ := cmd.Flags().GetBool("force")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, closeEnricher, err := getEnricher(ctx, cfg)
			if err != nil {
				logger.Error(ctx, "could not create enricher", zap.Error(err))

				return err
			}
			defer closeEnricher()

			var publisher publish.Publisher
			if cfg.Publish.Enabled && !dryRun {
				publisher = git.New(git.Options{
					Dir:         cfg.RepoPath,
					Remote:      cfg.Publish.Remote,
					Branch:      cfg.Publish.Branch,
					AuthorName:  cfg.Publish.AuthorName,
					AuthorEmail: cfg.Publish.AuthorEmail,
				})
			}

			recorder := metrics.New()
			processor := blocklist.New(file.New(cfg.RepoPath), client, recorder, blocklist.NewOptions(cfg))

			err = run(ctx, processor, publisher, recorder, blocklist.NewJobs(cfg), runOptions{
				Force:         force,
				CommitMessage: cfg.Publish.CommitMessage,
				MetricsPath:   cfg.Metrics.TextfilePath,
			})
			if err != nil {
				logger.Error(ctx, "run failed", zap.Error(err))
			}

			return err
		},
	}

	cmd.Flags().Bool("dry-run", false, "Write lists without syncing or pushing")
	cmd.Flags().Bool("force", false, "Process lists even when upstream has no changes")

	return cmd
}
