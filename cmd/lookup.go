package main

import (
	"blocklist/internal/blocklist"
	"blocklist/internal/config"
	"blocklist/pkg/domain"
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// lookupCommand constructs the 'lookup' subcommand that prints the annotation
// the configured enricher returns for one address.
func lookupCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <address>",
		Short: "Prints the annotation for an address or CIDR block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := domain.ParseEntry(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()
			client, closeEnricher, err := getEnricher(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeEnricher()

			annotation, err := client.Lookup(ctx, e.Addr().String())
			if err != nil {
				return fmt.Errorf("could not look up %s: %w", e, err)
			}

			line := blocklist.FormatLine(domain.AnnotatedEntry{Entry: e, Annotation: annotation},
				cfg.Limits.MaxAnnotationLength)
			_, err = fmt.Fprint(cmd.OutOrStdout(), line)

			return err
		},
	}

	return cmd
}
