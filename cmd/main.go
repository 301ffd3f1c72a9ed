// Package main provides the CLI entrypoint for the blocklist consolidator.
// It wires subcommands (process, lookup), loads configuration, and initializes logging.
package main

import (
	"blocklist/internal/config"
	"blocklist/pkg/logger"
	"context"
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use:          "blocklist",
		Short:        "Consolidates raw address lists into published blocklists",
		SilenceUsage: true,
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("c", "config.yml", "The config file path")
	_ = fs.Parse(configArgs(os.Args[1:]))

	log.Println("loading config ...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file: ", err)
	}

	var logFiles []string
	if cfg.LogFile != "" {
		logFiles = append(logFiles, cfg.LogFile)
	}
	if err := logger.Setup(cfg.Environment, logFiles...); err != nil {
		log.Fatal("could not set up logger: ", err)
	}

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		processCommand(cfg),
		lookupCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}

// configArgs picks the -c/--config flag out of args so it can be parsed before
// cobra sees the subcommand flags.
func configArgs(args []string) []string {
	for i, arg := range args {
		switch {
		case arg == "-c" || arg == "--config":
			if i+1 < len(args) {
				return []string{"-c", args[i+1]}
			}
		case strings.HasPrefix(arg, "-c="):
			return []string{arg}
		case strings.HasPrefix(arg, "--config="):
			return []string{"-c", strings.TrimPrefix(arg, "--config=")}
		}
	}

	return nil
}
