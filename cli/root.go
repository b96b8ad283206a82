package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/vnkhanh/vocasync/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// LoadConfig allows overriding configuration loading (for testing).
	LoadConfig func() (config.Config, error)
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the vocasync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{LoadConfig: config.Load}

	cmd := &cobra.Command{
		Use:   "vocasync",
		Short: "Vocabulary review sync service",
		Long:  "Sync server and tools for SM-2 vocabulary review across devices.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewDueCommand(opts))

	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the process logger.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if o.Verbose {
		level = slog.LevelDebug
		cfg.LogLevel = level
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return cfg, nil
}
