package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ilker/tracker-server/internal/config"
	"github.com/ilker/tracker-server/internal/repository"
	"github.com/ilker/tracker-server/internal/retention"
	"github.com/spf13/cobra"
)

type cleanupOptions struct {
	maxAge    time.Duration
	minEvents int
}

func newCleanupCommand(global *globalOptions) *cobra.Command {
	opts := &cleanupOptions{}
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run one retention pass over stored events",
		Long: `Delete events older than the retention cutoff while keeping at least
--min-events events per device. Values default to retention.max_age and
retention.min_event_count from the configuration.

Examples:
  # One pass with configured retention
  server cleanup

  # Drop events older than 30 days, keeping 5 per device
  server cleanup --max-age 720h --min-events 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if cmd.Flags().Changed("max-age") {
				cfg.Retention.MaxAge = opts.maxAge
			}
			if cmd.Flags().Changed("min-events") {
				cfg.Retention.MinEventCount = opts.minEvents
			}
			if cfg.Retention.MinEventCount < 0 {
				return errors.New("--min-events must not be negative")
			}
			return runCleanup(cmd, cfg)
		},
	}

	cmd.Flags().DurationVar(&opts.maxAge, "max-age", 0, "delete events older than this (default: retention.max_age)")
	cmd.Flags().IntVar(&opts.minEvents, "min-events", 0, "events to keep per device regardless of age (default: retention.min_event_count)")
	return cmd
}

func runCleanup(cmd *cobra.Command, cfg *config.Config) error {
	logger := config.NewLogger(cfg.Logging)

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	policy := retention.Policy{MaxAge: cfg.Retention.MaxAge, MinEventCount: cfg.Retention.MinEventCount}
	cutoff := policy.Cutoff(time.Now())

	store := repository.NewEventStore(db, logger)
	report, res := store.CleanupEvents(context.Background(), cutoff, policy.MinEventCount)
	if !res.Success {
		return fmt.Errorf("cleanup failed: %s", res.Message)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cutoff:         %s\n", cutoff.UTC().Format(time.RFC3339))
	fmt.Fprintf(cmd.OutOrStdout(), "Devices pruned: %d\n", report.DevicesPruned)
	fmt.Fprintf(cmd.OutOrStdout(), "Events deleted: %d\n", report.EventsDeleted)
	return nil
}
