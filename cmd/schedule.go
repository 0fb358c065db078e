package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/job-board-moderator/internal/config"
	"github.com/MimeLyc/job-board-moderator/internal/service"
	"github.com/MimeLyc/job-board-moderator/pkg/icron"
)

func newScheduleCommand() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print when the periodic sweeps run next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(config.Offline())
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return printSchedule(cmd.OutOrStdout(), cfg.RuntimeSettings(), time.Now(), count)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 3, "number of upcoming runs per sweep")
	return cmd
}

func printSchedule(w io.Writer, settings config.RuntimeSettings, now time.Time, count int) error {
	sweeps := []struct {
		name string
		expr string
	}{
		{service.TaskAgedPosts, settings.AgedPostsCron},
		{service.TaskStaleThreads, settings.StaleThreadsCron},
	}
	for _, sweep := range sweeps {
		runs, err := icron.NextRuns(sweep.expr, now, count)
		if err != nil {
			return fmt.Errorf("%s: %w", sweep.name, err)
		}
		fmt.Fprintf(w, "%s (%s)\n", sweep.name, sweep.expr)
		for _, run := range runs {
			info := icron.TriggerInfo{Next: run}
			fmt.Fprintf(w, "  %s  %s\n", run.Format(time.RFC3339), info.Describe(now))
		}
	}
	return nil
}
