package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/job-board-moderator/internal/config"
	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	"github.com/MimeLyc/job-board-moderator/internal/persistence"
)

var validFormats = []string{"text", "json"}

type jobsOptions struct {
	Format string
	User   string
}

func newJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect or edit the stored job board without connecting to Discord",
	}
	cmd.AddCommand(newJobsListCommand())
	cmd.AddCommand(newJobsPurgeCommand())
	return cmd
}

func newJobsListCommand() *cobra.Command {
	opts := &jobsOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked job posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return withOfflineBoard(func(board *jobs.Board) error {
				records := board.List()
				if opts.User != "" {
					records = slices.DeleteFunc(records, func(r *jobs.Record) bool {
						return r.AuthorID != opts.User
					})
				}
				return printRecords(cmd.OutOrStdout(), records, opts.Format, time.Now())
			})
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.Flags().StringVar(&opts.User, "user", "", "only list posts by this user ID")
	return cmd
}

func newJobsPurgeCommand() *cobra.Command {
	opts := &jobsOptions{}
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Forget every tracked post by one user",
		Long: `Forget every tracked post by one user, so they can post again right away.

Run this while the bot is stopped, or use POST /api/jobs/purge on a running bot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOfflineBoard(func(board *jobs.Board) error {
				removed := board.PurgeMember(opts.User)
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d posts from %s\n", removed, opts.User)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.User, "user", "", "user ID to purge (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func withOfflineBoard(fn func(board *jobs.Board) error) error {
	cfg, err := loadConfig(config.Offline())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(jobs.NewBoard(cfg.Moderation.PostWindow, store))
}

func printRecords(w io.Writer, records []*jobs.Record, format string, now time.Time) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No job posts tracked.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MESSAGE\tAUTHOR\tTAGS\tPOSTED")
	for _, r := range records {
		tags := make([]string, 0, len(r.Tags))
		for _, tag := range r.Tags {
			tags = append(tags, string(tag))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.MessageID,
			r.AuthorID,
			strings.Join(tags, ","),
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
		)
	}
	return tw.Flush()
}
