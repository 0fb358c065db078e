package main

import (
	"github.com/spf13/cobra"

	"github.com/MimeLyc/job-board-moderator/internal/config"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	EnvFile  string
	LogLevel string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "jobmod",
		Short:         "Job board moderation bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.EnvFile); err != nil {
				return err
			}
			level := opts.LogLevel
			if level == "" {
				level = config.LogLevelFromEnv()
			}
			log.InitLogger(log.ParseLevel(level))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to seed the environment from")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level, overrides LOG_LEVEL")

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newJobsCommand())
	cmd.AddCommand(newScheduleCommand())

	return cmd
}

// loadConfig reads the environment, then layers the persisted runtime settings on top.
func loadConfig(opts ...config.Option) (*config.Config, error) {
	if settings, err := config.LoadRuntimeSettingsFile(config.RuntimeSettingsFilePath()); err == nil {
		opts = append(opts, config.WithRuntimeSettings(settings))
	} else {
		log.Debug("No runtime settings loaded: %v", err)
	}
	return config.NewFromEnv(opts...)
}
