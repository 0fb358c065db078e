package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/config"
	"github.com/MimeLyc/job-board-moderator/internal/discord"
	"github.com/MimeLyc/job-board-moderator/internal/escalation"
	"github.com/MimeLyc/job-board-moderator/internal/httpapi"
	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	"github.com/MimeLyc/job-board-moderator/internal/metrics"
	"github.com/MimeLyc/job-board-moderator/internal/moderation"
	"github.com/MimeLyc/job-board-moderator/internal/modlog"
	"github.com/MimeLyc/job-board-moderator/internal/persistence"
	"github.com/MimeLyc/job-board-moderator/internal/service"
	"github.com/MimeLyc/job-board-moderator/internal/validation"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type scheduler interface {
	Schedule(ctx context.Context, settings config.RuntimeSettings) error
}

type cronRunner interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

type historyLoader interface {
	LoadJobs(ctx context.Context) (int, error)
}

type gateway interface {
	Open(ctx context.Context) error
	Close() error
}

type backgroundWorker interface {
	Start()
	Stop()
}

// components are the long-running parts of the bot, started and stopped in order.
type components struct {
	scheduler scheduler
	cron      cronRunner
	http      httpServer
	loader    historyLoader
	gateway   gateway
	reporter  backgroundWorker
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and moderate the job board",
		Long: `Connect to Discord and moderate the job board.

The bot validates posts in the job board channel, handles member reactions,
runs the periodic sweeps and serves the operator HTTP API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBot(ctx)
		},
	}
}

func runBot(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	metrics.MustRegister()

	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	bot, err := discord.NewBot(discord.Config{
		Token:          cfg.Discord.Token,
		GuildID:        cfg.Discord.GuildID,
		AppID:          cfg.Discord.AppID,
		RequestTimeout: cfg.Discord.RequestTimeout,
	})
	if err != nil {
		return err
	}
	platform := bot.Platform()

	board := jobs.NewBoard(cfg.Moderation.PostWindow, store)
	rules := validation.DefaultRules()
	rules.PostWindow = cfg.Moderation.PostWindow
	rules.RequireEnglish = cfg.Moderation.RequireEnglish
	validator := validation.New(rules, board)

	reporter := modlog.NewChannelReporter(
		platform,
		cfg.Channels.ModLog,
		modlog.WithArchive(store),
		modlog.WithGuildID(cfg.Discord.GuildID),
		modlog.WithTimeout(cfg.Discord.RequestTimeout),
	)
	roles := chat.Roles{Staff: cfg.Roles.Staff, Helpful: cfg.Roles.Helpful}

	threads := moderation.NewThreadCache(
		platform,
		cfg.Moderation.ThreadCacheSize,
		cfg.Moderation.ThreadTTL,
		cfg.Discord.RequestTimeout,
	)
	defer threads.Wait()
	manager := moderation.NewManager(
		moderation.Config{
			JobBoardID:      cfg.Channels.JobBoard,
			RepostThreshold: cfg.Moderation.RepostThreshold,
			RequestTimeout:  cfg.Discord.RequestTimeout,
		},
		platform,
		validator,
		board,
		reporter,
		roles,
		moderation.WithThreadCache(threads),
		moderation.WithTracker(moderation.NewMessageTracker(cfg.Moderation.MarkerTTL)),
	)
	escalator := escalation.New(
		platform,
		reporter,
		roles,
		thresholdsFrom(cfg.RuntimeSettings(), cfg.Reactions.Cooldown),
		escalation.WithTimeout(cfg.Discord.RequestTimeout),
	)

	cronEngine := cron.New()
	sweeps := service.NewScheduler(
		service.SchedulerConfig{
			JobBoardID:     cfg.Channels.JobBoard,
			StaleThreadAge: cfg.Moderation.StaleThreadAge,
			RequestTimeout: cfg.Discord.RequestTimeout,
		},
		cronEngine,
		board,
		platform,
		service.WithThreadForgetter(threads),
	)

	settings, err := config.NewRuntimeSettingsStore(config.RuntimeSettingsFilePath(), cfg.RuntimeSettings())
	if err != nil {
		return err
	}
	settings.OnChange(func(next config.RuntimeSettings) error {
		escalator.SetThresholds(thresholdsFrom(next, cfg.Reactions.Cooldown))
		return nil
	})

	httpSrv := httpapi.NewServer(
		board,
		manager,
		httpapi.WithRuntimeSettingsStore(settings),
		httpapi.WithRuntimeSettingsApplier(func(next config.RuntimeSettings) error {
			return sweeps.ApplyRuntimeSettings(ctx, next)
		}),
		httpapi.WithSchedule(sweeps),
		httpapi.WithReports(store),
	)

	return runWithComponents(ctx, cfg, components{
		scheduler: sweeps,
		cron:      cronEngine,
		http:      httpSrv,
		loader:    service.NewHistoryLoader(board, platform, roles, cfg.Channels.JobBoard, time.Minute),
		gateway:   discordGateway{bot: bot, manager: manager, escalator: escalator},
		reporter:  reporter,
	})
}

func thresholdsFrom(settings config.RuntimeSettings, cooldown time.Duration) escalation.Thresholds {
	return escalation.Thresholds{
		Warn:     settings.ReactionWarn,
		Alert:    settings.ReactionAlert,
		Delete:   settings.ReactionDelete,
		Rework:   settings.ReactionRework,
		Cooldown: cooldown,
	}
}

// discordGateway binds the engine handlers when the session opens.
type discordGateway struct {
	bot       *discord.Bot
	manager   *moderation.Manager
	escalator *escalation.Escalator
}

func (g discordGateway) Open(ctx context.Context) error {
	return g.bot.Open(ctx, g.manager, g.escalator, g.manager)
}

func (g discordGateway) Close() error {
	return g.bot.Close()
}

func runWithComponents(ctx context.Context, cfg *config.Config, c components) error {
	c.reporter.Start()
	defer c.reporter.Stop()

	if err := c.scheduler.Schedule(ctx, cfg.RuntimeSettings()); err != nil {
		return fmt.Errorf("schedule sweeps: %w", err)
	}
	c.cron.Start()
	defer func() {
		<-c.cron.Stop().Done()
	}()

	if _, err := c.loader.LoadJobs(ctx); err != nil {
		log.Error("Failed to load job board history: %v", err)
	}

	if err := c.gateway.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.gateway.Close(); err != nil {
			log.Warn("Failed to close Discord session: %v", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		if err := c.http.ListenAndServe(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}
