package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/config"
	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	"github.com/MimeLyc/job-board-moderator/internal/metrics"
	"github.com/MimeLyc/job-board-moderator/internal/moderation"
	"github.com/MimeLyc/job-board-moderator/pkg/icron"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

const (
	TaskAgedPosts    = "expired post cleanup"
	TaskStaleThreads = "enforcement thread cleanup"
)

// ThreadForgetter drops a closed thread from the enforcement cache.
type ThreadForgetter interface {
	Forget(threadID string) bool
}

type SchedulerConfig struct {
	JobBoardID     string
	StaleThreadAge time.Duration
	RequestTimeout time.Duration
}

// Scheduler runs the periodic sweeps on a shared cron engine.
type Scheduler struct {
	cfg      SchedulerConfig
	cron     *cron.Cron
	board    *jobs.Board
	platform chat.Platform
	threads  ThreadForgetter
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cron.EntryID
	exprs   map[string]string
}

type SchedulerOption func(*Scheduler)

func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

func WithThreadForgetter(threads ThreadForgetter) SchedulerOption {
	return func(s *Scheduler) {
		s.threads = threads
	}
}

func NewScheduler(
	cfg SchedulerConfig,
	cronEngine *cron.Cron,
	board *jobs.Board,
	platform chat.Platform,
	opts ...SchedulerOption,
) *Scheduler {
	if cfg.StaleThreadAge <= 0 {
		cfg.StaleThreadAge = time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	s := &Scheduler{
		cfg:      cfg,
		cron:     cronEngine,
		board:    board,
		platform: platform,
		now:      time.Now,
		entries:  make(map[string]cron.EntryID),
		exprs:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var singleflightGroup singleflight.Group

// Schedule registers both sweeps with the cron expressions from settings.
func (s *Scheduler) Schedule(ctx context.Context, settings config.RuntimeSettings) error {
	log.Info("Scheduling sweeps: aged posts %q, stale threads %q", settings.AgedPostsCron, settings.StaleThreadsCron)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleLocked(ctx, settings)
}

// ApplyRuntimeSettings swaps the cron expressions of already scheduled sweeps.
func (s *Scheduler) ApplyRuntimeSettings(ctx context.Context, settings config.RuntimeSettings) error {
	if err := config.ValidateCron(settings.AgedPostsCron); err != nil {
		return err
	}
	if err := config.ValidateCron(settings.StaleThreadsCron); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for task, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, task)
	}
	return s.scheduleLocked(ctx, settings)
}

func (s *Scheduler) scheduleLocked(ctx context.Context, settings config.RuntimeSettings) error {
	tasks := []struct {
		name string
		expr string
		run  func(context.Context) error
	}{
		{TaskAgedPosts, settings.AgedPostsCron, func(ctx context.Context) error {
			s.RunAgedPosts()
			return nil
		}},
		{TaskStaleThreads, settings.StaleThreadsCron, func(ctx context.Context) error {
			_, err := s.RunStaleThreads(ctx)
			return err
		}},
	}

	for _, task := range tasks {
		runFunc := func() {
			_, _, _ = singleflightGroup.Do(task.name, func() (any, error) {
				err := task.run(ctx)
				if err != nil {
					metrics.Sweeps.WithLabelValues(task.name, "failed").Inc()
					log.Error("Sweep %q failed: %v", task.name, err)
					return nil, err
				}
				metrics.Sweeps.WithLabelValues(task.name, "ok").Inc()
				return nil, nil
			})
		}
		id, err := s.cron.AddFunc(task.expr, runFunc)
		if err != nil {
			return fmt.Errorf("schedule %s: %w", task.name, err)
		}
		s.entries[task.name] = id
		s.exprs[task.name] = task.expr
	}
	return nil
}

// Triggers describes each scheduled sweep relative to now.
func (s *Scheduler) Triggers() map[string]*icron.TriggerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make(map[string]*icron.TriggerInfo, len(s.exprs))
	for task, expr := range s.exprs {
		info, err := icron.GetTriggerInfo(expr, s.now())
		if err != nil {
			continue
		}
		ret[task] = info
	}
	return ret
}

// RunAgedPosts drops job records older than the posting window.
func (s *Scheduler) RunAgedPosts() int {
	removed := s.board.DeleteAged(s.now())
	if removed > 0 {
		log.Info("Removed %d aged job posts", removed)
	}
	return removed
}

// RunStaleThreads closes bot-owned private threads under the job board that are older than the
// configured age or whose age is unknown.
func (s *Scheduler) RunStaleThreads(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*s.cfg.RequestTimeout)
	defer cancel()

	threads, err := s.platform.ListThreads(ctx, s.cfg.JobBoardID)
	if err != nil {
		return 0, fmt.Errorf("list threads: %w", err)
	}

	now := s.now()
	botID := s.platform.BotUserID()
	closed := 0
	for _, thread := range threads {
		if !thread.Private || thread.OwnerID != botID {
			continue
		}
		if !thread.CreatedAt.IsZero() && now.Sub(thread.CreatedAt) <= s.cfg.StaleThreadAge {
			continue
		}
		if err := s.platform.CloseThread(ctx, thread.ID); err != nil && !moderation.IsGone(err) {
			log.Warn("Failed to close stale thread %s: %v", thread.ID, err)
			continue
		}
		if s.threads != nil {
			s.threads.Forget(thread.ID)
		}
		metrics.ThreadsClosed.WithLabelValues("stale").Inc()
		closed++
	}
	if closed > 0 {
		log.Info("Closed %d stale enforcement threads", closed)
	}
	return closed, nil
}
