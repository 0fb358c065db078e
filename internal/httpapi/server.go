package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MimeLyc/job-board-moderator/internal/config"
	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	"github.com/MimeLyc/job-board-moderator/internal/persistence"
	"github.com/MimeLyc/job-board-moderator/pkg/icron"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

// Purger forgets the job posts of one member, e.g. after a moderator cleared them by hand.
type Purger interface {
	PurgeMember(authorID string) int
}

type scheduleSource interface {
	Triggers() map[string]*icron.TriggerInfo
}

type reportSource interface {
	RecentReports(ctx context.Context, limit int) ([]persistence.ReportEntry, error)
}

type Server struct {
	board    *jobs.Board
	purger   Purger
	settings runtimeSettingsStore
	apply    runtimeSettingsApplier
	schedule scheduleSource
	reports  reportSource

	streamInterval time.Duration

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func WithSchedule(schedule scheduleSource) Option {
	return func(s *Server) {
		s.schedule = schedule
	}
}

func WithReports(reports reportSource) Option {
	return func(s *Server) {
		s.reports = reports
	}
}

func WithStreamInterval(interval time.Duration) Option {
	return func(s *Server) {
		s.streamInterval = interval
	}
}

func NewServer(board *jobs.Board, purger Purger, opts ...Option) *Server {
	s := &Server{
		board:          board,
		purger:         purger,
		streamInterval: 5 * time.Second,
		mux:            http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/purge", s.handlePurge)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/reports", s.handleReports)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
}
