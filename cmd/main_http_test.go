package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/config"
	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	"github.com/MimeLyc/job-board-moderator/internal/posts"
)

type fakeScheduler struct {
	called   bool
	settings config.RuntimeSettings
}

func (f *fakeScheduler) Schedule(_ context.Context, settings config.RuntimeSettings) error {
	f.called = true
	f.settings = settings
	return nil
}

type fakeCron struct {
	started bool
	stopped bool
}

func (f *fakeCron) Start() {
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.stopped = true
	return context.Background()
}

type fakeHTTP struct {
	listenCalled chan struct{}
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(string) error {
	close(f.listenCalled)
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

type fakeLoader struct {
	err    error
	called bool
}

func (f *fakeLoader) LoadJobs(context.Context) (int, error) {
	f.called = true
	return 0, f.err
}

type fakeGateway struct {
	openErr error
	opened  bool
	closed  bool
}

func (f *fakeGateway) Open(context.Context) error {
	f.opened = true
	return f.openErr
}

func (f *fakeGateway) Close() error {
	f.closed = true
	return nil
}

type fakeWorker struct {
	started bool
	stopped bool
}

func (f *fakeWorker) Start() { f.started = true }
func (f *fakeWorker) Stop()  { f.stopped = true }

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"},
		Schedule: config.ScheduleConfig{
			AgedPostsCron:    "0 * * * *",
			StaleThreadsCron: "30 * * * *",
		},
	}
}

func TestMain_StartsEverythingAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := &fakeScheduler{}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()
	loader := &fakeLoader{err: errors.New("history unavailable")}
	gw := &fakeGateway{}
	reporter := &fakeWorker{}

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, testConfig(), components{
			scheduler: scheduler,
			cron:      cronEngine,
			http:      httpSrv,
			loader:    loader,
			gateway:   gw,
			reporter:  reporter,
		})
	}()

	select {
	case <-httpSrv.listenCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("http server did not start")
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.True(t, scheduler.called)
	assert.Equal(t, "30 * * * *", scheduler.settings.StaleThreadsCron)
	assert.True(t, cronEngine.started)
	assert.True(t, cronEngine.stopped)
	assert.True(t, loader.called)
	assert.True(t, gw.opened)
	assert.True(t, gw.closed)
	assert.True(t, reporter.started)
	assert.True(t, reporter.stopped)
}

func TestMain_GatewayFailureStopsStartup(t *testing.T) {
	httpSrv := newFakeHTTP()
	cronEngine := &fakeCron{}
	err := runWithComponents(context.Background(), testConfig(), components{
		scheduler: &fakeScheduler{},
		cron:      cronEngine,
		http:      httpSrv,
		loader:    &fakeLoader{},
		gateway:   &fakeGateway{openErr: errors.New("bad token")},
		reporter:  &fakeWorker{},
	})
	require.ErrorContains(t, err, "bad token")
	assert.True(t, cronEngine.stopped)

	select {
	case <-httpSrv.listenCalled:
		t.Fatal("http server started after gateway failure")
	default:
	}
}

func TestPrintRecords(t *testing.T) {
	now := time.Now()
	board := jobs.NewBoard(time.Hour, nil)
	board.Update(&chat.Message{ID: "m1", Author: &chat.User{ID: "alice"}, CreatedAt: now.Add(-5 * time.Minute)}, []posts.Tag{posts.TagHiring})

	var out bytes.Buffer
	require.NoError(t, printRecords(&out, board.List(), "text", now))
	assert.Contains(t, out.String(), "MESSAGE")
	assert.Contains(t, out.String(), "alice")
	assert.Contains(t, out.String(), "5 minutes ago")

	out.Reset()
	require.NoError(t, printRecords(&out, board.List(), "json", now))
	assert.Contains(t, out.String(), `"author_id": "alice"`)

	out.Reset()
	require.NoError(t, printRecords(&out, nil, "text", now))
	assert.Equal(t, "No job posts tracked.\n", out.String())
}

func TestPrintSchedule(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	var out bytes.Buffer
	require.NoError(t, printSchedule(&out, testConfig().RuntimeSettings(), now, 2))

	text := out.String()
	assert.Contains(t, text, "expired post cleanup (0 * * * *)")
	assert.Contains(t, text, "enforcement thread cleanup (30 * * * *)")
	assert.Contains(t, text, "2026-03-01T11:00:00Z")
	assert.Contains(t, text, "2026-03-01T10:30:00Z")
	assert.Equal(t, 6, strings.Count(text, "\n"))

	bad := testConfig().RuntimeSettings()
	bad.AgedPostsCron = "nope"
	require.Error(t, printSchedule(&out, bad, now, 1))
}
