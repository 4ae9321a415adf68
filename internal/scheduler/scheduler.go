// Package scheduler polls sources on their fetch frequency.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/datagate/datagate/internal/ingestion"
	"github.com/robfig/cron/v3"
)

// Runner runs one source; *ingestion.Orchestrator satisfies it.
type Runner interface {
	RunSource(ctx context.Context, key string) ingestion.RunResult
}

// SourceScheduler runs each registered source on its own cron schedule. A
// source whose previous run is still in flight skips the tick.
type SourceScheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *slog.Logger

	// triggered tracks manual runs, which cron.Stop does not wait for.
	triggered sync.WaitGroup

	mu      sync.RWMutex
	ctx     context.Context
	entries map[string]cron.EntryID
	last    map[string]ingestion.RunResult
}

// New creates a scheduler that has no jobs yet.
func New(runner Runner, logger *slog.Logger) *SourceScheduler {
	cl := cronLogger{logger: logger}
	return &SourceScheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		runner:  runner,
		logger:  logger,
		ctx:     context.Background(),
		entries: make(map[string]cron.EntryID),
		last:    make(map[string]ingestion.RunResult),
	}
}

// Add schedules key with a cron spec such as "@every 1h".
func (s *SourceScheduler) Add(key, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return fmt.Errorf("source %q already scheduled", key)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(key) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, key, err)
	}
	s.entries[key] = id
	s.logger.Info("scheduled source", "adapter", key, "schedule", spec)
	return nil
}

func (s *SourceScheduler) run(key string) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx.Err() != nil {
		return
	}

	res := s.runner.RunSource(ctx, key)

	s.mu.Lock()
	s.last[key] = res
	s.mu.Unlock()
}

// Start begins firing jobs. Runs use ctx; cancelling it stops new runs.
func (s *SourceScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.logger.Info("starting source scheduler", "sources", len(s.entries))
	s.cron.Start()
}

// Stop stops the scheduler and waits for in-flight runs, scheduled or
// triggered, up to timeout.
func (s *SourceScheduler) Stop(timeout time.Duration) {
	done := s.cron.Stop()
	idle := make(chan struct{})
	go func() {
		<-done.Done()
		s.triggered.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		s.logger.Info("source scheduler stopped")
	case <-time.After(timeout):
		s.logger.Warn("source scheduler stop timed out", "timeout", timeout)
	}
}

// Trigger starts key in the background through the same overlap guard as
// scheduled ticks and returns without waiting for the run. It returns false
// for unknown keys.
func (s *SourceScheduler) Trigger(key string) bool {
	s.mu.RLock()
	id, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	job := s.cron.Entry(id).WrappedJob
	s.triggered.Add(1)
	go func() {
		defer s.triggered.Done()
		job.Run()
	}()
	return true
}

// Next returns the next fire time for key.
func (s *SourceScheduler) Next(key string) (time.Time, bool) {
	s.mu.RLock()
	id, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Status is the scheduler snapshot served on /status.
type Status struct {
	Adapter string               `json:"adapter"`
	Next    time.Time            `json:"next_run"`
	Last    *ingestion.RunResult `json:"last_run,omitempty"`
}

// Snapshot lists every scheduled source sorted by key.
func (s *SourceScheduler) Snapshot() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Status, 0, len(s.entries))
	for key, id := range s.entries {
		st := Status{Adapter: key, Next: s.cron.Entry(id).Next}
		if res, ok := s.last[key]; ok {
			res := res
			st.Last = &res
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Adapter < out[j].Adapter })
	return out
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
