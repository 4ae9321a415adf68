package scheduler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/datagate/datagate/internal/ingestion"
)

type blockingRunner struct {
	calls   atomic.Int32
	release chan struct{}
	started chan string
}

func (r *blockingRunner) RunSource(ctx context.Context, key string) ingestion.RunResult {
	r.calls.Add(1)
	if r.started != nil {
		r.started <- key
	}
	if r.release != nil {
		<-r.release
	}
	return ingestion.RunResult{Adapter: key, Success: true, State: ingestion.StateDone}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAddRejectsBadSpecsAndDuplicates(t *testing.T) {
	s := New(&blockingRunner{}, quietLogger())
	if err := s.Add("techcrunch", "@every 1h"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("techcrunch", "@every 1h"); err == nil {
		t.Error("expected duplicate key error")
	}
	if err := s.Add("arxiv", "every hour"); err == nil {
		t.Error("expected invalid spec error")
	}
	if _, ok := s.Next("arxiv"); ok {
		t.Error("rejected source must not be scheduled")
	}
}

// syncBuffer collects log output written from cron goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), s)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 3s")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTriggerSkipsOverlappingRuns(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{}), started: make(chan string, 2)}
	var logs syncBuffer
	s := New(runner, slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	if err := s.Add("techcrunch", "@every 1h"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !s.Trigger("techcrunch") {
		t.Fatal("Trigger returned false for a scheduled source")
	}
	<-runner.started

	// The first run is still blocked, so this one is skipped.
	s.Trigger("techcrunch")
	waitFor(t, func() bool { return logs.Contains("cron: skip") })
	close(runner.release)
	s.Stop(time.Second)

	if got := runner.calls.Load(); got != 1 {
		t.Errorf("expected 1 run, got %d", got)
	}
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].Last == nil || !snap[0].Last.Success {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if s.Trigger("unknown") {
		t.Error("unknown key should not trigger")
	}
}

func TestTriggerReturnsBeforeRunCompletes(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{}), started: make(chan string, 1)}
	s := New(runner, quietLogger())
	if err := s.Add("arxiv", "@every 1h"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	returned := make(chan bool, 1)
	go func() { returned <- s.Trigger("arxiv") }()
	select {
	case ok := <-returned:
		if !ok {
			t.Fatal("Trigger returned false for a scheduled source")
		}
	case <-time.After(time.Second):
		t.Fatal("Trigger blocked on the run")
	}

	<-runner.started
	if snap := s.Snapshot(); snap[0].Last != nil {
		t.Errorf("run still in flight, got last result %+v", snap[0].Last)
	}

	close(runner.release)
	s.Stop(time.Second)
	if snap := s.Snapshot(); snap[0].Last == nil || !snap[0].Last.Success {
		t.Errorf("Stop should wait for the triggered run, got %+v", snap)
	}
}

func TestSchedulerFires(t *testing.T) {
	runner := &blockingRunner{}
	s := New(runner, quietLogger())
	if err := s.Add("pypi", "@every 1s"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(time.Second)

	deadline := time.Now().Add(3 * time.Second)
	for runner.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if runner.calls.Load() == 0 {
		t.Fatal("expected scheduled run within 3s")
	}
	if next, ok := s.Next("pypi"); !ok || next.IsZero() {
		t.Errorf("expected next run time, got %v", next)
	}
}

func TestCancelledContextSkipsRuns(t *testing.T) {
	runner := &blockingRunner{}
	s := New(runner, quietLogger())
	if err := s.Add("pypi", "@every 1h"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Trigger("pypi")
	s.Stop(time.Second)

	if runner.calls.Load() != 0 {
		t.Errorf("expected no runs after cancellation")
	}
}
