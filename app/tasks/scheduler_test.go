package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/feedpost/app/pipeline"
)

type mockRunner struct {
	mu    sync.Mutex
	sites []string
	done  chan struct{}
}

func (m *mockRunner) Run(ctx context.Context, siteID string) pipeline.RunResult {
	m.mu.Lock()
	m.sites = append(m.sites, siteID)
	m.mu.Unlock()
	m.done <- struct{}{}
	return pipeline.RunResult{Success: true, Message: "ok"}
}

func waitFor(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("Timed out waiting for task %d of %d", i+1, n)
		}
	}
}

func TestScheduler_RunsPipelineTasks(t *testing.T) {
	scheduler := NewScheduler(2)
	scheduler.Start()
	defer scheduler.Stop()

	runner := &mockRunner{done: make(chan struct{}, 3)}
	for _, id := range []string{"a", "b", "c"} {
		if err := scheduler.EnqueueTask(NewRunPipelineTask(id, runner)); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	waitFor(t, runner.done, 3)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.sites) != 3 {
		t.Errorf("Expected 3 runs, got %d", len(runner.sites))
	}
}

type flakyTask struct {
	Task
	failures int32
	attempts atomic.Int32
	done     chan struct{}
}

func (f *flakyTask) Execute(ctx context.Context) error {
	n := f.attempts.Add(1)
	if n <= f.failures {
		return errors.New("temporary failure")
	}
	close(f.done)
	return nil
}

func TestScheduler_RetriesFailedTasks(t *testing.T) {
	scheduler := NewScheduler(1)
	scheduler.retryDelay = func(int) time.Duration { return time.Millisecond }
	scheduler.Start()
	defer scheduler.Stop()

	task := &flakyTask{Task: NewTask("flaky", "site"), failures: 2, done: make(chan struct{})}
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	select {
	case <-task.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for retried task")
	}

	if task.attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", task.attempts.Load())
	}
}

func TestRunPipelineTask_NeverRetries(t *testing.T) {
	task := NewRunPipelineTask("site", &mockRunner{done: make(chan struct{}, 1)})
	if task.CanRetry() {
		t.Error("Expected pipeline task not to be retryable")
	}
	if task.GetType() != TaskTypeRunPipeline || task.GetSiteID() != "site" {
		t.Errorf("Expected run_pipeline task for site, got %s/%s", task.GetType(), task.GetSiteID())
	}
}

func TestRunPipelineTask_CancelledContext(t *testing.T) {
	runner := &mockRunner{done: make(chan struct{}, 1)}
	task := NewRunPipelineTask("site", runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := task.Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(runner.sites) != 0 {
		t.Error("Expected runner not to be called")
	}
}

func TestScheduler_EnqueueAfterStop(t *testing.T) {
	scheduler := NewScheduler(1)
	scheduler.Start()
	scheduler.Stop()

	err := scheduler.EnqueueTask(NewRunPipelineTask("site", &mockRunner{done: make(chan struct{}, 1)}))
	if err == nil {
		t.Error("Expected error when enqueuing after stop")
	}
}

func TestScheduler_QueueFull(t *testing.T) {
	scheduler := NewScheduler(1) // not started, nothing drains the queue

	runner := &mockRunner{done: make(chan struct{}, queueSize+1)}
	for i := 0; i < queueSize; i++ {
		if err := scheduler.EnqueueTask(NewRunPipelineTask("site", runner)); err != nil {
			t.Fatalf("Expected no error at %d, got %v", i, err)
		}
	}

	if err := scheduler.EnqueueTask(NewRunPipelineTask("site", runner)); err == nil {
		t.Error("Expected queue full error")
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := backoff(tt.retry); got != tt.want {
			t.Errorf("Expected backoff(%d) = %v, got %v", tt.retry, tt.want, got)
		}
	}
}
