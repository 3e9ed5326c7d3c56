package runner

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestTaskRegistry(t *testing.T) {
	registry := NewTaskRegistry()
	registry.Register(&FuncTask{TaskName: "sweep", CronSchedule: "0 */5 * * * *", Fn: func(ctx context.Context) error { return nil }})
	registry.Register(&FuncTask{TaskName: "health", CronSchedule: "0 */10 * * * *", Fn: func(ctx context.Context) error { return nil }})

	task, ok := registry.Get("sweep")
	if !ok {
		t.Fatal("registered task not found")
	}
	if task.Name() != "sweep" {
		t.Errorf("Name() = %q, want %q", task.Name(), "sweep")
	}
	if _, ok := registry.Get("missing"); ok {
		t.Error("unknown task reported found")
	}
	if len(registry.All()) != 2 {
		t.Errorf("All() has %d tasks, want 2", len(registry.All()))
	}

	// Re-registering replaces the previous task.
	registry.Register(&FuncTask{TaskName: "sweep", CronSchedule: "0 * * * * *", Fn: func(ctx context.Context) error { return nil }})
	task, _ = registry.Get("sweep")
	if task.Schedule() != "0 * * * * *" {
		t.Error("re-registration did not replace the task")
	}
}

func TestFuncTaskDefaults(t *testing.T) {
	task := &FuncTask{TaskName: "sweep", Fn: func(ctx context.Context) error { return nil }}
	if got := task.Timeout(); got != 4*time.Minute {
		t.Errorf("Timeout() = %v, want 4m default", got)
	}

	task.RunTimeout = 30 * time.Second
	if got := task.Timeout(); got != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", got)
	}
}

func TestRunOnce(t *testing.T) {
	registry := NewTaskRegistry()
	ran := false
	registry.Register(&FuncTask{
		TaskName:     "sweep",
		CronSchedule: "0 */5 * * * *",
		Fn: func(ctx context.Context) error {
			ran = true
			if _, ok := ctx.Deadline(); !ok {
				t.Error("task context has no deadline")
			}
			return nil
		},
	})

	r := NewRunner(registry, quietLogger())
	if err := r.RunOnce(context.Background(), "sweep"); err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if !ran {
		t.Error("task did not run")
	}

	if err := r.RunOnce(context.Background(), "missing"); err == nil {
		t.Error("RunOnce() on unknown task returned nil error")
	}
}

func TestRunOnceTaskFailureIsContained(t *testing.T) {
	registry := NewTaskRegistry()
	registry.Register(&FuncTask{
		TaskName:     "flaky",
		CronSchedule: "0 * * * * *",
		Fn:           func(ctx context.Context) error { return errors.New("sweep failed") },
	})

	r := NewRunner(registry, quietLogger())
	// Task errors are logged, not propagated.
	if err := r.RunOnce(context.Background(), "flaky"); err != nil {
		t.Errorf("RunOnce() = %v, want nil", err)
	}
}
