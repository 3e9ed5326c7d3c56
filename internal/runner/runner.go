// Package runner schedules and executes the engine's periodic tasks.
package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner manages and executes scheduled background tasks.
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   *log.Logger
	wg       sync.WaitGroup
}

// NewRunner creates a task runner. A nil logger falls back to the default
// logger.
func NewRunner(registry *TaskRegistry, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		logger:   logger,
	}
}

// Start registers all tasks with cron, starts the scheduler and blocks
// until a termination signal arrives or the context is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Println("starting task runner")

	for name, task := range r.registry.All() {
		r.logger.Printf("registering task %s with schedule %q", name, task.Schedule())

		t := task
		_, err := r.cron.AddFunc(t.Schedule(), func() {
			r.executeTask(ctx, t)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", name, err)
		}
	}

	r.cron.Start()
	r.logger.Println("task runner started")

	return r.waitForShutdown(ctx)
}

// RunOnce executes a registered task immediately, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	task, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %s", name)
	}
	r.executeTask(ctx, task)
	return nil
}

// executeTask runs a single task with timeout and error handling.
func (r *Runner) executeTask(ctx context.Context, task Task) {
	r.wg.Add(1)
	defer r.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		r.logger.Printf("task %s failed after %v: %v", task.Name(), duration, err)
	} else {
		r.logger.Printf("task %s completed in %v", task.Name(), duration)
	}
}

// Stop gracefully shuts down the runner, waiting for running tasks.
func (r *Runner) Stop() {
	r.logger.Println("stopping task runner")

	ctx := r.cron.Stop()
	r.wg.Wait()
	<-ctx.Done()

	r.logger.Println("task runner stopped")
}

// waitForShutdown waits for termination signals.
func (r *Runner) waitForShutdown(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		r.logger.Printf("received signal %v", sig)
		r.Stop()
		return nil
	case <-ctx.Done():
		r.Stop()
		return ctx.Err()
	}
}
