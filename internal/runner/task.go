package runner

import (
	"context"
	"time"
)

// Task is a scheduled engine job.
type Task interface {
	// Name returns the unique name of the task.
	Name() string

	// Schedule returns the cron schedule expression for this task.
	Schedule() string

	// Run executes the task.
	Run(ctx context.Context) error

	// Timeout returns the maximum time this task should run.
	Timeout() time.Duration
}

// TaskRegistry holds all registered tasks.
type TaskRegistry struct {
	tasks map[string]Task
}

// NewTaskRegistry creates a new task registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]Task)}
}

// Register adds a task to the registry, replacing any task with the same
// name.
func (r *TaskRegistry) Register(task Task) {
	r.tasks[task.Name()] = task
}

// Get returns a task by name.
func (r *TaskRegistry) Get(name string) (Task, bool) {
	task, exists := r.tasks[name]
	return task, exists
}

// All returns all registered tasks.
func (r *TaskRegistry) All() map[string]Task {
	return r.tasks
}

// FuncTask wraps a plain function as a Task so engine services do not have
// to implement the interface themselves.
type FuncTask struct {
	TaskName     string
	CronSchedule string
	RunTimeout   time.Duration
	Fn           func(ctx context.Context) error
}

// Name implements Task.
func (t *FuncTask) Name() string { return t.TaskName }

// Schedule implements Task.
func (t *FuncTask) Schedule() string { return t.CronSchedule }

// Timeout implements Task.
func (t *FuncTask) Timeout() time.Duration {
	if t.RunTimeout <= 0 {
		return 4 * time.Minute
	}
	return t.RunTimeout
}

// Run implements Task.
func (t *FuncTask) Run(ctx context.Context) error { return t.Fn(ctx) }
