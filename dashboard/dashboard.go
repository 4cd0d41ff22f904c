// Package dashboard runs external commands as tasks, either sequentially or
// through a fixed-size worker pool, capturing their combined output.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus int

const (
	// Pending indicates the task has not started yet.
	Pending TaskStatus = iota
	// Running indicates the task is currently executing.
	Running
	// Success indicates the task finished with a zero exit code.
	Success
	// Failed indicates the task failed to start or returned non-zero.
	Failed
)

func (s TaskStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("TaskStatus(%d)", int(s))
	}
}

// EventType distinguishes emitted dashboard events.
type EventType int

const (
	EventTaskStarted EventType = iota
	EventTaskOutput
	EventTaskCompleted
)

// Event captures task lifecycle milestones. Result is set on EventTaskCompleted.
type Event struct {
	Type   EventType
	TaskID string
	Line   string
	When   time.Time
	Result *TaskResult
}

// TaskSpec defines the configuration for a task to run.
type TaskSpec struct {
	ID      string
	Group   string
	Name    string
	Command []string
	Env     map[string]string
	Dir     string
}

// TaskResult is the execution outcome of a task.
type TaskResult struct {
	ID       string
	Group    string
	Name     string
	Status   TaskStatus
	ExitCode int
	Duration time.Duration
	Output   []string // combined stdout+stderr, last maxTail lines
	Dropped  int      // lines discarded from the head of Output
	Err      error
}

// CombinedOutput joins the captured lines with newlines.
func (r TaskResult) CombinedOutput() string {
	if len(r.Output) == 0 {
		return ""
	}
	return strings.Join(r.Output, "\n") + "\n"
}

// SuiteResult aggregates all task results for a run, in submission order.
type SuiteResult struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Tasks      []TaskResult
}

// Task looks up a result by task ID.
func (s SuiteResult) Task(id string) (TaskResult, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskResult{}, false
}

// Option configures a Dashboard.
type Option func(*config)

// WithStdout overrides the writer used for streamed output.
func WithStdout(w io.Writer) Option {
	return func(cfg *config) { cfg.stdout = w }
}

// WithStream prefixes and writes every output line to stdout as it arrives.
func WithStream(enabled bool) Option {
	return func(cfg *config) { cfg.stream = enabled }
}

// WithConcurrency sets the worker pool size. Values below 1 mean 1 (sequential).
func WithConcurrency(n int) Option {
	return func(cfg *config) { cfg.workers = n }
}

// WithMaxTailLines sets the maximum number of output lines to keep per task.
func WithMaxTailLines(n int) Option {
	return func(cfg *config) { cfg.maxTail = n }
}

// WithOnEvent registers a callback for emitted events. Calls are serialized.
func WithOnEvent(fn func(Event)) Option {
	return func(cfg *config) { cfg.onEvent = fn }
}

// Dashboard orchestrates multiple tasks.
type Dashboard struct {
	cfg config

	mu    sync.Mutex
	tasks []TaskSpec
}

// New constructs a dashboard instance.
func New(opts ...Option) *Dashboard {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	cfg.ensureRunner()
	return &Dashboard{cfg: cfg}
}

// AddTaskSpec adds a fully-specified task.
func (d *Dashboard) AddTaskSpec(spec TaskSpec) *Dashboard {
	d.mu.Lock()
	defer d.mu.Unlock()
	if spec.ID == "" {
		spec.ID = deriveTaskID(spec.Group, spec.Name)
	}
	d.tasks = append(d.tasks, spec)
	return d
}

// Run executes all tasks and waits for completion. A failing task never stops
// the others; the returned error lists every failed task ID.
func (d *Dashboard) Run(ctx context.Context) (SuiteResult, error) {
	d.mu.Lock()
	tasks := append([]TaskSpec(nil), d.tasks...)
	d.mu.Unlock()
	return d.cfg.runner.run(ctx, tasks)
}

// deriveTaskID creates a stable identifier for a task.
func deriveTaskID(group, name string) string {
	switch {
	case group != "" && name != "":
		return fmt.Sprintf("%s/%s", group, name)
	case group != "":
		return group
	default:
		return name
	}
}

// FailedTasks extracts the failed task IDs from an error returned by Run.
func FailedTasks(err error) []string {
	var agg aggregatedError
	if errors.As(err, &agg) {
		return agg.Failed()
	}
	return nil
}

// aggregatedError collapses multiple failures into one error value.
type aggregatedError struct {
	failed []string
}

func (a aggregatedError) Error() string {
	if len(a.failed) == 0 {
		return ""
	}
	return fmt.Sprintf("%d task(s) failed: %s", len(a.failed), strings.Join(a.failed, ", "))
}

func (a aggregatedError) Failed() []string { return append([]string(nil), a.failed...) }

func defaultConfig() config {
	return config{
		stdout:  os.Stdout,
		maxTail: 5000,
		workers: 1,
	}
}

type config struct {
	stdout  io.Writer
	stream  bool
	workers int
	maxTail int
	onEvent func(Event)
	runner  taskRunner
}

// ensureRunner sets a default runner if missing.
func (c *config) ensureRunner() {
	if c.runner == nil {
		c.runner = newDefaultRunner(c)
	}
}

// taskRunner abstracts execution for testing.
type taskRunner interface {
	run(ctx context.Context, tasks []TaskSpec) (SuiteResult, error)
}

var _ taskRunner = (*defaultRunner)(nil)
