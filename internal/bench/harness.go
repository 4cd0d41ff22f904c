package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dkoosis/gbbench/dashboard"
)

// Harness runs benchmark cases and aggregates their results.
type Harness struct {
	Invocation Invocation
	Marker     string // throughput marker, "frames" when empty
	Workers    int    // pool size; 1 runs sequentially
	Stream     bool   // echo runner output to Stdout as "lang/script | line"
	Stdout     io.Writer
	Logger     *slog.Logger

	// OnEvent observes raw task events (used by the live view).
	OnEvent func(dashboard.Event)
	// OnResult replaces the default status-line printing when set.
	OnResult func(Result)
}

// Run executes every case and returns once all of them have finished. A
// failing case is recorded and never stops the rest of the batch.
func (h *Harness) Run(ctx context.Context, cases []Case) Outcome {
	logger := h.logger()
	byID := make(map[string]Case, len(cases))
	scaled := make(map[string]int, len(cases))

	dash := dashboard.New(
		dashboard.WithConcurrency(h.Workers),
		dashboard.WithStdout(h.stdout()),
		dashboard.WithStream(h.Stream),
		dashboard.WithOnEvent(func(e dashboard.Event) {
			if h.OnEvent != nil {
				h.OnEvent(e)
			}
			if e.Type != dashboard.EventTaskCompleted || e.Result == nil {
				return
			}
			res := h.toResult(byID[e.TaskID], scaled[e.TaskID], *e.Result)
			logger.Debug("runner finished",
				"case", e.TaskID, "ok", res.OK, "exit", res.ExitCode, "duration", res.Duration)
			h.report(res)
		}),
	)

	for _, c := range cases {
		spec, n := h.Invocation.Task(c)
		byID[spec.ID] = c
		scaled[spec.ID] = n
		logger.Debug("queued runner", "case", spec.ID, "frames", n, "argv", spec.Command, "dir", spec.Dir)
		dash.AddTaskSpec(spec)
	}

	suite, err := dash.Run(ctx)
	if err != nil {
		logger.Debug("batch finished with failures", "failed", dashboard.FailedTasks(err))
	}

	out := Outcome{StartedAt: suite.StartedAt, Duration: suite.FinishedAt.Sub(suite.StartedAt)}
	for _, task := range suite.Tasks {
		res := h.toResult(byID[task.ID], scaled[task.ID], task)
		if res.OK {
			out.Passed++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, res)
	}
	return out
}

func (h *Harness) toResult(c Case, scaled int, task dashboard.TaskResult) Result {
	marker := h.Marker
	if marker == "" {
		marker = "frames"
	}
	res := Result{
		Case:     c,
		Scaled:   scaled,
		OK:       task.Status == dashboard.Success,
		ExitCode: task.ExitCode,
		Output:   task.CombinedOutput(),
		Duration: task.Duration,
		Err:      task.Err,
	}
	if res.OK {
		res.Throughput = Throughput(task.Output, marker)
		res.FPS, res.HasFPS = ParseFPS(res.Throughput)
	} else if res.Output == "" && res.Err != nil {
		res.Output = res.Err.Error() + "\n"
	}
	return res
}

func (h *Harness) report(res Result) {
	if h.OnResult != nil {
		h.OnResult(res)
		return
	}
	fmt.Fprintln(h.stdout(), res.StatusLine())
}

func (h *Harness) stdout() io.Writer {
	if h.Stdout != nil {
		return h.Stdout
	}
	return os.Stdout
}

func (h *Harness) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
