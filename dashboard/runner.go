package dashboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

func newDefaultRunner(cfg *config) *defaultRunner {
	return &defaultRunner{cfg: cfg}
}

type defaultRunner struct {
	cfg      *config
	writerMu sync.Mutex
	emitMu   sync.Mutex
}

// run feeds task indexes to a fixed pool of workers and joins them all
// before returning. Results keep submission order.
func (r *defaultRunner) run(ctx context.Context, tasks []TaskSpec) (SuiteResult, error) {
	if len(tasks) == 0 {
		now := time.Now()
		return SuiteResult{StartedAt: now, FinishedAt: now}, nil
	}

	suite := SuiteResult{StartedAt: time.Now(), Tasks: make([]TaskResult, len(tasks))}

	workers := r.cfg.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	queue := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				suite.Tasks[i] = r.runTask(ctx, tasks[i])
			}
		}()
	}
	for i := range tasks {
		queue <- i
	}
	close(queue)
	wg.Wait()
	suite.FinishedAt = time.Now()

	var failed []string
	for _, res := range suite.Tasks {
		if res.Status == Failed {
			failed = append(failed, res.ID)
		}
	}
	if len(failed) > 0 {
		return suite, aggregatedError{failed: failed}
	}
	return suite, nil
}

func (r *defaultRunner) runTask(ctx context.Context, spec TaskSpec) TaskResult {
	start := time.Now()
	res := TaskResult{ID: spec.ID, Group: spec.Group, Name: spec.Name, Status: Pending}
	r.emit(Event{Type: EventTaskStarted, TaskID: spec.ID, When: start})

	if len(spec.Command) == 0 || spec.Command[0] == "" {
		res.Status = Failed
		res.ExitCode = -1
		res.Err = errors.New("task has no command")
		res.Duration = time.Since(start)
		r.complete(spec, res)
		return res
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	cmd.Env = mergeEnv(os.Environ(), spec.Env)

	pipeReader, pipeWriter := io.Pipe()
	cmd.Stdout = pipeWriter
	cmd.Stderr = pipeWriter

	tail := newTailBuffer(r.cfg.maxTail)

	res.Status = Running
	if err := cmd.Start(); err != nil {
		res.Status = Failed
		res.ExitCode = -1
		res.Err = err
		res.Duration = time.Since(start)
		_ = pipeWriter.Close()
		_ = pipeReader.Close()
		r.complete(spec, res)
		return res
	}

	var readWG sync.WaitGroup
	readWG.Add(1)
	go func() {
		defer readWG.Done()
		err := readLines(pipeReader, maxLineBytes, func(line string) {
			tail.add(line)
			r.emit(Event{Type: EventTaskOutput, TaskID: spec.ID, Line: line, When: time.Now()})
			if r.cfg.stream {
				r.writeStream(spec, line)
			}
		})
		if err != nil {
			// Keep draining so the child never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, pipeReader)
		}
	}()

	waitErr := cmd.Wait()
	_ = pipeWriter.Close()
	readWG.Wait()
	_ = pipeReader.Close()

	res.Output = tail.lines()
	res.Dropped = tail.dropped
	res.Duration = time.Since(start)

	if waitErr != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		res.Status = Failed
		res.Err = waitErr
	} else {
		res.Status = Success
		res.ExitCode = 0
	}

	r.complete(spec, res)
	return res
}

// maxLineBytes caps a single captured line. Longer lines are truncated and
// reading carries on with the next one.
const maxLineBytes = 1024 * 1024

// readLines calls fn for every line read from src, without the line ending.
// Lines longer than limit bytes are cut to limit.
func readLines(src io.Reader, limit int, fn func(string)) error {
	br := bufio.NewReaderSize(src, 64*1024)
	var line []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if room := limit - len(line); room > 0 && len(chunk) > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}
		if err != nil {
			if len(line) > 0 {
				fn(string(line))
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if isPrefix {
			continue
		}
		fn(string(line))
		line = line[:0]
	}
}

func (r *defaultRunner) complete(spec TaskSpec, res TaskResult) {
	r.emit(Event{Type: EventTaskCompleted, TaskID: spec.ID, When: time.Now(), Result: &res})
}

func (r *defaultRunner) emit(evt Event) {
	if r.cfg.onEvent == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.cfg.onEvent(evt)
}

func (r *defaultRunner) writeStream(spec TaskSpec, line string) {
	prefix := spec.ID
	if prefix == "" {
		prefix = deriveTaskID(spec.Group, spec.Name)
	}
	r.writerMu.Lock()
	fmt.Fprintf(r.cfg.stdout, "%s | %s\n", prefix, line)
	r.writerMu.Unlock()
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	env := make([]string, len(base))
	copy(env, base)
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
