package bench

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dkoosis/gbbench/dashboard"
	"github.com/dkoosis/gbbench/internal/discover"
)

// Case is one runner invocation to perform.
type Case struct {
	Lang    string
	Runner  string // script file name relative to the language dir
	Variant string
	Frames  int // requested, before scaling
}

// ID identifies the case uniquely within a run.
func (c Case) ID() string { return c.Lang + "/" + c.Runner }

// Label is the "lang / variant" display form used in status lines.
func (c Case) Label() string { return fmt.Sprintf("%5s / %-7s", c.Lang, c.Variant) }

// CasesFrom pairs every runner with the base frame count.
func CasesFrom(runners []discover.Runner, frames int) []Case {
	cases := make([]Case, 0, len(runners))
	for _, r := range runners {
		cases = append(cases, Case{Lang: r.Lang, Runner: r.Script, Variant: r.Variant, Frames: frames})
	}
	return cases
}

// Invocation holds everything needed to build a runner command line.
type Invocation struct {
	Root        string   // directory holding the language dirs
	Asset       string   // test ROM path
	ProfileFlag string   // e.g. "--profile"
	Flags       []string // e.g. --silent --headless --turbo
	Scaler      Scaler
}

// Runner environment variables, set on top of the inherited environment.
const (
	EnvLang    = "GBBENCH_RUNNER_LANG"
	EnvVariant = "GBBENCH_RUNNER_VARIANT"
	EnvFrames  = "GBBENCH_RUNNER_FRAMES"
)

// Task builds the dashboard task for c along with its scaled frame count.
// The runner executes inside its language directory and receives the asset
// path relative to that directory.
func (inv Invocation) Task(c Case) (dashboard.TaskSpec, int) {
	scaled := inv.Scaler.Scale(c.Lang, c.Variant, c.Frames)
	dir := filepath.Join(inv.Root, c.Lang)

	argv := []string{"./" + c.Runner, inv.ProfileFlag, strconv.Itoa(scaled)}
	argv = append(argv, inv.Flags...)
	argv = append(argv, assetArg(dir, inv.Asset))

	return dashboard.TaskSpec{
		ID:      c.ID(),
		Group:   c.Lang,
		Name:    c.Variant,
		Command: argv,
		Dir:     dir,
		Env: map[string]string{
			EnvLang:    c.Lang,
			EnvVariant: c.Variant,
			EnvFrames:  strconv.Itoa(scaled),
		},
	}, scaled
}

func assetArg(dir, asset string) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return asset
	}
	absAsset, err := filepath.Abs(asset)
	if err != nil {
		return asset
	}
	rel, err := filepath.Rel(absDir, absAsset)
	if err != nil {
		return absAsset
	}
	return rel
}

// Result is the outcome of one case.
type Result struct {
	Case       Case
	Scaled     int
	OK         bool
	ExitCode   int
	Throughput string
	FPS        float64
	HasFPS     bool
	Output     string
	Duration   time.Duration
	Err        error
}

// StatusLine renders the human-readable line for r. Failures carry the
// combined output on the following lines.
func (r Result) StatusLine() string {
	if !r.OK {
		return fmt.Sprintf("%s: Failed\n%s", r.Case.Label(), r.Output)
	}
	return fmt.Sprintf("%s: %s", r.Case.Label(), r.Throughput)
}

// Outcome aggregates all results of a run.
type Outcome struct {
	Results   []Result
	Passed    int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// OK reports whether every case passed; true for an empty run.
func (o Outcome) OK() bool { return o.Failed == 0 }

// ExitCode is 0 when every case passed and 1 otherwise.
func (o Outcome) ExitCode() int {
	if o.OK() {
		return 0
	}
	return 1
}
