// Package report summarizes a benchmark run for humans and machines.
// A Report is pure data; renderers decide presentation.
package report

import (
	"sort"
	"time"

	"github.com/dkoosis/gbbench/internal/bench"
)

// Status values used in Row.Status.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// Key identifies a runner across runs. Script, not variant, is the identity:
// run.sh and runner.sh both map to the release variant.
type Key struct {
	Lang   string
	Script string
}

// Report is the end-of-run summary.
type Report struct {
	Title       string        `json:"title"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Rows        []Row         `json:"results"`
	Leaderboard []Entry       `json:"leaderboard"`
}

// Row is one case outcome.
type Row struct {
	Lang       string  `json:"lang"`
	Variant    string  `json:"variant"`
	Script     string  `json:"script"`
	Status     string  `json:"status"`
	Frames     int     `json:"frames"`
	ExitCode   int     `json:"exit_code"`
	Duration   string  `json:"duration"`
	Throughput string  `json:"throughput,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
}

// Entry is a ranked throughput figure, optionally compared with a previous run.
type Entry struct {
	Rank        int     `json:"rank"`
	Lang        string  `json:"lang"`
	Variant     string  `json:"variant"`
	Script      string  `json:"script"`
	FPS         float64 `json:"fps"`
	Previous    float64 `json:"previous_fps,omitempty"`
	HasPrevious bool    `json:"-"`
}

// Name is the "lang/variant" display form.
func (r Row) Name() string { return displayName(r.Lang, r.Variant, r.Script) }

// Name is the "lang/variant" display form.
func (e Entry) Name() string { return displayName(e.Lang, e.Variant, e.Script) }

// displayName appends the script when it is not the one the variant implies,
// so two scripts sharing a variant stay distinguishable.
func displayName(lang, variant, script string) string {
	name := lang + "/" + variant
	if script != "" && script != "run.sh" && script != "run_"+variant+".sh" {
		name += " (" + script + ")"
	}
	return name
}

// Change is the percentage change against the previous run.
func (e Entry) Change() float64 {
	if !e.HasPrevious || e.Previous == 0 {
		return 0
	}
	return (e.FPS - e.Previous) / e.Previous * 100
}

// Build derives a Report from a run outcome. previous may be nil.
func Build(title string, out bench.Outcome, previous map[Key]float64) *Report {
	r := &Report{
		Title:   title,
		Passed:  out.Passed,
		Failed:  out.Failed,
		Elapsed: out.Duration,
		Rows:    make([]Row, 0, len(out.Results)),
	}

	for _, res := range out.Results {
		row := Row{
			Lang:       res.Case.Lang,
			Variant:    res.Case.Variant,
			Script:     res.Case.Runner,
			Status:     StatusFail,
			Frames:     res.Scaled,
			ExitCode:   res.ExitCode,
			Duration:   durationString(res.Duration),
			Throughput: res.Throughput,
		}
		if res.OK {
			row.Status = StatusPass
		}
		if res.HasFPS {
			row.FPS = res.FPS
			e := Entry{Lang: row.Lang, Variant: row.Variant, Script: row.Script, FPS: res.FPS}
			if prev, ok := previous[Key{Lang: row.Lang, Script: row.Script}]; ok {
				e.Previous, e.HasPrevious = prev, true
			}
			r.Leaderboard = append(r.Leaderboard, e)
		}
		r.Rows = append(r.Rows, row)
	}

	sort.SliceStable(r.Leaderboard, func(i, j int) bool {
		return r.Leaderboard[i].FPS > r.Leaderboard[j].FPS
	})
	for i := range r.Leaderboard {
		r.Leaderboard[i].Rank = i + 1
	}
	return r
}

// Renderer converts a Report to formatted output.
type Renderer interface {
	Render(r *Report) string
}

// ForFormat picks a renderer. "auto" resolves to terminal when tty is true
// and plain otherwise; "none" and unknown formats return nil.
func ForFormat(format, theme string, tty bool, width int) Renderer {
	switch format {
	case "auto":
		if tty {
			return NewTerminal(ThemeByName(theme), width)
		}
		return NewPlain()
	case "terminal":
		return NewTerminal(ThemeByName(theme), width)
	case "plain":
		return NewPlain()
	case "json":
		return NewJSON()
	default:
		return nil
	}
}

// ValidFormat reports whether format is accepted by ForFormat.
func ValidFormat(format string) bool {
	switch format {
	case "auto", "terminal", "plain", "json", "none":
		return true
	}
	return false
}
