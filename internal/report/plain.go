package report

import (
	"fmt"
	"strings"
	"time"
)

// Plain renders a Report as plain text with no ANSI codes, suitable for logs
// and piped output.
type Plain struct{}

// NewPlain creates a plain text renderer.
func NewPlain() *Plain {
	return &Plain{}
}

// Render formats the report.
func (p *Plain) Render(r *Report) string {
	var sb strings.Builder
	scope := "PASS"
	if r.Failed > 0 {
		scope = "FAIL"
	}
	fmt.Fprintf(&sb, "%s: %d passed, %d failed (%s)\n", scope, r.Passed, r.Failed, durationString(r.Elapsed))

	for _, row := range r.Rows {
		if row.Status == StatusPass {
			continue
		}
		fmt.Fprintf(&sb, "  FAIL %s exit=%d\n", row.Name(), row.ExitCode)
	}

	if len(r.Leaderboard) > 0 {
		sb.WriteString("\nthroughput:\n")
		for _, e := range r.Leaderboard {
			fmt.Fprintf(&sb, "  %2d. %s %s", e.Rank, e.Name(), fpsString(e.FPS))
			if e.HasPrevious {
				fmt.Fprintf(&sb, " (%+.1f%% vs %s)", e.Change(), fpsString(e.Previous))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func fpsString(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%dfps", int64(v))
	}
	return fmt.Sprintf("%.1ffps", v)
}

func durationString(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}
