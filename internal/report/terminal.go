package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Terminal renders a Report as styled terminal output via lipgloss.
type Terminal struct {
	theme Theme
	width int
	title cases.Caser
}

// NewTerminal creates a terminal renderer with the given theme.
func NewTerminal(theme Theme, width int) *Terminal {
	if width <= 0 {
		width = 80
	}
	return &Terminal{theme: theme, width: width, title: cases.Title(language.English)}
}

// Render formats the report for terminal display.
func (t *Terminal) Render(r *Report) string {
	sections := []string{t.renderSummary(r)}
	if s := t.renderResults(r); s != "" {
		sections = append(sections, s)
	}
	if s := t.renderLeaderboard(r); s != "" {
		sections = append(sections, s)
	}
	return strings.Join(sections, "\n")
}

func (t *Terminal) renderSummary(r *Report) string {
	var sb strings.Builder
	title := r.Title
	if title == "" {
		title = "benchmark"
	}
	sb.WriteString(t.theme.Bold.Render(t.title.String(title)))
	sb.WriteString("\n")

	sb.WriteString("  ")
	sb.WriteString(t.theme.Success.Render(fmt.Sprintf("%s %d passed", t.theme.Icons.Pass, r.Passed)))
	sb.WriteString("  ")
	failStyle := t.theme.Muted
	if r.Failed > 0 {
		failStyle = t.theme.Error
	}
	sb.WriteString(failStyle.Render(fmt.Sprintf("%s %d failed", t.theme.Icons.Fail, r.Failed)))
	sb.WriteString("  ")
	sb.WriteString(t.theme.Muted.Render(durationString(r.Elapsed)))
	sb.WriteString("\n")
	return sb.String()
}

func (t *Terminal) renderResults(r *Report) string {
	if len(r.Rows) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(t.theme.Bold.Render("Results"))
	sb.WriteString("\n")

	maxName, maxFrames := 0, 0
	for _, row := range r.Rows {
		maxName = max(maxName, runewidth.StringWidth(row.Name()))
		maxFrames = max(maxFrames, len(fmt.Sprint(row.Frames)))
	}

	// Leave room for icon, name, frames and duration columns.
	detailWidth := t.width - maxName - maxFrames - 20
	for _, row := range r.Rows {
		sb.WriteString("  ")
		if row.Status == StatusPass {
			sb.WriteString(t.theme.Success.Render(t.theme.Icons.Pass + " "))
		} else {
			sb.WriteString(t.theme.Error.Render(t.theme.Icons.Fail + " "))
		}
		sb.WriteString(t.theme.Primary.Render(padRight(row.Name(), maxName)))
		sb.WriteString(t.theme.Muted.Render("  " + padLeft(fmt.Sprint(row.Frames), maxFrames) + "f"))
		sb.WriteString(t.theme.Muted.Render("  " + padLeft(row.Duration, 8)))

		detail := row.Throughput
		if row.Status != StatusPass {
			detail = fmt.Sprintf("exit %d", row.ExitCode)
		}
		if detail != "" {
			sb.WriteString("  ")
			sb.WriteString(truncate(detail, detailWidth))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Terminal) renderLeaderboard(r *Report) string {
	if len(r.Leaderboard) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(t.theme.Bold.Render("Throughput"))
	sb.WriteString("\n")

	maxName, maxMetric := 0, 0
	for _, e := range r.Leaderboard {
		maxName = max(maxName, runewidth.StringWidth(e.Name()))
		maxMetric = max(maxMetric, len(fpsString(e.FPS)))
	}

	for _, e := range r.Leaderboard {
		sb.WriteString("  ")
		sb.WriteString(t.theme.Muted.Render(fmt.Sprintf("%2d. ", e.Rank)))
		sb.WriteString(t.theme.Primary.Render(padRight(e.Name(), maxName)))
		sb.WriteString("  ")
		sb.WriteString(t.theme.Warning.Render(padLeft(fpsString(e.FPS), maxMetric)))
		if e.HasPrevious {
			sb.WriteString(" ")
			sb.WriteString(t.renderChange(e))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Terminal) renderChange(e Entry) string {
	change := e.Change()
	var arrow string
	var style lipgloss.Style
	switch {
	case change > 0:
		arrow, style = t.theme.Icons.Up, t.theme.Success
	case change < 0:
		arrow, style = t.theme.Icons.Down, t.theme.Error
	default:
		arrow, style = t.theme.Icons.Same, t.theme.Muted
	}
	if change < 0 {
		change = -change
	}
	return style.Render(fmt.Sprintf("%s %.1f%%", arrow, change)) +
		t.theme.Muted.Render(fmt.Sprintf(" (was %s)", fpsString(e.Previous)))
}

func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func padLeft(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return strings.Repeat(" ", width-w) + s
}

func truncate(s string, width int) string {
	if width < 8 {
		width = 8
	}
	return runewidth.Truncate(s, width, "...")
}
