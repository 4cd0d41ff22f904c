// Package live shows benchmark progress in the terminal while runners execute.
// Finished status lines are printed above the view so the scrollback matches
// the non-interactive output.
package live

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StartedMsg reports a runner process starting.
type StartedMsg struct {
	ID    string
	Label string
	At    time.Time
}

// FinishedMsg reports a runner finishing with its status line.
type FinishedMsg struct {
	ID   string
	Line string
}

// DoneMsg ends the program once every runner has been reported.
type DoneMsg struct{}

type running struct {
	id      string
	label   string
	started time.Time
}

// Model is the bubbletea model for the progress view.
type Model struct {
	spinner  spinner.Model
	total    int
	done     int
	running  []running
	finished bool
	onQuit   func()
	muted    lipgloss.Style
	now      func() time.Time
}

// NewModel creates a model expecting total runners. onQuit runs when the user
// presses ctrl+c.
func NewModel(total int, onQuit func()) Model {
	return Model{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("39"))),
		),
		total:  total,
		onQuit: onQuit,
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		now:    time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.onQuit != nil {
				m.onQuit()
			}
			m.finished = true
			return m, tea.Quit
		}
	case StartedMsg:
		at := msg.At
		if at.IsZero() {
			at = m.now()
		}
		m.running = append(m.running, running{id: msg.ID, label: msg.Label, started: at})
	case FinishedMsg:
		for i, r := range m.running {
			if r.id == msg.ID {
				m.running = append(m.running[:i], m.running[i+1:]...)
				break
			}
		}
		m.done++
		return m, tea.Println(msg.Line)
	case DoneMsg:
		m.finished = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.finished {
		return ""
	}
	var sb strings.Builder
	for _, r := range m.running {
		elapsed := m.now().Sub(r.started).Round(100 * time.Millisecond)
		sb.WriteString(fmt.Sprintf("%s %s %s\n", m.spinner.View(), r.label, m.muted.Render(elapsed.String())))
	}
	sb.WriteString(m.muted.Render(fmt.Sprintf("%d/%d done", m.done, m.total)))
	sb.WriteString("\n")
	return sb.String()
}

// View drives a Model in a tea.Program. Its methods are safe to call from
// worker goroutines.
type View struct {
	program *tea.Program
}

// New prepares a view writing to out.
func New(total int, out io.Writer, onQuit func()) *View {
	return &View{program: tea.NewProgram(NewModel(total, onQuit), tea.WithOutput(out))}
}

// Run blocks until Done is called or the user quits.
func (v *View) Run() error {
	_, err := v.program.Run()
	return err
}

// Started records a runner start.
func (v *View) Started(id, label string) {
	v.program.Send(StartedMsg{ID: id, Label: label, At: time.Now()})
}

// Finished prints line above the view and drops the runner from the list.
func (v *View) Finished(id, line string) {
	v.program.Send(FinishedMsg{ID: id, Line: line})
}

// Done stops the program.
func (v *View) Done() {
	v.program.Send(DoneMsg{})
}
