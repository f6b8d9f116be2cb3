package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus is the state of one step of a request.
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusRunning StepStatus = "running"
	StatusDone    StepStatus = "done"
	StatusCached  StepStatus = "cached"
	StatusFailed  StepStatus = "failed"
	StatusSkipped StepStatus = "skipped"
)

// StepState tracks the display state of a single step.
type StepState struct {
	Name     string
	Status   StepStatus
	Detail   string
	Duration time.Duration
}

// StepUpdateMsg reports progress on one step.
type StepUpdateMsg struct {
	Step     string
	Status   StepStatus
	Progress string // e.g. "2/3"; used by the plain display
	Detail   string
	Duration time.Duration
}

// DoneMsg signals the request completed. Summary is shown under the steps.
type DoneMsg struct {
	Summary string
}

// ErrorMsg signals the request failed.
type ErrorMsg struct {
	Err error
}

func (StepUpdateMsg) isDisplayEvent() {}
func (DoneMsg) isDisplayEvent()       {}
func (ErrorMsg) isDisplayEvent()      {}

var (
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Model is the Bubble Tea model for request progress.
type Model struct {
	steps      []StepState
	spinner    spinner.Model
	summary    string
	done       bool
	aborted    bool
	err        error
	cancelFunc context.CancelFunc
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithCancelFunc sets the function called when the user aborts with q or ctrl+c.
func WithCancelFunc(fn context.CancelFunc) ModelOption {
	return func(m *Model) { m.cancelFunc = fn }
}

// NewModel creates a Model with the given step names, all pending.
func NewModel(stepNames []string, opts ...ModelOption) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	steps := make([]StepState, len(stepNames))
	for i, name := range stepNames {
		steps[i] = StepState{Name: name, Status: StatusPending}
	}
	m := Model{steps: steps, spinner: s}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the spinner tick.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StepUpdateMsg:
		for i := range m.steps {
			if m.steps[i].Name != msg.Step {
				continue
			}
			m.steps[i].Status = msg.Status
			if msg.Detail != "" {
				m.steps[i].Detail = msg.Detail
			}
			if msg.Duration > 0 {
				m.steps[i].Duration = msg.Duration
			}
			break
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.summary = msg.Summary
		return m, tea.Quit

	case ErrorMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.done = true
			m.aborted = true
			if m.cancelFunc != nil {
				m.cancelFunc()
			}
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the step list with status indicators.
func (m Model) View() string {
	var b strings.Builder
	for _, st := range m.steps {
		line := fmt.Sprintf("  %s %s", indicator(st.Status, m.spinner.View()), st.Name)
		if st.Detail != "" {
			line += " " + detailStyle.Render(st.Detail)
		}
		if st.Duration > 0 {
			line += fmt.Sprintf(" %.1fs", st.Duration.Seconds())
		}
		b.WriteString(line + "\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n  " + failStyle.Render("Error: "+m.err.Error()) + "\n")
	case m.aborted:
		b.WriteString("\n  Cancelled.\n")
	case m.done && m.summary != "":
		b.WriteString("\n" + m.summary + "\n")
	}
	return b.String()
}

func indicator(status StepStatus, spinnerView string) string {
	switch status {
	case StatusPending:
		return "○"
	case StatusRunning:
		return spinnerView
	case StatusDone, StatusCached:
		return doneStyle.Render("✓")
	case StatusFailed:
		return failStyle.Render("✗")
	case StatusSkipped:
		return "–"
	default:
		return "?"
	}
}
