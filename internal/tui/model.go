// Package tui renders a single export's progress in the terminal.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/heimdex/heimdex-editor/internal/export"
)

const maxBarWidth = 60

// JobUpdateMsg carries one export snapshot into the program.
type JobUpdateMsg struct {
	Job export.Job
}

// Model is the bubbletea model for the export progress view.
type Model struct {
	title   string
	updates <-chan export.Job
	cancel  func()

	spinner spinner.Model
	bar     progress.Model

	job        export.Job
	cancelling bool
	done       bool
}

// New builds a view that follows updates until the job reaches a terminal
// phase. cancel is invoked when the user presses q or ctrl+c.
func New(title string, updates <-chan export.Job, cancel func()) Model {
	return Model{
		title:   title,
		updates: updates,
		cancel:  cancel,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(TitleStyle)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		job:     export.Job{Phase: export.PhaseIdle},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
}

// waitForUpdate reads the next snapshot off the feed.
func waitForUpdate(updates <-chan export.Job) tea.Cmd {
	return func() tea.Msg {
		return JobUpdateMsg{Job: <-updates}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.done {
				return m, tea.Quit
			}
			if !m.cancelling && m.cancel != nil {
				m.cancelling = true
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-8, 10), maxBarWidth)
		return m, nil

	case JobUpdateMsg:
		m.job = msg.Job
		if m.job.Phase.Terminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, waitForUpdate(m.updates)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n\n")

	switch m.job.Phase {
	case export.PhaseCompleted:
		b.WriteString(SuccessStyle.Render("Export complete"))
		b.WriteString("\n")
		b.WriteString(m.job.ResultURL)
	case export.PhaseFailed:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Export failed (%s)", m.job.FailureKind)))
		b.WriteString("\n")
		b.WriteString(m.job.Error)
	default:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(StatusStyle.Render(statusLine(m.job, m.cancelling)))
		b.WriteString("\n\n")
		b.WriteString(m.bar.ViewAs(m.job.Progress))
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("q: cancel export"))
	}
	b.WriteString("\n")
	return b.String()
}

func statusLine(j export.Job, cancelling bool) string {
	if cancelling {
		return "Cancelling..."
	}
	msg := j.Message
	if msg == "" {
		msg = "Starting..."
	}
	if j.Phase == export.PhasePolling && j.Polls > 0 {
		return fmt.Sprintf("%s (poll %d)", msg, j.Polls)
	}
	return msg
}

// Job returns the last snapshot the view received.
func (m Model) Job() export.Job {
	return m.job
}

// Run shows the view until the export ends and returns its final snapshot.
func Run(title string, feed *Feed, cancel func(), in io.Reader, out io.Writer) (export.Job, error) {
	defer feed.Close()

	p := tea.NewProgram(New(title, feed.Updates(), cancel), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return export.Job{}, fmt.Errorf("progress view: %w", err)
	}
	return final.(Model).Job(), nil
}
