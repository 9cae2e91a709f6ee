package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mehreencs87/sandboxjs/async"
	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/ui/components"
	"github.com/mehreencs87/sandboxjs/models"
)

// maxLogLines bounds the viewport's scrollback
const maxLogLines = 500

// LogsModel follows the container's log stream in a viewport
type LogsModel struct {
	session  *session
	viewport viewport.Model
	events   chan models.LogEvent
	cancel   context.CancelFunc
	lines    []string
	ended    bool
	err      error
}

type logEventMsg struct {
	event models.LogEvent
}

type logStreamEndedMsg struct {
	err error
}

func NewLogsModel(s *session) LogsModel {
	return LogsModel{
		session:  s,
		viewport: viewport.New(100, 18),
		events:   make(chan models.LogEvent, 64),
	}
}

func waitForLogEvent(events <-chan models.LogEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return logEventMsg{event: e}
	}
}

// followLogs streams into events and closes it once the stream is over
func followLogs(f *async.Future[struct{}], events chan models.LogEvent) tea.Cmd {
	return func() tea.Msg {
		_, err := f.Await(context.Background())
		close(events)
		return logStreamEndedMsg{err: err}
	}
}

func (m *LogsModel) Init() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	return tea.Batch(
		followLogs(m.session.sandbox.StreamLogsAsync(ctx, m.events), m.events),
		waitForLogEvent(m.events),
	)
}

// Stop ends the stream. It is safe to call on a model that never started.
func (m LogsModel) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func formatLogEvent(e models.LogEvent) string {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	prefix := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(ts.Local().Format(time.TimeOnly))
	if e.Name != "" {
		prefix += " " + lipgloss.NewStyle().Foreground(accent).Render(e.Name)
	}
	return prefix + " " + e.Message
}

func (m LogsModel) Update(msg tea.Msg) (LogsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case logEventMsg:
		m.lines = append(m.lines, formatLogEvent(msg.event))
		if len(m.lines) > maxLogLines {
			m.lines = m.lines[len(m.lines)-maxLogLines:]
		}
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		return m, waitForLogEvent(m.events)

	case logStreamEndedMsg:
		m.ended = true
		m.err = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-12, 5)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			return m, navigate(ViewMainMenu)
		case "c":
			m.lines = nil
			m.viewport.SetContent("")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m LogsModel) View() string {
	var content strings.Builder
	content.WriteString(m.session.header())
	content.WriteString("\n")

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		MarginLeft(2)
	if len(m.lines) == 0 {
		m.viewport.SetContent(components.NotSetStyle.Render("Waiting for log entries..."))
	}
	content.WriteString(panel.Render(m.viewport.View()))
	content.WriteString("\n")

	switch {
	case m.err != nil:
		content.WriteString(components.ErrorStyle.Render(fmt.Sprintf("❌ %v", m.err)))
		content.WriteString("\n")
	case m.ended:
		content.WriteString(components.NotSetStyle.MarginLeft(4).Render("Stream closed by the cluster"))
		content.WriteString("\n")
	}

	content.WriteString(components.HelpStyle.Render("↑/↓: scroll • c: clear • q: back"))
	return content.String()
}
