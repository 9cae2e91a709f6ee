package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// Accent is the CLI's highlight color
var Accent = lipgloss.Color("#7D56F4")

var (
	LabelStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true).
			Width(14)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	NotSetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1).
			MarginLeft(2)

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			MarginLeft(4)

	PendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			MarginLeft(4)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginLeft(4)
)

// NewSpinner returns the spinner used while a future is pending
func NewSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return s
}

// Field renders a label/value row. Empty values render as "Not set".
func Field(label, value string) string {
	row := "  " + LabelStyle.Render(label) + " "
	if value == "" {
		return row + NotSetStyle.Render("Not set") + "\n"
	}
	return row + ValueStyle.Render(value) + "\n"
}

// RenderStatus renders progress messages: completed ones with a check mark,
// the last one with the spinner while pending is set
func RenderStatus(messages []string, s spinner.Model, pending bool) string {
	var b strings.Builder
	for i, msg := range messages {
		switch {
		case strings.HasPrefix(msg, "❌"):
			b.WriteString(ErrorStyle.Render(msg))
		case i == len(messages)-1 && pending:
			b.WriteString(PendingStyle.Render(fmt.Sprintf("%s %s", s.View(), msg)))
		default:
			b.WriteString(StatusStyle.Render("✓ " + msg))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// MaskToken shortens a token for display
func MaskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "…" + token[len(token)-4:]
}
