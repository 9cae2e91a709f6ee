package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/ui/components"
	"github.com/mehreencs87/sandboxjs/models"
)

// RunCodeModel creates an anonymous webtask and invokes it once
type RunCodeModel struct {
	session        *session
	form           *huh.Form
	spinner        spinner.Model
	statusMessages []string
	running        bool
	started        bool
	response       *models.RunResponse
}

type codeRunMsg = futureMsg[*models.RunResponse]

func NewRunCodeModel(s *session) RunCodeModel {
	m := RunCodeModel{
		session: s,
		spinner: components.NewSpinner(),
	}

	method := http.MethodGet
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Key("code").
				Title("Code or URL").
				Placeholder("module.exports = function (ctx, cb) { cb(null, ctx.data.id); }").
				Lines(5).
				Validate(required("code")),

			huh.NewInput().
				Key("query").
				Title("Query").
				Description("Exposed as ctx.data, e.g. id=test").
				Validate(validatePairs),

			huh.NewSelect[string]().
				Key("method").
				Title("Method").
				Options(
					huh.NewOption("GET", http.MethodGet),
					huh.NewOption("POST", http.MethodPost),
					huh.NewOption("PUT", http.MethodPut),
					huh.NewOption("DELETE", http.MethodDelete),
				).
				Value(&method),

			huh.NewText().
				Key("body").
				Title("Body").
				Description("Sent as text/plain when set").
				Lines(3),
		),
	).
		WithWidth(70).
		WithShowHelp(true).
		WithShowErrors(true).
		WithTheme(formTheme())

	return m
}

func (m RunCodeModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m RunCodeModel) runOptions() *models.RunOptions {
	query, _ := parsePairs(m.form.GetString("query"))
	opts := &models.RunOptions{
		Method: m.form.GetString("method"),
		Query:  query,
	}
	if body := m.form.GetString("body"); body != "" {
		opts.Body = body
	}
	return opts
}

func (m RunCodeModel) Update(msg tea.Msg) (RunCodeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case codeRunMsg:
		m.running = false
		if msg.err != nil {
			m.statusMessages = append(m.statusMessages, fmt.Sprintf("❌ Run failed: %v", msg.err))
			return m, nil
		}
		m.response = msg.value
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if !m.running {
				return m, navigate(ViewMainMenu)
			}
		case "q":
			if m.started && !m.running {
				return m, navigate(ViewMainMenu)
			}
		}
	}

	var cmds []tea.Cmd

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
		cmds = append(cmds, cmd)
	}

	if m.form.State == huh.StateCompleted && !m.started {
		m.started = true
		m.running = true
		m.statusMessages = []string{"Creating and running webtask..."}

		future := m.session.sandbox.RunAsync(context.Background(), m.form.GetString("code"), m.runOptions())
		cmds = append(cmds, m.spinner.Tick, awaitFuture(future))
	}

	return m, tea.Batch(cmds...)
}

func (m RunCodeModel) View() string {
	var content strings.Builder
	content.WriteString(m.session.header())
	content.WriteString("\n")

	if !m.started {
		content.WriteString(m.form.View())
		return content.String()
	}

	content.WriteString(components.RenderStatus(m.statusMessages, m.spinner, m.running))

	if m.response != nil {
		content.WriteString("\n")
		content.WriteString(components.Field("Status:", fmt.Sprintf("%d %s", m.response.StatusCode, http.StatusText(m.response.StatusCode))))
		content.WriteString(components.Field("Content-Type:", m.response.Header.Get("Content-Type")))

		bodyStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1).
			MarginLeft(2)
		body := m.response.Body
		if body == "" {
			body = "(empty)"
		}
		content.WriteString(bodyStyle.Render(body))
		content.WriteString("\n")
	}

	if !m.running {
		content.WriteString(components.HelpStyle.Render("Press 'esc' or 'q' to go back"))
	}
	return content.String()
}
