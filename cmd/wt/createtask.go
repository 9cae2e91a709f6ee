// Package main provides the create-task view for the wt CLI.
//
// This file implements the CreateTaskModel which collects code, an optional
// name and params through a huh form, then issues the webtask through
// CreateAsync and shows the resulting URL.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"go.uber.org/zap"

	sandbox "github.com/mehreencs87/sandboxjs"
	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/ui/components"
	"github.com/mehreencs87/sandboxjs/models"
)

type CreateTaskModel struct {
	session        *session
	form           *huh.Form
	spinner        spinner.Model
	statusMessages []string
	creating       bool
	started        bool
	task           *sandbox.Task
	err            error
}

type taskCreatedMsg = futureMsg[*sandbox.Task]

func NewCreateTaskModel(s *session) CreateTaskModel {
	m := CreateTaskModel{
		session: s,
		spinner: components.NewSpinner(),
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Key("code").
				Title("Code or URL").
				Description("Inline source, or an http(s) URL the cluster fetches").
				Placeholder("module.exports = function (ctx, cb) { cb(null, 'hello'); }").
				Lines(5).
				Validate(required("code")),

			huh.NewInput().
				Key("name").
				Title("Name").
				Description("Leave empty for an anonymous task").
				Placeholder("my-task"),

			huh.NewInput().
				Key("params").
				Title("Params").
				Description("Exposed as ctx.params, e.g. region=eu,mode=fast").
				Validate(validatePairs),

			huh.NewInput().
				Key("secrets").
				Title("Secrets").
				Description("Encrypted into the token, exposed as ctx.secrets").
				EchoMode(huh.EchoModePassword).
				Validate(validatePairs),

			huh.NewConfirm().
				Key("submit").
				Title("Create Task").
				Affirmative("Create!").
				Negative(""),
		),
	).
		WithWidth(70).
		WithShowHelp(true).
		WithShowErrors(true).
		WithTheme(formTheme())

	return m
}

func (m CreateTaskModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m CreateTaskModel) createOptions() *models.CreateOptions {
	params, _ := parsePairs(m.form.GetString("params"))
	secrets, _ := parsePairs(m.form.GetString("secrets"))
	return &models.CreateOptions{
		Name:    strings.TrimSpace(m.form.GetString("name")),
		Params:  params,
		Secrets: secrets,
	}
}

func (m CreateTaskModel) Update(msg tea.Msg) (CreateTaskModel, tea.Cmd) {
	switch msg := msg.(type) {
	case taskCreatedMsg:
		m.creating = false
		if msg.err != nil {
			m.err = msg.err
			m.statusMessages = append(m.statusMessages, fmt.Sprintf("❌ Create failed: %v", msg.err))
			return m, nil
		}
		m.task = msg.value
		m.session.logger.Info("task created", zap.String("url", m.task.URL()))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if !m.creating {
				return m, navigate(ViewMainMenu)
			}
		case "q":
			if m.started && !m.creating {
				return m, navigate(ViewMainMenu)
			}
		}
	}

	var cmds []tea.Cmd

	// Process the form
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
		cmds = append(cmds, cmd)
	}

	if m.form.State == huh.StateCompleted && !m.started {
		m.started = true
		m.creating = true
		m.statusMessages = []string{"Issuing webtask token..."}

		future := m.session.sandbox.CreateAsync(context.Background(), m.form.GetString("code"), m.createOptions())
		cmds = append(cmds, m.spinner.Tick, awaitFuture(future))
	}

	return m, tea.Batch(cmds...)
}

func (m CreateTaskModel) View() string {
	var content strings.Builder
	content.WriteString(m.session.header())
	content.WriteString("\n")

	if !m.started {
		content.WriteString(m.form.View())
		return content.String()
	}

	content.WriteString(components.RenderStatus(m.statusMessages, m.spinner, m.creating))

	if m.task != nil {
		content.WriteString("\n")
		name := m.task.Name
		if name == "" {
			name = "(anonymous)"
		}
		content.WriteString(components.Field("Name:", name))
		content.WriteString(components.Field("Container:", m.task.Container))
		content.WriteString(components.Field("URL:", m.task.URL()))
		content.WriteString(components.Field("Token:", components.MaskToken(m.task.Token)))
	}

	if !m.creating {
		content.WriteString(components.HelpStyle.Render("Press 'esc' or 'q' to go back"))
	}
	return content.String()
}
