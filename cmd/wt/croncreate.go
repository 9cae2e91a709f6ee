package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	sandbox "github.com/mehreencs87/sandboxjs"
	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/ui/components"
	"github.com/mehreencs87/sandboxjs/models"
)

// CronCreateModel schedules code as a named cron job
type CronCreateModel struct {
	session        *session
	form           *huh.Form
	spinner        spinner.Model
	statusMessages []string
	creating       bool
	started        bool
	job            *sandbox.CronJob
}

type cronJobCreatedMsg = futureMsg[*sandbox.CronJob]

func NewCronCreateModel(s *session) CronCreateModel {
	m := CronCreateModel{
		session: s,
		spinner: components.NewSpinner(),
	}

	state := models.CronStateActive
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Name").
				Description("Cron jobs are always named").
				Validate(required("name")),

			huh.NewInput().
				Key("schedule").
				Title("Schedule").
				Description("Cron expression, checked by the cluster").
				Placeholder("*/10 * * * *").
				Validate(required("schedule")),

			huh.NewText().
				Key("code").
				Title("Code or URL").
				Lines(5).
				Validate(required("code")),

			huh.NewSelect[string]().
				Key("state").
				Title("State").
				Options(
					huh.NewOption("Active", models.CronStateActive),
					huh.NewOption("Inactive", models.CronStateInactive),
				).
				Value(&state),

			huh.NewConfirm().
				Key("submit").
				Title("Schedule").
				Affirmative("Schedule!").
				Negative(""),
		),
	).
		WithWidth(70).
		WithShowHelp(true).
		WithShowErrors(true).
		WithTheme(formTheme())

	return m
}

func (m CronCreateModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m CronCreateModel) cronJobOptions() models.CronJobOptions {
	return models.CronJobOptions{
		Name:     strings.TrimSpace(m.form.GetString("name")),
		Schedule: strings.TrimSpace(m.form.GetString("schedule")),
		Code:     m.form.GetString("code"),
		State:    m.form.GetString("state"),
	}
}

func (m CronCreateModel) Update(msg tea.Msg) (CronCreateModel, tea.Cmd) {
	switch msg := msg.(type) {
	case cronJobCreatedMsg:
		m.creating = false
		if msg.err != nil {
			m.statusMessages = append(m.statusMessages, fmt.Sprintf("❌ Scheduling failed: %v", msg.err))
			return m, nil
		}
		m.job = msg.value
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if !m.creating {
				return m, navigate(ViewCronList)
			}
		case "q":
			if m.started && !m.creating {
				return m, navigate(ViewCronList)
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
		m.creating = true
		m.statusMessages = []string{"Scheduling cron job..."}

		future := m.session.sandbox.CreateCronJobAsync(context.Background(), m.cronJobOptions())
		cmds = append(cmds, m.spinner.Tick, awaitFuture(future))
	}

	return m, tea.Batch(cmds...)
}

func (m CronCreateModel) View() string {
	var content strings.Builder
	content.WriteString(m.session.header())
	content.WriteString("\n")

	if !m.started {
		content.WriteString(m.form.View())
		return content.String()
	}

	content.WriteString(components.RenderStatus(m.statusMessages, m.spinner, m.creating))

	if m.job != nil {
		content.WriteString("\n")
		content.WriteString(components.Field("Name:", m.job.Name))
		content.WriteString(components.Field("Schedule:", m.job.Schedule))
		content.WriteString(components.Field("State:", m.job.State))
		content.WriteString(components.Field("Next run:", m.job.NextScheduledAt.Local().Format(time.DateTime)))
		content.WriteString(components.Field("Cluster:", m.job.ClusterURL))
		content.WriteString(components.Field("URL:", m.job.URL()))
	}

	if !m.creating {
		content.WriteString(components.HelpStyle.Render("Press 'esc' or 'q' to go back"))
	}
	return content.String()
}
