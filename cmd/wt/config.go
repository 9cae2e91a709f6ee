// Package main provides the configuration management view for the wt CLI.
//
// This file implements the ConfigModel which shows the active sandbox profile
// loaded from ~/.webtask/config.yaml, .env and WEBTASK_ variables, and lets
// the user edit and save it.
package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"go.uber.org/zap"

	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/config"
	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/ui/components"
)

type ConfigModel struct {
	session *session
	form    *huh.Form
	editing bool
	status  string
	err     error
}

func NewConfigModel(s *session) ConfigModel {
	return ConfigModel{session: s}
}

func (m ConfigModel) Init() tea.Cmd {
	return nil
}

func (m ConfigModel) newForm() *huh.Form {
	p := m.session.cfg.Active()
	name := m.session.cfg.Profile
	url, token, container := p.URL, p.Token, p.Container

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("profile").
				Title("Profile").
				Value(&name).
				Validate(required("profile")),

			huh.NewInput().
				Key("url").
				Title("Cluster URL").
				Placeholder("https://webtask.example.com").
				Value(&url).
				Validate(required("cluster URL")),

			huh.NewInput().
				Key("container").
				Title("Container").
				Value(&container).
				Validate(required("container")),

			huh.NewInput().
				Key("token").
				Title("Token").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(required("token")),
		),
	).
		WithWidth(70).
		WithShowHelp(true).
		WithShowErrors(true).
		WithTheme(formTheme())
}

func (m ConfigModel) Update(msg tea.Msg) (ConfigModel, tea.Cmd) {
	if !m.editing {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "q", "esc":
				return m, navigate(ViewMainMenu)
			case "e":
				m.editing = true
				m.status = ""
				m.err = nil
				m.form = m.newForm()
				return m, m.form.Init()
			}
		}
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		m.editing = false
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.editing = false
		profile := config.Profile{
			URL:       strings.TrimSpace(m.form.GetString("url")),
			Token:     strings.TrimSpace(m.form.GetString("token")),
			Container: strings.TrimSpace(m.form.GetString("container")),
		}
		name := strings.TrimSpace(m.form.GetString("profile"))

		if err := m.session.cfg.SaveProfile(name, profile); err != nil {
			m.err = err
			return m, nil
		}
		m.session.connect()
		m.session.logger.Info("profile saved", zap.String("profile", name))
		m.status = "Saved to " + m.session.cfg.Path()
		return m, nil
	}

	return m, cmd
}

func (m ConfigModel) View() string {
	var content strings.Builder
	content.WriteString(m.session.header())
	content.WriteString("\n")

	if m.editing {
		content.WriteString(m.form.View())
		return content.String()
	}

	cfg := m.session.cfg
	p := cfg.Active()

	content.WriteString(components.Field("Profile:", cfg.Profile))
	content.WriteString(components.Field("Cluster URL:", p.URL))
	content.WriteString(components.Field("Container:", p.Container))
	token := ""
	if p.Token != "" {
		token = components.MaskToken(p.Token)
	}
	content.WriteString(components.Field("Token:", token))
	content.WriteString("\n")
	content.WriteString(components.Field("Config file:", cfg.Path()))
	content.WriteString(components.Field("Log level:", cfg.Log.Level))
	content.WriteString(components.Field("Log outputs:", strings.Join(cfg.Log.Outputs, ", ")))
	historySink := ""
	if cfg.History.DSN != "" {
		historySink = fmt.Sprintf("%s table %s", cfg.History.DBType, cfg.History.Table)
	}
	content.WriteString(components.Field("History sink:", historySink))

	if m.session.err != nil {
		content.WriteString("\n")
		content.WriteString(components.ErrorStyle.Render(fmt.Sprintf("❌ %v", m.session.err)))
		content.WriteString("\n")
	}
	if m.err != nil {
		content.WriteString(components.ErrorStyle.Render(fmt.Sprintf("❌ %v", m.err)))
		content.WriteString("\n")
	}
	if m.status != "" {
		content.WriteString(components.StatusStyle.Render("✓ " + m.status))
		content.WriteString("\n")
	}

	content.WriteString(components.HelpStyle.Render("e: edit profile • q: back"))
	return content.String()
}
