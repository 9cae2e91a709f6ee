// Package main provides the cron job browser for the wt CLI.
//
// This file implements the CronListModel which loads the container's cron
// jobs through ListCronJobsAsync and opens the history of the selected job.
package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sandbox "github.com/mehreencs87/sandboxjs"
	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/ui/components"
	"github.com/mehreencs87/sandboxjs/models"
)

type CronListModel struct {
	session *session
	list    list.Model
	spinner spinner.Model
	loading bool
	err     error
}

type cronItem struct {
	job *sandbox.CronJob
}

func (c cronItem) FilterValue() string { return c.job.Name }
func (c cronItem) Title() string       { return c.job.Name }
func (c cronItem) Description() string {
	desc := fmt.Sprintf("%s • %s", c.job.Schedule, c.job.State)
	if !c.job.NextScheduledAt.IsZero() {
		desc += " • next " + c.job.NextScheduledAt.Local().Format(time.DateTime)
	}
	return desc
}

type cronJobsLoadedMsg = futureMsg[[]*sandbox.CronJob]

type navigateToHistoryMsg struct {
	job *sandbox.CronJob
}

type cronItemDelegate struct{}

func (d cronItemDelegate) Height() int                             { return 2 }
func (d cronItemDelegate) Spacing() int                            { return 1 }
func (d cronItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d cronItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(cronItem)
	if !ok {
		return
	}

	var (
		titleStyle    = lipgloss.NewStyle().PaddingLeft(4)
		selectedStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(accent)
		descStyle     = lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color("#666666"))
		inactiveStyle = descStyle.Foreground(lipgloss.Color("#888888")).Italic(true)
	)

	title := i.Title()
	desc := i.Description()

	if index == m.Index() {
		title = selectedStyle.Render("> " + title)
		desc = selectedStyle.Render("  " + desc)
	} else {
		title = titleStyle.Render(title)
		if i.job.State == models.CronStateInactive {
			desc = inactiveStyle.Render(desc)
		} else {
			desc = descStyle.Render(desc)
		}
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func NewCronListModel(s *session) CronListModel {
	l := list.New([]list.Item{}, cronItemDelegate{}, 80, 20)
	l.Title = "Cron Jobs"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return CronListModel{
		session: s,
		list:    l,
		spinner: components.NewSpinner(),
		loading: true,
	}
}

func (m CronListModel) load() tea.Cmd {
	return awaitFuture(m.session.sandbox.ListCronJobsAsync(context.Background()))
}

func (m CronListModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m CronListModel) Update(msg tea.Msg) (CronListModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, 20)
		return m, nil

	case cronJobsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.value))
		for _, job := range msg.value {
			items = append(items, cronItem{job: job})
		}
		m.list.SetItems(items)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		// Let the list have every key while filtering
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "esc":
			return m, navigate(ViewMainMenu)
		case "r":
			m.loading = true
			m.err = nil
			return m, tea.Batch(m.spinner.Tick, m.load())
		case "n":
			return m, navigate(ViewCronCreate)
		case "enter":
			if item, ok := m.list.SelectedItem().(cronItem); ok {
				return m, func() tea.Msg {
					return navigateToHistoryMsg{job: item.job}
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m CronListModel) View() string {
	content := m.session.header() + "\n"

	switch {
	case m.loading:
		content += components.PendingStyle.Render(fmt.Sprintf("%s Loading cron jobs...", m.spinner.View())) + "\n"
	case m.err != nil:
		content += components.ErrorStyle.Render(fmt.Sprintf("❌ Could not load cron jobs: %v", m.err)) + "\n"
	case len(m.list.Items()) == 0:
		content += components.NotSetStyle.MarginLeft(4).Render("No cron jobs in this container") + "\n"
	default:
		content += m.list.View() + "\n"
	}

	content += components.HelpStyle.Render("enter: history • n: new • r: reload • /: filter • q: back")
	return content
}
