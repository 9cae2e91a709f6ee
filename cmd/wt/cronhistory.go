// Package main provides the cron history view for the wt CLI.
//
// This file implements the CronHistoryModel which pages through a cron job's
// past runs in a table. From here a job can be paused, resumed, removed, or
// have the visible page exported to the configured SQL database.
package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	sandbox "github.com/mehreencs87/sandboxjs"
	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/ui/components"
	"github.com/mehreencs87/sandboxjs/models"
	"github.com/mehreencs87/sandboxjs/utils"
)

const historyPageSize = models.DefaultHistoryLimit

type CronHistoryModel struct {
	session *session
	job     *sandbox.CronJob
	table   table.Model
	spinner spinner.Model
	offset  int
	records []models.HistoryRecord
	busy    string
	status  string
	err     error
	removed bool
}

type historyLoadedMsg = futureMsg[[]models.HistoryRecord]
type cronStateChangedMsg = futureMsg[*sandbox.CronJob]

type cronJobRemovedMsg struct {
	err error
}

type historyExportedMsg struct {
	rows int
	err  error
}

func NewCronHistoryModel(s *session, job *sandbox.CronJob) CronHistoryModel {
	columns := []table.Column{
		{Title: "Created", Width: 20},
		{Title: "Scheduled", Width: 20},
		{Title: "Result", Width: 8},
		{Title: "Status", Width: 6},
		{Title: "Body", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(historyPageSize+1),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(accent).
		Bold(false)
	t.SetStyles(styles)

	return CronHistoryModel{
		session: s,
		job:     job,
		table:   t,
		spinner: components.NewSpinner(),
		busy:    "Loading history...",
	}
}

func (m CronHistoryModel) Init() tea.Cmd {
	return m.fetch()
}

// load marks the model busy and fetches the page at m.offset
func (m *CronHistoryModel) load() tea.Cmd {
	m.busy = "Loading history..."
	m.err = nil
	return m.fetch()
}

func (m CronHistoryModel) fetch() tea.Cmd {
	future := m.job.GetHistoryAsync(context.Background(), &models.HistoryOptions{
		Offset: models.Int(m.offset),
		Limit:  models.Int(historyPageSize),
	})
	return tea.Batch(m.spinner.Tick, awaitFuture(future))
}

func historyRows(records []models.HistoryRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		result := "error"
		if r.Succeeded() {
			result = "ok"
		}
		scheduled := ""
		if !r.ScheduledAt.IsZero() {
			scheduled = r.ScheduledAt.Local().Format(time.DateTime)
		}
		rows = append(rows, table.Row{
			r.CreatedAt.Local().Format(time.DateTime),
			scheduled,
			result,
			strconv.Itoa(r.StatusCode),
			strings.Join(strings.Fields(r.Body), " "),
		})
	}
	return rows
}

func exportHistory(cfg utils.DBConfig, records []models.HistoryRecord) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := utils.OpenHistoryDB(ctx, cfg)
		if err != nil {
			return historyExportedMsg{err: err}
		}
		defer db.Close()

		rows, err := utils.ExportHistory(ctx, db, cfg, records)
		return historyExportedMsg{rows: rows, err: err}
	}
}

func (m CronHistoryModel) Update(msg tea.Msg) (CronHistoryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.busy = ""
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.records = msg.value
		m.table.SetRows(historyRows(m.records))
		m.table.SetCursor(0)
		return m, nil

	case cronStateChangedMsg:
		m.busy = ""
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.job = msg.value
		m.status = "Job is now " + m.job.State
		return m, nil

	case cronJobRemovedMsg:
		m.busy = ""
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.removed = true
		m.status = "Cron job removed. Its webtask token is still valid."
		m.session.logger.Info("cron job removed", zap.String("name", m.job.Name))
		return m, nil

	case historyExportedMsg:
		m.busy = ""
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = fmt.Sprintf("Exported %d records to %s", msg.rows, m.session.cfg.History.DBType)
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "esc" {
			return m, navigate(ViewCronList)
		}
		if m.busy != "" || m.removed {
			return m, nil
		}

		m.status = ""
		switch msg.String() {
		case "r":
			return m, m.load()
		case "n", "right":
			if len(m.records) == historyPageSize {
				m.offset += historyPageSize
				return m, m.load()
			}
			return m, nil
		case "p", "left":
			if m.offset > 0 {
				m.offset = max(m.offset-historyPageSize, 0)
				return m, m.load()
			}
			return m, nil
		case "a":
			state := models.CronStateInactive
			if m.job.State == models.CronStateInactive {
				state = models.CronStateActive
			}
			m.busy = "Setting state to " + state + "..."
			return m, tea.Batch(m.spinner.Tick, awaitFuture(m.job.SetStateAsync(context.Background(), state)))
		case "d":
			m.busy = "Removing cron job..."
			job := m.job
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
				return cronJobRemovedMsg{err: job.Remove(context.Background())}
			})
		case "x":
			if m.session.cfg.History.DSN == "" {
				m.err = fmt.Errorf("set history.dsn in %s to export", m.session.cfg.Path())
				return m, nil
			}
			m.busy = "Exporting history..."
			return m, tea.Batch(m.spinner.Tick, exportHistory(m.session.cfg.History, m.records))
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m CronHistoryModel) View() string {
	var content strings.Builder
	content.WriteString(m.session.header())
	content.WriteString("\n")

	content.WriteString(components.Field("Cron job:", m.job.Name))
	content.WriteString(components.Field("Schedule:", m.job.Schedule))
	content.WriteString(components.Field("State:", m.job.State))
	content.WriteString(components.Field("Page:", fmt.Sprintf("offset %d, limit %d", m.offset, historyPageSize)))
	content.WriteString("\n")

	switch {
	case m.removed:
	case len(m.records) == 0 && m.busy == "":
		content.WriteString(components.NotSetStyle.MarginLeft(4).Render("No runs recorded"))
		content.WriteString("\n")
	default:
		content.WriteString(lipgloss.NewStyle().MarginLeft(2).Render(m.table.View()))
		content.WriteString("\n")
	}

	if m.busy != "" {
		content.WriteString(components.PendingStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), m.busy)))
		content.WriteString("\n")
	}
	if m.status != "" {
		content.WriteString(components.StatusStyle.Render("✓ " + m.status))
		content.WriteString("\n")
	}
	if m.err != nil {
		content.WriteString(components.ErrorStyle.Render(fmt.Sprintf("❌ %v", m.err)))
		content.WriteString("\n")
	}

	content.WriteString(components.HelpStyle.Render("n/p: page • a: pause/resume • d: remove • x: export • r: reload • q: back"))
	return content.String()
}
