package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	sandbox "github.com/mehreencs87/sandboxjs"
	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/config"
	"github.com/mehreencs87/sandboxjs/cmd/wt/internal/ui/components"
	"github.com/mehreencs87/sandboxjs/internal/logging"
)

// session is shared by every view. It is replaced in place when the profile
// changes so all views see the new sandbox.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	sandbox *sandbox.Sandbox

	// err explains why sandbox is nil
	err error
}

func newSession(cfg *config.Config, logger *zap.Logger) *session {
	s := &session{cfg: cfg, logger: logger}
	s.connect()
	return s
}

func (s *session) connect() {
	s.sandbox, s.err = s.cfg.NewSandbox(s.logger)
	if s.err != nil {
		s.logger.Warn("sandbox not configured", zap.Error(s.err))
	}
}

func (s *session) header() string {
	if s.sandbox == nil {
		return components.RenderHeader("")
	}
	return components.RenderHeader(s.sandbox.Container() + " @ " + s.sandbox.URL())
}

type ViewState int

type NavigateMsg struct {
	view ViewState
}

const (
	ViewMainMenu ViewState = iota
	ViewConfig
	ViewCreateTask
	ViewRunCode
	ViewCronList
	ViewCronCreate
	ViewCronHistory
	ViewLogs
)

type Model struct {
	session     *session
	currentView ViewState
	mainMenu    MainMenuModel
	config      ConfigModel
	createTask  CreateTaskModel
	runCode     RunCodeModel
	cronList    CronListModel
	cronCreate  CronCreateModel
	cronHistory CronHistoryModel
	logs        LogsModel
	quitting    bool
}

func newModel(s *session) Model {
	return Model{
		session:     s,
		currentView: ViewMainMenu,
		mainMenu:    NewMainMenuModel(s),
		config:      NewConfigModel(s),
		quitting:    false,
	}
}

func (m Model) Init() tea.Cmd {
	return m.mainMenu.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle navigation to history with the selected job
	if navMsg, ok := msg.(navigateToHistoryMsg); ok {
		m.cronHistory = NewCronHistoryModel(m.session, navMsg.job)
		m.currentView = ViewCronHistory
		return m, m.cronHistory.Init()
	}

	// Handle navigation messages
	if navMsg, ok := msg.(NavigateMsg); ok {
		if m.currentView == ViewLogs && navMsg.view != ViewLogs {
			m.logs.Stop()
		}
		m.currentView = navMsg.view

		// Views that talk to the cluster are rebuilt on entry
		switch navMsg.view {
		case ViewConfig:
			m.config = NewConfigModel(m.session)
			return m, m.config.Init()
		case ViewCreateTask:
			m.createTask = NewCreateTaskModel(m.session)
			return m, m.createTask.Init()
		case ViewRunCode:
			m.runCode = NewRunCodeModel(m.session)
			return m, m.runCode.Init()
		case ViewCronList:
			m.cronList = NewCronListModel(m.session)
			return m, m.cronList.Init()
		case ViewCronCreate:
			m.cronCreate = NewCronCreateModel(m.session)
			return m, m.cronCreate.Init()
		case ViewLogs:
			m.logs = NewLogsModel(m.session)
			return m, m.logs.Init()
		}
		return m, nil
	}

	// Handle global key commands
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "ctrl+c" {
			m.logs.Stop()
			m.quitting = true
			return m, tea.Quit
		}
	}

	// Route updates to current view
	var cmd tea.Cmd
	switch m.currentView {
	case ViewMainMenu:
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case ViewConfig:
		m.config, cmd = m.config.Update(msg)
	case ViewCreateTask:
		m.createTask, cmd = m.createTask.Update(msg)
	case ViewRunCode:
		m.runCode, cmd = m.runCode.Update(msg)
	case ViewCronList:
		m.cronList, cmd = m.cronList.Update(msg)
	case ViewCronCreate:
		m.cronCreate, cmd = m.cronCreate.Update(msg)
	case ViewCronHistory:
		m.cronHistory, cmd = m.cronHistory.Update(msg)
	case ViewLogs:
		m.logs, cmd = m.logs.Update(msg)
	}

	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return "bye!\n"
	}

	// Route view to current view
	switch m.currentView {
	case ViewMainMenu:
		return m.mainMenu.View()
	case ViewConfig:
		return m.config.View()
	case ViewCreateTask:
		return m.createTask.View()
	case ViewRunCode:
		return m.runCode.View()
	case ViewCronList:
		return m.cronList.View()
	case ViewCronCreate:
		return m.cronCreate.View()
	case ViewCronHistory:
		return m.cronHistory.View()
	case ViewLogs:
		return m.logs.View()
	default:
		return "Unknown view\n"
	}
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load config:", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not set up logging:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("wt started", zap.String("version", components.Version), zap.String("config", cfg.Path()))

	p := tea.NewProgram(newModel(newSession(cfg, logger)))
	if _, err := p.Run(); err != nil {
		fmt.Println("could not run program:", err)
	}
}
