package main

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

type MainMenuModel struct {
	session *session
	choices list.Model
}

type menuItem struct {
	title       string
	description string
	view        ViewState
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.description }
func (i menuItem) FilterValue() string { return i.title }

const quitItem = "Quit"

func NewMainMenuModel(s *session) MainMenuModel {
	items := []list.Item{
		menuItem{title: "Create Task", description: "Issue a webtask token for code or a code URL", view: ViewCreateTask},
		menuItem{title: "Run Code", description: "Create an anonymous webtask and invoke it once", view: ViewRunCode},
		menuItem{title: "Cron Jobs", description: "Browse scheduled webtasks and their history", view: ViewCronList},
		menuItem{title: "Schedule Cron Job", description: "Run code on a cron schedule", view: ViewCronCreate},
		menuItem{title: "Logs", description: "Follow the container's real-time logs", view: ViewLogs},
		menuItem{title: "Configuration", description: "View and edit the sandbox profile", view: ViewConfig},
		menuItem{title: quitItem, description: "Exit the CLI"},
	}

	l := list.New(items, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Main Menu"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	return MainMenuModel{
		session: s,
		choices: l,
	}
}

func (m MainMenuModel) Init() tea.Cmd {
	return nil
}

func (m MainMenuModel) Update(msg tea.Msg) (MainMenuModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h := 20 // Fixed reasonable height for menu items
		m.choices.SetSize(msg.Width, h)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q"))):
			return m, tea.Quit
		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			selectedItem := m.choices.SelectedItem()
			if selectedItem == nil {
				return m, nil
			}
			item := selectedItem.(menuItem)
			if item.title == quitItem {
				return m, tea.Quit
			}
			// Everything but configuration needs a working sandbox
			if m.session.sandbox == nil && item.view != ViewConfig {
				return m, navigate(ViewConfig)
			}
			return m, navigate(item.view)
		}
	}

	var cmd tea.Cmd
	m.choices, cmd = m.choices.Update(msg)
	return m, cmd
}

func (m MainMenuModel) View() string {
	return m.session.header() + "\n" + m.choices.View()
}

func navigate(view ViewState) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{view: view}
	}
}
