package ui

import (
	"github.com/Varun5711/shortbox/internal/dispatch"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/service"
	tea "github.com/charmbracelet/bubbletea"
)

type View int

const (
	MenuView View = iota
	RedirectView
	ListView
	ClipView
	ResolveView
)

// Backend is everything the TUI needs from a url-service.
type Backend interface {
	service.Creator
	dispatch.Lookup
}

type Model struct {
	currentView View
	menu        *MenuModel
	forms       map[View]*FormModel
	resolve     *ResolveModel
	width       int
	height      int
}

func NewModel(backend Backend) Model {
	return Model{
		currentView: MenuView,
		menu:        NewMenuModel(),
		forms: map[View]*FormModel{
			RedirectView: NewFormModel(models.KindRedirect, backend),
			ListView:     NewFormModel(models.KindList, backend),
			ClipView:     NewFormModel(models.KindClip, backend),
		},
		resolve: NewResolveModel(backend),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.currentView == MenuView {
				return m, tea.Quit
			}
		case "esc":
			m.currentView = MenuView
			return m, nil
		}
	}

	switch m.currentView {
	case MenuView:
		updated, cmd := m.menu.Update(msg)
		m.menu = updated.(*MenuModel)
		if m.menu.selected != -1 {
			m.currentView = View(m.menu.selected + 1)
			m.menu.selected = -1
		}
		return m, cmd

	case ResolveView:
		updated, cmd := m.resolve.Update(msg)
		m.resolve = updated.(*ResolveModel)
		return m, cmd

	default:
		form := m.forms[m.currentView]
		updated, cmd := form.Update(msg)
		m.forms[m.currentView] = updated.(*FormModel)
		return m, cmd
	}
}

func (m Model) View() string {
	switch m.currentView {
	case MenuView:
		return m.menu.View()
	case ResolveView:
		return m.resolve.View()
	default:
		return BoxStyle.Width(width - 4).Render(m.forms[m.currentView].View())
	}
}
