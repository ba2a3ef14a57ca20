package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Varun5711/shortbox/internal/dispatch"
	"github.com/Varun5711/shortbox/internal/handlers"
	tea "github.com/charmbracelet/bubbletea"
)

type resolvedMsg struct {
	outcome dispatch.Outcome
}

type resolveErrorMsg struct {
	err error
}

// ResolveModel runs a path through the same dispatcher the redirect service
// uses and shows what a browser would get.
type ResolveModel struct {
	dispatcher *dispatch.Dispatcher
	path       string
	loading    bool
	outcome    *dispatch.Outcome
	err        error
}

func NewResolveModel(lookup dispatch.Lookup) *ResolveModel {
	return &ResolveModel{dispatcher: dispatch.New(lookup)}
}

func (m *ResolveModel) Init() tea.Cmd {
	return nil
}

func (m *ResolveModel) Reset() {
	m.path = ""
	m.outcome = nil
	m.err = nil
	m.loading = false
}

func (m *ResolveModel) resolve() tea.Cmd {
	d, path := m.dispatcher, m.path
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		out, err := d.Dispatch(ctx, path)
		if err != nil {
			return resolveErrorMsg{err: err}
		}
		return resolvedMsg{outcome: out}
	}
}

func (m *ResolveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resolvedMsg:
		m.loading = false
		m.outcome = &msg.outcome
		m.err = nil
		return m, nil

	case resolveErrorMsg:
		m.loading = false
		m.outcome = nil
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		switch msg.String() {
		case "enter":
			m.loading = true
			m.err = nil
			return m, m.resolve()
		case "backspace":
			if r := []rune(m.path); len(r) > 0 {
				m.path = string(r[:len(r)-1])
			}
		case "ctrl+l":
			m.Reset()
		default:
			if msg.Type == tea.KeyRunes {
				m.path += string(msg.Runes)
			}
		}
	}
	return m, nil
}

func (m *ResolveModel) View() string {
	var b strings.Builder

	b.WriteString(center(TitleStyle.Render("RESOLVE PATH")))
	b.WriteString("\n\n")
	b.WriteString(center(LabelStyle.Render("Path: /") + FocusedInputStyle.Width(60).Render(m.path)))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString(center(InfoStyle.Render("Resolving...")))
		b.WriteString("\n")
	}
	if m.outcome != nil {
		b.WriteString(describeOutcome(*m.outcome))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(center(ErrorStyle.Render("Error: " + m.err.Error())))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(center(InfoStyle.Render("e.g. abc123, list/abc123, clip/abc123  •  enter resolve  •  esc back")))

	return b.String()
}

func describeOutcome(out dispatch.Outcome) string {
	var b strings.Builder

	switch out.Kind {
	case dispatch.Landing:
		b.WriteString(center(SuccessStyle.Render("Landing page")))
	case dispatch.Redirect:
		b.WriteString(center(SuccessStyle.Render("Redirects to " + out.Redirect.OriginalURL)))
	case dispatch.List:
		b.WriteString(center(SuccessStyle.Render(fmt.Sprintf("Link list with %d item(s)", len(out.List.Items)))))
		for _, item := range out.List.Items {
			b.WriteString("\n")
			line := fmt.Sprintf("%d. %s", item.Position+1, item.URL)
			if item.Title != "" {
				line = fmt.Sprintf("%d. %s (%s)", item.Position+1, item.Title, item.URL)
			}
			b.WriteString(center(ItemStyle.Render(line)))
		}
	case dispatch.Clip:
		b.WriteString(center(SuccessStyle.Render("Clipboard entry")))
		b.WriteString("\n")
		b.WriteString(center(InputStyle.Width(70).Render(out.Clip.Content)))
	default:
		b.WriteString(center(ErrorStyle.Render(handlers.NotFoundMessage(out.Missing))))
	}

	return b.String()
}
