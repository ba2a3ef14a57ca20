package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Varun5711/shortbox/internal/expiry"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/qrcode"
	"github.com/Varun5711/shortbox/internal/service"
	"github.com/Varun5711/shortbox/internal/validation"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const requestTimeout = 10 * time.Second

var expirations = expiry.Tokens()

type createdMsg struct {
	resp *models.CreatedResponse
	qr   string
}

type createErrorMsg struct {
	err error
}

type field struct {
	label    string
	hint     string
	value    string
	optional bool
}

// FormModel collects input for one kind of entry. The last row is always the
// expiration selector, changed with left/right.
type FormModel struct {
	kind       models.Kind
	fields     []field
	focused    int
	expiration int
	loading    bool
	result     *models.CreatedResponse
	qr         string
	err        error
	creator    service.Creator
}

func NewFormModel(kind models.Kind, creator service.Creator) *FormModel {
	m := &FormModel{kind: kind, creator: creator, expiration: 1}
	switch kind {
	case models.KindRedirect:
		m.fields = []field{
			{label: "URL:"},
			{label: "Custom code:", hint: " (optional)", optional: true},
		}
	case models.KindList:
		m.fields = []field{
			{label: "URLs:", hint: " (space separated)"},
		}
	case models.KindClip:
		m.fields = []field{
			{label: "Text:"},
		}
	}
	return m
}

func (m *FormModel) Init() tea.Cmd {
	return nil
}

func (m *FormModel) rows() int {
	return len(m.fields) + 1
}

func (m *FormModel) token() string {
	return expirations[m.expiration]
}

func (m *FormModel) Reset() {
	for i := range m.fields {
		m.fields[i].value = ""
	}
	m.focused = 0
	m.result = nil
	m.qr = ""
	m.err = nil
	m.loading = false
}

func (m *FormModel) submit() tea.Cmd {
	creator, kind, token := m.creator, m.kind, m.token()
	values := make([]string, len(m.fields))
	for i, f := range m.fields {
		values[i] = strings.TrimSpace(f.value)
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var (
			resp *models.CreatedResponse
			err  error
		)
		switch kind {
		case models.KindRedirect:
			resp, err = creator.ShortenURL(ctx, models.ShortenURLRequest{
				URL:             values[0],
				CustomShortCode: values[1],
				Expiration:      token,
			})
		case models.KindList:
			req := models.CreateLinkListRequest{Expiration: token}
			for _, u := range strings.Fields(values[0]) {
				req.Items = append(req.Items, models.LinkListItemInput{URL: u})
			}
			resp, err = creator.CreateLinkList(ctx, req)
		case models.KindClip:
			resp, err = creator.CreateClip(ctx, models.CreateClipRequest{Content: values[0], Expiration: token})
		}
		if err != nil {
			return createErrorMsg{err: err}
		}

		qr, _ := qrcode.GenerateASCII(resp.ShortURL)
		return createdMsg{resp: resp, qr: qr}
	}
}

func (m *FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case createdMsg:
		m.loading = false
		m.result = msg.resp
		m.qr = msg.qr
		m.err = nil
		return m, nil

	case createErrorMsg:
		m.loading = false
		m.result = nil
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		switch msg.String() {
		case "tab", "down":
			m.focused = (m.focused + 1) % m.rows()
		case "shift+tab", "up":
			m.focused = (m.focused + m.rows() - 1) % m.rows()
		case "left":
			if m.focused == len(m.fields) && m.expiration > 0 {
				m.expiration--
			}
		case "right":
			if m.focused == len(m.fields) && m.expiration < len(expirations)-1 {
				m.expiration++
			}
		case "enter":
			for _, f := range m.fields {
				if !f.optional && strings.TrimSpace(f.value) == "" {
					m.err = fmt.Errorf("%s is required", strings.TrimSuffix(f.label, ":"))
					return m, nil
				}
			}
			if m.creator == nil {
				m.err = errors.New("client not connected")
				return m, nil
			}
			m.loading = true
			m.err = nil
			m.result = nil
			return m, m.submit()
		case "backspace":
			if m.focused < len(m.fields) {
				v := []rune(m.fields[m.focused].value)
				if len(v) > 0 {
					m.fields[m.focused].value = string(v[:len(v)-1])
				}
			}
		case "ctrl+l":
			m.Reset()
		default:
			if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
				if m.focused < len(m.fields) {
					m.fields[m.focused].value += string(msg.Runes)
					if msg.Type == tea.KeySpace && len(msg.Runes) == 0 {
						m.fields[m.focused].value += " "
					}
				}
			}
		}
	}
	return m, nil
}

func (m *FormModel) title() string {
	switch m.kind {
	case models.KindList:
		return "CREATE LINK LIST"
	case models.KindClip:
		return "SHARE CLIPBOARD TEXT"
	default:
		return "SHORTEN URL"
	}
}

func (m *FormModel) View() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Width(width).Align(lipgloss.Center).MarginTop(1).
		Render(TitleStyle.Render(m.title())))
	b.WriteString("\n\n")

	for i, f := range m.fields {
		style := InputStyle
		if i == m.focused {
			style = FocusedInputStyle
		}
		row := lipgloss.JoinHorizontal(lipgloss.Left,
			LabelStyle.Render(f.label), style.Width(60).Render(f.value), InfoStyle.Render(f.hint))
		b.WriteString(center(row))
		b.WriteString("\n")
	}

	var tokens []string
	for i, tok := range expirations {
		if i == m.expiration {
			tokens = append(tokens, SelectedItemStyle.Render("["+tok+"]"))
		} else {
			tokens = append(tokens, ItemStyle.Render(tok))
		}
	}
	label := LabelStyle.Render("Expires:")
	if m.focused == len(m.fields) {
		label = LabelStyle.Foreground(Accent).Render("Expires:")
	}
	b.WriteString(center(lipgloss.JoinHorizontal(lipgloss.Left, append([]string{label}, tokens...)...)))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString(center(InfoStyle.Render("Creating...")))
		b.WriteString("\n")
	}

	if m.result != nil {
		b.WriteString(center(SuccessStyle.Render("✓ Created " + m.result.ShortURL)))
		b.WriteString("\n")
		if m.result.ExpiresAt != nil {
			b.WriteString(center(InfoStyle.Render("expires " + m.result.ExpiresAt.Local().Format(time.RFC1123))))
		} else {
			b.WriteString(center(InfoStyle.Render("never expires")))
		}
		b.WriteString("\n")
		if m.qr != "" {
			b.WriteString(center(QRStyle.Render(m.qr)))
			b.WriteString("\n")
		}
	}

	if m.err != nil {
		b.WriteString(center(ErrorStyle.Render("Error: " + describeError(m.err))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(center(InfoStyle.Render("tab next  •  ←/→ expiration  •  enter submit  •  ctrl+l clear  •  esc back")))

	return b.String()
}

func describeError(err error) string {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, service.ErrDuplicateCustomCode):
		return "that custom code is already taken"
	case errors.Is(err, service.ErrAllocationExhausted):
		return "could not find a free code, try again"
	default:
		return err.Error()
	}
}
