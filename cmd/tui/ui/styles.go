package ui

import (
	"github.com/charmbracelet/lipgloss"
)

const width = 100

var (
	Primary   = lipgloss.Color("#00ADD8")
	Secondary = lipgloss.Color("#5DC9E2")
	Accent    = lipgloss.Color("#CE3262")
	Success   = lipgloss.Color("#00D9A5")
	Error     = lipgloss.Color("#FF5A87")
	Muted     = lipgloss.Color("#6B7B8C")
	Text      = lipgloss.Color("#E3F2FD")

	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			Padding(0, 1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Padding(0, 1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2).
			MarginTop(1)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(Accent).
				Bold(true).
				PaddingLeft(2)

	ItemStyle = lipgloss.NewStyle().
			Foreground(Text).
			PaddingLeft(2)

	InfoStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	InputStyle = lipgloss.NewStyle().
			Foreground(Text).
			Border(lipgloss.NormalBorder()).
			BorderForeground(Secondary).
			Padding(0, 1)

	FocusedInputStyle = lipgloss.NewStyle().
				Foreground(Text).
				Border(lipgloss.NormalBorder()).
				BorderForeground(Accent).
				Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Width(18)

	QRStyle = lipgloss.NewStyle().
		Foreground(Text)
)

func center(s string) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(s)
}
