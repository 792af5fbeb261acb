package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorSky200 = "#bae6fd"
	colorSky400 = "#38bdf8"
	colorSky700 = "#0369a1"
	colorRed500 = "#ef4444"
	colorStone  = "#78716c"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorRed500))

	monitorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorSky700)).
			Foreground(lipgloss.Color(colorSky200)).
			Padding(0, 1)

	speakerStyle = lipgloss.NewStyle().Bold(true)

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorStone))

	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSky400))

	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed500))
)
