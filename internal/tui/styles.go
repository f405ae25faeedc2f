package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorCyan  = lipgloss.Color("#00FFFF")
	ColorGreen = lipgloss.Color("#00FF00")
	ColorRed   = lipgloss.Color("#FF0000")
	ColorGray  = lipgloss.Color("#666666")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)
)
