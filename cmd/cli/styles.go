package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorGreen  = lipgloss.Color("#04B575")
	colorRed    = lipgloss.Color("#EF4444")
	colorAmber  = lipgloss.Color("#F59E0B")
	colorGrey   = lipgloss.Color("#6B7280")
	colorPurple = lipgloss.Color("#7D56F4")
)

// Styles used by the text renderers
var (
	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(colorGreen).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorGrey).
			Width(15)

	typeBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorPurple).
			Padding(0, 1)

	mediaActiveStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	mediaDisabledStyle = lipgloss.NewStyle().
				Foreground(colorGrey).
				Strikethrough(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorAmber).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)
)
