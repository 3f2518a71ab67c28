package tui

import "github.com/charmbracelet/lipgloss"

// 终端配色
var (
	colorAccent = lipgloss.Color("#C89A3A")
	colorCourse = lipgloss.Color("#5B8DEF")
	colorDone   = lipgloss.Color("#52C41A")
	colorMuted  = lipgloss.Color("#8C8C8C")
	colorText   = lipgloss.Color("#F0F0F0")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)

	dayStyle = lipgloss.NewStyle().
			Width(dayColumnWidth).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	todayStyle = dayStyle.
			BorderForeground(colorAccent)
	dayHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorText)

	courseStyle    = lipgloss.NewStyle().Foreground(colorCourse)
	focusDoneStyle = lipgloss.NewStyle().Foreground(colorDone)
	focusStyle     = lipgloss.NewStyle().Foreground(colorMuted)

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(colorAccent)
)
