package ui

import "github.com/charmbracelet/lipgloss"

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Bold(true).
			Padding(0, 1).
			Align(lipgloss.Center)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	descStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	runningStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stoppedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	provisionedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// RenderStatus colors a runtime status string for terminal display.
func RenderStatus(status string) string {
	switch status {
	case "RUNNING":
		return runningStyle.Render(status)
	case "STOPPED":
		return stoppedStyle.Render(status)
	case "PROVISIONED":
		return provisionedStyle.Render(status)
	case "ABSENT", "ERROR":
		return errorStyle.Render(status)
	default:
		return status
	}
}
