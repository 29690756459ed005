package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type logModel struct {
	sub        <-chan string
	viewport   viewport.Model
	serverName string
	content    string
	ready      bool
	width      int
	height     int
}

type logMsg string
type logClosedMsg struct{}

func waitForLog(sub <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-sub
		if !ok {
			return logClosedMsg{}
		}
		return logMsg(line)
	}
}

func (m logModel) Init() tea.Cmd {
	return waitForLog(m.sub)
}

func (m logModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		contentWidth := msg.Width - 6

		if !m.ready {
			m.viewport = viewport.New(contentWidth, msg.Height-headerHeight)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = msg.Height - headerHeight
		}

	case logMsg:
		m.content += string(msg) + "\n"
		m.viewport.SetContent(m.content)
		m.viewport.GotoBottom()
		return m, waitForLog(m.sub)

	case logClosedMsg:
		m.content += "\n(log stream ended)\n"
		if m.ready {
			m.viewport.SetContent(m.content)
			m.viewport.GotoBottom()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m logModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	title := headerStyle.Width(m.width).Render(fmt.Sprintf("LOGS %s", m.serverName))
	console := baseStyle.Width(m.width - 4).Render(m.viewport.View())
	help := lipgloss.NewStyle().
		Width(m.width - 4).
		Align(lipgloss.Center).
		Render(keyStyle.Render("q/esc") + descStyle.Render(": quit") +
			descStyle.Render("  •  ") +
			keyStyle.Render("↑/↓") + descStyle.Render(": scroll"))

	return lipgloss.JoinVertical(lipgloss.Center, title, console, help)
}

// RunLogs renders a scrolling full-screen log view fed by sub until the user
// quits or the stream closes.
func RunLogs(serverName string, sub <-chan string) error {
	p := tea.NewProgram(
		logModel{sub: sub, serverName: serverName},
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
