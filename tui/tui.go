// Package tui renders a live translation session in the terminal:
// connection and turn state in the header, completed turns in a
// viewport, the in-flight partial output dimmed below them.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parlo/live"
	"parlo/turns"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	stateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	inputStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	outputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	partialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type model struct {
	viewport   viewport.Model
	updates    <-chan live.Update
	client     *live.Client
	ready      bool
	connState  live.ConnState
	turnState  turns.State
	records    []turns.Record
	partialIn  string
	partialOut string
	lastError  string
}

func newModel(client *live.Client) model {
	return model{
		updates:   client.Updates(),
		client:    client,
		connState: live.ConnDisconnected,
		turnState: turns.StateIdle,
	}
}

// Run blocks until the user quits the session view.
func Run(client *live.Client) error {
	p := tea.NewProgram(newModel(client), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func waitForUpdate(updates <-chan live.Update) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "x":
			m.client.CancelResponse()
		case "c":
			m.client.ClearInput()
		}

	case tea.WindowSizeMsg:
		headerHeight := lipgloss.Height(m.headerView())
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight)
			m.viewport.YPosition = headerHeight
			m.viewport.SetContent(m.contentView())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight
		}

	case live.ConnUpdate:
		m.connState = msg.State
		cmds = append(cmds, waitForUpdate(m.updates))

	case live.TurnStateUpdate:
		m.turnState = msg.State
		cmds = append(cmds, waitForUpdate(m.updates))

	case live.PartialUpdate:
		m.partialIn = msg.Input
		m.partialOut = msg.Output
		m.refresh()
		cmds = append(cmds, waitForUpdate(m.updates))

	case live.TurnUpdate:
		m.records = append(m.records, msg.Record)
		m.partialIn = ""
		m.partialOut = ""
		m.refresh()
		cmds = append(cmds, waitForUpdate(m.updates))

	case live.ErrorUpdate:
		m.lastError = msg.Err.Error()
		cmds = append(cmds, waitForUpdate(m.updates))

	case live.RateLimitUpdate:
		// Advisory only; nothing to show yet.
		cmds = append(cmds, waitForUpdate(m.updates))
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.contentView())
	m.viewport.GotoBottom()
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}
	return fmt.Sprintf("%s\n%s", m.headerView(), m.viewport.View())
}

func (m model) headerView() string {
	header := headerStyle.Render("parlo") +
		"  " + stateStyle.Render(string(m.connState)) +
		" / " + stateStyle.Render(string(m.turnState))
	if m.lastError != "" {
		header += "  " + errorStyle.Render(m.lastError)
	}
	return header
}

func (m model) contentView() string {
	var b strings.Builder
	for _, rec := range m.records {
		b.WriteString(fmt.Sprintf("(%s) ", rec.CreatedAt.Format("15:04:05")))
		b.WriteString(inputStyle.Render(rec.Input))
		b.WriteString("\n  → ")
		b.WriteString(outputStyle.Render(rec.Output))
		b.WriteString("\n")
	}
	if m.partialIn != "" || m.partialOut != "" {
		b.WriteString(partialStyle.Render(m.partialIn))
		b.WriteString("\n  → ")
		b.WriteString(partialStyle.Render(m.partialOut))
		b.WriteString("\n")
	}
	return b.String()
}
