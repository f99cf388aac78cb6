package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, nil
	case NodeStartMsg:
		m.ensureNode(msg.Name)
		node := m.nodes[msg.Name]
		node.Status = StatusRunning
		m.nodes[msg.Name] = node
		return m, nil
	case NodeCompleteMsg:
		if msg.Name == "" {
			return m, nil
		}
		m.ensureNode(msg.Name)
		existing := m.nodes[msg.Name]
		previouslyCompleted := existing.Status == StatusSuccess || existing.Status == StatusFailed
		m.nodes[msg.Name] = NodeResult{Name: msg.Name, Status: msg.Status, Message: msg.Message, Duration: msg.Duration}
		if !previouslyCompleted {
			m.completed++
			m.markFinishedIfComplete()
		}
		if msg.Status == StatusFailed {
			m.finished = true
			m.failed = true
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			return m, nil
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
