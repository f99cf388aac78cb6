package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kilnbuild/kiln/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	title := titleStyle.Render(fmt.Sprintf("kiln • %s", m.title()))
	sections = append(sections, title)

	progress := components.NewProgress(m.total).View(m.completed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	states := make(map[string]components.NodeState, len(m.nodes))
	for name, res := range m.nodes {
		states[name] = components.NodeState{
			Status:     res.Status,
			Message:    res.Message,
			DurationMS: res.Duration.Milliseconds(),
		}
	}
	listComp := components.NewNodeList(m.order, states)
	entries := listComp.Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Nodes"))
		sections = append(sections, renderNodeEntries(entries))
	}

	summary := components.NewSummary(components.SummaryData{
		Total:     m.total,
		Completed: m.completed,
		Finished:  m.finished,
		Cancelled: m.cancelled,
		Failed:    m.failed,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderNodeEntries(entries []components.NodeEntry) string {
	var lines []string
	for _, entry := range entries {
		state := entry.State
		icon := StatusIcon(state.Status)
		line := fmt.Sprintf(" %s %s", icon, entry.Name)
		if strings.TrimSpace(state.Message) != "" {
			line = fmt.Sprintf("%s — %s", line, state.Message)
		}
		if state.DurationMS > 0 {
			line = fmt.Sprintf("%s (%s)", line, time.Duration(state.DurationMS*int64(time.Millisecond)))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) title() string {
	if strings.TrimSpace(m.pipelineName) != "" {
		return m.pipelineName
	}
	return "pipeline"
}

// StatusIcon returns the glyph representing a node status.
func StatusIcon(status string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render("✓")
	case StatusRunning:
		return runningStyle.Render("⏳")
	case StatusFailed:
		return failureStyle.Render("✗")
	default:
		return pendingStyle.Render("…")
	}
}
