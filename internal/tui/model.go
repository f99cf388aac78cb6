package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Node lifecycle states tracked by the dashboard.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// NodeStartMsg indicates a node has started executing.
type NodeStartMsg struct {
	Name string
	Time time.Time
}

// NodeCompleteMsg reports that a node has finished execution.
type NodeCompleteMsg struct {
	Name     string
	Status   string
	Message  string
	Duration time.Duration
}

type tickMsg struct{}

// NodeResult is the per-node state the model tracks between NodeStartMsg and
// NodeCompleteMsg.
type NodeResult struct {
	Name     string
	Status   string
	Message  string
	Duration time.Duration
}

// Model contains the Bubbletea state for kiln's pipeline-run TUI.
type Model struct {
	pipelineName   string
	nodes          map[string]NodeResult
	order          []string
	total          int
	completed      int
	finished       bool
	cancelled      bool
	failed         bool
	nonInteractive bool
}

// NewModel constructs a new TUI model for a pipeline run. nodeNames is the
// full set of nodes the pipeline will execute, used to seed the pending list,
// in the order given, before any node has started.
func NewModel(pipelineName string, nodeNames []string, nonInteractive bool) Model {
	m := Model{
		pipelineName:   pipelineName,
		nodes:          make(map[string]NodeResult, len(nodeNames)),
		order:          make([]string, 0, len(nodeNames)),
		nonInteractive: nonInteractive,
	}

	for _, name := range nodeNames {
		m.ensureNode(name)
	}

	return m
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// TotalNodes returns the total number of nodes tracked by the model.
func (m Model) TotalNodes() int { return m.total }

// CompletedNodes returns the number of completed nodes.
func (m Model) CompletedNodes() int { return m.completed }

// IsFinished reports whether the run has completed.
func (m Model) IsFinished() bool { return m.finished }

func (m *Model) ensureNode(name string) {
	if name == "" {
		return
	}
	if _, exists := m.nodes[name]; !exists {
		m.nodes[name] = NodeResult{Name: name, Status: StatusPending}
		m.order = append(m.order, name)
		m.total++
	}
}

func (m *Model) markFinishedIfComplete() {
	if m.total > 0 && m.completed >= m.total {
		m.finished = true
	}
}
