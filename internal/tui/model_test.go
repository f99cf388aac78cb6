package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestNewModelInitialisesState(t *testing.T) {
	m := NewModel("site", []string{"fetch", "render"}, false)

	require.Equal(t, "site", m.pipelineName)
	require.False(t, m.finished)
	require.Zero(t, m.completed)
	require.Equal(t, 2, m.total)
}

func TestModelInitReturnsTickCommand(t *testing.T) {
	m := NewModel("site", nil, false)
	cmd := m.Init()
	require.NotNil(t, cmd)

	msg := cmd()
	require.NotNil(t, msg)
}

func TestModelTracksNodeResults(t *testing.T) {
	m := NewModel("site", []string{"fetch"}, false)

	updated, _ := m.Update(NodeStartMsg{Name: "fetch", Time: time.Now()})
	m = updated.(Model)
	require.Equal(t, StatusRunning, m.nodes["fetch"].Status)

	finished := NodeCompleteMsg{Name: "fetch", Status: StatusSuccess}
	updated, _ = m.Update(finished)
	m = updated.(Model)
	require.Equal(t, StatusSuccess, m.nodes["fetch"].Status)
	require.Equal(t, 1, m.completed)
}

func TestModelMarksFinished(t *testing.T) {
	m := NewModel("site", nil, false)

	updated, cmd := m.Update(tea.QuitMsg{})
	require.Nil(t, cmd)
	m = updated.(Model)
	require.True(t, m.finished)
}

func TestModelMarksFailedOnNodeFailure(t *testing.T) {
	m := NewModel("site", []string{"fetch"}, false)

	updated, _ := m.Update(NodeCompleteMsg{Name: "fetch", Status: StatusFailed, Message: "boom"})
	m = updated.(Model)
	require.True(t, m.finished)
	require.True(t, m.failed)
}

func TestModelTotalNodes(t *testing.T) {
	t.Parallel()

	t.Run("returns zero for empty model", func(t *testing.T) {
		t.Parallel()
		m := NewModel("site", nil, false)
		require.Equal(t, 0, m.TotalNodes())
	})

	t.Run("returns total after seeding nodes", func(t *testing.T) {
		t.Parallel()
		m := NewModel("site", []string{"fetch", "render"}, false)
		require.Equal(t, 2, m.TotalNodes())
	})
}

func TestModelCompletedNodes(t *testing.T) {
	t.Parallel()

	t.Run("returns zero initially", func(t *testing.T) {
		t.Parallel()
		m := NewModel("site", nil, false)
		require.Equal(t, 0, m.CompletedNodes())
	})

	t.Run("increments after completing nodes", func(t *testing.T) {
		t.Parallel()
		m := NewModel("site", []string{"fetch", "render"}, false)

		updated, _ := m.Update(NodeStartMsg{Name: "fetch", Time: time.Now()})
		m = updated.(Model)
		require.Equal(t, 0, m.CompletedNodes())

		updated, _ = m.Update(NodeCompleteMsg{Name: "fetch", Status: StatusSuccess})
		m = updated.(Model)
		require.Equal(t, 1, m.CompletedNodes())

		updated, _ = m.Update(NodeStartMsg{Name: "render", Time: time.Now()})
		m = updated.(Model)
		updated, _ = m.Update(NodeCompleteMsg{Name: "render", Status: StatusSuccess})
		m = updated.(Model)
		require.Equal(t, 2, m.CompletedNodes())
	})
}

func TestModelIsFinished(t *testing.T) {
	t.Parallel()

	t.Run("returns false initially", func(t *testing.T) {
		t.Parallel()
		m := NewModel("site", nil, false)
		require.False(t, m.IsFinished())
	})

	t.Run("returns true after quit", func(t *testing.T) {
		t.Parallel()
		m := NewModel("site", nil, false)
		updated, _ := m.Update(tea.QuitMsg{})
		m = updated.(Model)
		require.True(t, m.IsFinished())
	})
}

func TestModelEnsureNode(t *testing.T) {
	t.Parallel()

	t.Run("adds new node", func(t *testing.T) {
		t.Parallel()
		m := NewModel("site", nil, false)
		m.ensureNode("new_node")

		require.Contains(t, m.nodes, "new_node")
		require.Equal(t, StatusPending, m.nodes["new_node"].Status)
		require.Equal(t, 1, m.total)
		require.Contains(t, m.order, "new_node")
	})

	t.Run("does not add duplicate node", func(t *testing.T) {
		t.Parallel()
		m := NewModel("site", nil, false)
		m.ensureNode("fetch")
		m.ensureNode("fetch")

		require.Len(t, m.nodes, 1)
		require.Equal(t, 1, m.total)
		require.Len(t, m.order, 1)
	})

	t.Run("ignores empty node name", func(t *testing.T) {
		t.Parallel()
		m := NewModel("site", nil, false)
		m.ensureNode("")

		require.Empty(t, m.nodes)
		require.Equal(t, 0, m.total)
		require.Empty(t, m.order)
	})

	t.Run("maintains order of multiple nodes", func(t *testing.T) {
		t.Parallel()
		m := NewModel("site", nil, false)
		m.ensureNode("fetch")
		m.ensureNode("render")
		m.ensureNode("bundle")

		require.Equal(t, []string{"fetch", "render", "bundle"}, m.order)
		require.Equal(t, 3, m.total)
	})
}
