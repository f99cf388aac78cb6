package components

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSummary(t *testing.T) {
	t.Parallel()

	data := SummaryData{Total: 10, Completed: 5, Finished: false}
	summary := NewSummary(data)
	require.Equal(t, data, summary.data)
}

func TestSummaryView(t *testing.T) {
	t.Parallel()

	t.Run("renders empty summary", func(t *testing.T) {
		t.Parallel()
		summary := NewSummary(SummaryData{})
		require.Equal(t, "", summary.View())
	})

	t.Run("renders node progress", func(t *testing.T) {
		t.Parallel()
		summary := NewSummary(SummaryData{Total: 10, Completed: 5})
		require.Contains(t, summary.View(), "Nodes: 5/10 completed")
	})

	t.Run("renders successful completion", func(t *testing.T) {
		t.Parallel()
		summary := NewSummary(SummaryData{Total: 10, Completed: 10, Finished: true})
		view := summary.View()
		require.Contains(t, view, "Nodes: 10/10 completed")
		require.Contains(t, view, "Run finished successfully")
	})

	t.Run("renders partial completion when finished", func(t *testing.T) {
		t.Parallel()
		summary := NewSummary(SummaryData{Total: 10, Completed: 7, Finished: true})
		require.Contains(t, summary.View(), "Run finished with pending nodes")
	})

	t.Run("renders cancelled run", func(t *testing.T) {
		t.Parallel()
		summary := NewSummary(SummaryData{Total: 10, Completed: 3, Cancelled: true})
		view := summary.View()
		require.Contains(t, view, "Run cancelled")
		require.NotContains(t, view, "finished successfully")
	})

	t.Run("renders failed run", func(t *testing.T) {
		t.Parallel()
		summary := NewSummary(SummaryData{Total: 10, Completed: 4, Failed: true})
		view := summary.View()
		require.Contains(t, view, "Run failed")
		require.NotContains(t, view, "finished successfully")
	})
}
