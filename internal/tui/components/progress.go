package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Progress renders how many of a pipeline's nodes have finished running.
type Progress struct {
	bar        progress.Model
	totalNodes int
}

// NewProgress creates a progress component for a pipeline with totalNodes
// scheduled nodes.
func NewProgress(totalNodes int) Progress {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return Progress{bar: bar, totalNodes: totalNodes}
}

// View renders the progress bar for the given number of completed nodes.
func (p Progress) View(completed int) string {
	ratio := 0.0
	if p.totalNodes > 0 {
		ratio = math.Min(1.0, float64(completed)/float64(p.totalNodes))
	}
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d nodes", completed, p.totalNodes))
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", p.bar.ViewAs(ratio))
}
