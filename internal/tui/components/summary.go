package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates counts for rendering a run summary.
type SummaryData struct {
	Total     int
	Completed int
	Finished  bool
	Cancelled bool
	Failed    bool
}

// Summary renders a textual pipeline-run summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Total > 0 {
		lines = append(lines, fmt.Sprintf("Nodes: %d/%d completed", s.data.Completed, s.data.Total))
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Run cancelled")
	case s.data.Failed:
		lines = append(lines, "Run failed")
	case s.data.Finished && s.data.Total > 0:
		if s.data.Completed == s.data.Total {
			lines = append(lines, "Run finished successfully")
		} else {
			lines = append(lines, "Run finished with pending nodes")
		}
	}

	return strings.Join(lines, "\n")
}
