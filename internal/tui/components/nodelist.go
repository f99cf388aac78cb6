package components

// NodeState is the per-node state a NodeList entry renders.
type NodeState struct {
	Status     string
	Message    string
	DurationMS int64
}

// NodeEntry represents a single pipeline node for rendering.
type NodeEntry struct {
	Name  string
	State NodeState
}

// NodeList renders a list of pipeline nodes with their current status.
type NodeList struct {
	entries []NodeEntry
}

// NewNodeList constructs a node list component.
func NewNodeList(order []string, nodes map[string]NodeState) NodeList {
	entries := make([]NodeEntry, 0, len(order))
	for _, name := range order {
		entries = append(entries, NodeEntry{Name: name, State: nodes[name]})
	}
	return NodeList{entries: entries}
}

// Entries returns the ordered node entries.
func (l NodeList) Entries() []NodeEntry {
	clone := make([]NodeEntry, len(l.entries))
	copy(clone, l.entries)
	return clone
}
