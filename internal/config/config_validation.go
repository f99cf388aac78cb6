package config

import (
	"fmt"

	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// ValidateDocument performs structural and cross-field validation on an
// entire pipeline definition. Dependency-cycle detection is deferred to
// pipeline.graph, which has full edge information once nodes.Config's
// node-output references are resolved; this pass only catches duplicate
// names and explicit dependsOn references to nodes that don't exist.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return kilnerrors.NewValidationError("document", "pipeline definition is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(doc); err != nil {
		return convertValidationError(err)
	}

	nodeIndex := make(map[string]int, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if _, exists := nodeIndex[n.Name]; exists {
			return kilnerrors.NewValidationError(fieldForNode(i, "name"), fmt.Sprintf("duplicate node name %q", n.Name), nil)
		}
		nodeIndex[n.Name] = i
	}

	for i, n := range doc.Nodes {
		for _, dep := range n.DependsOn {
			if _, ok := nodeIndex[dep]; !ok {
				return kilnerrors.NewValidationError(fieldForNode(i, "dependsOn"), fmt.Sprintf("references unknown node %q", dep), nil)
			}
		}
	}

	return nil
}
