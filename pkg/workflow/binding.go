package workflow

import (
	"fmt"

	"github.com/dukex/flowforge/pkg/models"
)

// DiagnosticCode classifies a binding problem.
type DiagnosticCode string

const (
	DiagnosticMissing   DiagnosticCode = "missing"
	DiagnosticAmbiguous DiagnosticCode = "ambiguous"
)

// Diagnostic reports a role that is absent or bound to more than one node.
type Diagnostic struct {
	Code     DiagnosticCode  `json:"code"`
	NodeType models.NodeType `json:"node_type"`
	NodeIDs  []string        `json:"node_ids,omitempty"`
	Message  string          `json:"message"`
}

// Binding is the {Input, Model, Output} triple a run operates on.
type Binding struct {
	Input       *models.Node
	Model       *models.Node
	Output      *models.Node
	Diagnostics []Diagnostic
}

// Bind resolves one node per role. When several nodes share a type the first
// in insertion order is bound and an ambiguous diagnostic lists all of them.
func Bind(nodes []*models.Node) Binding {
	byType := map[models.NodeType][]*models.Node{}
	for _, n := range nodes {
		byType[n.Type] = append(byType[n.Type], n)
	}

	var b Binding

	for _, t := range models.NodeTypes {
		candidates := byType[t]

		switch len(candidates) {
		case 0:
			b.Diagnostics = append(b.Diagnostics, Diagnostic{
				Code:     DiagnosticMissing,
				NodeType: t,
				Message:  fmt.Sprintf("no node of type %s", t),
			})

			continue
		case 1:
		default:
			ids := make([]string, len(candidates))
			for i, c := range candidates {
				ids[i] = c.ID
			}

			b.Diagnostics = append(b.Diagnostics, Diagnostic{
				Code:     DiagnosticAmbiguous,
				NodeType: t,
				NodeIDs:  ids,
				Message:  fmt.Sprintf("multiple nodes of type %s, using %s", t, ids[0]),
			})
		}

		switch t {
		case models.NodeTypeInput:
			b.Input = candidates[0]
		case models.NodeTypeModel:
			b.Model = candidates[0]
		case models.NodeTypeOutput:
			b.Output = candidates[0]
		}
	}

	return b
}

// Complete reports whether every role is bound.
func (b Binding) Complete() bool {
	return b.Input != nil && b.Model != nil && b.Output != nil
}
