// Package input provides the Input node palette entry.
package input

import (
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

// NodeFactory builds Input nodes.
type NodeFactory struct{}

// NewNodeFactory creates a new Input node factory.
func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{}
}

func (f *NodeFactory) ID() models.NodeType {
	return models.NodeTypeInput
}

func (f *NodeFactory) Name() string {
	return "Input Node"
}

func (f *NodeFactory) Description() string {
	return "Write the input/question you want to ask"
}

// Defaults returns empty data; the query is typed by the user.
func (f *NodeFactory) Defaults() models.NodeData {
	return &models.InputData{}
}

func (f *NodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Question sent as the single user message",
			},
		},
		"additionalProperties": false,
	}
}
