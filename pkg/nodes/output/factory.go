// Package output provides the Output node palette entry.
package output

import (
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

// NodeFactory builds Output nodes.
type NodeFactory struct{}

// NewNodeFactory creates a new Output node factory.
func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{}
}

func (f *NodeFactory) ID() models.NodeType {
	return models.NodeTypeOutput
}

func (f *NodeFactory) Name() string {
	return "Output Node"
}

func (f *NodeFactory) Description() string {
	return "Shows the response of the last run"
}

func (f *NodeFactory) Defaults() models.NodeData {
	return &models.OutputData{}
}

// Schema accepts no keys: output is written by execution, never by edits.
func (f *NodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": false,
	}
}
