// Package protocol defines the contracts implemented by the palette node types.
package protocol

import "github.com/dukex/flowforge/pkg/models"

// NodeFactory describes one palette entry and builds its default data.
type NodeFactory interface {
	// ID returns the node type this factory builds
	ID() models.NodeType

	// Name returns the human-readable palette label
	Name() string

	// Description returns the hint shown on the node card
	Description() string

	// Schema returns the JSON schema accepted by data edits
	Schema() map[string]any

	// Defaults returns fresh data for a newly added node
	Defaults() models.NodeData
}
