// Package models defines the canvas models for the three-stage pipeline editor.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownNodeType is returned when a type tag is not one of the palette entries.
var ErrUnknownNodeType = errors.New("unknown node type")

// NodeType identifies one of the fixed pipeline stages.
type NodeType string

const (
	NodeTypeInput  NodeType = "input"  // Holds the user's query
	NodeTypeModel  NodeType = "llm"    // Chat-completion call parameters
	NodeTypeOutput NodeType = "output" // Receives the completion text
)

// NodeTypes lists the palette order.
var NodeTypes = []NodeType{NodeTypeInput, NodeTypeModel, NodeTypeOutput}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeInput, NodeTypeModel, NodeTypeOutput:
		return true
	default:
		return false
	}
}

// HasOutputPort reports whether a connection can start from nodes of this type.
func (t NodeType) HasOutputPort() bool {
	return t.Valid() && t != NodeTypeOutput
}

// HasInputPort reports whether a connection can end on nodes of this type.
func (t NodeType) HasInputPort() bool {
	return t.Valid() && t != NodeTypeInput
}

// Position is a top-left canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Add returns p + o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Node is a single stage placed on the canvas.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	clone := *n
	if n.Data != nil {
		clone.Data = n.Data.Clone()
	}

	return &clone
}

// Input returns the node data as InputData, or nil for other node types.
func (n *Node) Input() *InputData {
	d, _ := n.Data.(*InputData)

	return d
}

// Model returns the node data as ModelData, or nil for other node types.
func (n *Node) Model() *ModelData {
	d, _ := n.Data.(*ModelData)

	return d
}

// Output returns the node data as OutputData, or nil for other node types.
func (n *Node) Output() *OutputData {
	d, _ := n.Data.(*OutputData)

	return d
}

type nodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes data into the variant selected by the type tag.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	data, err := NewNodeData(raw.Type)
	if err != nil {
		return err
	}

	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			return fmt.Errorf("decode %s node data: %w", raw.Type, err)
		}
	}

	n.ID = raw.ID
	n.Type = raw.Type
	n.Position = raw.Position
	n.Data = data

	return nil
}

// Connection is a decorative link from one node's output port to another
// node's input port. Execution never consults it.
type Connection struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
