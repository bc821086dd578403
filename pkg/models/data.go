package models

import (
	"encoding/json"
	"fmt"
	"maps"
)

// NodeData is the per-type payload of a node.
type NodeData interface {
	NodeType() NodeType
	Clone() NodeData
}

// InputData holds the query typed by the user.
type InputData struct {
	Query string `json:"query,omitempty"`
}

func (d *InputData) NodeType() NodeType { return NodeTypeInput }

func (d *InputData) Clone() NodeData {
	c := *d

	return &c
}

// ModelData holds the chat-completion parameters. Zero values mean "unset".
type ModelData struct {
	Model       string  `json:"model,omitempty"       yaml:"model"`
	APIBase     string  `json:"apiBase,omitempty"     yaml:"apiBase"`
	APIKey      string  `json:"apiKey,omitempty"      yaml:"apiKey"`
	MaxTokens   int     `json:"maxTokens,omitempty"   yaml:"maxTokens"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature"`
}

func (d *ModelData) NodeType() NodeType { return NodeTypeModel }

func (d *ModelData) Clone() NodeData {
	c := *d

	return &c
}

// OutputData holds the completion text written by the last successful run.
type OutputData struct {
	Output string `json:"output,omitempty"`
}

func (d *OutputData) NodeType() NodeType { return NodeTypeOutput }

func (d *OutputData) Clone() NodeData {
	c := *d

	return &c
}

// NewNodeData returns an empty variant for the given type.
func NewNodeData(t NodeType) (NodeData, error) {
	switch t {
	case NodeTypeInput:
		return &InputData{}, nil
	case NodeTypeModel:
		return &ModelData{}, nil
	case NodeTypeOutput:
		return &OutputData{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}
}

// MergeData shallow-merges partial into data and returns a new variant of the
// same type. Keys present in partial replace existing values; absent keys are
// left untouched. data itself is not modified.
func MergeData(data NodeData, partial map[string]any) (NodeData, error) {
	current, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if err := json.Unmarshal(current, &fields); err != nil {
		return nil, err
	}

	maps.Copy(fields, partial)

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	out, err := NewNodeData(data.NodeType())
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(merged, out); err != nil {
		return nil, fmt.Errorf("merge %s node data: %w", data.NodeType(), err)
	}

	return out, nil
}
