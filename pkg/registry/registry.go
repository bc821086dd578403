// Package registry holds the fixed node palette and validates node data edits.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/nodes/input"
	llmnode "github.com/dukex/flowforge/pkg/nodes/llm"
	"github.com/dukex/flowforge/pkg/nodes/output"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidNodeData is returned when an edit does not match the node schema.
var ErrInvalidNodeData = errors.New("invalid node data")

// PaletteEntry is the public description of a node type.
type PaletteEntry struct {
	Type        models.NodeType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      map[string]any  `json:"schema"`
	Defaults    models.NodeData `json:"defaults"`
	InputPort   bool            `json:"input_port"`
	OutputPort  bool            `json:"output_port"`
}

type Registry struct {
	logger        *slog.Logger
	nodeFactories map[models.NodeType]protocol.NodeFactory
	schemas       map[models.NodeType]*gojsonschema.Schema
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:        log,
		nodeFactories: make(map[models.NodeType]protocol.NodeFactory),
		schemas:       make(map[models.NodeType]*gojsonschema.Schema),
	}
}

// NewDefaultRegistry returns a registry holding the Input, Model and Output nodes.
func NewDefaultRegistry(log *slog.Logger) *Registry {
	r := NewRegistry(log)
	r.RegisterDefaultNodes()

	return r
}

// RegisterDefaultNodes registers the three built-in node factories.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterNode(input.NewNodeFactory())
	r.RegisterNode(llmnode.NewNodeFactory())
	r.RegisterNode(output.NewNodeFactory())
}

// RegisterNode adds a factory and compiles its schema. A schema that fails to
// compile is a programming error.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(factory.Schema()))
	if err != nil {
		panic(fmt.Errorf("compile schema for node type %s: %w", factory.ID(), err))
	}

	r.nodeFactories[factory.ID()] = factory
	r.schemas[factory.ID()] = schema

	r.logger.Debug("Registered node type", "type", factory.ID())
}

// Factory returns the factory registered for t.
func (r *Registry) Factory(t models.NodeType) (protocol.NodeFactory, bool) {
	f, ok := r.nodeFactories[t]

	return f, ok
}

// Defaults returns fresh default data for t.
func (r *Registry) Defaults(t models.NodeType) (models.NodeData, error) {
	f, ok := r.nodeFactories[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownNodeType, t)
	}

	return f.Defaults(), nil
}

// Validate checks a partial data edit against the schema of t.
func (r *Registry) Validate(t models.NodeType, partial map[string]any) error {
	schema, ok := r.schemas[t]
	if !ok {
		return fmt.Errorf("%w: %q", models.ErrUnknownNodeType, t)
	}

	doc := partial
	if doc == nil {
		doc = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNodeData, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidNodeData, strings.Join(details, "; "))
	}

	return nil
}

// Palette returns the registered types in palette order.
func (r *Registry) Palette() []PaletteEntry {
	entries := make([]PaletteEntry, 0, len(r.nodeFactories))

	for _, t := range models.NodeTypes {
		f, ok := r.nodeFactories[t]
		if !ok {
			continue
		}

		entries = append(entries, PaletteEntry{
			Type:        t,
			Name:        f.Name(),
			Description: f.Description(),
			Schema:      maps.Clone(f.Schema()),
			Defaults:    f.Defaults(),
			InputPort:   t.HasInputPort(),
			OutputPort:  t.HasOutputPort(),
		})
	}

	return entries
}

func (r *Registry) HealthCheck() (string, bool) {
	for _, t := range models.NodeTypes {
		if _, ok := r.nodeFactories[t]; !ok {
			return "node type " + string(t) + " not registered", false
		}
	}

	return "ok", true
}
