// Package llm provides the Model node palette entry.
package llm

import (
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultAPIBase     = "https://api.openai.com/v1"
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.5

	MaxTokensLimit = 32000
	MaxTemperature = 2.0
)

// Models lists the choices offered by the model selector.
var Models = []string{"gpt-3.5-turbo", "gpt-4"}

// NodeFactory builds Model nodes.
type NodeFactory struct{}

// NewNodeFactory creates a new Model node factory.
func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{}
}

func (f *NodeFactory) ID() models.NodeType {
	return models.NodeTypeModel
}

func (f *NodeFactory) Name() string {
	return "LLM Node"
}

func (f *NodeFactory) Description() string {
	return "Calls a chat-completion API with the input query"
}

// Defaults returns the preset model parameters. The API key is left blank.
func (f *NodeFactory) Defaults() models.NodeData {
	return &models.ModelData{
		Model:       DefaultModel,
		APIBase:     DefaultAPIBase,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

func (f *NodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"model": map[string]any{
				"type":        "string",
				"description": "Model name",
				"default":     DefaultModel,
				"examples":    Models,
			},
			"apiBase": map[string]any{
				"type":        "string",
				"description": "Base URL of the OpenAI-compatible API",
				"default":     DefaultAPIBase,
			},
			"apiKey": map[string]any{
				"type":        "string",
				"description": "Bearer token sent with the request",
				"writeOnly":   true,
			},
			"maxTokens": map[string]any{
				"type":        "integer",
				"description": "Completion token limit",
				"default":     DefaultMaxTokens,
				"minimum":     1,
				"maximum":     MaxTokensLimit,
			},
			"temperature": map[string]any{
				"type":        "number",
				"description": "Sampling temperature",
				"default":     DefaultTemperature,
				"minimum":     0,
				"maximum":     MaxTemperature,
			},
		},
		"additionalProperties": false,
	}
}
