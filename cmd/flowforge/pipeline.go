package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// pipelineFile is the YAML form of a run.
//
//	query: "What is 2+2?"
//	model:
//	  model: gpt-4o-mini
//	  maxTokens: 64
type pipelineFile struct {
	Query string           `yaml:"query"`
	Model models.ModelData `yaml:"model"`
}

func loadPipelineFile(path string) (*pipelineFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline file: %w", err)
	}

	var f pipelineFile

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse pipeline file %s: %w", path, err)
	}

	return &f, nil
}

// pipelineEdits returns the node-data edits for a run. A flag set on the
// command line or through its env var wins over the file; the file wins
// over flag defaults.
func pipelineEdits(command *cli.Command, f *pipelineFile) map[models.NodeType]map[string]any {
	if f == nil {
		f = &pipelineFile{}
	}

	return map[models.NodeType]map[string]any{
		models.NodeTypeInput: {"query": pick(command, "query", f.Query, command.String)},
		models.NodeTypeModel: {
			"model":       pick(command, "model", f.Model.Model, command.String),
			"apiBase":     pick(command, "api-base", f.Model.APIBase, command.String),
			"apiKey":      pick(command, "api-key", f.Model.APIKey, command.String),
			"maxTokens":   pick(command, "max-tokens", f.Model.MaxTokens, command.Int),
			"temperature": pick(command, "temperature", f.Model.Temperature, command.Float),
		},
		models.NodeTypeOutput: nil,
	}
}

func pick[T comparable](command *cli.Command, name string, fromFile T, flag func(string) T) T {
	var zero T
	if !command.IsSet(name) && fromFile != zero {
		return fromFile
	}

	return flag(name)
}
