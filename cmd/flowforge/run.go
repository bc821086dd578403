package main

import (
	"context"
	"fmt"

	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/models"
	llmnode "github.com/dukex/flowforge/pkg/nodes/llm"
	"github.com/dukex/flowforge/pkg/workflow"
	"github.com/urfave/cli/v3"
)

// RunCommand builds a three-node canvas from flags and executes it once.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute a single Input -> LLM -> Output pipeline and print the output",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML pipeline file; flags given explicitly override it",
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Text sent as the user message",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Bearer credential for the chat-completion endpoint",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "api-base",
				Usage:   "Base URL of an OpenAI-compatible API",
				Value:   llmnode.DefaultAPIBase,
				Sources: cli.EnvVars("OPENAI_API_BASE"),
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Model name",
				Value: llmnode.DefaultModel,
			},
			&cli.IntFlag{
				Name:  "max-tokens",
				Usage: "Upper bound on generated tokens",
				Value: llmnode.DefaultMaxTokens,
			},
			&cli.FloatFlag{
				Name:  "temperature",
				Usage: "Sampling temperature",
				Value: llmnode.DefaultTemperature,
			},
			requestTimeoutFlag(),
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.SetupWriter(command.Root().ErrWriter, command.String("log-level"))

			logger := log.WithModule("run")

			s := newStack(logger, command.Duration("request-timeout"), nil, nil)

			output, err := runPipeline(ctx, s, command)
			if err != nil {
				if runErr, ok := workflow.AsRunError(err); ok {
					return fmt.Errorf("%s: %w", runErr.Kind, err)
				}

				return err
			}

			_, err = fmt.Fprintln(command.Root().Writer, output)

			return err
		},
	}
}

func runPipeline(ctx context.Context, s *stack, command *cli.Command) (string, error) {
	snapshot := s.canvas.CreateSession(ctx)
	id := snapshot.ID

	defer func() {
		_ = s.canvas.DiscardSession(ctx, id)
	}()

	var file *pipelineFile

	if path := command.String("config"); path != "" {
		f, err := loadPipelineFile(path)
		if err != nil {
			return "", err
		}

		file = f
	}

	edits := pipelineEdits(command, file)

	ids := make([]string, 0, len(models.NodeTypes))

	for _, t := range models.NodeTypes {
		node, err := s.canvas.AddNode(ctx, id, t)
		if err != nil {
			return "", err
		}

		if partial := edits[t]; partial != nil {
			if _, err := s.canvas.UpdateNodeData(ctx, id, node.ID, partial); err != nil {
				return "", err
			}
		}

		ids = append(ids, node.ID)
	}

	for i := 0; i+1 < len(ids); i++ {
		if err := s.canvas.StartConnection(ctx, id, ids[i]); err != nil {
			return "", err
		}

		if _, err := s.canvas.EndConnection(ctx, id, ids[i+1]); err != nil {
			return "", err
		}
	}

	result, err := s.canvas.Run(ctx, id)
	if err != nil {
		return "", err
	}

	return result.Output, nil
}
