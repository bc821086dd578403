package main

import (
	"context"
	"fmt"

	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9091

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the canvas API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.BoolFlag{
				Name:    "otlp",
				Usage:   "Export traces over OTLP/HTTP (configured by OTEL_EXPORTER_OTLP_* variables)",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			requestTimeoutFlag(),
			logLevelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing FlowForge API")

			var tracer trace.Tracer = otelhelper.NoopTracer()

			if command.Bool("otlp") {
				t, shutdown, err := otelhelper.NewTracer(ctx, "flowforge-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.WithoutCancel(ctx)); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				tracer = t
			}

			bus, err := newEventBus(ctx, logger)
			if err != nil {
				return fmt.Errorf("failed to create event bus: %w", err)
			}

			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			s := newStack(logger, command.Duration("request-timeout"), tracer, bus)

			api := NewAPI(logger, s.registry, s.canvas)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API", "error", err)

				return err
			}

			return nil
		},
	}
}

func requestTimeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "request-timeout",
		Usage:   "Timeout for the chat-completion call (0 disables it)",
		Value:   0,
		Sources: cli.EnvVars("REQUEST_TIMEOUT"),
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}
