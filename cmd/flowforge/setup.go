package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowforge/pkg/channels/gochannel"
	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/llm"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/dukex/flowforge/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

// stack bundles the services shared by both commands.
type stack struct {
	registry *registry.Registry
	canvas   *services.Canvas
}

func newEventBus(ctx context.Context, logger *slog.Logger) (eventbus.EventBus, error) {
	pub, sub := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	bus := eventbus.NewWatermillEventBus(pub, sub)

	for _, t := range []events.EventType{
		events.NodeAddedEvent,
		events.ConnectionCreatedEvent,
		events.ExecutionCompletedEvent,
		events.ExecutionFailedEvent,
	} {
		if err := bus.Handle(t, logEvent(logger)); err != nil {
			return nil, err
		}
	}

	if err := bus.Subscribe(ctx); err != nil {
		return nil, err
	}

	return bus, nil
}

func logEvent(logger *slog.Logger) eventbus.EventHandler {
	return func(ctx context.Context, event any) error {
		logger.DebugContext(ctx, "Canvas event", "event", event)

		return nil
	}
}

func newStack(
	logger *slog.Logger,
	requestTimeout time.Duration,
	tracer trace.Tracer,
	bus eventbus.EventBus,
) *stack {
	reg := registry.NewDefaultRegistry(logger)
	client := llm.NewOpenAIClient(&http.Client{Timeout: requestTimeout})
	executor := workflow.NewExecutor(logger, client, tracer, bus)

	return &stack{
		registry: reg,
		canvas:   services.NewCanvas(logger, reg, executor, bus),
	}
}
