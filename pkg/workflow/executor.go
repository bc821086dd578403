// Package workflow runs the Input -> Model -> Output pipeline of a canvas session.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/flowforge/pkg/canvas"
	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/llm"
	"github.com/dukex/flowforge/pkg/models"
	llmnode "github.com/dukex/flowforge/pkg/nodes/llm"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Result describes a successful run.
type Result struct {
	SessionID     string        `json:"session_id"`
	Output        string        `json:"output"`
	OutputNodeID  string        `json:"output_node_id,omitempty"`
	OutputDropped bool          `json:"output_dropped"`
	Diagnostics   []Diagnostic  `json:"diagnostics,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Executor performs the single-shot execution step.
type Executor struct {
	logger    *slog.Logger
	completer llm.Completer
	tracer    trace.Tracer
	publisher eventbus.EventPublisher
}

// NewExecutor creates an executor. publisher may be nil.
func NewExecutor(
	logger *slog.Logger,
	completer llm.Completer,
	tracer trace.Tracer,
	publisher eventbus.EventPublisher,
) *Executor {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Executor{
		logger:    logger.With("module", "executor"),
		completer: completer,
		tracer:    tracer,
		publisher: publisher,
	}
}

// Run executes the pipeline once. Any failure is stored on the session as its
// alert and returned as a *RunError. The session lock is not held while the
// request is in flight; only the bound Output node is written afterwards.
func (e *Executor) Run(ctx context.Context, session *canvas.Session) (*Result, error) {
	started := time.Now()

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.SessionIDKey, session.ID()),
	)
	defer span.End()

	session.ClearAlert()

	binding := Bind(session.Nodes())
	for _, d := range binding.Diagnostics {
		e.logger.DebugContext(ctx, "Binding diagnostic",
			"session_id", session.ID(), "code", d.Code, "node_type", d.NodeType, "message", d.Message)
	}

	result, runErr := e.run(ctx, session, binding)
	duration := time.Since(started)

	if runErr != nil {
		session.RaiseAlert(runErr.Kind, runErr.Message)

		span.SetAttributes(attribute.String(otelhelper.ErrorKindKey, string(runErr.Kind)))
		otelhelper.SetError(span, runErr)

		e.logger.WarnContext(ctx, "Run failed",
			"session_id", session.ID(), "kind", runErr.Kind, "error", runErr.Message)

		e.publish(ctx, session.ID(), events.ExecutionFailed{
			BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, session.ID()),
			Kind:      runErr.Kind,
			Error:     runErr.Message,
			Duration:  duration,
		})

		return nil, runErr
	}

	result.Duration = duration

	span.SetAttributes(attribute.Bool(otelhelper.OutputDroppedKey, result.OutputDropped))
	span.SetStatus(codes.Ok, "")

	e.logger.InfoContext(ctx, "Run completed",
		"session_id", session.ID(), "output_node_id", result.OutputNodeID,
		"output_dropped", result.OutputDropped, "duration", duration)

	e.publish(ctx, session.ID(), events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, session.ID()),
		OutputNodeID:  result.OutputNodeID,
		OutputDropped: result.OutputDropped,
		Duration:      duration,
	})

	return result, nil
}

func (e *Executor) run(ctx context.Context, session *canvas.Session, binding Binding) (*Result, *RunError) {
	var query string
	if binding.Input != nil {
		query = binding.Input.Input().Query
	}

	if query == "" {
		return nil, inputMissing()
	}

	var model *models.ModelData
	if binding.Model != nil {
		model = binding.Model.Model()
	}

	if model == nil || model.APIKey == "" {
		return nil, credentialMissing()
	}

	req := BuildRequest(query, model)

	e.logger.DebugContext(ctx, "Requesting chat completion",
		"session_id", session.ID(), "model", req.Model, "api_base", req.APIBase)

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(otelhelper.NodeIDKey, binding.Model.ID),
		attribute.String(otelhelper.ModelKey, req.Model),
	)

	content, err := e.completer.Complete(ctx, req)
	if err != nil {
		if llm.IsStatusError(err) {
			return nil, requestFailed(err)
		}

		return nil, general(err)
	}

	result := &Result{
		SessionID:   session.ID(),
		Output:      content,
		Diagnostics: binding.Diagnostics,
	}

	if binding.Output == nil {
		result.OutputDropped = true

		return result, nil
	}

	if err := session.SetOutput(binding.Output.ID, content); err != nil {
		return nil, general(err)
	}

	result.OutputNodeID = binding.Output.ID

	return result, nil
}

// BuildRequest applies the defaults for unset model parameters.
func BuildRequest(query string, model *models.ModelData) llm.Request {
	req := llm.Request{
		APIBase:     model.APIBase,
		APIKey:      model.APIKey,
		Model:       model.Model,
		Prompt:      query,
		MaxTokens:   model.MaxTokens,
		Temperature: model.Temperature,
	}

	if req.APIBase == "" {
		req.APIBase = llmnode.DefaultAPIBase
	}

	if req.Model == "" {
		req.Model = llmnode.DefaultModel
	}

	if req.MaxTokens == 0 {
		req.MaxTokens = llmnode.DefaultMaxTokens
	}

	if req.Temperature == 0 {
		req.Temperature = llmnode.DefaultTemperature
	}

	return req
}

func (e *Executor) publish(ctx context.Context, sessionID string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, sessionID, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "type", event.GetType(), "error", err)
	}
}
