package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dukex/flowforge/pkg/canvas"
	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/llm"
	"github.com/dukex/flowforge/pkg/models"
	llmnode "github.com/dukex/flowforge/pkg/nodes/llm"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/dukex/flowforge/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)

	return args.String(0), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) Types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]events.EventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.GetType()
	}

	return types
}

// completionServer answers every request with status and body and counts calls.
func completionServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, "/chat/completions", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, &calls
}

func newPipeline(t *testing.T, types ...models.NodeType) (*canvas.Session, []*models.Node) {
	t.Helper()

	session := canvas.NewSession("session-1", registry.NewDefaultRegistry(slog.Default()))

	nodes := make([]*models.Node, 0, len(types))

	for _, nt := range types {
		n, err := session.AddNode(nt)
		require.NoError(t, err)

		nodes = append(nodes, n)
	}

	return session, nodes
}

func edit(t *testing.T, session *canvas.Session, id string, partial map[string]any) {
	t.Helper()

	_, err := session.UpdateNodeData(id, partial)
	require.NoError(t, err)
}

func TestExecutor_Run_Success(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		captured map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		mu.Lock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"4"}}]}`))
	}))
	t.Cleanup(server.Close)

	session, nodes := newPipeline(t, models.NodeTypeInput, models.NodeTypeModel, models.NodeTypeOutput)
	edit(t, session, nodes[0].ID, map[string]any{"query": "2+2?"})
	edit(t, session, nodes[1].ID, map[string]any{"apiKey": "sk-test", "apiBase": server.URL})

	publisher := &recordingPublisher{}
	executor := workflow.NewExecutor(slog.Default(), llm.NewOpenAIClient(server.Client()), nil, publisher)

	result, err := executor.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, "4", result.Output)
	assert.Equal(t, nodes[2].ID, result.OutputNodeID)
	assert.False(t, result.OutputDropped)
	assert.Equal(t, "session-1", result.SessionID)

	output, _ := session.Node(nodes[2].ID)
	assert.Equal(t, "4", output.Output().Output)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, llmnode.DefaultModel, captured["model"])
	assert.InDelta(t, float64(llmnode.DefaultMaxTokens), captured["max_tokens"], 0)
	assert.InDelta(t, llmnode.DefaultTemperature, captured["temperature"], 1e-6)

	_, hasAlert := session.Alert()
	assert.False(t, hasAlert)

	assert.Equal(t, []events.EventType{events.ExecutionCompletedEvent}, publisher.Types())
}

func TestExecutor_Run_InputMissing(t *testing.T) {
	t.Parallel()

	server, calls := completionServer(t, http.StatusOK, `{"choices":[{"message":{"content":"x"}}]}`)

	session, nodes := newPipeline(t, models.NodeTypeInput, models.NodeTypeModel, models.NodeTypeOutput)
	edit(t, session, nodes[1].ID, map[string]any{"apiKey": "sk-test", "apiBase": server.URL})

	publisher := &recordingPublisher{}
	executor := workflow.NewExecutor(slog.Default(), llm.NewOpenAIClient(server.Client()), nil, publisher)

	result, err := executor.Run(context.Background(), session)
	require.Error(t, err)
	assert.Nil(t, result)

	assert.True(t, workflow.IsKind(err, models.AlertKindInputMissing))
	assert.Equal(t, workflow.MessageInputMissing, err.Error())
	assert.Zero(t, calls.Load())

	alert, ok := session.Alert()
	require.True(t, ok)
	assert.Equal(t, models.AlertKindInputMissing, alert.Kind)
	assert.Equal(t, models.NodeTypeInput, alert.NodeType)
	assert.True(t, alert.Visible)

	assert.Equal(t, []events.EventType{events.ExecutionFailedEvent}, publisher.Types())
}

func TestExecutor_Run_PreconditionsShortCircuit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		types []models.NodeType
		edits map[int]map[string]any
		kind  models.AlertKind
	}{
		{
			name:  "no input node",
			types: []models.NodeType{models.NodeTypeModel, models.NodeTypeOutput},
			edits: map[int]map[string]any{0: {"apiKey": "sk-test"}},
			kind:  models.AlertKindInputMissing,
		},
		{
			name:  "missing api key",
			types: []models.NodeType{models.NodeTypeInput, models.NodeTypeModel, models.NodeTypeOutput},
			edits: map[int]map[string]any{0: {"query": "2+2?"}},
			kind:  models.AlertKindCredentialMissing,
		},
		{
			name:  "no model node",
			types: []models.NodeType{models.NodeTypeInput, models.NodeTypeOutput},
			edits: map[int]map[string]any{0: {"query": "2+2?"}},
			kind:  models.AlertKindCredentialMissing,
		},
		{
			name:  "input checked before credential",
			types: []models.NodeType{models.NodeTypeInput, models.NodeTypeModel},
			kind:  models.AlertKindInputMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			session, nodes := newPipeline(t, tt.types...)
			for i, partial := range tt.edits {
				edit(t, session, nodes[i].ID, partial)
			}

			completer := &mockCompleter{}
			executor := workflow.NewExecutor(slog.Default(), completer, nil, nil)

			_, err := executor.Run(context.Background(), session)
			require.Error(t, err)
			assert.True(t, workflow.IsKind(err, tt.kind))

			completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

			alert, ok := session.Alert()
			require.True(t, ok)
			assert.Equal(t, tt.kind, alert.Kind)
		})
	}
}

func TestExecutor_Run_RequestFailed(t *testing.T) {
	t.Parallel()

	server, calls := completionServer(t, http.StatusUnauthorized,
		`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)

	session, nodes := newPipeline(t, models.NodeTypeInput, models.NodeTypeModel, models.NodeTypeOutput)
	edit(t, session, nodes[0].ID, map[string]any{"query": "2+2?"})
	edit(t, session, nodes[1].ID, map[string]any{"apiKey": "sk-bad", "apiBase": server.URL})

	require.NoError(t, session.SetOutput(nodes[2].ID, "previous"))

	executor := workflow.NewExecutor(slog.Default(), llm.NewOpenAIClient(server.Client()), nil, nil)

	_, err := executor.Run(context.Background(), session)
	require.Error(t, err)

	runErr, ok := workflow.AsRunError(err)
	require.True(t, ok)
	assert.Equal(t, models.AlertKindRequestFailed, runErr.Kind)
	assert.Equal(t, workflow.MessageRequestFailed, runErr.Message)
	assert.True(t, llm.IsStatusError(err))
	assert.Equal(t, int32(1), calls.Load())

	output, _ := session.Node(nodes[2].ID)
	assert.Equal(t, "previous", output.Output().Output)

	alert, _ := session.Alert()
	assert.Empty(t, alert.NodeType)
}

func TestExecutor_Run_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	session, nodes := newPipeline(t, models.NodeTypeInput, models.NodeTypeModel, models.NodeTypeOutput)
	edit(t, session, nodes[0].ID, map[string]any{"query": "2+2?"})
	edit(t, session, nodes[1].ID, map[string]any{"apiKey": "sk-test", "apiBase": url})

	executor := workflow.NewExecutor(slog.Default(), llm.NewOpenAIClient(nil), nil, nil)

	_, err := executor.Run(context.Background(), session)
	require.Error(t, err)

	runErr, ok := workflow.AsRunError(err)
	require.True(t, ok)
	assert.Equal(t, models.AlertKindGeneral, runErr.Kind)
	assert.NotEmpty(t, runErr.Message)
	assert.NotEqual(t, workflow.MessageRequestFailed, runErr.Message)
}

func TestExecutor_Run_EmptyChoicesIsGeneral(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return("", llm.ErrNoChoices).Once()

	session, nodes := newPipeline(t, models.NodeTypeInput, models.NodeTypeModel, models.NodeTypeOutput)
	edit(t, session, nodes[0].ID, map[string]any{"query": "2+2?"})
	edit(t, session, nodes[1].ID, map[string]any{"apiKey": "sk-test"})

	_, err := workflow.NewExecutor(slog.Default(), completer, nil, nil).Run(context.Background(), session)
	require.ErrorIs(t, err, llm.ErrNoChoices)
	assert.True(t, workflow.IsKind(err, models.AlertKindGeneral))

	completer.AssertExpectations(t)
}

func TestExecutor_Run_FirstModelNodeIsUsed(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.APIKey == "sk-first" && req.Model == "gpt-4"
	})).Return("ok", nil).Once()

	session, nodes := newPipeline(t,
		models.NodeTypeInput, models.NodeTypeModel, models.NodeTypeModel, models.NodeTypeOutput)
	edit(t, session, nodes[0].ID, map[string]any{"query": "hello"})
	edit(t, session, nodes[1].ID, map[string]any{"apiKey": "sk-first", "model": "gpt-4"})
	edit(t, session, nodes[2].ID, map[string]any{"apiKey": "sk-second"})

	result, err := workflow.NewExecutor(slog.Default(), completer, nil, nil).Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, "ok", result.Output)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, workflow.DiagnosticAmbiguous, result.Diagnostics[0].Code)

	completer.AssertExpectations(t)
}

func TestExecutor_Run_OutputDropped(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return("4", nil).Once()

	session, nodes := newPipeline(t, models.NodeTypeInput, models.NodeTypeModel)
	edit(t, session, nodes[0].ID, map[string]any{"query": "2+2?"})
	edit(t, session, nodes[1].ID, map[string]any{"apiKey": "sk-test"})

	publisher := &recordingPublisher{}

	result, err := workflow.NewExecutor(slog.Default(), completer, nil, publisher).Run(context.Background(), session)
	require.NoError(t, err)

	assert.True(t, result.OutputDropped)
	assert.Empty(t, result.OutputNodeID)
	assert.Equal(t, "4", result.Output)

	_, hasAlert := session.Alert()
	assert.False(t, hasAlert)

	require.Len(t, publisher.events, 1)

	completed, ok := publisher.events[0].(events.ExecutionCompleted)
	require.True(t, ok)
	assert.True(t, completed.OutputDropped)
}

func TestExecutor_Run_ClearsPreviousAlert(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return("4", nil)

	session, nodes := newPipeline(t, models.NodeTypeInput, models.NodeTypeModel, models.NodeTypeOutput)
	edit(t, session, nodes[0].ID, map[string]any{"query": "2+2?"})
	edit(t, session, nodes[1].ID, map[string]any{"apiKey": "sk-test"})

	session.RaiseAlert(models.AlertKindRequestFailed, workflow.MessageRequestFailed)

	_, err := workflow.NewExecutor(slog.Default(), completer, nil, nil).Run(context.Background(), session)
	require.NoError(t, err)

	_, hasAlert := session.Alert()
	assert.False(t, hasAlert)
}

func TestExecutor_Run_DataEditsAfterRun(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()

	session, nodes := newPipeline(t, models.NodeTypeInput, models.NodeTypeModel, models.NodeTypeOutput)
	edit(t, session, nodes[0].ID, map[string]any{"query": "2+2?"})
	edit(t, session, nodes[1].ID, map[string]any{"apiKey": "sk-test"})

	_, err := workflow.NewExecutor(slog.Default(), completer, nil, nil).Run(context.Background(), session)
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())

	_, hasAlert := session.Alert()
	require.True(t, hasAlert)

	edit(t, session, nodes[0].ID, map[string]any{"query": "3+3?"})

	_, hasAlert = session.Alert()
	assert.False(t, hasAlert)
}

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	t.Run("zero values fall back to defaults", func(t *testing.T) {
		t.Parallel()

		req := workflow.BuildRequest("q", &models.ModelData{APIKey: "sk-test"})

		assert.Equal(t, llm.Request{
			APIBase:     llmnode.DefaultAPIBase,
			APIKey:      "sk-test",
			Model:       llmnode.DefaultModel,
			Prompt:      "q",
			MaxTokens:   llmnode.DefaultMaxTokens,
			Temperature: llmnode.DefaultTemperature,
		}, req)
	})

	t.Run("set values are kept", func(t *testing.T) {
		t.Parallel()

		req := workflow.BuildRequest("q", &models.ModelData{
			APIBase:     "http://localhost:8080/v1",
			APIKey:      "sk-test",
			Model:       "gpt-4",
			MaxTokens:   10,
			Temperature: 1.2,
		})

		assert.Equal(t, "http://localhost:8080/v1", req.APIBase)
		assert.Equal(t, "gpt-4", req.Model)
		assert.Equal(t, 10, req.MaxTokens)
		assert.InDelta(t, 1.2, req.Temperature, 1e-9)
	})
}
