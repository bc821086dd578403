package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"4"}}]}`))
	}))
	t.Cleanup(server.Close)

	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name    string
		args    []string
		output  string
		errText string
		calls   int32
	}{
		{
			name:   "prints the completion",
			args:   []string{"--query", "2+2?", "--api-key", "sk-test", "--api-base", server.URL},
			output: "4\n",
			calls:  1,
		},
		{
			name:    "empty query",
			args:    []string{"--api-key", "sk-test", "--api-base", server.URL},
			errText: "input_missing: Error while running the flow",
		},
		{
			name:    "missing credential",
			args:    []string{"--query", "2+2?", "--api-base", server.URL},
			errText: "credential_missing: LLM is missing API key",
		},
		{
			name:    "invalid parameter",
			args:    []string{"--query", "2+2?", "--api-key", "sk-test", "--temperature", "9"},
			errText: "invalid node data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := calls.Load()

			var stdout, stderr bytes.Buffer

			cmd := NewCommand()
			cmd.Writer = &stdout
			cmd.ErrWriter = &stderr

			err := cmd.Run(context.Background(), append([]string{"flowforge", "run"}, tt.args...))

			if tt.errText != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
				assert.Empty(t, stdout.String())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.output, stdout.String())
			}

			assert.Equal(t, tt.calls, calls.Load()-before)
		})
	}
}

func TestRunCommand_PipelineFile(t *testing.T) {
	var (
		mu   sync.Mutex
		sent map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Paris"}}]}`))
	}))
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`query: Capital of France?
model:
  model: gpt-4o-mini
  maxTokens: 32
  temperature: 0.2
`), 0o600))

	var stdout bytes.Buffer

	cmd := NewCommand()
	cmd.Writer = &stdout
	cmd.ErrWriter = &bytes.Buffer{}

	err := cmd.Run(context.Background(), []string{
		"flowforge", "run",
		"--config", path,
		"--model", "gpt-4o",
		"--api-key", "sk-test",
		"--api-base", server.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris\n", stdout.String())

	mu.Lock()
	defer mu.Unlock()

	require.NotNil(t, sent)
	assert.Equal(t, "gpt-4o", sent["model"])
	assert.InDelta(t, 32, sent["max_tokens"], 0)
	assert.InDelta(t, 0.2, sent["temperature"], 1e-6)

	messages, ok := sent["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "Capital of France?", messages[0].(map[string]any)["content"])
}

func TestRunCommand_PipelineFileErrors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("prompt: hi\n"), 0o600))

	tests := []struct {
		name    string
		path    string
		errText string
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.yaml"), errText: "read pipeline file"},
		{name: "unknown field", path: unknown, errText: "parse pipeline file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand()
			cmd.Writer = &bytes.Buffer{}
			cmd.ErrWriter = &bytes.Buffer{}

			err := cmd.Run(context.Background(), []string{"flowforge", "run", "--config", tt.path})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}
