// Package llm provides the outbound chat-completion call made by a pipeline run.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const completionsPath = "/chat/completions"

// ErrNoChoices is returned when a successful response carries no completion.
var ErrNoChoices = errors.New("chat completion response contained no choices")

// StatusError is returned when the API answers with a non-success status.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat completion failed with status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// IsStatusError reports whether err came from a non-success HTTP status.
func IsStatusError(err error) bool {
	var se *StatusError

	return errors.As(err, &se)
}

// Request holds everything needed for one single-message completion.
type Request struct {
	APIBase     string
	APIKey      string
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completer performs one chat completion and returns the first choice's text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAIClient talks to any OpenAI-compatible /chat/completions endpoint.
// It speaks the go-openai wire types over its own transport, so every model
// name is sent as given and the server decides what it accepts.
type OpenAIClient struct {
	httpClient *http.Client
}

// NewOpenAIClient returns a client using httpClient, or http.DefaultClient when nil.
func NewOpenAIClient(httpClient *http.Client) *OpenAIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OpenAIClient{httpClient: httpClient}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimRight(req.APIBase, "/") + completionsPath

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp.StatusCode, body)
	}

	var completion openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", ErrNoChoices
	}

	return completion.Choices[0].Message.Content, nil
}

// statusError keeps the API's error object when the body carries one.
func statusError(code int, body []byte) error {
	var errResp openai.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		errResp.Error.HTTPStatusCode = code

		return &StatusError{StatusCode: code, Err: errResp.Error}
	}

	return &StatusError{
		StatusCode: code,
		Err: &openai.RequestError{
			HTTPStatusCode: code,
			Err:            fmt.Errorf("%s: %s", http.StatusText(code), strings.TrimSpace(string(body))),
		},
	}
}
