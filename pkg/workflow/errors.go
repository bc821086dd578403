package workflow

import (
	"errors"

	"github.com/dukex/flowforge/pkg/models"
)

// User-facing messages per failure kind. General failures carry the
// underlying error text instead.
const (
	MessageInputMissing      = "Error while running the flow"
	MessageCredentialMissing = "LLM is missing API key"
	MessageRequestFailed     = "Failed to get response from OpenAI"
)

// RunError is the single failure a run can end with.
type RunError struct {
	Kind    models.AlertKind
	Message string
	Err     error
}

func (e *RunError) Error() string {
	return e.Message
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// AsRunError extracts a RunError from err.
func AsRunError(err error) (*RunError, bool) {
	var re *RunError
	if errors.As(err, &re) {
		return re, true
	}

	return nil, false
}

// IsKind reports whether err is a RunError of the given kind.
func IsKind(err error, kind models.AlertKind) bool {
	re, ok := AsRunError(err)

	return ok && re.Kind == kind
}

func inputMissing() *RunError {
	return &RunError{Kind: models.AlertKindInputMissing, Message: MessageInputMissing}
}

func credentialMissing() *RunError {
	return &RunError{Kind: models.AlertKindCredentialMissing, Message: MessageCredentialMissing}
}

func requestFailed(err error) *RunError {
	return &RunError{Kind: models.AlertKindRequestFailed, Message: MessageRequestFailed, Err: err}
}

func general(err error) *RunError {
	return &RunError{Kind: models.AlertKindGeneral, Message: err.Error(), Err: err}
}
