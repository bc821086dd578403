// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/canvas"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/registry"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Not Found Errors (404 Not Found).
	ErrSessionNotFound = errors.New("session not found")
	ErrNodeNotFound    = canvas.ErrNodeNotFound

	// Validation Errors (400 Bad Request).
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnknownNodeType = models.ErrUnknownNodeType
	ErrInvalidNodeData = registry.ErrInvalidNodeData

	// Interaction Conflicts (409 Conflict).
	ErrNoOutputPort = canvas.ErrNoOutputPort
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnknownNodeType) ||
		errors.Is(err, ErrInvalidNodeData)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrNodeNotFound)
}

// IsConflictError checks if an error is an interaction conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNoOutputPort)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	return &ServiceError{Op: op, Err: err}
}

func requireNodeID(op string) error {
	return NewValidationError(op, "invalid_request", "node id is required", ErrInvalidRequest)
}
