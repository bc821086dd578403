package web

import (
	"errors"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/dukex/flowforge/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsNotFoundError(err):
		kind := "node_not_found"
		if errors.Is(err, services.ErrSessionNotFound) {
			kind = "session_not_found"
		}

		return notFound(c, kind, err.Error())

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	default:
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}

// handleRunError maps a failed run to a problem whose type is the alert kind.
// Missing fields are the caller's to fix (422); API failures are upstream (502).
func handleRunError(c fiber.Ctx, err error) error {
	runErr, ok := workflow.AsRunError(err)
	if !ok {
		return handleServiceError(c, err)
	}

	status := fiber.StatusBadGateway
	if runErr.Kind == models.AlertKindInputMissing || runErr.Kind == models.AlertKindCredentialMissing {
		status = fiber.StatusUnprocessableEntity
	}

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(string(runErr.Kind)).
		WithDetail(runErr.Message)

	return c.Status(status).JSON(problem)
}
