// Package web provides HTTP handlers and REST API endpoints for canvas sessions.
package web

import (
	"net/http"
	"time"

	"github.com/dukex/flowforge/pkg/graph"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	canvasService *services.Canvas
	validator     *validator.Validate
	registry      *registry.Registry
}

func NewAPIHandlers(
	canvasService *services.Canvas,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		canvasService: canvasService,
		validator:     validator,
		registry:      registry,
	}
}

// Register mounts every canvas route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/node-types", h.GetNodeTypes)

	s := router.Group("/sessions")
	s.Post("/", h.CreateSession)
	s.Get("/:id", h.GetSession)
	s.Get("/:id/graph", h.GetSessionGraph)
	s.Delete("/:id", h.DeleteSession)

	s.Post("/:id/nodes", h.AddNode)
	s.Patch("/:id/nodes/:nodeId/position", h.UpdateNodePosition)
	s.Patch("/:id/nodes/:nodeId/data", h.UpdateNodeData)
	s.Post("/:id/nodes/:nodeId/drag/start", h.DragStart)
	s.Post("/:id/nodes/:nodeId/drag/end", h.DragEnd)
	s.Post("/:id/nodes/:nodeId/drag", h.Drag)

	s.Post("/:id/connections/start", h.StartConnection)
	s.Post("/:id/connections/pointer", h.PointerMove)
	s.Post("/:id/connections/end", h.EndConnection)

	s.Post("/:id/run", h.Run)
	s.Post("/:id/alert/dismiss", h.DismissAlert)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	sessionCheck, sesOk := h.canvasService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "FlowForge API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && sesOk {
		status = "healthy"
		message = "FlowForge API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry": registryCheck,
			"sessions": sessionCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	return c.JSON(h.registry.Palette())
}

func (h *APIHandlers) CreateSession(c fiber.Ctx) error {
	snapshot := h.canvasService.CreateSession(c.Context())

	return c.Status(fiber.StatusCreated).JSON(TransformSessionResponse(snapshot))
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	snapshot, err := h.canvasService.Snapshot(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformSessionResponse(snapshot))
}

// GetSessionGraph exports the canvas as a Graphviz document.
func (h *APIHandlers) GetSessionGraph(c fiber.Ctx) error {
	snapshot, err := h.canvasService.Snapshot(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	dot, err := graph.DOT(snapshot)
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/vnd.graphviz; charset=utf-8")

	return c.SendString(dot)
}

func (h *APIHandlers) DeleteSession(c fiber.Ctx) error {
	if err := h.canvasService.DiscardSession(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) AddNode(c fiber.Ctx) error {
	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.canvasService.AddNode(c.Context(), c.Params("id"), models.NodeType(req.Type))
	if err != nil {
		return handleServiceError(c, err)
	}

	return h.nodeResponse(c, fiber.StatusCreated, node)
}

func (h *APIHandlers) UpdateNodePosition(c fiber.Ctx) error {
	var req PointerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	node, err := h.canvasService.MoveNode(c.Context(), c.Params("id"), c.Params("nodeId"), req.Position())
	if err != nil {
		return handleServiceError(c, err)
	}

	return h.nodeResponse(c, fiber.StatusOK, node)
}

func (h *APIHandlers) UpdateNodeData(c fiber.Ctx) error {
	partial := map[string]any{}
	if err := c.Bind().JSON(&partial); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	node, err := h.canvasService.UpdateNodeData(c.Context(), c.Params("id"), c.Params("nodeId"), partial)
	if err != nil {
		return handleServiceError(c, err)
	}

	return h.nodeResponse(c, fiber.StatusOK, node)
}

// nodeResponse renders node with the session's current error attribution.
func (h *APIHandlers) nodeResponse(c fiber.Ctx, status int, node *models.Node) error {
	alert, err := h.canvasService.Alert(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(status).JSON(TransformNodeResponse(node, alert))
}

func (h *APIHandlers) DragStart(c fiber.Ctx) error {
	var req PointerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.canvasService.DragStart(c.Context(), c.Params("id"), c.Params("nodeId"), req.Position()); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) Drag(c fiber.Ctx) error {
	var req PointerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	node, err := h.canvasService.Drag(c.Context(), c.Params("id"), c.Params("nodeId"), req.Position())
	if err != nil {
		return handleServiceError(c, err)
	}

	return h.nodeResponse(c, fiber.StatusOK, node)
}

func (h *APIHandlers) DragEnd(c fiber.Ctx) error {
	if err := h.canvasService.DragEnd(c.Context(), c.Params("id"), c.Params("nodeId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) StartConnection(c fiber.Ctx) error {
	var req ConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.canvasService.StartConnection(c.Context(), c.Params("id"), req.NodeID); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PointerMove(c fiber.Ctx) error {
	var req PointerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	line, err := h.canvasService.PointerMove(c.Context(), c.Params("id"), req.Position())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(GuideLineResponse{Connecting: line != nil, GuideLine: line})
}

func (h *APIHandlers) EndConnection(c fiber.Ctx) error {
	var req ConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	conn, err := h.canvasService.EndConnection(c.Context(), c.Params("id"), req.NodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	if conn == nil {
		return c.JSON(ConnectionResponse{Created: false})
	}

	return c.Status(fiber.StatusCreated).JSON(ConnectionResponse{Created: true, Connection: conn})
}

func (h *APIHandlers) Run(c fiber.Ctx) error {
	id := c.Params("id")

	result, err := h.canvasService.Run(c.Context(), id)
	if err != nil {
		return handleRunError(c, err)
	}

	snapshot, err := h.canvasService.Snapshot(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(RunResponse{Result: result, Session: TransformSessionResponse(snapshot)})
}

func (h *APIHandlers) DismissAlert(c fiber.Ctx) error {
	if err := h.canvasService.DismissAlert(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
