// Package services provides canvas session management for the editor API.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/flowforge/pkg/canvas"
	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/dukex/flowforge/pkg/workflow"
	"github.com/google/uuid"
)

// Canvas keeps editor sessions in memory. Nothing survives a restart.
type Canvas struct {
	logger    *slog.Logger
	registry  *registry.Registry
	executor  *workflow.Executor
	publisher eventbus.EventPublisher

	mu       sync.RWMutex
	sessions map[string]*canvas.Session
}

// NewCanvas creates a new canvas service. publisher may be nil.
func NewCanvas(
	logger *slog.Logger,
	registry *registry.Registry,
	executor *workflow.Executor,
	publisher eventbus.EventPublisher,
) *Canvas {
	return &Canvas{
		logger:    logger,
		registry:  registry,
		executor:  executor,
		publisher: publisher,
		sessions:  make(map[string]*canvas.Session),
	}
}

// CreateSession starts an empty canvas.
func (c *Canvas) CreateSession(ctx context.Context) *models.Snapshot {
	session := canvas.NewSession(uuid.New().String(), c.registry)

	c.mu.Lock()
	c.sessions[session.ID()] = session
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Session created", "session_id", session.ID())

	return session.Snapshot()
}

// Session returns the live session with the given id.
func (c *Canvas) Session(id string) (*canvas.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	session, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return session, nil
}

// Snapshot returns a copy of the session state.
func (c *Canvas) Snapshot(_ context.Context, id string) (*models.Snapshot, error) {
	session, err := c.Session(id)
	if err != nil {
		return nil, err
	}

	return session.Snapshot(), nil
}

// DiscardSession drops a session, the equivalent of reloading the editor.
func (c *Canvas) DiscardSession(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	delete(c.sessions, id)

	c.logger.DebugContext(ctx, "Session discarded", "session_id", id)

	return nil
}

// SessionCount returns the number of live sessions.
func (c *Canvas) SessionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.sessions)
}

// AddNode places a new node of type t on the session canvas.
func (c *Canvas) AddNode(ctx context.Context, sessionID string, t models.NodeType) (*models.Node, error) {
	session, err := c.Session(sessionID)
	if err != nil {
		return nil, err
	}

	if !t.Valid() {
		return nil, NewValidationError("add node", "unknown_node_type",
			fmt.Sprintf("unknown node type %q", t), ErrUnknownNodeType)
	}

	node, err := session.AddNode(t)
	if err != nil {
		return nil, wrap("add node", err)
	}

	c.publish(ctx, sessionID, events.NodeAdded{
		BaseEvent: events.NewBaseEvent(events.NodeAddedEvent, sessionID),
		NodeID:    node.ID,
		NodeType:  node.Type,
	})

	return node, nil
}

// MoveNode replaces the position of a node.
func (c *Canvas) MoveNode(_ context.Context, sessionID, nodeID string, pos models.Position) (*models.Node, error) {
	session, err := c.Session(sessionID)
	if err != nil {
		return nil, err
	}

	if !session.UpdateNodePosition(nodeID, pos) {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	node, _ := session.Node(nodeID)

	return node, nil
}

// UpdateNodeData merges a partial edit into a node's data.
func (c *Canvas) UpdateNodeData(_ context.Context, sessionID, nodeID string, partial map[string]any) (*models.Node, error) {
	session, err := c.Session(sessionID)
	if err != nil {
		return nil, err
	}

	node, err := session.UpdateNodeData(nodeID, partial)
	if err != nil {
		return nil, wrap("update node data", err)
	}

	return node, nil
}

// StartConnection begins a connection from the node's output port.
func (c *Canvas) StartConnection(_ context.Context, sessionID, nodeID string) error {
	if nodeID == "" {
		return requireNodeID("start connection")
	}

	session, err := c.Session(sessionID)
	if err != nil {
		return err
	}

	return wrap("start connection", session.StartConnection(nodeID))
}

// PointerMove updates the connection guide line. It returns nil when no
// connection is in progress.
func (c *Canvas) PointerMove(_ context.Context, sessionID string, pos models.Position) (*models.Line, error) {
	session, err := c.Session(sessionID)
	if err != nil {
		return nil, err
	}

	return session.PointerMove(pos), nil
}

// EndConnection completes the connection on nodeID. The returned connection is
// nil when the protocol was aborted (not connecting, or a self link). An
// unknown nodeID still returns the session to idle.
func (c *Canvas) EndConnection(ctx context.Context, sessionID, nodeID string) (*models.Connection, error) {
	if nodeID == "" {
		return nil, requireNodeID("end connection")
	}

	session, err := c.Session(sessionID)
	if err != nil {
		return nil, err
	}

	if _, ok := session.Node(nodeID); !ok {
		session.CancelConnection()

		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	conn, created := session.EndConnection(nodeID)
	if !created {
		return nil, nil
	}

	c.publish(ctx, sessionID, events.ConnectionCreated{
		BaseEvent: events.NewBaseEvent(events.ConnectionCreatedEvent, sessionID),
		Source:    conn.Source,
		Target:    conn.Target,
	})

	return conn, nil
}

// DragStart lifts a node under the pointer.
func (c *Canvas) DragStart(_ context.Context, sessionID, nodeID string, pointer models.Position) error {
	session, err := c.Session(sessionID)
	if err != nil {
		return err
	}

	return wrap("drag start", session.DragStart(nodeID, pointer))
}

// Drag follows the pointer with the lifted node.
func (c *Canvas) Drag(_ context.Context, sessionID, nodeID string, pointer models.Position) (*models.Node, error) {
	session, err := c.Session(sessionID)
	if err != nil {
		return nil, err
	}

	session.Drag(nodeID, pointer)

	node, ok := session.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	return node, nil
}

// DragEnd drops the lifted node.
func (c *Canvas) DragEnd(_ context.Context, sessionID, nodeID string) error {
	session, err := c.Session(sessionID)
	if err != nil {
		return err
	}

	session.DragEnd(nodeID)

	return nil
}

// Run executes the session pipeline once.
func (c *Canvas) Run(ctx context.Context, sessionID string) (*workflow.Result, error) {
	session, err := c.Session(sessionID)
	if err != nil {
		return nil, err
	}

	return c.executor.Run(ctx, session)
}

// Alert returns a copy of the session's active alert, or nil when there is none.
func (c *Canvas) Alert(_ context.Context, sessionID string) (*models.Alert, error) {
	session, err := c.Session(sessionID)
	if err != nil {
		return nil, err
	}

	alert, ok := session.Alert()
	if !ok {
		return nil, nil
	}

	return &alert, nil
}

// DismissAlert hides the session's alert banner.
func (c *Canvas) DismissAlert(_ context.Context, sessionID string) error {
	session, err := c.Session(sessionID)
	if err != nil {
		return err
	}

	session.DismissAlert()

	return nil
}

func (c *Canvas) HealthCheck(_ context.Context) (string, bool) {
	return fmt.Sprintf("%d active sessions", c.SessionCount()), true
}

func (c *Canvas) publish(ctx context.Context, sessionID string, event eventbus.Event) {
	if c.publisher == nil {
		return
	}

	if err := c.publisher.Publish(ctx, sessionID, event); err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish event", "type", event.GetType(), "error", err)
	}
}
