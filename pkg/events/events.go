// Package events defines the notifications emitted by canvas sessions.
package events

import (
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/google/uuid"
)

type EventType string

const Topic = "flowforge.canvas.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	NodeAddedEvent          EventType = "node.added"
	ConnectionCreatedEvent  EventType = "connection.created"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
}

// NewBaseEvent stamps a new event for a session.
func NewBaseEvent(eventType EventType, sessionID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
	}
}

type NodeAdded struct {
	BaseEvent

	NodeID   string          `json:"node_id"`
	NodeType models.NodeType `json:"node_type"`
}

func (e NodeAdded) GetType() EventType {
	return NodeAddedEvent
}

type ConnectionCreated struct {
	BaseEvent

	Source string `json:"source"`
	Target string `json:"target"`
}

func (e ConnectionCreated) GetType() EventType {
	return ConnectionCreatedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	OutputNodeID  string        `json:"output_node_id,omitempty"`
	OutputDropped bool          `json:"output_dropped"`
	Duration      time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	Kind     models.AlertKind `json:"kind"`
	Error    string           `json:"error"`
	Duration time.Duration    `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}
