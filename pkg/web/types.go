package web

import (
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/workflow"
)

// CreateNodeRequest represents the request body for adding a node from the palette.
type CreateNodeRequest struct {
	Type string `json:"type" validate:"required,oneof=input llm output"`
}

// PointerRequest carries a pointer or node position in canvas coordinates.
// Any value is accepted: nodes may leave the visible canvas.
type PointerRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (r PointerRequest) Position() models.Position {
	return models.Position{X: r.X, Y: r.Y}
}

// ConnectionRequest names the node whose port was clicked.
type ConnectionRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

// ConnectionResponse reports the outcome of the second click.
type ConnectionResponse struct {
	Created    bool               `json:"created"`
	Connection *models.Connection `json:"connection,omitempty"`
}

// GuideLineResponse is returned for pointer moves while connecting.
type GuideLineResponse struct {
	Connecting bool         `json:"connecting"`
	GuideLine  *models.Line `json:"guide_line,omitempty"`
}

// RunResponse is returned for a successful run.
type RunResponse struct {
	Result  *workflow.Result `json:"result"`
	Session SessionResponse  `json:"session"`
}

// NodeResponse represents a node as rendered by the editor. The API key of a
// Model node is never echoed; APIKeySet tells whether one is stored.
type NodeResponse struct {
	ID        string          `json:"id"`
	Type      models.NodeType `json:"type"`
	Position  models.Position `json:"position"`
	Data      models.NodeData `json:"data"`
	Ports     []string        `json:"ports"`
	HasError  bool            `json:"has_error"`
	APIKeySet bool            `json:"api_key_set,omitempty"`
}

// TransformNodeResponse decorates a node with its ports and error indicator.
func TransformNodeResponse(node *models.Node, alert *models.Alert) NodeResponse {
	resp := NodeResponse{
		ID:       node.ID,
		Type:     node.Type,
		Position: node.Position,
		Data:     node.Data,
		Ports:    node.Ports(),
		HasError: alert != nil && alert.NodeType != "" && alert.NodeType == node.Type,
	}

	if m := node.Model(); m != nil {
		redacted := *m
		redacted.APIKey = ""

		resp.Data = &redacted
		resp.APIKeySet = m.APIKey != ""
	}

	return resp
}

// SessionResponse is a snapshot with its nodes rendered as NodeResponse.
type SessionResponse struct {
	ID          string                      `json:"id"`
	Nodes       []NodeResponse              `json:"nodes"`
	Connections []models.Connection         `json:"connections"`
	Lines       []models.RenderedConnection `json:"lines"`
	Interaction models.Interaction          `json:"interaction"`
	Alert       *models.Alert               `json:"alert,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
}

func TransformSessionResponse(snapshot *models.Snapshot) SessionResponse {
	nodes := make([]NodeResponse, 0, len(snapshot.Nodes))
	for _, n := range snapshot.Nodes {
		nodes = append(nodes, TransformNodeResponse(n, snapshot.Alert))
	}

	return SessionResponse{
		ID:          snapshot.ID,
		Nodes:       nodes,
		Connections: snapshot.Connections,
		Lines:       snapshot.Lines,
		Interaction: snapshot.Interaction,
		Alert:       snapshot.Alert,
		CreatedAt:   snapshot.CreatedAt,
	}
}
