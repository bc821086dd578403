package models

import "time"

// AlertKind tags the single active error of a session.
type AlertKind string

const (
	AlertKindInputMissing      AlertKind = "input_missing"
	AlertKindCredentialMissing AlertKind = "credential_missing"
	AlertKindRequestFailed     AlertKind = "request_failed"
	AlertKindGeneral           AlertKind = "general"
)

// NodeType returns the node type the failure is attributed to, or "" when the
// failure is not tied to a node.
func (k AlertKind) NodeType() NodeType {
	switch k {
	case AlertKindInputMissing:
		return NodeTypeInput
	case AlertKindCredentialMissing:
		return NodeTypeModel
	default:
		return ""
	}
}

// Alert is the dismissible banner shown for the last failed run.
// Dismissing hides the banner but keeps the node attribution.
type Alert struct {
	Kind     AlertKind `json:"kind"`
	Message  string    `json:"message"`
	NodeType NodeType  `json:"node_type,omitempty"`
	Visible  bool      `json:"visible"`
}

// Interaction is the transient pointer state of a session.
type Interaction struct {
	Connecting       bool   `json:"connecting"`
	ConnectionSource string `json:"connection_source,omitempty"`
	GuideLine        *Line  `json:"guide_line,omitempty"`
	DraggingNodeID   string `json:"dragging_node_id,omitempty"`
}

// RenderedConnection pairs a connection with its on-screen segment.
type RenderedConnection struct {
	Connection
	Line Line `json:"line"`
}

// Snapshot is a point-in-time copy of a canvas session.
type Snapshot struct {
	ID          string               `json:"id"`
	Nodes       []*Node              `json:"nodes"`
	Connections []Connection         `json:"connections"`
	Lines       []RenderedConnection `json:"lines"`
	Interaction Interaction          `json:"interaction"`
	Alert       *Alert               `json:"alert,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// HasError reports whether node should carry the error indicator.
func (s *Snapshot) HasError(node *Node) bool {
	return s.Alert != nil && s.Alert.NodeType != "" && s.Alert.NodeType == node.Type
}
