package canvas

import (
	"fmt"

	"github.com/dukex/flowforge/pkg/models"
)

// StartConnection begins the two-click protocol from the node's output port.
func (s *Session) StartConnection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.findLocked(id)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	if !node.Type.HasOutputPort() {
		return fmt.Errorf("%w: %s", ErrNoOutputPort, id)
	}

	s.connectionSource = id
	s.guide = nil

	return nil
}

// PointerMove recomputes the guide line while a connection is in progress.
// It returns nil when idle.
func (s *Session) PointerMove(pointer models.Position) *models.Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connectionSource == "" {
		return nil
	}

	source := s.findLocked(s.connectionSource)
	if source == nil {
		return nil
	}

	line := models.GuideLine(source, pointer)
	s.guide = &line

	return &line
}

// EndConnection completes the protocol on the node's input port. A connection
// is appended only when one is in progress and id differs from the source;
// duplicates and type mismatches are accepted. The session always returns to
// idle.
func (s *Session) EndConnection(id string) (*models.Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := s.connectionSource

	s.connectionSource = ""
	s.guide = nil

	if source == "" || source == id {
		return nil, false
	}

	conn := models.Connection{Source: source, Target: id}
	s.connections = append(s.connections, conn)

	return &conn, true
}

// CancelConnection abandons a connection in progress, if any.
func (s *Session) CancelConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connectionSource = ""
	s.guide = nil
}

// Connections returns a copy of the connection list.
func (s *Session) Connections() []models.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Connection{}, s.connections...)
}

// DragStart lifts a node and records the pointer offset from its top-left corner.
func (s *Session) DragStart(id string, pointer models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.findLocked(id)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	s.drag = &dragState{nodeID: id, offset: pointer.Sub(node.Position)}

	return nil
}

// Drag moves the lifted node so it stays under the pointer. Events for a node
// that is not lifted, and the zero-x event browsers emit when a drag ends,
// are ignored. It reports whether the node moved.
func (s *Session) Drag(id string, pointer models.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag == nil || s.drag.nodeID != id || pointer.X == 0 {
		return false
	}

	return s.moveLocked(id, pointer.Sub(s.drag.offset))
}

// DragEnd drops the lifted node.
func (s *Session) DragEnd(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag != nil && s.drag.nodeID == id {
		s.drag = nil
	}
}

// RaiseAlert replaces the active alert and shows the banner.
func (s *Session) RaiseAlert(kind models.AlertKind, message string) models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alert = &models.Alert{
		Kind:     kind,
		Message:  message,
		NodeType: kind.NodeType(),
		Visible:  true,
	}

	return *s.alert
}

// ClearAlert drops the active alert.
func (s *Session) ClearAlert() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alert = nil
}

// DismissAlert hides the banner. The node attribution stays until the next
// edit or run.
func (s *Session) DismissAlert() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.alert != nil {
		s.alert.Visible = false
	}
}

// Alert returns a copy of the active alert, if any.
func (s *Session) Alert() (models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.alert == nil {
		return models.Alert{}, false
	}

	return *s.alert, true
}
