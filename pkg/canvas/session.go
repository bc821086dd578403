// Package canvas owns the in-memory state of one editor session: nodes,
// connections, pointer interaction and the active alert.
package canvas

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/google/uuid"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrNoOutputPort = errors.New("node has no output port")
)

// DefaultPosition is where every new node is placed.
var DefaultPosition = models.Position{X: 300, Y: 100}

// Catalog supplies default data and validates edits per node type.
type Catalog interface {
	Defaults(t models.NodeType) (models.NodeData, error)
	Validate(t models.NodeType, partial map[string]any) error
}

type dragState struct {
	nodeID string
	offset models.Position
}

// Session is a single-writer canvas. All mutations go through its methods and
// are serialised by an internal lock.
type Session struct {
	mu sync.RWMutex

	id        string
	createdAt time.Time
	catalog   Catalog
	newID     func(models.NodeType) string

	nodes       []*models.Node
	connections []models.Connection

	connectionSource string
	guide            *models.Line
	drag             *dragState
	alert            *models.Alert
}

// Option configures a Session.
type Option func(*Session)

// WithIDGenerator overrides node id generation.
func WithIDGenerator(fn func(models.NodeType) string) Option {
	return func(s *Session) {
		s.newID = fn
	}
}

// NewSession creates an empty canvas.
func NewSession(id string, catalog Catalog, opts ...Option) *Session {
	s := &Session{
		id:          id,
		createdAt:   time.Now().UTC(),
		catalog:     catalog,
		newID:       defaultNodeID,
		nodes:       []*models.Node{},
		connections: []models.Connection{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func defaultNodeID(t models.NodeType) string {
	return string(t) + "-" + uuid.New().String()
}

func (s *Session) ID() string {
	return s.id
}

// AddNode appends a node of type t at the default position with the type's
// default data.
func (s *Session) AddNode(t models.NodeType) (*models.Node, error) {
	data, err := s.catalog.Defaults(t)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := &models.Node{
		ID:       s.newID(t),
		Type:     t,
		Position: DefaultPosition,
		Data:     data,
	}
	s.nodes = append(s.nodes, node)

	return node.Clone(), nil
}

// UpdateNodePosition moves a node. It reports false when id is unknown.
func (s *Session) UpdateNodePosition(id string, pos models.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.moveLocked(id, pos)
}

func (s *Session) moveLocked(id string, pos models.Position) bool {
	node := s.findLocked(id)
	if node == nil {
		return false
	}

	node.Position = pos

	return true
}

// UpdateNodeData shallow-merges partial into the node data. Any edit clears the
// active alert, including when the edit itself is rejected.
func (s *Session) UpdateNodeData(id string, partial map[string]any) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alert = nil

	node := s.findLocked(id)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	if err := s.catalog.Validate(node.Type, partial); err != nil {
		return nil, err
	}

	merged, err := models.MergeData(node.Data, partial)
	if err != nil {
		return nil, err
	}

	node.Data = merged

	return node.Clone(), nil
}

// SetOutput writes the completion text into an Output node.
func (s *Session) SetOutput(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.findLocked(id)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	out := node.Output()
	if out == nil {
		return fmt.Errorf("node %s is not an output node", id)
	}

	out.Output = text

	return nil
}

// Node returns a copy of the node with the given id.
func (s *Session) Node(id string) (*models.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.findLocked(id)
	if node == nil {
		return nil, false
	}

	return node.Clone(), true
}

// Nodes returns copies of all nodes in insertion order.
func (s *Session) Nodes() []*models.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cloneNodesLocked()
}

func (s *Session) cloneNodesLocked() []*models.Node {
	nodes := make([]*models.Node, len(s.nodes))
	for i, n := range s.nodes {
		nodes[i] = n.Clone()
	}

	return nodes
}

func (s *Session) findLocked(id string) *models.Node {
	for _, n := range s.nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// Snapshot returns a deep copy of the session state with connection lines.
func (s *Session) Snapshot() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &models.Snapshot{
		ID:          s.id,
		Nodes:       s.cloneNodesLocked(),
		Connections: append([]models.Connection{}, s.connections...),
		Lines:       s.linesLocked(),
		CreatedAt:   s.createdAt,
		Interaction: models.Interaction{
			Connecting:       s.connectionSource != "",
			ConnectionSource: s.connectionSource,
		},
	}

	if s.guide != nil {
		g := *s.guide
		snap.Interaction.GuideLine = &g
	}

	if s.drag != nil {
		snap.Interaction.DraggingNodeID = s.drag.nodeID
	}

	if s.alert != nil {
		a := *s.alert
		snap.Alert = &a
	}

	return snap
}

// linesLocked renders every connection whose endpoints both exist.
func (s *Session) linesLocked() []models.RenderedConnection {
	lines := make([]models.RenderedConnection, 0, len(s.connections))

	for _, c := range s.connections {
		source := s.findLocked(c.Source)
		target := s.findLocked(c.Target)

		if source == nil || target == nil {
			continue
		}

		lines = append(lines, models.RenderedConnection{
			Connection: c,
			Line:       models.ConnectionLine(source, target),
		})
	}

	return lines
}
