package models

// PortSide is the edge of the node card a port sits on.
type PortSide string

const (
	PortSideInput  PortSide = "in"  // Left edge
	PortSideOutput PortSide = "out" // Right edge
)

// Fixed render offsets relative to a node's top-left corner.
var (
	lineSourceOffset  = Position{X: 256, Y: 40}
	lineTargetOffset  = Position{X: 0, Y: 40}
	guideSourceOffset = Position{X: 320, Y: 40}
	guidePointerShift = Position{X: 72, Y: 56}
)

// Line is a straight segment in canvas coordinates.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func lineBetween(a, b Position) Line {
	return Line{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y}
}

// ConnectionLine returns the rendered segment between the source's output port
// and the target's input port.
func ConnectionLine(source, target *Node) Line {
	return lineBetween(source.Position.Add(lineSourceOffset), target.Position.Add(lineTargetOffset))
}

// GuideLine returns the transient segment drawn while a connection is in
// progress, from the source port to the pointer.
func GuideLine(source *Node, pointer Position) Line {
	return lineBetween(source.Position.Add(guideSourceOffset), pointer.Sub(guidePointerShift))
}

// ParsePortID parses a port ID in format "{node_id}:{side}" into components.
func ParsePortID(portID string) (string, PortSide, bool) {
	for i := len(portID) - 1; i >= 0; i-- {
		if portID[i] == ':' {
			side := PortSide(portID[i+1:])
			if side != PortSideInput && side != PortSideOutput {
				return "", "", false
			}

			return portID[:i], side, true
		}
	}

	return "", "", false
}

// MakePortID creates a port ID from node ID and side.
func MakePortID(nodeID string, side PortSide) string {
	return nodeID + ":" + string(side)
}

// Ports returns the port ids exposed by the node.
func (n *Node) Ports() []string {
	ports := make([]string, 0, 2)
	if n.Type.HasInputPort() {
		ports = append(ports, MakePortID(n.ID, PortSideInput))
	}

	if n.Type.HasOutputPort() {
		ports = append(ports, MakePortID(n.ID, PortSideOutput))
	}

	return ports
}
