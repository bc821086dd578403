// Package graph exports a canvas snapshot as a Graphviz DOT document.
package graph

import (
	"fmt"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
	"github.com/dukex/flowforge/pkg/models"
)

const graphName = "canvas"

var shapes = map[models.NodeType]string{
	models.NodeTypeInput:  "parallelogram",
	models.NodeTypeModel:  "box",
	models.NodeTypeOutput: "note",
}

// DOT renders the nodes and the drawable connections of a snapshot.
// Dangling connections are omitted, as on the canvas.
func DOT(snapshot *models.Snapshot) (string, error) {
	g := gographviz.NewGraph()

	if err := g.SetName(graphName); err != nil {
		return "", err
	}

	if err := g.SetDir(true); err != nil {
		return "", err
	}

	if err := g.AddAttr(graphName, "rankdir", "LR"); err != nil {
		return "", err
	}

	for _, n := range snapshot.Nodes {
		attrs := map[string]string{
			"label": quote(label(n)),
			"shape": shapes[n.Type],
			"pos":   quote(fmt.Sprintf("%g,%g!", n.Position.X, n.Position.Y)),
		}

		if snapshot.HasError(n) {
			attrs["color"] = "red"
		}

		if err := g.AddNode(graphName, quote(n.ID), attrs); err != nil {
			return "", fmt.Errorf("add node %s: %w", n.ID, err)
		}
	}

	for _, l := range snapshot.Lines {
		if err := g.AddEdge(quote(l.Source), quote(l.Target), true, nil); err != nil {
			return "", fmt.Errorf("add edge %s -> %s: %w", l.Source, l.Target, err)
		}
	}

	return g.String(), nil
}

func label(n *models.Node) string {
	switch n.Type {
	case models.NodeTypeInput:
		return "Input"
	case models.NodeTypeModel:
		if m := n.Model(); m != nil && m.Model != "" {
			return "LLM\n" + m.Model
		}

		return "LLM"
	case models.NodeTypeOutput:
		return "Output"
	default:
		return string(n.Type)
	}
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

	return `"` + r.Replace(s) + `"`
}
