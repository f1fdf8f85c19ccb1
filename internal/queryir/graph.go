package queryir

import (
	"fmt"

	"github.com/roach88/flume/internal/ident"
)

// Graph owns a set of IR nodes. Membership is by node id; Add pulls in
// parents transitively so a graph seeded with its sinks is closed over
// data-flow edges. Insertion order is remembered to keep every walk over
// the graph deterministic.
type Graph struct {
	nodes map[ident.NodeID]Node
	order []ident.NodeID
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[ident.NodeID]Node)}
}

// Add registers the given nodes and, transitively, their parents.
// Idempotent by node id; nil nodes are ignored.
func (g *Graph) Add(nodes ...Node) {
	for _, n := range nodes {
		g.add(n)
	}
}

func (g *Graph) add(n Node) {
	if n == nil {
		return
	}
	if _, ok := g.nodes[n.ID()]; ok {
		return
	}
	// Register before descending so a malformed self-referential chain
	// cannot recurse forever.
	g.nodes[n.ID()] = n
	g.order = append(g.order, n.ID())
	for _, p := range n.Parents() {
		g.add(p)
	}
}

// Node returns the member with the given id.
func (g *Graph) Node(id ident.NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all members in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of member nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// DependencyOrder returns the members ordered parents-strictly-before-
// node: a post-order depth-first walk over parent edges, seeded by
// insertion order. This is the one topological utility in the module -
// the translation builder, flow classification, and graph rewriting all
// walk in this order. A cycle (impossible through the constructors, but
// this walker does not trust its input) is reported as an error naming a
// node on the cycle.
func (g *Graph) DependencyOrder() ([]Node, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[ident.NodeID]int, len(g.nodes))
	order := make([]Node, 0, len(g.nodes))

	var visit func(n Node) error
	visit = func(n Node) error {
		if n == nil {
			return nil
		}
		switch state[n.ID()] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle involving node %d (%s)", n.ID(), n.Kind())
		}
		state[n.ID()] = visiting
		for _, p := range n.Parents() {
			if err := visit(p); err != nil {
				return err
			}
		}
		state[n.ID()] = done
		order = append(order, n)
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return nil, err
		}
	}
	return order, nil
}
