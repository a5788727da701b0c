// Package graph provides a label keyed directed graph with a greedy
// coloring primitive. The same structure backs both the control flow graph
// and the register interference graph; interference edges are simply added
// in both directions.
package graph

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Node is a single graph vertex.
type Node struct {
	label string
	// Data points back into the domain: a basic block for CFG nodes, a
	// virtual register for interference nodes. The graph does not own it.
	Data interface{}
	// Colors assigned by Color. Empty until a coloring succeeds.
	Colors []int
	// ColorsNeeded is the number of colors Color must assign to this node.
	ColorsNeeded int

	out map[string]*Node
	in  map[string]*Node
}

// Graph is a set of labelled nodes and directed edges.
type Graph struct {
	Name  string
	nodes map[string]*Node
	order []*Node // Insertion order, used for deterministic iteration and coloring tie-breaks.
}

// UncolorableError reports that no legal coloring exists for the requested
// range.
type UncolorableError struct {
	Label string // Label of the node that could not be colored.
}

// ---------------------
// ----- Functions -----
// ---------------------

// Error implements the error interface.
func (e *UncolorableError) Error() string {
	return fmt.Sprintf("graph is uncolorable: no color available for node %s", e.Label)
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{
		Name:  name,
		nodes: make(map[string]*Node),
	}
}

// Label returns the node's label.
func (n *Node) Label() string {
	return n.label
}

// Degree returns the number of distinct neighbours of n.
func (n *Node) Degree() int {
	count := len(n.out)
	for l1 := range n.in {
		if _, ok := n.out[l1]; !ok {
			count++
		}
	}
	return count
}

// Out returns the targets of edges leaving n in insertion-independent,
// label sorted order.
func (n *Node) Out() []*Node {
	out := make([]*Node, 0, len(n.out))
	for _, e1 := range n.out {
		out = append(out, e1)
	}
	slices.SortFunc(out, func(a, b *Node) int { return strings.Compare(a.label, b.label) })
	return out
}

// In returns the sources of edges entering n in label sorted order.
func (n *Node) In() []*Node {
	in := make([]*Node, 0, len(n.in))
	for _, e1 := range n.in {
		in = append(in, e1)
	}
	slices.SortFunc(in, func(a, b *Node) int { return strings.Compare(a.label, b.label) })
	return in
}

// neighbours returns every node adjacent to n regardless of direction.
func (n *Node) neighbours() []*Node {
	out := make([]*Node, 0, len(n.out)+len(n.in))
	for _, e1 := range n.out {
		out = append(out, e1)
	}
	for l1, e1 := range n.in {
		if _, ok := n.out[l1]; !ok {
			out = append(out, e1)
		}
	}
	return out
}

// AddNode inserts a node with the given label and returns it. Inserting an
// existing label returns the existing node.
func (g *Graph) AddNode(label string) *Node {
	if n, ok := g.nodes[label]; ok {
		return n
	}
	n := &Node{
		label:        label,
		ColorsNeeded: 1,
		out:          make(map[string]*Node),
		in:           make(map[string]*Node),
	}
	g.nodes[label] = n
	g.order = append(g.order, n)
	return n
}

// HasLabel reports whether a node with the given label exists.
func (g *Graph) HasLabel(label string) bool {
	_, ok := g.nodes[label]
	return ok
}

// Node returns the node with the given label, or <nil> if absent.
func (g *Graph) Node(label string) *Node {
	return g.nodes[label]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	return g.order
}

// Size returns the number of nodes.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Link adds an edge from one label to another. With undirected set, the
// reverse edge is added as well. Both labels must already exist.
func (g *Graph) Link(from, to string, undirected bool) {
	f, ok := g.nodes[from]
	if !ok {
		panic(fmt.Sprintf("graph %s: link from unknown node %s", g.Name, from))
	}
	t, ok := g.nodes[to]
	if !ok {
		panic(fmt.Sprintf("graph %s: link to unknown node %s", g.Name, to))
	}
	f.out[to] = t
	t.in[from] = f
	if undirected {
		t.out[from] = f
		f.in[to] = t
	}
}

// HasEdge reports whether an edge exists from one label to the other.
func (g *Graph) HasEdge(from, to string) bool {
	f, ok := g.nodes[from]
	if !ok {
		return false
	}
	_, ok = f.out[to]
	return ok
}

// Color assigns each node ColorsNeeded colors from the inclusive range
// [lo, hi] such that no two adjacent nodes share a color. Nodes are visited
// in order of descending degree, ties broken by insertion order. Returns an
// UncolorableError if some node cannot be assigned enough colors.
func (g *Graph) Color(lo, hi int) error {
	for _, e1 := range g.order {
		e1.Colors = e1.Colors[:0]
	}

	order := make([]*Node, len(g.order))
	copy(order, g.order)
	slices.SortStableFunc(order, func(a, b *Node) int { return b.Degree() - a.Degree() })

	for _, e1 := range order {
		taken := make(map[int]bool)
		for _, e2 := range e1.neighbours() {
			for _, c1 := range e2.Colors {
				taken[c1] = true
			}
		}
		for c1 := lo; c1 <= hi && len(e1.Colors) < e1.ColorsNeeded; c1++ {
			if !taken[c1] {
				e1.Colors = append(e1.Colors, c1)
			}
		}
		if len(e1.Colors) < e1.ColorsNeeded {
			return &UncolorableError{Label: e1.label}
		}
	}
	return nil
}
