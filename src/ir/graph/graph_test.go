package graph

import (
	"errors"
	"testing"
)

// TestLink verifies directed and undirected edge bookkeeping.
func TestLink(t *testing.T) {
	g := NewGraph("test")
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")
	g.Link("a", "b", false)
	g.Link("b", "c", true)

	if !g.HasEdge("a", "b") {
		t.Error("expected edge a -> b")
	}
	if g.HasEdge("b", "a") {
		t.Error("unexpected edge b -> a")
	}
	if !g.HasEdge("b", "c") || !g.HasEdge("c", "b") {
		t.Error("expected undirected edge b <-> c")
	}
	if got := g.Node("b").Degree(); got != 2 {
		t.Errorf("degree of b = %d, want 2", got)
	}
}

// TestColorTriangle verifies that a triangle needs exactly three colors and
// that adjacent nodes never share one.
func TestColorTriangle(t *testing.T) {
	g := NewGraph("triangle")
	for _, e1 := range []string{"a", "b", "c"} {
		g.AddNode(e1)
	}
	g.Link("a", "b", true)
	g.Link("b", "c", true)
	g.Link("a", "c", true)

	if err := g.Color(0, 1); err == nil {
		t.Fatal("expected a triangle to be uncolorable with two colors")
	} else {
		var uncolorable *UncolorableError
		if !errors.As(err, &uncolorable) {
			t.Fatalf("unexpected error type: %v", err)
		}
	}

	if err := g.Color(0, 2); err != nil {
		t.Fatalf("three colors should suffice: %s", err)
	}
	seen := make(map[int]bool)
	for _, e1 := range g.Nodes() {
		if len(e1.Colors) != 1 {
			t.Fatalf("node %s has %d colors, want 1", e1.Label(), len(e1.Colors))
		}
		if seen[e1.Colors[0]] {
			t.Errorf("color %d used twice in a triangle", e1.Colors[0])
		}
		seen[e1.Colors[0]] = true
	}
}

// TestColorRange verifies colors are drawn from the inclusive range.
func TestColorRange(t *testing.T) {
	g := NewGraph("range")
	g.AddNode("a")
	g.AddNode("b")
	g.Link("a", "b", true)
	if err := g.Color(39, 40); err != nil {
		t.Fatalf("coloring failed: %s", err)
	}
	for _, e1 := range g.Nodes() {
		if e1.Colors[0] < 39 || 40 < e1.Colors[0] {
			t.Errorf("node %s colored %d outside [39, 40]", e1.Label(), e1.Colors[0])
		}
	}
}

// TestColorsNeeded verifies multi-color assignments.
func TestColorsNeeded(t *testing.T) {
	g := NewGraph("multi")
	a := g.AddNode("a")
	a.ColorsNeeded = 2
	g.AddNode("b")
	g.Link("a", "b", true)

	if err := g.Color(0, 1); err == nil {
		t.Fatal("two needed colors plus a neighbour cannot fit in two colors")
	}
	if err := g.Color(0, 2); err != nil {
		t.Fatalf("three colors should suffice: %s", err)
	}
	if len(a.Colors) != 2 {
		t.Errorf("node a has %d colors, want 2", len(a.Colors))
	}
}

// TestIsolatedReuse verifies unconnected nodes share the lowest color.
func TestIsolatedReuse(t *testing.T) {
	g := NewGraph("isolated")
	g.AddNode("a")
	g.AddNode("b")
	if err := g.Color(5, 9); err != nil {
		t.Fatalf("coloring failed: %s", err)
	}
	if g.Node("a").Colors[0] != 5 || g.Node("b").Colors[0] != 5 {
		t.Error("isolated nodes should both take the lowest color")
	}
}
