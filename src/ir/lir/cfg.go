// cfg.go builds the control flow graph over a function's basic blocks.

package lir

import "cmmc/src/ir/graph"

// ---------------------
// ----- Constants -----
// ---------------------

// ExitLabel is the sentinel CFG node every function eventually reaches.
const ExitLabel = "exit"

// ---------------------
// ----- Functions -----
// ---------------------

// MakeCFG constructs the control flow graph of f from the predecessor sets
// wired by MakeBlocks. A block that unconditionally branches to itself is
// linked to the exit sentinel, pretending the infinite loop terminates so
// that dominator style algorithms over the graph stay well defined; if no
// block reaches the exit, the final block is linked to it.
func (f *Function) MakeCFG() *graph.Graph {
	cfg := graph.NewGraph("CFG for " + f.Name)

	// First pass: add all the nodes.
	for _, e1 := range f.Blocks {
		n := cfg.AddNode(e1.Label)
		n.Data = e1
	}
	cfg.AddNode(ExitLabel)

	exitLinked := false

	// Second pass: connect all the nodes.
	for _, e1 := range f.Blocks {
		for _, e2 := range sortedBlocks(e1.Predecessors) {
			if cfg.HasLabel(e2.Label) {
				cfg.Link(e2.Label, e1.Label, false)
			}
		}

		if len(e1.Instructions) > 0 {
			if jump, ok := e1.Instructions[len(e1.Instructions)-1].(*JumpInstruction); ok && jump.IsTerminal() {
				if target, ok := jump.Imm.(LabelImm); ok && string(target) == e1.Label {
					// The block unconditionally branches to itself: an
					// infinite loop. Pretend it reaches the exit.
					cfg.Link(e1.Label, ExitLabel, false)
					exitLinked = true
				}
			}
		}
	}

	if !exitLinked && len(f.Blocks) > 0 {
		// There may be an infinite loop without a self branching block.
		// Pretend the final block links to the exit node.
		cfg.Link(f.Blocks[len(f.Blocks)-1].Label, ExitLabel, false)
	}
	return cfg
}

// sortedBlocks returns the members of a block set in block index order.
func sortedBlocks(set map[*BasicBlock]struct{}) []*BasicBlock {
	out := make([]*BasicBlock, 0, len(set))
	for e1 := range set {
		out = append(out, e1)
	}
	for i1 := 1; i1 < len(out); i1++ {
		for i2 := i1; i2 > 0 && out[i2-1].Index > out[i2].Index; i2-- {
			out[i2-1], out[i2] = out[i2], out[i2-1]
		}
	}
	return out
}
