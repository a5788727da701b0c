// block.go defines basic blocks and their cached read, written and live
// variable sets.

package lir

import (
	"strings"

	"golang.org/x/exp/slices"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// VregSet is a set of virtual registers.
type VregSet map[*VirtualRegister]struct{}

// BasicBlock is a maximal straight-line instruction sequence with a single
// entry and a single exit. Blocks are owned by their function; predecessor
// and successor references do not imply ownership and are rebuilt from the
// instruction list whenever it changes.
type BasicBlock struct {
	Function     *Function
	Label        string
	Instructions []Instruction
	Predecessors map[*BasicBlock]struct{}
	Successors   map[*BasicBlock]struct{}
	LiveIn       VregSet
	LiveOut      VregSet
	Index        int

	readCache    VregSet
	writtenCache VregSet
}

// ---------------------
// ----- Functions -----
// ---------------------

// newBasicBlock creates an empty block with the given label.
func newBasicBlock(f *Function, label string, index int) *BasicBlock {
	return &BasicBlock{
		Function:     f,
		Label:        label,
		Predecessors: make(map[*BasicBlock]struct{}),
		Successors:   make(map[*BasicBlock]struct{}),
		LiveIn:       make(VregSet),
		LiveOut:      make(VregSet),
		Index:        index,
		readCache:    make(VregSet),
		writtenCache: make(VregSet),
	}
}

// tracked reports whether v participates in liveness: globals and
// precolored registers never enter the live sets.
func tracked(v *VirtualRegister) bool {
	return v != nil && !v.IsGlobal() && v.Reg < 0
}

// CacheReadWritten refreshes the block's read and written sets from its
// instruction list. A variable counts as read by the block only if some
// instruction reads it before any instruction writes it.
func (b *BasicBlock) CacheReadWritten() {
	b.readCache = make(VregSet)
	b.writtenCache = make(VregSet)
	for _, e1 := range b.Instructions {
		for _, e2 := range e1.GetRead() {
			if !tracked(e2) {
				continue
			}
			if _, written := b.writtenCache[e2]; !written {
				b.readCache[e2] = struct{}{}
			}
		}
		for _, e2 := range e1.GetWritten() {
			if tracked(e2) {
				b.writtenCache[e2] = struct{}{}
			}
		}
	}
}

// Read returns the cached set of variables read before written.
func (b *BasicBlock) Read() VregSet {
	return b.readCache
}

// Written returns the cached set of variables written by the block.
func (b *BasicBlock) Written() VregSet {
	return b.writtenCache
}

// GatherVariables returns every allocatable variable referenced by the
// block's instructions, in ascending id order.
func (b *BasicBlock) GatherVariables() []*VirtualRegister {
	set := make(VregSet)
	for _, e1 := range b.Instructions {
		for _, e2 := range e1.GetRead() {
			if tracked(e2) {
				set[e2] = struct{}{}
			}
		}
		for _, e2 := range e1.GetWritten() {
			if tracked(e2) {
				set[e2] = struct{}{}
			}
		}
	}
	return sortedVregs(set)
}

// String renders the block's label and instructions, one per line.
func (b *BasicBlock) String() string {
	sb := strings.Builder{}
	sb.WriteString(b.Label)
	sb.WriteString(":\n")
	for _, e1 := range b.Instructions {
		for _, e2 := range e1.Strings() {
			sb.WriteRune('\t')
			sb.WriteString(e2)
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}

// sortedVregs returns the members of set in ascending id order, making map
// iteration deterministic.
func sortedVregs(set VregSet) []*VirtualRegister {
	out := make([]*VirtualRegister, 0, len(set))
	for e1 := range set {
		out = append(out, e1)
	}
	slices.SortFunc(out, func(a, b *VirtualRegister) int { return a.ID - b.ID })
	return out
}

// equalSets reports whether two virtual register sets hold the same
// members.
func equalSets(a, b VregSet) bool {
	if len(a) != len(b) {
		return false
	}
	for e1 := range a {
		if _, ok := b[e1]; !ok {
			return false
		}
	}
	return true
}
