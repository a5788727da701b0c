// Package regalloc assigns architectural registers to virtual registers by
// graph coloring. When the interference graph cannot be colored with the
// general purpose bank, the most live variable is spilled to the stack and
// the attempt repeats against recomputed liveness.
package regalloc

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"cmmc/src/ir/graph"
	"cmmc/src/ir/lir"
	"cmmc/src/ir/why"
	"cmmc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Result reports the outcome of one allocation attempt.
type Result int

// Attempt outcomes.
const (
	Spilled Result = iota + 1
	NotSpilled
	Success
)

// ColoringAllocator allocates registers for one function.
type ColoringAllocator struct {
	// Interference is the interference graph of the most recent attempt.
	Interference *graph.Graph

	// Lo and Hi bound the inclusive color range. They default to the
	// general purpose bank; narrowing them raises register pressure.
	Lo, Hi int

	function *lir.Function
	// triedIDs holds ids of variables already chosen as spill candidates,
	// so a failed candidate is never selected twice.
	triedIDs map[int]bool

	spillCount int
	attempts   int

	lastSpill        *lir.VirtualRegister
	lastSpillAttempt *lir.VirtualRegister
}

// AllocationError reports that the allocator exceeded its retry ceiling.
type AllocationError struct {
	Function string
	Attempts int
}

// ---------------------
// ----- Functions -----
// ---------------------

// Error implements the error interface.
func (e *AllocationError) Error() string {
	return fmt.Sprintf("register allocation for %s failed after %d attempt(s)", e.Function, e.Attempts)
}

// String renders an attempt outcome.
func (r Result) String() string {
	switch r {
	case Spilled:
		return "Spilled"
	case NotSpilled:
		return "NotSpilled"
	case Success:
		return "Success"
	}
	return "?"
}

// NewColoringAllocator creates an allocator for f. The function's blocks,
// CFG and liveness must already be built.
func NewColoringAllocator(f *lir.Function) *ColoringAllocator {
	return &ColoringAllocator{
		Lo:       why.TemporaryOffset,
		Hi:       why.SavedOffset + why.SavedCount - 1,
		function: f,
		triedIDs: make(map[int]bool),
	}
}

// SpillCount returns the number of successful spills so far.
func (a *ColoringAllocator) SpillCount() int {
	return a.spillCount
}

// Attempts returns the number of attempts made so far.
func (a *ColoringAllocator) Attempts() int {
	return a.attempts
}

// Attempt makes one allocation attempt. If the interference graph colors
// with the general purpose bank, the colors are written into the variables
// and Success is returned. Otherwise the most live variable is spilled,
// blocks are split around the spill accesses, liveness is recomputed and
// Spilled is returned; NotSpilled means the candidate refused to spill.
func (a *ColoringAllocator) Attempt() (Result, error) {
	a.attempts++

	a.makeInterferenceGraph()
	err := a.Interference.Color(a.Lo, a.Hi)
	if err != nil {
		if _, uncolorable := err.(*graph.UncolorableError); !uncolorable {
			return 0, err
		}

		toSpill, err := a.selectMostLive()
		if err != nil {
			return 0, err
		}
		a.triedIDs[toSpill.ID] = true
		a.lastSpillAttempt = toSpill

		if !a.function.Spill(toSpill) {
			return NotSpilled, nil
		}
		a.lastSpill = toSpill
		a.spillCount++

		a.function.SplitBlocks()
		a.function.MakeBlocks()
		a.function.MakeCFG()
		a.function.ComputeLiveness()
		return Spilled, nil
	}

	for _, e1 := range a.Interference.Nodes() {
		v := e1.Data.(*lir.VirtualRegister)
		if v.Reg < 0 {
			v.Reg = e1.Colors[0]
		}
	}
	return Success, nil
}

// makeInterferenceGraph rebuilds the interference graph: one node per
// uncolored variable, and an undirected edge between every pair of
// variables that are simultaneously live in, live out, defined or used in
// the same block.
func (a *ColoringAllocator) makeInterferenceGraph() {
	a.Interference = graph.NewGraph("interference")

	for _, e1 := range a.function.VirtualRegisters() {
		if e1.Reg >= 0 || e1.IsGlobal() {
			continue
		}
		n := a.Interference.AddNode(strconv.Itoa(e1.ID))
		n.Data = e1
		n.ColorsNeeded = 1
	}

	for _, e1 := range a.function.Blocks {
		members := make(map[*lir.VirtualRegister]struct{})
		for e2 := range e1.LiveIn {
			members[e2] = struct{}{}
		}
		for e2 := range e1.LiveOut {
			members[e2] = struct{}{}
		}
		for _, e2 := range e1.GatherVariables() {
			members[e2] = struct{}{}
		}

		vars := make([]*lir.VirtualRegister, 0, len(members))
		for e2 := range members {
			vars = append(vars, e2)
		}
		for i1 := 1; i1 < len(vars); i1++ {
			for i2 := i1; i2 > 0 && vars[i2-1].ID > vars[i2].ID; i2-- {
				vars[i2-1], vars[i2] = vars[i2], vars[i2-1]
			}
		}

		for i1 := 0; i1 < len(vars); i1++ {
			for i2 := i1 + 1; i2 < len(vars); i2++ {
				left, right := strconv.Itoa(vars[i1].ID), strconv.Itoa(vars[i2].ID)
				if a.Interference.HasLabel(left) && a.Interference.HasLabel(right) {
					a.Interference.Link(left, right, true)
				}
			}
		}
	}
}

// selectMostLive chooses the spill candidate: among spillable variables not
// yet tried, the one live across the most blocks, ties broken by lowest id.
func (a *ColoringAllocator) selectMostLive() (*lir.VirtualRegister, error) {
	var out *lir.VirtualRegister
	highest := -1
	for _, e1 := range a.function.VirtualRegisters() {
		if !a.function.CanSpill(e1) || a.triedIDs[e1.ID] {
			continue
		}
		sum := a.function.LiveInBlocks(e1) + a.function.LiveOutBlocks(e1)
		if highest < sum {
			highest = sum
			out = e1
		}
	}
	if out == nil {
		return nil, errors.Errorf("couldn't select a spill candidate in %s", a.function.Name)
	}
	return out, nil
}

// Allocate drives the allocator for one function until Success, giving up
// after the configured attempt ceiling. Returns the number of spills.
func Allocate(opt util.Options, f *lir.Function) (int, error) {
	a := NewColoringAllocator(f)
	ceiling := opt.MaxSpill
	if ceiling < 1 {
		ceiling = util.DefaultMaxSpill
	}
	for i1 := 0; i1 < ceiling; i1++ {
		result, err := a.Attempt()
		if err != nil {
			return a.spillCount, err
		}
		if opt.Verbose {
			fmt.Printf("%s: allocation attempt %d: %s\n", f.Name, a.attempts, result)
		}
		if result == Success {
			return a.spillCount, nil
		}
	}
	return a.spillCount, &AllocationError{Function: f.Name, Attempts: a.attempts}
}
