// Tests for basic block formation, control flow graph construction,
// liveness and the instruction read/write contracts.

package lir

import (
	"testing"

	"cmmc/src/ir/ast"
)

// loopFunction lowers a function with a loop: a variable declared before
// the loop and read inside it, so it is live around the back edge.
func loopFunction(t *testing.T) *Function {
	t.Helper()
	p := mustProgram(t, fnNode("f", ast.New(ast.S64), nil,
		ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.S64), ast.Number(3)),
		ast.New(ast.WHILE, ast.Ident("x"),
			ast.New(ast.BLOCK,
				ast.New(ast.COLON, ast.Ident("y"), ast.New(ast.S64), ast.Ident("x")),
			),
		),
		ast.New(ast.RETURN, ast.Ident("x")),
	))
	return p.Functions["f"]
}

// TestBlockFormation verifies blocks close on labels and terminators and
// that every instruction lands in exactly one block.
func TestBlockFormation(t *testing.T) {
	f := loopFunction(t)
	if len(f.Blocks) < 4 {
		t.Fatalf("expected at least 4 blocks, got %d", len(f.Blocks))
	}
	total := 0
	for i1, e1 := range f.Blocks {
		if e1.Index != i1 {
			t.Errorf("block %s has index %d, want %d", e1.Label, e1.Index, i1)
		}
		total += len(e1.Instructions)
		for i2, e2 := range e1.Instructions {
			if _, ok := e2.(*Label); ok && i2 != 0 {
				t.Errorf("label mid-block in %s", e1.Label)
			}
			if e2.IsTerminal() && i2 != len(e1.Instructions)-1 {
				t.Errorf("terminator mid-block in %s", e1.Label)
			}
		}
	}
	if total != len(f.Instructions) {
		t.Errorf("blocks hold %d instructions, function has %d", total, len(f.Instructions))
	}
}

// TestBlockEdgeConsistency verifies predecessor and successor sets mirror
// each other.
func TestBlockEdgeConsistency(t *testing.T) {
	f := loopFunction(t)
	for _, e1 := range f.Blocks {
		for e2 := range e1.Successors {
			if _, ok := e2.Predecessors[e1]; !ok {
				t.Errorf("%s -> %s has no matching predecessor entry", e1.Label, e2.Label)
			}
		}
		for e2 := range e1.Predecessors {
			if _, ok := e2.Successors[e1]; !ok {
				t.Errorf("%s <- %s has no matching successor entry", e1.Label, e2.Label)
			}
		}
	}
}

// TestCFGMirrorsBlocks verifies every CFG edge corresponds to a block edge
// and every block edge appears in the CFG.
func TestCFGMirrorsBlocks(t *testing.T) {
	f := loopFunction(t)
	cfg := f.MakeCFG()
	for _, e1 := range f.Blocks {
		if !cfg.HasLabel(e1.Label) {
			t.Fatalf("block %s missing from CFG", e1.Label)
		}
		for e2 := range e1.Successors {
			if !cfg.HasEdge(e1.Label, e2.Label) {
				t.Errorf("block edge %s -> %s missing from CFG", e1.Label, e2.Label)
			}
		}
	}
	for _, e1 := range cfg.Nodes() {
		if e1.Label() == ExitLabel {
			continue
		}
		block := e1.Data.(*BasicBlock)
		for _, e2 := range e1.Out() {
			if e2.Label() == ExitLabel {
				continue
			}
			if _, ok := block.Successors[e2.Data.(*BasicBlock)]; !ok {
				t.Errorf("CFG edge %s -> %s has no block edge", e1.Label(), e2.Label())
			}
		}
	}
	if !cfg.HasLabel(ExitLabel) {
		t.Error("CFG has no exit sentinel")
	}
}

// TestCFGExitFallback verifies some block always links to the exit
// sentinel, and that without a self-branching block the final block is the
// one linked.
func TestCFGExitFallback(t *testing.T) {
	f := loopFunction(t)
	cfg := f.MakeCFG()
	if len(cfg.Node(ExitLabel).In()) == 0 {
		t.Error("no block links to the exit sentinel")
	}

	// The loop head above branches to itself; a function without such a
	// block takes the fallback.
	g := mustProgram(t, fnNode("g", ast.New(ast.VOID), nil)).Functions["g"]
	last := g.Blocks[len(g.Blocks)-1].Label
	if !g.MakeCFG().HasEdge(last, ExitLabel) {
		t.Errorf("final block %s should link to the exit sentinel", last)
	}
}

// TestCFGSelfLoop verifies a block that unconditionally branches to itself
// is linked to the exit sentinel.
func TestCFGSelfLoop(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.VOID), nil))
	f := p.Functions["f"]

	// Append an explicit infinite loop block.
	f.Instructions = append(f.Instructions,
		NewLabel(".f$loop"),
		NewJump(LabelImm(".f$loop"), false),
	)
	f.MakeBlocks()
	cfg := f.MakeCFG()
	if !cfg.HasEdge(".f$loop", ExitLabel) {
		t.Error("self-looping block should link to the exit sentinel")
	}
}

// TestLivenessAcrossLoop verifies a variable read inside a loop is live-in
// at the loop's blocks.
func TestLivenessAcrossLoop(t *testing.T) {
	f := loopFunction(t)
	x := f.Variables["x"].VReg()

	liveSomewhere := false
	for _, e1 := range f.Blocks {
		if _, ok := e1.LiveIn[x]; ok {
			liveSomewhere = true
		}
	}
	if !liveSomewhere {
		t.Fatal("x should be live-in somewhere")
	}

	// The loop condition block reads x, so x must be live-in there.
	for _, e1 := range f.Blocks {
		if e1.Label == ".f$0s" {
			if _, ok := e1.LiveIn[x]; !ok {
				t.Error("x should be live-in at the loop head")
			}
		}
	}
}

// TestLivenessFixedPoint verifies one more iteration changes nothing.
func TestLivenessFixedPoint(t *testing.T) {
	f := loopFunction(t)
	before := make(map[*BasicBlock][2]VregSet)
	for _, e1 := range f.Blocks {
		in := make(VregSet, len(e1.LiveIn))
		for e2 := range e1.LiveIn {
			in[e2] = struct{}{}
		}
		out := make(VregSet, len(e1.LiveOut))
		for e2 := range e1.LiveOut {
			out[e2] = struct{}{}
		}
		before[e1] = [2]VregSet{in, out}
	}
	f.ComputeLiveness()
	for _, e1 := range f.Blocks {
		if !equalSets(before[e1][0], e1.LiveIn) || !equalSets(before[e1][1], e1.LiveOut) {
			t.Errorf("liveness of %s not at a fixed point", e1.Label)
		}
	}
}

// TestLivenessExcludesPrecolored verifies precolored registers and globals
// never enter live sets.
func TestLivenessExcludesPrecolored(t *testing.T) {
	f := loopFunction(t)
	for _, e1 := range f.Blocks {
		for e2 := range e1.LiveIn {
			if e2.Precolored() || e2.IsGlobal() {
				t.Errorf("%s is precolored or global but live-in at %s", e2, e1.Label)
			}
		}
		for e2 := range e1.LiveOut {
			if e2.Precolored() || e2.IsGlobal() {
				t.Errorf("%s is precolored or global but live-out at %s", e2, e1.Label)
			}
		}
	}
}

// TestReadWriteContracts verifies CanReplaceRead and CanReplaceWritten
// agree with GetRead and GetWritten across instruction shapes.
func TestReadWriteContracts(t *testing.T) {
	f := loopFunction(t)
	a, b, c := f.NewVar(nil), f.NewVar(nil), f.NewVar(nil)
	instructions := []Instruction{
		NewMove(a, b),
		NewBinaryR("+", a, b, c),
		NewBinaryI("&", a, b, IntImm(255)),
		NewInverseI("/", a, b, IntImm(10)),
		NewUnaryR('!', a, b),
		NewMultR(a, b, c),
		NewMultI(a, b, IntImm(3)),
		NewComparisonR(Lt, a, b, c, false),
		NewSetI(a, IntImm(1)),
		NewLuiI(a, IntImm(1)),
		NewLoadR(a, b, 8),
		NewStoreR(a, b, 8),
		NewLoadI(a, LabelImm("g"), 8),
		NewStoreI(a, LabelImm("g"), 8),
		NewStackPush(a),
		NewStackPop(a),
		NewStackStore(a, 16),
		NewStackLoad(a, 16),
		NewJump(LabelImm("x"), false),
		NewJumpConditional(LabelImm("x"), a),
		NewJumpRegister(a, false),
		NewJumpRegisterConditional(a, b, false),
		NewSext(a, b, 8),
		NewSelect(a, b, c, Positive),
		NewLoadIndirectI(a, LabelImm("g"), 8),
		NewCopyR(a, b, 8),
		NewSizedStackPush(a, IntImm(8)),
		NewSizedStackPop(a, IntImm(8)),
		NewPrintR(a, PrintDec),
		NewSystemR("int", a),
		NewSystemSave("time", a),
		NewTranslateAddressR(a, b),
		NewQueryR(a, QueryMemory),
		NewSleepR(a),
		NewLabel("x"),
		NewComment("x"),
		&Nop{},
	}
	for _, e1 := range instructions {
		reads := make(map[*VirtualRegister]bool)
		for _, e2 := range e1.GetRead() {
			reads[e2] = true
		}
		writes := make(map[*VirtualRegister]bool)
		for _, e2 := range e1.GetWritten() {
			writes[e2] = true
		}
		for _, e2 := range []*VirtualRegister{a, b, c} {
			if e1.CanReplaceRead(e2) != reads[e2] {
				t.Errorf("%s: CanReplaceRead(%s) = %t, GetRead says %t",
					e1.Strings()[0], e2, e1.CanReplaceRead(e2), reads[e2])
			}
			if e1.CanReplaceWritten(e2) != writes[e2] {
				t.Errorf("%s: CanReplaceWritten(%s) = %t, GetWritten says %t",
					e1.Strings()[0], e2, e1.CanReplaceWritten(e2), writes[e2])
			}
			if e1.DoesRead(e2) != reads[e2] {
				t.Errorf("%s: DoesRead(%s) disagrees with GetRead", e1.Strings()[0], e2)
			}
			if e1.DoesWrite(e2) != writes[e2] {
				t.Errorf("%s: DoesWrite(%s) disagrees with GetWritten", e1.Strings()[0], e2)
			}
		}
	}
}

// TestReplaceRead verifies operand substitution rewrites every occurrence.
func TestReplaceRead(t *testing.T) {
	f := loopFunction(t)
	a, b, c := f.NewVar(nil), f.NewVar(nil), f.NewVar(nil)
	add := NewBinaryR("+", a, a, b)
	if !add.ReplaceRead(a, c) {
		t.Fatal("ReplaceRead should succeed")
	}
	if add.LeftSource != c || add.RightSource != c {
		t.Error("both source occurrences should be replaced")
	}
	if add.ReplaceRead(a, c) {
		t.Error("ReplaceRead of an absent register should fail")
	}
	if !add.ReplaceWritten(b, c) {
		t.Error("ReplaceWritten should succeed")
	}
}

// TestSpillRewrite verifies a spill surrounds every access with a load or
// store of a fresh short-lived register.
func TestSpillRewrite(t *testing.T) {
	f := loopFunction(t)
	x := f.Variables["x"].VReg()

	readers, writers := 0, 0
	for _, e1 := range f.Instructions {
		if e1.DoesRead(x) {
			readers++
		}
		if e1.DoesWrite(x) {
			writers++
		}
	}
	if readers == 0 || writers == 0 {
		t.Fatalf("x should be read and written (%d readers, %d writers)", readers, writers)
	}

	if !f.Spill(x) {
		t.Fatal("Spill should succeed")
	}
	if f.Spill(x) {
		t.Error("a second spill of the same register should refuse")
	}

	loads, stores := 0, 0
	for _, e1 := range f.Instructions {
		if e1.DoesRead(x) || e1.DoesWrite(x) {
			t.Error("spilled register still referenced")
		}
		switch inst := e1.(type) {
		case *StackLoadInstruction:
			loads++
			if !inst.Destination.NoSpill {
				t.Error("spill load should target a no-spill register")
			}
		case *StackStoreInstruction:
			stores++
			if !inst.LeftSource.NoSpill {
				t.Error("spill store should source a no-spill register")
			}
		}
	}
	if loads != readers || stores != writers {
		t.Errorf("spill produced %d loads and %d stores, want %d and %d",
			loads, stores, readers, writers)
	}

	// The rewrite preserves the block structure contract after rebuilding.
	splits := f.SplitBlocks()
	if splits == 0 {
		t.Error("spilling a loop variable should split at least one block")
	}
	f.MakeBlocks()
	f.MakeCFG()
	f.ComputeLiveness()
}
