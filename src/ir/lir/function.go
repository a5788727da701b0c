// function.go defines functions and the lowering of their statements into
// Why instructions: declarations, returns, conditionals, loops, calls,
// the stack frame and the prologue and epilogue.

package lir

import (
	"fmt"

	"github.com/pkg/errors"

	"cmmc/src/ir/ast"
	"cmmc/src/ir/types"
	"cmmc/src/ir/why"
	"cmmc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Function holds one function's source node, its variables, its linear
// instruction list and the basic blocks rebuilt from that list.
type Function struct {
	Name       string
	ReturnType types.Type
	Arguments  []string
	Program    *Program
	Source     *ast.Node

	// Variables maps function level declarations and arguments by name.
	Variables map[string]*Variable
	// Instructions is the linear instruction list, the source of truth the
	// block list is rebuilt from.
	Instructions []Instruction
	// Blocks is the current partition of Instructions into basic blocks.
	Blocks []*BasicBlock

	// StackUsage is the running size of the frame in bytes.
	StackUsage int

	virtualRegisters []*VirtualRegister
	nextVariable     int
	nextBlock        int
	stackOffsets     map[*VirtualRegister]int
	selfScope        Scope
	scopes           util.Stack

	// spillAccesses records the loads and stores introduced by the most
	// recent spill rewrite, consumed by SplitBlocks.
	spillAccesses map[Instruction]bool
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewFunction creates a function from its FN source node. The body is not
// lowered until Compile is called.
func NewFunction(p *Program, source *ast.Node) (*Function, error) {
	f := &Function{
		Program:       p,
		Source:        source,
		Variables:     make(map[string]*Variable),
		stackOffsets:  make(map[*VirtualRegister]int),
		spillAccesses: make(map[Instruction]bool),
	}
	if source == nil {
		f.ReturnType = types.Void{}
		return f, nil
	}
	f.Name = source.At(0).Text
	ret, err := types.Get(source.At(1))
	if err != nil {
		return nil, errors.Wrapf(err, "return type of %s", f.Name)
	}
	f.ReturnType = ret
	f.selfScope = NewMultiScope(NewFunctionScope(f), NewGlobalScope(p))
	return f, nil
}

// EpilogueLabel returns the label every control path of the function
// terminates at.
func (f *Function) EpilogueLabel() string {
	return "." + f.Name + "$e"
}

// VirtualRegisters returns every virtual register the function has created,
// in creation order.
func (f *Function) VirtualRegisters() []*VirtualRegister {
	return f.virtualRegisters
}

// Add appends an instruction to the function's instruction list.
func (f *Function) Add(inst Instruction) {
	f.Instructions = append(f.Instructions, inst)
}

// AddFront prepends an instruction to the function's instruction list.
func (f *Function) AddFront(inst Instruction) {
	f.Instructions = append([]Instruction{inst}, f.Instructions...)
}

// AddToStack assigns the variable the next free stack slot.
func (f *Function) AddToStack(v *Variable) error {
	if _, ok := f.stackOffsets[&v.VirtualRegister]; ok {
		return errors.Errorf("variable already on the stack in function %s: %s", f.Name, v.Name)
	}
	f.stackOffsets[&v.VirtualRegister] = f.StackUsage
	f.StackUsage += v.Type.Size()
	return nil
}

// StackOffset returns the frame offset assigned to v.
func (f *Function) StackOffset(v *VirtualRegister) (int, bool) {
	offset, ok := f.stackOffsets[v]
	return offset, ok
}

// newBlockName derives a fresh block label from the function's naming
// counter.
func (f *Function) newBlockName() string {
	name := fmt.Sprintf(".%s$%d", f.Name, f.nextBlock)
	f.nextBlock++
	return name
}

// currentScope returns the scope lowering currently resolves names in.
func (f *Function) currentScope() Scope {
	return f.scopes.Peek().(Scope)
}

// Compile lowers the function body into the instruction list: arguments
// are precolored to the argument bank, statements lower in order, and the
// prologue and epilogue are attached.
func (f *Function) Compile() error {
	if f.Source == nil {
		return errors.Errorf("can't compile %s: no source node", f.Name)
	}
	if f.Source.Size() != 4 {
		return errors.Errorf("expected 4 nodes in %s's source node, found %d", f.Name, f.Source.Size())
	}

	f.scopes.Push(f.selfScope)

	for i1, e1 := range f.Source.At(2).Children {
		name := e1.Text
		typ, err := types.Get(e1.At(0))
		if err != nil {
			return errors.Wrapf(err, "argument %s of %s", name, f.Name)
		}
		if i1 >= why.ArgumentCount {
			return errors.Errorf("functions with greater than %d arguments are unsupported", why.ArgumentCount)
		}
		if f.selfScope.Lookup(name) != nil {
			return &NameConflictError{Name: name}
		}
		arg := NewVariable(name, typ, f)
		arg.Reg = why.ArgumentOffset + i1
		f.Variables[name] = arg
		f.Arguments = append(f.Arguments, name)
	}

	for _, e1 := range f.Source.At(3).Children {
		if err := f.compileNode(e1); err != nil {
			return err
		}
	}

	// Prologue: save the return address and caller frame, then establish
	// this frame.
	f.AddFront(NewMove(f.Precolored(why.StackPointerOffset), f.Precolored(why.FramePointerOffset)))
	f.AddFront(NewStackPush(f.Precolored(why.FramePointerOffset)))
	f.AddFront(NewStackPush(f.Precolored(why.ReturnAddressOffset)))

	// Epilogue: every control path jumps here.
	fp := f.Precolored(why.FramePointerOffset)
	rt := f.Precolored(why.ReturnAddressOffset)
	f.Add(NewLabel(f.EpilogueLabel()))
	f.Add(NewStackPop(fp))
	f.Add(NewStackPop(rt))
	f.Add(NewJumpRegister(rt, false))
	return nil
}

// compileNode lowers one statement node.
func (f *Function) compileNode(node *ast.Node) error {
	switch node.Kind {
	case ast.COLON:
		name := node.At(0).Text
		scope := f.currentScope()
		if scope.DoesConflict(name) {
			return &NameConflictError{Name: name}
		}
		typ, err := types.Get(node.At(1))
		if err != nil {
			return errors.Wrapf(err, "declaration of %s in %s", name, f.Name)
		}
		v := NewVariable(name, typ, f)
		if !scope.Insert(v) {
			return &NameConflictError{Name: name}
		}
		if err := f.AddToStack(v); err != nil {
			return err
		}
		if node.Size() == 3 {
			init, err := GetExpr(node.At(2), f)
			if err != nil {
				return err
			}
			if err := init.Compile(v.VReg(), f, scope, 1); err != nil {
				return err
			}
			initType, err := init.GetType(scope)
			if err != nil {
				return err
			}
			if err := TypeCheck(initType, typ, v.VReg(), f); err != nil {
				return err
			}
		}
	case ast.RETURN:
		if node.Size() > 0 {
			expr, err := GetExpr(node.At(0), f)
			if err != nil {
				return err
			}
			if err := expr.Compile(f.Precolored(why.ReturnValueOffset), f, f.currentScope(), 1); err != nil {
				return err
			}
		}
		f.Add(NewJump(LabelImm(f.EpilogueLabel()), false))
	case ast.LPAREN:
		expr, err := GetExpr(node, f)
		if err != nil {
			return err
		}
		return expr.Compile(nil, f, f.currentScope(), 1)
	case ast.WHILE:
		label := f.newBlockName()
		start, end := label+"s", label+"e"
		cond, err := GetExpr(node.At(0), f)
		if err != nil {
			return err
		}
		f.Add(NewLabel(start))
		m0 := f.Mx(0)
		if err := cond.Compile(m0, f, f.currentScope(), 1); err != nil {
			return err
		}
		f.Add(NewLogicalNot(m0))
		f.Add(NewJumpConditional(LabelImm(end), m0))
		if err := f.compileNode(node.At(1)); err != nil {
			return err
		}
		f.Add(NewJump(LabelImm(start), false))
		f.Add(NewLabel(end))
	case ast.IF:
		elseLabel := f.newBlockName() + "e"
		endLabel := elseLabel + "nd"
		cond, err := GetExpr(node.At(0), f)
		if err != nil {
			return err
		}
		m0 := f.Mx(0)
		if err := cond.Compile(m0, f, f.currentScope(), 1); err != nil {
			return err
		}
		f.Add(NewLogicalNot(m0))
		if node.Size() > 2 {
			f.Add(NewJumpConditional(LabelImm(elseLabel), m0))
			if err := f.compileNode(node.At(1)); err != nil {
				return err
			}
			f.Add(NewJump(LabelImm(endLabel), false))
			f.Add(NewLabel(elseLabel))
			if err := f.compileNode(node.At(2)); err != nil {
				return err
			}
			f.Add(NewLabel(endLabel))
		} else {
			f.Add(NewJumpConditional(LabelImm(endLabel), m0))
			if err := f.compileNode(node.At(1)); err != nil {
				return err
			}
			f.Add(NewLabel(endLabel))
		}
	case ast.BLOCK:
		f.scopes.Push(NewBlockScope(f.currentScope()))
		for _, e1 := range node.Children {
			if err := f.compileNode(e1); err != nil {
				return err
			}
		}
		f.scopes.Pop()
	default:
		return errors.Errorf("unexpected statement node %s in %s", node.Kind, f.Name)
	}
	return nil
}

// CanSpill reports whether the allocator may move v into a stack slot.
func (f *Function) CanSpill(v *VirtualRegister) bool {
	return v != nil && !v.Precolored() && !v.IsGlobal() && !v.NoSpill && !v.Spilled
}

// Spill materializes v on the stack: every read is preceded by a load of a
// fresh register and every write is followed by a store of a fresh
// register, so each introduced register lives for a single instruction.
// Returns false if v refused to spill or nothing referenced it.
func (f *Function) Spill(v *VirtualRegister) bool {
	if !f.CanSpill(v) {
		return false
	}
	offset, ok := f.stackOffsets[v]
	if !ok {
		offset = f.StackUsage
		f.stackOffsets[v] = offset
		f.StackUsage += v.Size()
	}

	f.spillAccesses = make(map[Instruction]bool)
	out := make([]Instruction, 0, len(f.Instructions)+8)
	changed := false
	for _, e1 := range f.Instructions {
		if e1.DoesRead(v) {
			fresh := f.NewVar(v.Type)
			fresh.NoSpill = true
			load := NewStackLoad(fresh, offset)
			f.spillAccesses[load] = true
			out = append(out, load)
			e1.ReplaceRead(v, fresh)
			changed = true
		}
		out = append(out, e1)
		if e1.DoesWrite(v) {
			fresh := f.NewVar(v.Type)
			fresh.NoSpill = true
			e1.ReplaceWritten(v, fresh)
			store := NewStackStore(fresh, offset)
			f.spillAccesses[store] = true
			out = append(out, store)
			changed = true
		}
	}
	f.Instructions = out
	v.Spilled = true
	return changed
}

// SplitBlocks bounds per-block live ranges after a spill rewrite: a block
// boundary is introduced after every inserted store and before every
// inserted load that is not adjacent to its counterpart. Returns the number
// of boundaries introduced; callers must rebuild blocks, CFG and liveness
// when it is nonzero.
func (f *Function) SplitBlocks() int {
	if len(f.spillAccesses) == 0 {
		return 0
	}
	out := make([]Instruction, 0, len(f.Instructions)+4)
	splits := 0
	for i1, e1 := range f.Instructions {
		if _, load := e1.(*StackLoadInstruction); load && f.spillAccesses[e1] && i1 > 0 {
			if _, store := f.Instructions[i1-1].(*StackStoreInstruction); !store || !f.spillAccesses[f.Instructions[i1-1]] {
				out = append(out, NewLabel(f.newBlockName()))
				splits++
			}
		}
		out = append(out, e1)
		if _, store := e1.(*StackStoreInstruction); store && f.spillAccesses[e1] {
			if i1+1 < len(f.Instructions) {
				if _, load := f.Instructions[i1+1].(*StackLoadInstruction); !load || !f.spillAccesses[f.Instructions[i1+1]] {
					out = append(out, NewLabel(f.newBlockName()))
					splits++
				}
			}
		}
	}
	f.Instructions = out
	f.spillAccesses = make(map[Instruction]bool)
	return splits
}

// MakeBlocks rebuilds the basic block partition from the instruction list.
// Blocks close on label definitions and after terminators; blocks not
// opened by a label get a derived one.
func (f *Function) MakeBlocks() {
	f.Blocks = f.Blocks[:0]
	current := newBasicBlock(f, f.Name, 0)
	f.Blocks = append(f.Blocks, current)
	closed := false
	for _, e1 := range f.Instructions {
		if lbl, ok := e1.(*Label); ok {
			// A label always opens a new block, unless the current block is
			// the entry block and still empty.
			if len(current.Instructions) == 0 && len(f.Blocks) == 1 {
				current.Label = lbl.Name
			} else {
				current = newBasicBlock(f, lbl.Name, len(f.Blocks))
				f.Blocks = append(f.Blocks, current)
			}
			current.Instructions = append(current.Instructions, e1)
			closed = false
			continue
		}
		if closed {
			current = newBasicBlock(f, fmt.Sprintf(".%s$b%d", f.Name, len(f.Blocks)), len(f.Blocks))
			f.Blocks = append(f.Blocks, current)
			closed = false
		}
		current.Instructions = append(current.Instructions, e1)
		if e1.IsTerminal() {
			closed = true
		}
	}

	byLabel := make(map[string]*BasicBlock, len(f.Blocks))
	for _, e1 := range f.Blocks {
		byLabel[e1.Label] = e1
	}

	// Wire predecessors and successors: fallthrough into the next block
	// unless the block ends in a terminator, plus one edge per jump target
	// inside the function.
	link := func(from, to *BasicBlock) {
		from.Successors[to] = struct{}{}
		to.Predecessors[from] = struct{}{}
	}
	for i1, e1 := range f.Blocks {
		fallsThrough := true
		for _, e2 := range e1.Instructions {
			var target Imm
			switch jump := e2.(type) {
			case *JumpInstruction:
				if !jump.Link {
					target = jump.Imm
				}
			case *JumpConditionalInstruction:
				target = jump.Imm
			}
			if lbl, ok := target.(LabelImm); ok {
				if to, ok := byLabel[string(lbl)]; ok {
					link(e1, to)
				}
			}
		}
		if len(e1.Instructions) > 0 {
			last := e1.Instructions[len(e1.Instructions)-1]
			if last.IsTerminal() {
				fallsThrough = false
			}
		}
		if fallsThrough && i1+1 < len(f.Blocks) {
			link(e1, f.Blocks[i1+1])
		}
		e1.CacheReadWritten()
	}
}

// Stringify renders the function's instructions as assembly lines.
func (f *Function) Stringify() []string {
	out := make([]string, 0, len(f.Instructions))
	for _, e1 := range f.Instructions {
		out = append(out, e1.Strings()...)
	}
	return out
}
