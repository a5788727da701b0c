package lir

import (
	"fmt"

	"cmmc/src/ir/ast"
	"cmmc/src/ir/types"
	"cmmc/src/ir/why"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// VirtualRegister is a value slot drawn from the infinite virtual register
// supply of one function. Reg stays -1 until the register allocator (or a
// precoloring constructor) assigns an architectural register.
type VirtualRegister struct {
	ID   int
	Reg  int
	Type types.Type
	Func *Function

	// Precolored virtual registers and globals never enter live sets or
	// the interference graph.
	global bool
	// NoSpill marks the short-lived registers introduced by spill rewrites;
	// spilling them again cannot reduce pressure.
	NoSpill bool
	// Spilled is set once the register has been materialized on the stack.
	Spilled bool
}

// Variable is a named virtual register carrying a source language type.
type Variable struct {
	VirtualRegister
	Name string
}

// Global is a variable with static storage: its symbolic address is its
// name, and it may carry an initializer subtree from the parser.
type Global struct {
	Variable
	Init *ast.Node
}

// NewGlobal creates a program level variable. Globals own no function and
// never participate in register allocation.
func NewGlobal(name string, typ types.Type, init *ast.Node) *Global {
	g := &Global{
		Variable: Variable{
			VirtualRegister: VirtualRegister{
				ID:     -1,
				Reg:    -1,
				Type:   typ,
				global: true,
			},
			Name: name,
		},
		Init: init,
	}
	return g
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewVar creates a fresh unallocated virtual register owned by Function f.
func (f *Function) NewVar(typ types.Type) *VirtualRegister {
	v := &VirtualRegister{
		ID:   f.nextVariable,
		Reg:  -1,
		Type: typ,
		Func: f,
	}
	f.nextVariable++
	f.virtualRegisters = append(f.virtualRegisters, v)
	return v
}

// Precolored creates a virtual register bound to the architectural register
// reg.
func (f *Function) Precolored(reg int) *VirtualRegister {
	v := f.NewVar(types.Unsigned{Width: 64})
	v.Reg = reg
	return v
}

// Mx returns a precolored assembler scratch register $m<n>.
func (f *Function) Mx(n int) *VirtualRegister {
	if n < 0 || why.AssemblerCount <= n {
		panic(fmt.Sprintf("invalid assembler register index %d", n))
	}
	return f.Precolored(why.AssemblerOffset + n)
}

// RegOrID returns the allocated register name, or the placeholder %<id> if
// the register has not been colored yet.
func (v *VirtualRegister) RegOrID() string {
	if v.Reg < 0 {
		return fmt.Sprintf("%%%d", v.ID)
	}
	return "$" + why.RegisterName(v.Reg)
}

// Special reports whether the virtual register is bound to a special
// purpose architectural register.
func (v *VirtualRegister) Special() bool {
	return why.IsSpecialPurpose(v.Reg)
}

// Precolored reports whether the register was bound before allocation.
func (v *VirtualRegister) Precolored() bool {
	return v.Reg >= 0
}

// IsGlobal reports whether the register belongs to a program global.
func (v *VirtualRegister) IsGlobal() bool {
	return v.global
}

// Size returns the storage size of the register's type in bytes.
func (v *VirtualRegister) Size() int {
	if v.Type == nil {
		return why.WordSize
	}
	return v.Type.Size()
}

// String identifies the register for diagnostics.
func (v *VirtualRegister) String() string {
	return v.RegOrID()
}

// VReg returns the variable's underlying virtual register handle, the
// identity used by instructions and by the allocator.
func (v *Variable) VReg() *VirtualRegister {
	return &v.VirtualRegister
}

// String identifies the variable for diagnostics.
func (v *Variable) String() string {
	if v.Type == nil {
		return v.Name
	}
	return v.Name + ": " + v.Type.String()
}

// NewVariable creates a named variable owned by Function f.
func NewVariable(name string, typ types.Type, f *Function) *Variable {
	v := &Variable{
		VirtualRegister: VirtualRegister{
			ID:   f.nextVariable,
			Reg:  -1,
			Type: typ,
			Func: f,
		},
		Name: name,
	}
	f.nextVariable++
	f.virtualRegisters = append(f.virtualRegisters, &v.VirtualRegister)
	return v
}
