package lir

import (
	"fmt"
	"strconv"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Imm is an instruction immediate: a 64-bit integer, a reference to a stack
// resident variable (printed as its frame offset), or a label string.
// Equality is structural.
type Imm interface {
	// String renders the immediate the way the assembler expects it.
	String() string
	// Equal reports structural equality with another immediate.
	Equal(other Imm) bool
}

// IntImm is an integer immediate.
type IntImm int64

// VarImm prints as the referenced variable's frame offset.
type VarImm struct {
	Var *Variable
}

// LabelImm is a symbolic address.
type LabelImm string

// ---------------------
// ----- Functions -----
// ---------------------

// String renders the integer in decimal.
func (i IntImm) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// Equal reports whether other is the same integer.
func (i IntImm) Equal(other Imm) bool {
	o, ok := other.(IntImm)
	return ok && o == i
}

// String renders the variable's assigned frame offset. Referencing a
// variable that was never placed on the stack is a lowering bug; it fails
// fast with a NotOnStackError payload.
func (i VarImm) String() string {
	f := i.Var.Func
	if f == nil {
		panic(&NotOnStackError{Name: i.Var.Name})
	}
	offset, ok := f.stackOffsets[&i.Var.VirtualRegister]
	if !ok {
		panic(&NotOnStackError{Name: i.Var.Name})
	}
	return strconv.Itoa(offset)
}

// Equal reports whether other references the same variable.
func (i VarImm) Equal(other Imm) bool {
	o, ok := other.(VarImm)
	return ok && o.Var == i.Var
}

// String renders the label.
func (i LabelImm) String() string {
	return string(i)
}

// Equal reports whether other is the same label.
func (i LabelImm) Equal(other Imm) bool {
	o, ok := other.(LabelImm)
	return ok && o == i
}

// charify renders an integer immediate as a character literal for the print
// pseudoinstruction.
func charify(i Imm) string {
	n, ok := i.(IntImm)
	if !ok {
		return i.String()
	}
	return fmt.Sprintf("'%c'", rune(n))
}
