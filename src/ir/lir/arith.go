// arith.go defines the register-to-register and register-immediate
// computational instructions of the Why instruction set.

package lir

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// MoveInstruction copies one register into another.
type MoveInstruction struct {
	ThreeRegs
}

// BinaryRInstruction is a three-register ALU operation.
type BinaryRInstruction struct {
	ThreeRegs
	Oper     string
	Unsigned bool
}

// BinaryIInstruction is a register-immediate ALU operation.
type BinaryIInstruction struct {
	TwoRegs
	Imm      Imm
	Oper     string
	Unsigned bool
}

// InverseIInstruction is a register-immediate ALU operation with the
// immediate on the left hand side.
type InverseIInstruction struct {
	TwoRegs
	Imm      Imm
	Oper     string
	Unsigned bool
}

// UnaryRInstruction is a single-operand ALU operation.
type UnaryRInstruction struct {
	ThreeRegs
	Oper rune
}

// MultRInstruction multiplies two registers; the low word of the product is
// moved from $lo into the destination.
type MultRInstruction struct {
	ThreeRegs
}

// MultIInstruction multiplies a register by an immediate via $lo.
type MultIInstruction struct {
	TwoRegs
	Imm Imm
}

// ComparisonRInstruction compares two registers, producing a boolean.
type ComparisonRInstruction struct {
	ThreeRegs
	Cmp      Comparison
	Unsigned bool
}

// ComparisonIInstruction compares a register against an immediate.
type ComparisonIInstruction struct {
	TwoRegs
	Imm      Imm
	Cmp      Comparison
	Unsigned bool
}

// SelectInstruction conditionally picks one of two registers.
type SelectInstruction struct {
	ThreeRegs
	Cond Condition
}

// SextInstruction sign extends from the given source bit width.
type SextInstruction struct {
	ThreeRegs
	Width int
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewMove creates a register copy.
func NewMove(source, destination *VirtualRegister) *MoveInstruction {
	return &MoveInstruction{ThreeRegs{LeftSource: source, Destination: destination}}
}

// Strings renders "src -> dst".
func (i *MoveInstruction) Strings() []string {
	return []string{i.LeftSource.RegOrID() + " -> " + i.Destination.RegOrID()}
}

// NewBinaryR creates a three-register ALU instruction.
func NewBinaryR(oper string, left, right, destination *VirtualRegister) *BinaryRInstruction {
	return &BinaryRInstruction{
		ThreeRegs: ThreeRegs{LeftSource: left, RightSource: right, Destination: destination},
		Oper:      oper,
	}
}

// NewBinaryRU creates an unsigned three-register ALU instruction.
func NewBinaryRU(oper string, left, right, destination *VirtualRegister) *BinaryRInstruction {
	out := NewBinaryR(oper, left, right, destination)
	out.Unsigned = true
	return out
}

// Strings renders "l op r -> d" with an optional /u suffix.
func (i *BinaryRInstruction) Strings() []string {
	out := i.LeftSource.RegOrID() + " " + i.Oper + " " + i.RightSource.RegOrID() + " -> " +
		i.Destination.RegOrID()
	if i.Unsigned {
		out += " /u"
	}
	return []string{out}
}

// NewBinaryI creates a register-immediate ALU instruction.
func NewBinaryI(oper string, source, destination *VirtualRegister, imm Imm) *BinaryIInstruction {
	return &BinaryIInstruction{
		TwoRegs: TwoRegs{Source: source, Destination: destination},
		Imm:     imm,
		Oper:    oper,
	}
}

// Strings renders "src op imm -> dst" with an optional /u suffix.
func (i *BinaryIInstruction) Strings() []string {
	out := i.Source.RegOrID() + " " + i.Oper + " " + i.Imm.String() + " -> " + i.Destination.RegOrID()
	if i.Unsigned {
		out += " /u"
	}
	return []string{out}
}

// NewInverseI creates an immediate-first ALU instruction.
func NewInverseI(oper string, source, destination *VirtualRegister, imm Imm) *InverseIInstruction {
	return &InverseIInstruction{
		TwoRegs: TwoRegs{Source: source, Destination: destination},
		Imm:     imm,
		Oper:    oper,
	}
}

// Strings renders "imm op src -> dst" with an optional /u suffix.
func (i *InverseIInstruction) Strings() []string {
	out := i.Imm.String() + " " + i.Oper + " " + i.Source.RegOrID() + " -> " + i.Destination.RegOrID()
	if i.Unsigned {
		out += " /u"
	}
	return []string{out}
}

// NewUnaryR creates a single-operand ALU instruction.
func NewUnaryR(oper rune, source, destination *VirtualRegister) *UnaryRInstruction {
	return &UnaryRInstruction{
		ThreeRegs: ThreeRegs{LeftSource: source, Destination: destination},
		Oper:      oper,
	}
}

// NewLogicalNot creates an in-place logical negation of v.
func NewLogicalNot(v *VirtualRegister) *UnaryRInstruction {
	return NewUnaryR('!', v, v)
}

// Strings renders "op src -> dst".
func (i *UnaryRInstruction) Strings() []string {
	return []string{string(i.Oper) + i.LeftSource.RegOrID() + " -> " + i.Destination.RegOrID()}
}

// NewMultR creates a register multiply.
func NewMultR(left, right, destination *VirtualRegister) *MultRInstruction {
	return &MultRInstruction{ThreeRegs{LeftSource: left, RightSource: right, Destination: destination}}
}

// Strings renders the multiply and the $lo readback.
func (i *MultRInstruction) Strings() []string {
	return []string{
		i.LeftSource.RegOrID() + " * " + i.RightSource.RegOrID(),
		"$lo -> " + i.Destination.RegOrID(),
	}
}

// NewMultI creates a register-immediate multiply.
func NewMultI(source, destination *VirtualRegister, imm Imm) *MultIInstruction {
	return &MultIInstruction{
		TwoRegs: TwoRegs{Source: source, Destination: destination},
		Imm:     imm,
	}
}

// Strings renders the multiply and the $lo readback.
func (i *MultIInstruction) Strings() []string {
	return []string{
		i.Source.RegOrID() + " * " + i.Imm.String(),
		"$lo -> " + i.Destination.RegOrID(),
	}
}

// NewComparisonR creates a register comparison. Neq has no Why instruction
// and fails fast.
func NewComparisonR(cmp Comparison, left, right, destination *VirtualRegister, unsigned bool) *ComparisonRInstruction {
	if cmp == Neq {
		panic("comparison != has no corresponding instruction")
	}
	return &ComparisonRInstruction{
		ThreeRegs: ThreeRegs{LeftSource: left, RightSource: right, Destination: destination},
		Cmp:       cmp,
		Unsigned:  unsigned,
	}
}

// Strings renders "l cmp r -> d" with an optional /u suffix.
func (i *ComparisonRInstruction) Strings() []string {
	out := i.LeftSource.RegOrID() + " " + comparisonOpers[i.Cmp] + " " + i.RightSource.RegOrID() +
		" -> " + i.Destination.RegOrID()
	if i.Unsigned {
		out += " /u"
	}
	return []string{out}
}

// NewComparisonI creates a register-immediate comparison.
func NewComparisonI(cmp Comparison, source, destination *VirtualRegister, imm Imm, unsigned bool) *ComparisonIInstruction {
	if cmp == Neq {
		panic("comparison != has no corresponding instruction")
	}
	return &ComparisonIInstruction{
		TwoRegs:  TwoRegs{Source: source, Destination: destination},
		Imm:      imm,
		Cmp:      cmp,
		Unsigned: unsigned,
	}
}

// Strings renders "src cmp imm -> dst" with an optional /u suffix.
func (i *ComparisonIInstruction) Strings() []string {
	out := i.Source.RegOrID() + " " + comparisonOpers[i.Cmp] + " " + i.Imm.String() + " -> " +
		i.Destination.RegOrID()
	if i.Unsigned {
		out += " /u"
	}
	return []string{out}
}

// NewSelect creates a conditional select.
func NewSelect(left, right, destination *VirtualRegister, cond Condition) *SelectInstruction {
	return &SelectInstruction{
		ThreeRegs: ThreeRegs{LeftSource: left, RightSource: right, Destination: destination},
		Cond:      cond,
	}
}

// Strings renders "[l cond r] -> d".
func (i *SelectInstruction) Strings() []string {
	return []string{
		"[" + i.LeftSource.RegOrID() + " " + selectOpers[i.Cond] + " " + i.RightSource.RegOrID() +
			"] -> " + i.Destination.RegOrID(),
	}
}

// NewSext creates a sign extension from the given source bit width.
func NewSext(source, destination *VirtualRegister, width int) *SextInstruction {
	switch width {
	case 8, 16, 32:
	default:
		panic(fmt.Sprintf("no sext instruction exists for bit width %d", width))
	}
	return &SextInstruction{
		ThreeRegs: ThreeRegs{LeftSource: source, Destination: destination},
		Width:     width,
	}
}

// Strings renders "sextN src -> dst".
func (i *SextInstruction) Strings() []string {
	return []string{fmt.Sprintf("sext%d %s -> %s", i.Width, i.LeftSource.RegOrID(), i.Destination.RegOrID())}
}
