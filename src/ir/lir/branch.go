// branch.go defines the control transfer instructions and the label and
// comment pseudoinstructions.

package lir

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// JumpInstruction transfers control to an immediate target, optionally
// saving the return address when the link bit is set.
type JumpInstruction struct {
	JBase
	Cond Condition
}

// JumpConditionalInstruction transfers control to an immediate target when
// the condition register is nonzero.
type JumpConditionalInstruction struct {
	JBase
}

// JumpRegisterInstruction transfers control to the address in a register.
type JumpRegisterInstruction struct {
	ThreeRegs
	Link bool
	Cond Condition
}

// JumpRegisterConditionalInstruction transfers control to the address in a
// register when the condition register is nonzero.
type JumpRegisterConditionalInstruction struct {
	ThreeRegs
	Link bool
}

// pseudo is the shape base of instructions that touch no registers.
type pseudo struct{}

// Label is the pseudoinstruction that names the next address.
type Label struct {
	pseudo
	Name string
}

// Comment is the pseudoinstruction that carries an assembly comment.
type Comment struct {
	pseudo
	Text string
}

// Nop does nothing.
type Nop struct {
	pseudo
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewJump creates a jump to the given target.
func NewJump(target Imm, link bool) *JumpInstruction {
	return &JumpInstruction{JBase: JBase{Imm: target, Link: link}}
}

// IsTerminal reports true for unlinked jumps: control never returns.
func (i *JumpInstruction) IsTerminal() bool { return !i.Link }

// Strings renders ": target" or ":: target" with the condition prefix.
func (i *JumpInstruction) Strings() []string {
	oper := ":"
	if i.Link {
		oper = "::"
	}
	return []string{i.Cond.prefix() + oper + " " + i.Imm.String()}
}

// NewJumpConditional creates a jump taken when condition is nonzero.
func NewJumpConditional(target Imm, condition *VirtualRegister) *JumpConditionalInstruction {
	return &JumpConditionalInstruction{JBase{Imm: target, Source: condition}}
}

// Strings renders ": target if cond".
func (i *JumpConditionalInstruction) Strings() []string {
	oper := ":"
	if i.Link {
		oper = "::"
	}
	return []string{oper + " " + i.Imm.String() + " if " + i.Source.RegOrID()}
}

// NewJumpRegister creates a jump to the address held in target.
func NewJumpRegister(target *VirtualRegister, link bool) *JumpRegisterInstruction {
	return &JumpRegisterInstruction{ThreeRegs: ThreeRegs{LeftSource: target}, Link: link}
}

// IsTerminal reports true for unlinked register jumps.
func (i *JumpRegisterInstruction) IsTerminal() bool { return !i.Link }

// Strings renders ": $reg" or ":: $reg" with the condition prefix.
func (i *JumpRegisterInstruction) Strings() []string {
	oper := ":"
	if i.Link {
		oper = "::"
	}
	return []string{i.Cond.prefix() + oper + " " + i.LeftSource.RegOrID()}
}

// NewJumpRegisterConditional creates a register jump taken when condition
// is nonzero.
func NewJumpRegisterConditional(target, condition *VirtualRegister, link bool) *JumpRegisterConditionalInstruction {
	return &JumpRegisterConditionalInstruction{
		ThreeRegs: ThreeRegs{LeftSource: target, RightSource: condition},
		Link:      link,
	}
}

// Strings renders ": $reg if $cond".
func (i *JumpRegisterConditionalInstruction) Strings() []string {
	oper := ":"
	if i.Link {
		oper = "::"
	}
	return []string{oper + " " + i.LeftSource.RegOrID() + " if " + i.RightSource.RegOrID()}
}

// GetRead returns nil.
func (i *pseudo) GetRead() []*VirtualRegister { return nil }

// GetWritten returns nil.
func (i *pseudo) GetWritten() []*VirtualRegister { return nil }

// IsTerminal returns false.
func (i *pseudo) IsTerminal() bool { return false }

// ReplaceRead returns false.
func (i *pseudo) ReplaceRead(from, to *VirtualRegister) bool { return false }

// CanReplaceRead returns false.
func (i *pseudo) CanReplaceRead(v *VirtualRegister) bool { return false }

// ReplaceWritten returns false.
func (i *pseudo) ReplaceWritten(from, to *VirtualRegister) bool { return false }

// CanReplaceWritten returns false.
func (i *pseudo) CanReplaceWritten(v *VirtualRegister) bool { return false }

// DoesRead returns false.
func (i *pseudo) DoesRead(v *VirtualRegister) bool { return false }

// DoesWrite returns false.
func (i *pseudo) DoesWrite(v *VirtualRegister) bool { return false }

// NewLabel creates a label pseudoinstruction.
func NewLabel(name string) *Label {
	return &Label{Name: name}
}

// Strings renders "@name".
func (i *Label) Strings() []string {
	return []string{"@" + i.Name}
}

// NewComment creates a comment pseudoinstruction.
func NewComment(text string) *Comment {
	return &Comment{Text: text}
}

// Strings renders "// text".
func (i *Comment) Strings() []string {
	return []string{"// " + i.Text}
}

// Strings renders the no-op.
func (i *Nop) Strings() []string {
	return []string{"<>"}
}
