// memory.go defines the memory, immediate-load and stack instructions.

package lir

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// SetIInstruction loads an immediate into a register.
type SetIInstruction struct {
	TwoRegs
	Imm Imm
}

// LuiIInstruction loads an immediate into the upper half of a register.
type LuiIInstruction struct {
	TwoRegs
	Imm Imm
}

// LoadIInstruction loads from an immediate address.
type LoadIInstruction struct {
	TwoRegs
	Imm  Imm
	Size int
}

// StoreIInstruction stores to an immediate address.
type StoreIInstruction struct {
	TwoRegs
	Imm  Imm
	Size int
}

// LoadIndirectIInstruction copies from an immediate address to the address
// held in the destination register.
type LoadIndirectIInstruction struct {
	TwoRegs
	Imm  Imm
	Size int
}

// LoadRInstruction loads from the address held in a register.
type LoadRInstruction struct {
	ThreeRegs
	Size int
}

// StoreRInstruction stores to the address held in a register.
type StoreRInstruction struct {
	ThreeRegs
	Size int
}

// CopyRInstruction copies between two register-held addresses.
type CopyRInstruction struct {
	ThreeRegs
	Size int
}

// StackPushInstruction pushes a register onto the stack.
type StackPushInstruction struct {
	ThreeRegs
}

// StackPopInstruction pops the stack into a register.
type StackPopInstruction struct {
	ThreeRegs
}

// StackStoreInstruction stores a register at a non-negative frame offset.
type StackStoreInstruction struct {
	ThreeRegs
	Offset int
}

// StackLoadInstruction loads a register from a non-negative frame offset.
type StackLoadInstruction struct {
	ThreeRegs
	Offset int
}

// SizedStackPushInstruction pushes a value of explicit size.
type SizedStackPushInstruction struct {
	TwoRegs
	Imm Imm
}

// SizedStackPopInstruction pops a value of explicit size.
type SizedStackPopInstruction struct {
	TwoRegs
	Imm Imm
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewSetI loads imm into destination.
func NewSetI(destination *VirtualRegister, imm Imm) *SetIInstruction {
	return &SetIInstruction{TwoRegs: TwoRegs{Destination: destination}, Imm: imm}
}

// Strings renders "imm -> dst".
func (i *SetIInstruction) Strings() []string {
	return []string{i.Imm.String() + " -> " + i.Destination.RegOrID()}
}

// NewLuiI loads imm into the upper half of destination.
func NewLuiI(destination *VirtualRegister, imm Imm) *LuiIInstruction {
	return &LuiIInstruction{TwoRegs: TwoRegs{Destination: destination}, Imm: imm}
}

// Strings renders "lui: imm -> dst".
func (i *LuiIInstruction) Strings() []string {
	return []string{"lui: " + i.Imm.String() + " -> " + i.Destination.RegOrID()}
}

// NewLoadI loads size bytes from the immediate address imm.
func NewLoadI(destination *VirtualRegister, imm Imm, size int) *LoadIInstruction {
	return &LoadIInstruction{TwoRegs: TwoRegs{Destination: destination}, Imm: imm, Size: size}
}

// Strings renders "[imm] -> dst".
func (i *LoadIInstruction) Strings() []string {
	return []string{"[" + i.Imm.String() + "] -> " + i.Destination.RegOrID() + sizeSuffix(i.Size)}
}

// NewStoreI stores size bytes to the immediate address imm.
func NewStoreI(source *VirtualRegister, imm Imm, size int) *StoreIInstruction {
	return &StoreIInstruction{TwoRegs: TwoRegs{Source: source}, Imm: imm, Size: size}
}

// Strings renders "src -> [imm]".
func (i *StoreIInstruction) Strings() []string {
	return []string{i.Source.RegOrID() + " -> [" + i.Imm.String() + "]" + sizeSuffix(i.Size)}
}

// NewLoadIndirectI copies size bytes from the immediate address imm to the
// address held in destination.
func NewLoadIndirectI(destination *VirtualRegister, imm Imm, size int) *LoadIndirectIInstruction {
	return &LoadIndirectIInstruction{TwoRegs: TwoRegs{Destination: destination}, Imm: imm, Size: size}
}

// GetRead returns the destination register: it holds the target address.
func (i *LoadIndirectIInstruction) GetRead() []*VirtualRegister {
	if i.Destination != nil {
		return []*VirtualRegister{i.Destination}
	}
	return nil
}

// GetWritten returns nil: the instruction writes memory, not registers.
func (i *LoadIndirectIInstruction) GetWritten() []*VirtualRegister { return nil }

// ReplaceRead substitutes the address register.
func (i *LoadIndirectIInstruction) ReplaceRead(from, to *VirtualRegister) bool {
	if i.Destination == nil || i.Destination != from {
		return false
	}
	i.Destination = to
	return true
}

// CanReplaceRead reports whether v is the address register.
func (i *LoadIndirectIInstruction) CanReplaceRead(v *VirtualRegister) bool {
	return i.Destination != nil && i.Destination == v
}

// ReplaceWritten returns false: the instruction writes memory only.
func (i *LoadIndirectIInstruction) ReplaceWritten(from, to *VirtualRegister) bool { return false }

// CanReplaceWritten returns false.
func (i *LoadIndirectIInstruction) CanReplaceWritten(v *VirtualRegister) bool { return false }

// DoesRead reports whether v is the address register.
func (i *LoadIndirectIInstruction) DoesRead(v *VirtualRegister) bool {
	return i.Destination != nil && i.Destination == v
}

// DoesWrite returns false.
func (i *LoadIndirectIInstruction) DoesWrite(v *VirtualRegister) bool { return false }

// Strings renders "[imm] -> [dst]".
func (i *LoadIndirectIInstruction) Strings() []string {
	return []string{"[" + i.Imm.String() + "] -> [" + i.Destination.RegOrID() + "]" + sizeSuffix(i.Size)}
}

// NewLoadR loads size bytes from the address in source.
func NewLoadR(source, destination *VirtualRegister, size int) *LoadRInstruction {
	return &LoadRInstruction{ThreeRegs: ThreeRegs{LeftSource: source, Destination: destination}, Size: size}
}

// Strings renders "[src] -> dst".
func (i *LoadRInstruction) Strings() []string {
	return []string{"[" + i.LeftSource.RegOrID() + "] -> " + i.Destination.RegOrID() + sizeSuffix(i.Size)}
}

// NewStoreR stores size bytes to the address in address.
func NewStoreR(source, address *VirtualRegister, size int) *StoreRInstruction {
	return &StoreRInstruction{ThreeRegs: ThreeRegs{LeftSource: source, RightSource: address}, Size: size}
}

// Strings renders "src -> [addr]".
func (i *StoreRInstruction) Strings() []string {
	return []string{i.LeftSource.RegOrID() + " -> [" + i.RightSource.RegOrID() + "]" + sizeSuffix(i.Size)}
}

// NewCopyR copies size bytes between two register-held addresses.
func NewCopyR(source, destination *VirtualRegister, size int) *CopyRInstruction {
	return &CopyRInstruction{ThreeRegs: ThreeRegs{LeftSource: source, RightSource: destination}, Size: size}
}

// Strings renders "[src] -> [dst]".
func (i *CopyRInstruction) Strings() []string {
	return []string{"[" + i.LeftSource.RegOrID() + "] -> [" + i.RightSource.RegOrID() + "]" + sizeSuffix(i.Size)}
}

// NewStackPush pushes source onto the stack.
func NewStackPush(source *VirtualRegister) *StackPushInstruction {
	return &StackPushInstruction{ThreeRegs{LeftSource: source}}
}

// Strings renders "[ src".
func (i *StackPushInstruction) Strings() []string {
	return []string{"[ " + i.LeftSource.RegOrID()}
}

// NewStackPop pops the stack into destination.
func NewStackPop(destination *VirtualRegister) *StackPopInstruction {
	return &StackPopInstruction{ThreeRegs{Destination: destination}}
}

// Strings renders "] dst".
func (i *StackPopInstruction) Strings() []string {
	return []string{"] " + i.Destination.RegOrID()}
}

// NewStackStore stores source at the given frame offset.
func NewStackStore(source *VirtualRegister, offset int) *StackStoreInstruction {
	if offset < 0 {
		panic(fmt.Sprintf("negative stack offset %d", offset))
	}
	return &StackStoreInstruction{ThreeRegs: ThreeRegs{LeftSource: source}, Offset: offset}
}

// Strings renders the frame-relative store, computing the address in $m1
// when the offset is nonzero.
func (i *StackStoreInstruction) Strings() []string {
	if i.Offset == 0 {
		return []string{i.LeftSource.RegOrID() + " -> [$fp]"}
	}
	return []string{
		fmt.Sprintf("$fp - %d -> $m1", i.Offset),
		i.LeftSource.RegOrID() + " -> [$m1]",
	}
}

// NewStackLoad loads destination from the given frame offset.
func NewStackLoad(destination *VirtualRegister, offset int) *StackLoadInstruction {
	if offset < 0 {
		panic(fmt.Sprintf("negative stack offset %d", offset))
	}
	return &StackLoadInstruction{ThreeRegs: ThreeRegs{Destination: destination}, Offset: offset}
}

// Strings renders the frame-relative load, computing the address in $m1
// when the offset is nonzero.
func (i *StackLoadInstruction) Strings() []string {
	if i.Offset == 0 {
		return []string{"[$fp] -> " + i.Destination.RegOrID()}
	}
	return []string{
		fmt.Sprintf("$fp - %d -> $m1", i.Offset),
		"[$m1] -> " + i.Destination.RegOrID(),
	}
}

// NewSizedStackPush pushes source with an explicit size immediate.
func NewSizedStackPush(source *VirtualRegister, imm Imm) *SizedStackPushInstruction {
	return &SizedStackPushInstruction{TwoRegs: TwoRegs{Source: source}, Imm: imm}
}

// Strings renders "[:size src".
func (i *SizedStackPushInstruction) Strings() []string {
	return []string{"[:" + i.Imm.String() + " " + i.Source.RegOrID()}
}

// NewSizedStackPop pops into destination with an explicit size immediate.
func NewSizedStackPop(destination *VirtualRegister, imm Imm) *SizedStackPopInstruction {
	return &SizedStackPopInstruction{TwoRegs: TwoRegs{Destination: destination}, Imm: imm}
}

// Strings renders "]:size dst".
func (i *SizedStackPopInstruction) Strings() []string {
	return []string{"]:" + i.Imm.String() + " " + i.Destination.RegOrID()}
}
