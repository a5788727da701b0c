// system.go defines the privileged and external operation instructions:
// interrupts, timers, rings, paging, address translation, I/O and the print
// pseudoinstructions.

package lir

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// PrintType selects the output format of a print instruction.
type PrintType int

// Print formats.
const (
	PrintDec PrintType = iota
	PrintBin
	PrintHex
	PrintChar
	PrintFull
)

// QueryType selects a machine property to query.
type QueryType int

// Query targets.
const (
	QueryMemory QueryType = iota
)

// SystemIInstruction is a system operation taking an immediate: %int, %rit,
// %time, %ring and %setpt.
type SystemIInstruction struct {
	TwoRegs
	Oper string
	Imm  Imm
}

// SystemRInstruction is a system operation taking a register source.
type SystemRInstruction struct {
	ThreeRegs
	Oper string
}

// SystemSaveInstruction saves a machine property into a register: %time,
// %ring and %page readbacks.
type SystemSaveInstruction struct {
	ThreeRegs
	Oper string
}

// TranslateAddressRInstruction translates a virtual address.
type TranslateAddressRInstruction struct {
	ThreeRegs
}

// PageInstruction turns paging on or off.
type PageInstruction struct {
	pseudo
	On bool
}

// InterruptsInstruction enables or disables interrupts.
type InterruptsInstruction struct {
	pseudo
	Enable bool
}

// HaltInstruction stops the machine.
type HaltInstruction struct {
	pseudo
}

// RestInstruction idles the machine until the next interrupt.
type RestInstruction struct {
	pseudo
}

// SleepRInstruction sleeps for the number of microseconds in a register.
type SleepRInstruction struct {
	ThreeRegs
}

// IOInstruction performs an external I/O operation.
type IOInstruction struct {
	pseudo
	Type string
}

// PrintRInstruction prints a register value in the selected format.
type PrintRInstruction struct {
	ThreeRegs
	Type PrintType
}

// PrintPseudoinstruction prints a string or character literal.
type PrintPseudoinstruction struct {
	pseudo
	Imm     Imm
	Text    string
	UseText bool
}

// QueryRInstruction queries a machine property into a register.
type QueryRInstruction struct {
	ThreeRegs
	Type QueryType
}

// -------------------
// ----- Globals -----
// -------------------

// queryOpers maps query types to their assembly spelling.
var queryOpers = map[QueryType]string{
	QueryMemory: "mem",
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewSystemI creates an immediate system operation such as %int or %time.
func NewSystemI(oper string, imm Imm) *SystemIInstruction {
	return &SystemIInstruction{Oper: oper, Imm: imm}
}

// Strings renders "%oper imm".
func (i *SystemIInstruction) Strings() []string {
	return []string{"%" + i.Oper + " " + i.Imm.String()}
}

// NewSystemR creates a register system operation such as %int or %ring.
func NewSystemR(oper string, source *VirtualRegister) *SystemRInstruction {
	return &SystemRInstruction{ThreeRegs: ThreeRegs{LeftSource: source}, Oper: oper}
}

// Strings renders "%oper $reg".
func (i *SystemRInstruction) Strings() []string {
	return []string{"%" + i.Oper + " " + i.LeftSource.RegOrID()}
}

// NewSystemSave creates a machine property readback such as %time -> $rd.
func NewSystemSave(oper string, destination *VirtualRegister) *SystemSaveInstruction {
	return &SystemSaveInstruction{ThreeRegs: ThreeRegs{Destination: destination}, Oper: oper}
}

// Strings renders "%oper -> $rd".
func (i *SystemSaveInstruction) Strings() []string {
	return []string{"%" + i.Oper + " -> " + i.Destination.RegOrID()}
}

// NewTranslateAddressR creates an address translation.
func NewTranslateAddressR(source, destination *VirtualRegister) *TranslateAddressRInstruction {
	return &TranslateAddressRInstruction{ThreeRegs{LeftSource: source, Destination: destination}}
}

// Strings renders "translate $rs -> $rd".
func (i *TranslateAddressRInstruction) Strings() []string {
	return []string{"translate " + i.LeftSource.RegOrID() + " -> " + i.Destination.RegOrID()}
}

// NewPage creates a paging toggle.
func NewPage(on bool) *PageInstruction {
	return &PageInstruction{On: on}
}

// Strings renders "%page on" or "%page off".
func (i *PageInstruction) Strings() []string {
	if i.On {
		return []string{"%page on"}
	}
	return []string{"%page off"}
}

// NewInterrupts creates an interrupt toggle.
func NewInterrupts(enable bool) *InterruptsInstruction {
	return &InterruptsInstruction{Enable: enable}
}

// Strings renders "%ei" or "%di".
func (i *InterruptsInstruction) Strings() []string {
	if i.Enable {
		return []string{"%ei"}
	}
	return []string{"%di"}
}

// Strings renders the halt external instruction.
func (i *HaltInstruction) Strings() []string {
	return []string{"<halt>"}
}

// Strings renders the rest external instruction.
func (i *RestInstruction) Strings() []string {
	return []string{"<rest>"}
}

// NewSleepR creates a sleep for the duration held in source.
func NewSleepR(source *VirtualRegister) *SleepRInstruction {
	return &SleepRInstruction{ThreeRegs{LeftSource: source}}
}

// Strings renders "<sleep $rs>".
func (i *SleepRInstruction) Strings() []string {
	return []string{"<sleep " + i.LeftSource.RegOrID() + ">"}
}

// NewIO creates an external I/O operation.
func NewIO(typ string) *IOInstruction {
	return &IOInstruction{Type: typ}
}

// Strings renders "<io type>".
func (i *IOInstruction) Strings() []string {
	if len(i.Type) == 0 {
		return []string{"<io>"}
	}
	return []string{"<io " + i.Type + ">"}
}

// NewPrintR creates a register print.
func NewPrintR(source *VirtualRegister, typ PrintType) *PrintRInstruction {
	return &PrintRInstruction{ThreeRegs: ThreeRegs{LeftSource: source}, Type: typ}
}

// Strings renders "<prd $rs>" and friends.
func (i *PrintRInstruction) Strings() []string {
	name := "print"
	switch i.Type {
	case PrintBin:
		name = "prb"
	case PrintDec:
		name = "prd"
	case PrintHex:
		name = "prx"
	case PrintChar:
		name = "prc"
	}
	return []string{"<" + name + " " + i.LeftSource.RegOrID() + ">"}
}

// NewPrintText creates a string print pseudoinstruction.
func NewPrintText(text string) *PrintPseudoinstruction {
	return &PrintPseudoinstruction{Text: text, UseText: true}
}

// NewPrintChar creates a character print pseudoinstruction.
func NewPrintChar(imm Imm) *PrintPseudoinstruction {
	return &PrintPseudoinstruction{Imm: imm}
}

// Strings renders the print pseudoinstruction.
func (i *PrintPseudoinstruction) Strings() []string {
	if i.UseText {
		return []string{"<p \"" + i.Text + "\">"}
	}
	return []string{"<prc " + charify(i.Imm) + ">"}
}

// NewQueryR creates a machine property query.
func NewQueryR(destination *VirtualRegister, typ QueryType) *QueryRInstruction {
	return &QueryRInstruction{ThreeRegs: ThreeRegs{Destination: destination}, Type: typ}
}

// Strings renders "? mem -> $rd".
func (i *QueryRInstruction) Strings() []string {
	return []string{"? " + queryOpers[i.Type] + " -> " + i.Destination.RegOrID()}
}
