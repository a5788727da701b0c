// Package backend drives code generation: it lowers the program, runs
// register allocation over every function and emits the textual Why
// assembly listing.
package backend

import (
	"fmt"

	"github.com/pkg/errors"

	"cmmc/src/backend/regalloc"
	"cmmc/src/ir/lir"
	"cmmc/src/util"
)

// ---------------------
// ----- Functions -----
// ---------------------

// GenerateAssembler compiles every function of p, allocates registers and
// writes the assembly listing to w: the data section first, then each
// function behind its label.
func GenerateAssembler(opt util.Options, p *lir.Program, w *util.Writer) error {
	if err := p.Compile(); err != nil {
		return err
	}

	for _, e1 := range p.FunctionOrder {
		spills, err := regalloc.Allocate(opt, e1)
		if err != nil {
			return errors.Wrapf(err, "allocating registers for %s", e1.Name)
		}
		if opt.Verbose {
			fmt.Printf("%s: register allocation succeeded with %d spill(s)\n", e1.Name, spills)
		}
	}

	for _, e1 := range p.StringifyData() {
		w.WriteLine(e1)
	}
	for _, e1 := range p.FunctionOrder {
		w.WriteLine("@" + e1.Name)
		for _, e2 := range e1.Stringify() {
			w.WriteLine(e2)
		}
	}
	return nil
}
