// program.go defines the program container: globals in declaration order,
// function signatures, the function table and the string literal pool.

package lir

import (
	"fmt"

	"github.com/pkg/errors"

	"cmmc/src/ir/ast"
	"cmmc/src/ir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Signature is the externally visible type of a function.
type Signature struct {
	Return types.Type
	Args   []types.Type
}

// Program owns the functions and globals of one translation unit.
type Program struct {
	Globals     map[string]*Global
	GlobalOrder []*Global
	Signatures  map[string]Signature
	Functions   map[string]*Function
	// FunctionOrder preserves declaration order for eager compilation and
	// deterministic output.
	FunctionOrder []*Function

	strings     map[string]int
	stringOrder []string
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewProgram builds a program from the root of the syntax tree. Top level
// nodes are function definitions and global declarations; duplicate names
// raise a RedefinitionError.
func NewProgram(root *ast.Node) (*Program, error) {
	p := &Program{
		Globals:    make(map[string]*Global),
		Signatures: make(map[string]Signature),
		Functions:  make(map[string]*Function),
		strings:    make(map[string]int),
	}

	for _, e1 := range root.Children {
		switch e1.Kind {
		case ast.FN:
			name := e1.At(0).Text
			if _, ok := p.Signatures[name]; ok {
				return nil, &RedefinitionError{Name: name}
			}
			ret, err := types.Get(e1.At(1))
			if err != nil {
				return nil, errors.Wrapf(err, "return type of %s", name)
			}
			args := make([]types.Type, 0, e1.At(2).Size())
			for _, e2 := range e1.At(2).Children {
				arg, err := types.Get(e2.At(0))
				if err != nil {
					return nil, errors.Wrapf(err, "argument type in %s", name)
				}
				args = append(args, arg)
			}
			f, err := NewFunction(p, e1)
			if err != nil {
				return nil, err
			}
			p.Signatures[name] = Signature{Return: ret, Args: args}
			p.Functions[name] = f
			p.FunctionOrder = append(p.FunctionOrder, f)
		case ast.COLON:
			name := e1.At(0).Text
			if _, ok := p.Globals[name]; ok {
				return nil, &RedefinitionError{Name: name}
			}
			typ, err := types.Get(e1.At(1))
			if err != nil {
				return nil, errors.Wrapf(err, "type of global %s", name)
			}
			var init *ast.Node
			if e1.Size() > 2 {
				init = e1.At(2)
			}
			g := NewGlobal(name, typ, init)
			p.Globals[name] = g
			p.GlobalOrder = append(p.GlobalOrder, g)
		default:
			return nil, errors.Errorf("unexpected node under root: %s", e1.Kind)
		}
	}
	return p, nil
}

// GetStringID interns a string literal, returning its stable id. The id n
// corresponds to the emitted label $str<n>.
func (p *Program) GetStringID(s string) int {
	if id, ok := p.strings[s]; ok {
		return id
	}
	id := len(p.stringOrder)
	p.strings[s] = id
	p.stringOrder = append(p.stringOrder, s)
	return id
}

// Strings returns the interned string literals in id order.
func (p *Program) Strings() []string {
	return p.stringOrder
}

// Compile lowers every function body in declaration order and builds each
// function's blocks, CFG and liveness, leaving the program ready for
// register allocation.
func (p *Program) Compile() error {
	for _, e1 := range p.FunctionOrder {
		if err := e1.Compile(); err != nil {
			return errors.Wrapf(err, "compiling %s", e1.Name)
		}
		e1.MakeBlocks()
		e1.MakeCFG()
		e1.ComputeLiveness()
	}
	return nil
}

// StringifyData renders the data section: one labelled word per global and
// one labelled literal per interned string.
func (p *Program) StringifyData() []string {
	out := make([]string, 0, 2*(len(p.GlobalOrder)+len(p.stringOrder)))
	for _, e1 := range p.GlobalOrder {
		out = append(out, "@"+e1.Name)
		value := int64(0)
		if e1.Init != nil && e1.Init.Kind == ast.NUMBER {
			value = e1.Init.Value
		}
		out = append(out, fmt.Sprintf("%d", value))
	}
	for i1, e1 := range p.stringOrder {
		out = append(out, fmt.Sprintf("@$str%d", i1))
		out = append(out, fmt.Sprintf("%q", e1))
	}
	return out
}
