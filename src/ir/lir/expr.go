// expr.go lowers expression trees into Why instructions. Every expression
// compiles into a destination virtual register, threading through a
// compile-time multiplier that pointer arithmetic folds into the integer
// operand.

package lir

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"cmmc/src/ir/ast"
	"cmmc/src/ir/types"
	"cmmc/src/ir/why"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Expr is a lowered expression tree node.
type Expr interface {
	// Compile emits instructions computing the expression, scaled by the
	// compile-time multiplier, into destination. A <nil> destination
	// discards the value; only calls accept it.
	Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error
	// GetType returns the expression's source language type.
	GetType(scope Scope) (types.Type, error)
	// String renders the expression for diagnostics.
	String() string
}

// NumberExpr is an integer literal.
type NumberExpr struct {
	Value int64
}

// BoolExpr is a boolean literal.
type BoolExpr struct {
	Value bool
}

// StringExpr is a string literal, interned at program level.
type StringExpr struct {
	Contents string
}

// VariableExpr references a named variable.
type VariableExpr struct {
	Name string
}

// AddressOfExpr takes the address of a variable.
type AddressOfExpr struct {
	Subexpr Expr
}

// DerefExpr loads through a pointer.
type DerefExpr struct {
	Subexpr Expr
}

// PlusExpr adds two values, scaling the integer side of pointer arithmetic.
type PlusExpr struct {
	Left, Right Expr
}

// MinusExpr subtracts two values.
type MinusExpr struct {
	Left, Right Expr
}

// MultExpr multiplies two values.
type MultExpr struct {
	Left, Right Expr
}

// CallExpr calls a named function.
type CallExpr struct {
	Name      string
	Arguments []Expr
}

// ---------------------
// ----- Functions -----
// ---------------------

// GetExpr maps an expression node of the syntax tree to an Expr.
func GetExpr(node *ast.Node, f *Function) (Expr, error) {
	switch node.Kind {
	case ast.PLUS:
		return binaryExpr(node, f, func(l, r Expr) Expr { return &PlusExpr{Left: l, Right: r} })
	case ast.MINUS:
		return binaryExpr(node, f, func(l, r Expr) Expr { return &MinusExpr{Left: l, Right: r} })
	case ast.TIMES:
		if node.Size() == 1 {
			sub, err := GetExpr(node.At(0), f)
			if err != nil {
				return nil, err
			}
			return &DerefExpr{Subexpr: sub}, nil
		}
		return binaryExpr(node, f, func(l, r Expr) Expr { return &MultExpr{Left: l, Right: r} })
	case ast.NUMBER:
		return &NumberExpr{Value: node.Value}, nil
	case ast.CHAR:
		return &NumberExpr{Value: node.Value}, nil
	case ast.TRUE:
		return &BoolExpr{Value: true}, nil
	case ast.FALSE:
		return &BoolExpr{Value: false}, nil
	case ast.AND:
		sub, err := GetExpr(node.At(0), f)
		if err != nil {
			return nil, err
		}
		return &AddressOfExpr{Subexpr: sub}, nil
	case ast.IDENT:
		if f == nil {
			return nil, errors.New("variable expression encountered in functionless context")
		}
		return &VariableExpr{Name: node.Text}, nil
	case ast.LPAREN:
		if f == nil {
			return nil, errors.New("function call expression encountered in functionless context")
		}
		call := &CallExpr{Name: node.At(0).Text}
		for _, e1 := range node.At(1).Children {
			arg, err := GetExpr(e1, f)
			if err != nil {
				return nil, err
			}
			call.Arguments = append(call.Arguments, arg)
		}
		return call, nil
	case ast.STRING:
		return &StringExpr{Contents: node.Text}, nil
	}
	return nil, errors.Errorf("unrecognized symbol in GetExpr: %s", node.Kind)
}

// binaryExpr lowers both children of node and combines them with combine.
func binaryExpr(node *ast.Node, f *Function, combine func(l, r Expr) Expr) (Expr, error) {
	left, err := GetExpr(node.At(0), f)
	if err != nil {
		return nil, err
	}
	right, err := GetExpr(node.At(1), f)
	if err != nil {
		return nil, err
	}
	return combine(left, right), nil
}

// memSize returns the load/store width for a type: its size when the
// hardware supports it directly, the word size otherwise.
func memSize(t types.Type) int {
	switch t.Size() {
	case 1, 2, 4, 8:
		return t.Size()
	}
	return why.WordSize
}

// fitsImmediate reports whether v fits the 32-bit immediate field.
func fitsImmediate(v int64) bool {
	return math.MinInt32 <= v && v <= math.MaxInt32
}

// Compile emits the literal, split into a set and an upper-immediate load
// when it exceeds the 32-bit immediate range.
func (e *NumberExpr) Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error {
	multiplied := e.Value * multiplier
	if fitsImmediate(multiplied) {
		f.Add(NewSetI(destination, IntImm(multiplied)))
	} else {
		low := int64(uint32(uint64(multiplied)))
		high := int64(uint64(multiplied) >> 32)
		f.Add(NewSetI(destination, IntImm(low)))
		f.Add(NewLuiI(destination, IntImm(high)))
	}
	return nil
}

// GetType types number literals as s64.
func (e *NumberExpr) GetType(Scope) (types.Type, error) {
	return types.Signed{Width: 64}, nil
}

func (e *NumberExpr) String() string {
	return fmt.Sprintf("%d", e.Value)
}

// Compile emits the boolean as 0 or the multiplier.
func (e *BoolExpr) Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error {
	if e.Value {
		f.Add(NewSetI(destination, IntImm(multiplier)))
	} else {
		f.Add(NewSetI(destination, IntImm(0)))
	}
	return nil
}

// GetType types boolean literals as bool.
func (e *BoolExpr) GetType(Scope) (types.Type, error) {
	return types.Bool{}, nil
}

func (e *BoolExpr) String() string {
	return fmt.Sprintf("%t", e.Value)
}

// Compile interns the literal and loads its label.
func (e *StringExpr) Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error {
	if multiplier != 1 {
		return errors.New("cannot multiply in string expression")
	}
	id := f.Program.GetStringID(e.Contents)
	f.Add(NewSetI(destination, LabelImm(fmt.Sprintf("$str%d", id))))
	return nil
}

// GetType types string literals as u8*.
func (e *StringExpr) GetType(Scope) (types.Type, error) {
	return types.Pointer{Subtype: types.Unsigned{Width: 8}}, nil
}

func (e *StringExpr) String() string {
	return fmt.Sprintf("%q", e.Contents)
}

// Compile loads the variable's value: globals load through their label,
// locals move from their virtual register.
func (e *VariableExpr) Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error {
	v := scope.Lookup(e.Name)
	if v == nil {
		return &ResolutionError{Name: e.Name}
	}
	if v.IsGlobal() {
		f.Add(NewLoadI(destination, LabelImm(e.Name), memSize(v.Type)))
	} else {
		f.Add(NewMove(v.VReg(), destination))
	}
	if multiplier != 1 {
		f.Add(NewMultI(destination, destination, IntImm(multiplier)))
	}
	return nil
}

// GetType returns the referenced variable's declared type.
func (e *VariableExpr) GetType(scope Scope) (types.Type, error) {
	v := scope.Lookup(e.Name)
	if v == nil {
		return nil, &ResolutionError{Name: e.Name}
	}
	return v.Type, nil
}

func (e *VariableExpr) String() string {
	return e.Name
}

// Compile produces the variable's address: the label for globals, the
// frame pointer plus the stack offset for locals.
func (e *AddressOfExpr) Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error {
	if multiplier != 1 {
		return errors.New("cannot multiply in address-of expression")
	}
	varExpr, ok := e.Subexpr.(*VariableExpr)
	if !ok {
		return &LvalueError{Expr: e.Subexpr.String()}
	}
	v := scope.Lookup(varExpr.Name)
	if v == nil {
		return &ResolutionError{Name: varExpr.Name}
	}
	if v.IsGlobal() {
		f.Add(NewSetI(destination, LabelImm(varExpr.Name)))
	} else {
		if _, ok := f.StackOffset(v.VReg()); !ok {
			return &NotOnStackError{Name: v.Name}
		}
		f.Add(NewBinaryI("+", f.Precolored(why.FramePointerOffset), destination, VarImm{Var: v}))
	}
	return nil
}

// GetType types the address as a pointer to the variable's type.
func (e *AddressOfExpr) GetType(scope Scope) (types.Type, error) {
	varExpr, ok := e.Subexpr.(*VariableExpr)
	if !ok {
		return nil, &LvalueError{Expr: e.Subexpr.String()}
	}
	sub, err := varExpr.GetType(scope)
	if err != nil {
		return nil, err
	}
	return types.Pointer{Subtype: sub}, nil
}

func (e *AddressOfExpr) String() string {
	return "&" + e.Subexpr.String()
}

// checkType verifies the subexpression is a pointer and returns its type.
func (e *DerefExpr) checkType(scope Scope) (types.Pointer, error) {
	t, err := e.Subexpr.GetType(scope)
	if err != nil {
		return types.Pointer{}, err
	}
	ptr, ok := t.(types.Pointer)
	if !ok {
		return types.Pointer{}, errors.Errorf("cannot dereference non-pointer type %s", t)
	}
	return ptr, nil
}

// Compile computes the address and loads through it.
func (e *DerefExpr) Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error {
	ptr, err := e.checkType(scope)
	if err != nil {
		return err
	}
	if err := e.Subexpr.Compile(destination, f, scope, multiplier); err != nil {
		return err
	}
	f.Add(NewLoadR(destination, destination, memSize(ptr.Subtype)))
	return nil
}

// GetType returns the pointee type.
func (e *DerefExpr) GetType(scope Scope) (types.Type, error) {
	ptr, err := e.checkType(scope)
	if err != nil {
		return nil, err
	}
	return ptr.Subtype, nil
}

func (e *DerefExpr) String() string {
	return "*" + e.Subexpr.String()
}

// compileAdditive lowers the operands of an additive expression, folding
// sizeof(pointee) into the integer side of pointer arithmetic.
func compileAdditive(left, right Expr, minus bool, f *Function, scope Scope, multiplier int64) (*VirtualRegister, *VirtualRegister, error) {
	leftType, err := left.GetType(scope)
	if err != nil {
		return nil, nil, err
	}
	rightType, err := right.GetType(scope)
	if err != nil {
		return nil, nil, err
	}
	leftVar, rightVar := f.NewVar(leftType), f.NewVar(rightType)

	switch {
	case types.IsPointer(leftType) && types.IsInt(rightType):
		if multiplier != 1 {
			return nil, nil, errors.New("cannot multiply in pointer arithmetic")
		}
		sub := leftType.(types.Pointer).Subtype
		if err := left.Compile(leftVar, f, scope, 1); err != nil {
			return nil, nil, err
		}
		if err := right.Compile(rightVar, f, scope, int64(sub.Size())); err != nil {
			return nil, nil, err
		}
	case types.IsInt(leftType) && types.IsPointer(rightType):
		if minus {
			return nil, nil, errors.Errorf("cannot subtract %s from %s", rightType, leftType)
		}
		if multiplier != 1 {
			return nil, nil, errors.New("cannot multiply in pointer arithmetic")
		}
		sub := rightType.(types.Pointer).Subtype
		if err := left.Compile(leftVar, f, scope, int64(sub.Size())); err != nil {
			return nil, nil, err
		}
		if err := right.Compile(rightVar, f, scope, 1); err != nil {
			return nil, nil, err
		}
	case !leftType.CompatibleWith(rightType):
		return nil, nil, &ImplicitConversionError{From: leftType.String(), To: rightType.String()}
	default:
		if err := left.Compile(leftVar, f, scope, multiplier); err != nil {
			return nil, nil, err
		}
		if err := right.Compile(rightVar, f, scope, multiplier); err != nil {
			return nil, nil, err
		}
	}
	return leftVar, rightVar, nil
}

// Compile lowers both sides and adds them.
func (e *PlusExpr) Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error {
	leftVar, rightVar, err := compileAdditive(e.Left, e.Right, false, f, scope, multiplier)
	if err != nil {
		return err
	}
	f.Add(NewBinaryR("+", leftVar, rightVar, destination))
	return nil
}

// GetType returns the pointer side's type in pointer arithmetic, the left
// type otherwise.
func (e *PlusExpr) GetType(scope Scope) (types.Type, error) {
	return additiveType(e.Left, e.Right, scope)
}

func (e *PlusExpr) String() string {
	return e.Left.String() + " + " + e.Right.String()
}

// Compile lowers both sides and subtracts them.
func (e *MinusExpr) Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error {
	leftVar, rightVar, err := compileAdditive(e.Left, e.Right, true, f, scope, multiplier)
	if err != nil {
		return err
	}
	f.Add(NewBinaryR("-", leftVar, rightVar, destination))
	return nil
}

// GetType returns the pointer side's type in pointer arithmetic, the left
// type otherwise.
func (e *MinusExpr) GetType(scope Scope) (types.Type, error) {
	return additiveType(e.Left, e.Right, scope)
}

func (e *MinusExpr) String() string {
	return e.Left.String() + " - " + e.Right.String()
}

// additiveType types an additive expression.
func additiveType(left, right Expr, scope Scope) (types.Type, error) {
	leftType, err := left.GetType(scope)
	if err != nil {
		return nil, err
	}
	if types.IsPointer(leftType) {
		return leftType, nil
	}
	rightType, err := right.GetType(scope)
	if err != nil {
		return nil, err
	}
	if types.IsPointer(rightType) {
		return rightType, nil
	}
	return leftType, nil
}

// Compile multiplies the left side by the right side, folding the
// multiplier into the right operand.
func (e *MultExpr) Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error {
	leftType, err := e.Left.GetType(scope)
	if err != nil {
		return err
	}
	rightType, err := e.Right.GetType(scope)
	if err != nil {
		return err
	}
	leftVar, rightVar := f.NewVar(leftType), f.NewVar(rightType)
	if err := e.Left.Compile(leftVar, f, scope, 1); err != nil {
		return err
	}
	if err := e.Right.Compile(rightVar, f, scope, multiplier); err != nil {
		return err
	}
	f.Add(NewMultR(leftVar, rightVar, destination))
	return nil
}

// GetType returns the left operand's type.
func (e *MultExpr) GetType(scope Scope) (types.Type, error) {
	return e.Left.GetType(scope)
}

func (e *MultExpr) String() string {
	return e.Left.String() + " * " + e.Right.String()
}

// Compile lowers the call: the caller's in-use argument registers are
// saved around the call, arguments land in the argument bank in
// declaration order, and the return value is moved out of $r0.
func (e *CallExpr) Compile(destination *VirtualRegister, f *Function, scope Scope, multiplier int64) error {
	found := scope.LookupFunction(e.Name)
	if found == nil {
		return &FunctionNotFoundError{Name: e.Name}
	}
	if sig, ok := f.Program.Signatures[e.Name]; ok && len(sig.Args) != len(e.Arguments) {
		return &ArityMismatchError{Name: e.Name, Want: len(sig.Args), Got: len(e.Arguments)}
	}
	if len(e.Arguments) > why.ArgumentCount {
		return errors.Errorf("calls with greater than %d arguments are unsupported", why.ArgumentCount)
	}

	toPush := len(f.Arguments)
	if len(e.Arguments) < toPush {
		toPush = len(e.Arguments)
	}
	for i1 := 0; i1 < toPush; i1++ {
		f.Add(NewStackPush(f.Precolored(why.ArgumentOffset + i1)))
	}

	for i1, e1 := range e.Arguments {
		if err := e1.Compile(f.Precolored(why.ArgumentOffset+i1), f, scope, 1); err != nil {
			return err
		}
	}

	f.Add(NewJump(LabelImm(e.Name), true))

	for i1 := toPush; i1 > 0; i1-- {
		f.Add(NewStackPop(f.Precolored(why.ArgumentOffset + i1 - 1)))
	}

	if !types.IsVoid(found.ReturnType) && destination != nil {
		if multiplier == 1 {
			f.Add(NewMove(f.Precolored(why.ReturnValueOffset), destination))
		} else {
			f.Add(NewMultI(f.Precolored(why.ReturnValueOffset), destination, IntImm(multiplier)))
		}
	}
	return nil
}

// GetType returns the callee's declared return type.
func (e *CallExpr) GetType(scope Scope) (types.Type, error) {
	found := scope.LookupFunction(e.Name)
	if found == nil {
		return nil, &FunctionNotFoundError{Name: e.Name}
	}
	return found.ReturnType, nil
}

func (e *CallExpr) String() string {
	out := e.Name + "("
	for i1, e1 := range e.Arguments {
		out += e1.String()
		if i1 < len(e.Arguments)-1 {
			out += ", "
		}
	}
	return out + ")"
}
