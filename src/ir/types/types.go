// Package types implements the source language type model: integer widths,
// signedness, pointers, arrays and function pointers, together with the
// compatibility rules that drive implicit conversions.
package types

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"cmmc/src/ir/ast"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Type is the interface shared by all source language types.
type Type interface {
	// Size returns the size of a value of this type in bytes.
	Size() int
	// Equal reports whether this type is structurally identical to other.
	Equal(other Type) bool
	// CompatibleWith reports whether a value of this type may be assigned
	// where other is expected without an explicit conversion.
	CompatibleWith(other Type) bool
	// String renders the type the way the source language spells it.
	String() string
}

// Void is the unit type of functions that return nothing.
type Void struct{}

// Bool is the boolean type.
type Bool struct{}

// Signed is a signed integer of the given bit width.
type Signed struct {
	Width int // Bit width, one of 8, 16, 32, 64.
}

// Unsigned is an unsigned integer of the given bit width.
type Unsigned struct {
	Width int // Bit width, one of 8, 16, 32, 64.
}

// Pointer points to a value of the subtype.
type Pointer struct {
	Subtype Type
}

// Array is a fixed-count sequence of the subtype.
type Array struct {
	Subtype Type
	Count   int64
}

// FuncPointer is a pointer to a function with the given signature.
type FuncPointer struct {
	Return Type
	Args   []Type
}

// ---------------------
// ----- Constants -----
// ---------------------

// WordSize is the Why architecture word size in bytes. Pointers and function
// pointers occupy one word.
const WordSize = 8

// ---------------------
// ----- Functions -----
// ---------------------

// Size returns 0: void has no values.
func (t Void) Size() int { return 0 }

// Size returns the storage size of a boolean in bytes.
func (t Bool) Size() int { return 1 }

// Size returns the storage size of the integer in bytes.
func (t Signed) Size() int { return t.Width / 8 }

// Size returns the storage size of the integer in bytes.
func (t Unsigned) Size() int { return t.Width / 8 }

// Size returns the word size: all pointers are one word wide.
func (t Pointer) Size() int { return WordSize }

// Size returns the total storage size of the array in bytes.
func (t Array) Size() int { return int(t.Count) * t.Subtype.Size() }

// Size returns the word size: function pointers are plain addresses.
func (t FuncPointer) Size() int { return WordSize }

func (t Void) String() string     { return "void" }
func (t Bool) String() string     { return "bool" }
func (t Signed) String() string   { return fmt.Sprintf("s%d", t.Width) }
func (t Unsigned) String() string { return fmt.Sprintf("u%d", t.Width) }
func (t Pointer) String() string  { return t.Subtype.String() + "*" }
func (t Array) String() string    { return fmt.Sprintf("%s[%d]", t.Subtype, t.Count) }

func (t FuncPointer) String() string {
	sb := strings.Builder{}
	sb.WriteString(t.Return.String())
	sb.WriteRune('(')
	for i1, e1 := range t.Args {
		sb.WriteString(e1.String())
		if i1 < len(t.Args)-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString(")*")
	return sb.String()
}

// Equal reports structural identity.
func (t Void) Equal(other Type) bool {
	_, ok := other.(Void)
	return ok
}

func (t Bool) Equal(other Type) bool {
	_, ok := other.(Bool)
	return ok
}

func (t Signed) Equal(other Type) bool {
	o, ok := other.(Signed)
	return ok && o.Width == t.Width
}

func (t Unsigned) Equal(other Type) bool {
	o, ok := other.(Unsigned)
	return ok && o.Width == t.Width
}

func (t Pointer) Equal(other Type) bool {
	o, ok := other.(Pointer)
	return ok && t.Subtype.Equal(o.Subtype)
}

func (t Array) Equal(other Type) bool {
	o, ok := other.(Array)
	return ok && t.Count == o.Count && t.Subtype.Equal(o.Subtype)
}

func (t FuncPointer) Equal(other Type) bool {
	o, ok := other.(FuncPointer)
	if !ok || !t.Return.Equal(o.Return) || len(t.Args) != len(o.Args) {
		return false
	}
	for i1 := range t.Args {
		if !t.Args[i1].Equal(o.Args[i1]) {
			return false
		}
	}
	return true
}

// CompatibleWith for void holds only against void.
func (t Void) CompatibleWith(other Type) bool {
	return t.Equal(other)
}

// CompatibleWith for bool holds against bool and any integer.
func (t Bool) CompatibleWith(other Type) bool {
	return t.Equal(other) || IsInt(other)
}

// CompatibleWith for signed integers holds against bool and against signed
// integers of the same width.
func (t Signed) CompatibleWith(other Type) bool {
	if _, ok := other.(Bool); ok {
		return true
	}
	return t.Equal(other)
}

// CompatibleWith for unsigned integers holds against bool and against
// unsigned integers of the same width.
func (t Unsigned) CompatibleWith(other Type) bool {
	if _, ok := other.(Bool); ok {
		return true
	}
	return t.Equal(other)
}

// CompatibleWith for pointers holds when the other side is a pointer and
// either points to void or to a compatible subtype. An array subtype decays
// to a pointer to its element type.
func (t Pointer) CompatibleWith(other Type) bool {
	o, ok := other.(Pointer)
	if !ok {
		return false
	}
	if _, void := o.Subtype.(Void); void {
		return true
	}
	if _, void := t.Subtype.(Void); void {
		return true
	}
	if t.Subtype.CompatibleWith(o.Subtype) {
		return true
	}
	if arr, isArr := t.Subtype.(Array); isArr {
		return arr.Subtype.CompatibleWith(o.Subtype)
	}
	return false
}

// CompatibleWith for arrays holds against arrays of compatible subtype and
// equal count, and decays against pointers to a compatible element type.
func (t Array) CompatibleWith(other Type) bool {
	if o, ok := other.(Array); ok {
		return t.Count == o.Count && t.Subtype.CompatibleWith(o.Subtype)
	}
	if o, ok := other.(Pointer); ok {
		return t.Subtype.CompatibleWith(o.Subtype)
	}
	return false
}

// CompatibleWith for function pointers holds against void pointers and
// against structurally equal function pointers.
func (t FuncPointer) CompatibleWith(other Type) bool {
	if o, ok := other.(Pointer); ok {
		_, void := o.Subtype.(Void)
		return void
	}
	return t.Equal(other)
}

// IsInt reports whether t is a signed or unsigned integer.
func IsInt(t Type) bool {
	switch t.(type) {
	case Signed, Unsigned:
		return true
	}
	return false
}

// IsSigned reports whether t is a signed integer.
func IsSigned(t Type) bool {
	_, ok := t.(Signed)
	return ok
}

// IsPointer reports whether t is a pointer.
func IsPointer(t Type) bool {
	_, ok := t.(Pointer)
	return ok
}

// IsVoid reports whether t is void.
func IsVoid(t Type) bool {
	_, ok := t.(Void)
	return ok
}

// Width returns the bit width of integer type t, or 0 if t is not an integer.
func Width(t Type) int {
	switch i := t.(type) {
	case Signed:
		return i.Width
	case Unsigned:
		return i.Width
	}
	return 0
}

// Get maps a type node of the syntax tree to a Type.
func Get(node *ast.Node) (Type, error) {
	switch node.Kind {
	case ast.VOID:
		return Void{}, nil
	case ast.BOOL:
		return Bool{}, nil
	case ast.S8:
		return Signed{Width: 8}, nil
	case ast.S16:
		return Signed{Width: 16}, nil
	case ast.S32:
		return Signed{Width: 32}, nil
	case ast.S64:
		return Signed{Width: 64}, nil
	case ast.U8:
		return Unsigned{Width: 8}, nil
	case ast.U16:
		return Unsigned{Width: 16}, nil
	case ast.U32:
		return Unsigned{Width: 32}, nil
	case ast.U64:
		return Unsigned{Width: 64}, nil
	case ast.POINTER:
		sub, err := Get(node.At(0))
		if err != nil {
			return nil, err
		}
		return Pointer{Subtype: sub}, nil
	case ast.STRING:
		// String literals type as u8*.
		return Pointer{Subtype: Unsigned{Width: 8}}, nil
	case ast.LSQUARE:
		sub, err := Get(node.At(0))
		if err != nil {
			return nil, err
		}
		count := node.At(1)
		if count.Kind != ast.NUMBER {
			return nil, errors.Errorf("array size must be a compile-time constant, got %s", count.Kind)
		}
		return Array{Subtype: sub, Count: count.Value}, nil
	case ast.FNPTR:
		ret, err := Get(node.At(0))
		if err != nil {
			return nil, err
		}
		args := make([]Type, 0, node.At(1).Size())
		for _, e1 := range node.At(1).Children {
			arg, err := Get(e1)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return FuncPointer{Return: ret, Args: args}, nil
	}
	return nil, errors.Errorf("invalid type node: %s", node.Kind)
}
