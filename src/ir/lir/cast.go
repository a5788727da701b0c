// cast.go implements implicit conversions: TryCast inserts the minimum
// instructions that make a value of one integer width usable as another.

package lir

import "cmmc/src/ir/types"

// ---------------------
// ----- Functions -----
// ---------------------

// TryCast attempts to coerce vreg, holding a value of type from, into type
// to. Directly assignable types need no instructions. Between integers of
// different widths, widening signed to signed sign-extends from the source
// width; any narrowing masks to the target width. Returns whether a legal
// coercion exists; a <nil> vreg checks without emitting.
func TryCast(from, to types.Type, vreg *VirtualRegister, f *Function) bool {
	if from.CompatibleWith(to) {
		return true
	}
	if !types.IsInt(from) || !types.IsInt(to) {
		return false
	}
	fromWidth, toWidth := types.Width(from), types.Width(to)
	if vreg != nil {
		if types.IsSigned(from) && types.IsSigned(to) && fromWidth < toWidth {
			f.Add(NewSext(vreg, vreg, fromWidth))
		} else if toWidth < fromWidth {
			mask := int64(uint64(1)<<uint(toWidth) - 1)
			f.Add(NewBinaryI("&", vreg, vreg, IntImm(mask)))
		}
	}
	return true
}

// TypeCheck raises an ImplicitConversionError when TryCast cannot bridge
// the two types.
func TypeCheck(from, to types.Type, vreg *VirtualRegister, f *Function) error {
	if !TryCast(from, to, vreg, f) {
		return &ImplicitConversionError{From: from.String(), To: to.String()}
	}
	return nil
}
