// Tests for expression and statement lowering, checked against the exact
// assembly lines the instruction printers produce.

package lir

import (
	"errors"
	"strings"
	"testing"

	"cmmc/src/ir/ast"
)

// param builds a parameter node: an identifier with its type as the only
// child.
func param(name string, typ *ast.Node) *ast.Node {
	p := ast.Ident(name)
	p.Children = []*ast.Node{typ}
	return p
}

// fnNode builds a FN node.
func fnNode(name string, ret *ast.Node, params []*ast.Node, body ...*ast.Node) *ast.Node {
	return ast.New(ast.FN,
		ast.Ident(name),
		ret,
		ast.New(ast.LIST, params...),
		ast.New(ast.BLOCK, body...),
	)
}

// mustProgram builds and lowers a program from top level nodes.
func mustProgram(t *testing.T, nodes ...*ast.Node) *Program {
	t.Helper()
	p, err := NewProgram(ast.New(ast.BLOCK, nodes...))
	if err != nil {
		t.Fatalf("NewProgram: %s", err)
	}
	if err := p.Compile(); err != nil {
		t.Fatalf("Compile: %s", err)
	}
	return p
}

// assertContains fails unless every want line appears in lines, in order.
func assertContains(t *testing.T, lines []string, want ...string) {
	t.Helper()
	i1 := 0
	for _, e1 := range lines {
		if i1 < len(want) && e1 == want[i1] {
			i1++
		}
	}
	if i1 != len(want) {
		t.Errorf("missing line %q in listing:\n%s", want[i1], strings.Join(lines, "\n"))
	}
}

// TestIdentityFunction verifies the exact listing of the identity function:
// prologue, argument move, epilogue.
func TestIdentityFunction(t *testing.T) {
	p := mustProgram(t, fnNode("id", ast.New(ast.S32),
		[]*ast.Node{param("x", ast.New(ast.S32))},
		ast.New(ast.RETURN, ast.Ident("x")),
	))
	got := p.Functions["id"].Stringify()
	want := []string{
		"[ $rt",
		"[ $fp",
		"$sp -> $fp",
		"$a0 -> $r0",
		": .id$e",
		"@.id$e",
		"] $fp",
		"] $rt",
		": $rt",
	}
	if len(got) != len(want) {
		t.Fatalf("listing has %d lines, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for i1 := range want {
		if got[i1] != want[i1] {
			t.Errorf("line %d = %q, want %q", i1, got[i1], want[i1])
		}
	}
}

// TestAddLowering verifies a + b lowers through fresh virtual registers
// into a three-register add targeting the return value register.
func TestAddLowering(t *testing.T) {
	p := mustProgram(t, fnNode("add", ast.New(ast.S64),
		[]*ast.Node{param("a", ast.New(ast.S64)), param("b", ast.New(ast.S64))},
		ast.New(ast.RETURN, ast.New(ast.PLUS, ast.Ident("a"), ast.Ident("b"))),
	))
	assertContains(t, p.Functions["add"].Stringify(),
		"$a0 -> %3",
		"$a1 -> %4",
		"%3 + %4 -> $r0",
	)
}

// TestPointerArithmetic verifies the integer side of p + 2 is scaled by
// sizeof(s32).
func TestPointerArithmetic(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.POINTER, ast.New(ast.S32)),
		[]*ast.Node{param("p", ast.New(ast.POINTER, ast.New(ast.S32)))},
		ast.New(ast.RETURN, ast.New(ast.PLUS, ast.Ident("p"), ast.Number(2))),
	))
	assertContains(t, p.Functions["f"].Stringify(),
		"$a0 -> %2",
		"8 -> %3",
		"%2 + %3 -> $r0",
	)
}

// TestPointerMinusIntScales verifies p - 2 scales like addition, and that
// subtracting a pointer from an integer is rejected.
func TestPointerMinusIntScales(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.POINTER, ast.New(ast.S64)),
		[]*ast.Node{param("p", ast.New(ast.POINTER, ast.New(ast.S64)))},
		ast.New(ast.RETURN, ast.New(ast.MINUS, ast.Ident("p"), ast.Number(1))),
	))
	assertContains(t, p.Functions["f"].Stringify(),
		"8 -> %3",
		"%2 - %3 -> $r0",
	)

	bad, err := NewProgram(ast.New(ast.BLOCK,
		fnNode("g", ast.New(ast.S64),
			[]*ast.Node{param("p", ast.New(ast.POINTER, ast.New(ast.S64)))},
			ast.New(ast.RETURN, ast.New(ast.MINUS, ast.Number(1), ast.Ident("p"))),
		)))
	if err != nil {
		t.Fatalf("NewProgram: %s", err)
	}
	if err := bad.Compile(); err == nil {
		t.Error("expected subtracting a pointer from an integer to fail")
	}
}

// TestNarrowingCast verifies an s32 assigned into a u8 masks to the target
// width.
func TestNarrowingCast(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.VOID),
		[]*ast.Node{param("a", ast.New(ast.S32))},
		ast.New(ast.COLON, ast.Ident("b"), ast.New(ast.U8), ast.Ident("a")),
	))
	assertContains(t, p.Functions["f"].Stringify(),
		"$a0 -> %1",
		"%1 & 255 -> %1",
	)
}

// TestWideningCast verifies an s8 assigned into an s32 sign extends from
// the source width.
func TestWideningCast(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.VOID),
		[]*ast.Node{param("a", ast.New(ast.S8))},
		ast.New(ast.COLON, ast.Ident("b"), ast.New(ast.S32), ast.Ident("a")),
	))
	assertContains(t, p.Functions["f"].Stringify(),
		"$a0 -> %1",
		"sext8 %1 -> %1",
	)
}

// TestIncompatibleInitializer verifies tryCast failures surface as
// ImplicitConversionError.
func TestIncompatibleInitializer(t *testing.T) {
	p, err := NewProgram(ast.New(ast.BLOCK,
		fnNode("f", ast.New(ast.VOID),
			[]*ast.Node{param("p", ast.New(ast.POINTER, ast.New(ast.S32)))},
			ast.New(ast.COLON, ast.Ident("b"), ast.New(ast.S32), ast.Ident("p")),
		)))
	if err != nil {
		t.Fatalf("NewProgram: %s", err)
	}
	err = p.Compile()
	var conv *ImplicitConversionError
	if !errors.As(err, &conv) {
		t.Fatalf("expected ImplicitConversionError, got %v", err)
	}
}

// TestWideImmediate verifies literals beyond the 32-bit immediate range
// split into a set of the low half and an upper immediate load.
func TestWideImmediate(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.VOID), nil,
		ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.S64), ast.Number(5000000000)),
	))
	assertContains(t, p.Functions["f"].Stringify(),
		"705032704 -> %0",
		"lui: 1 -> %0",
	)
}

// TestAddressOf verifies globals produce their label and locals produce a
// frame pointer offset.
func TestAddressOf(t *testing.T) {
	p := mustProgram(t,
		ast.New(ast.COLON, ast.Ident("g"), ast.New(ast.S64)),
		fnNode("f", ast.New(ast.VOID), nil,
			ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.S64), ast.Number(0)),
			ast.New(ast.COLON, ast.Ident("gp"), ast.New(ast.POINTER, ast.New(ast.S64)),
				ast.New(ast.AND, ast.Ident("g"))),
			ast.New(ast.COLON, ast.Ident("xp"), ast.New(ast.POINTER, ast.New(ast.S64)),
				ast.New(ast.AND, ast.Ident("x"))),
		),
	)
	assertContains(t, p.Functions["f"].Stringify(),
		"g -> %1",
		"$fp + 0 -> %2",
	)
}

// TestAddressOfNonLvalue verifies taking the address of a non-variable is
// an lvalue error.
func TestAddressOfNonLvalue(t *testing.T) {
	p, err := NewProgram(ast.New(ast.BLOCK,
		fnNode("f", ast.New(ast.VOID), nil,
			ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.POINTER, ast.New(ast.S64)),
				ast.New(ast.AND, ast.Number(5))),
		)))
	if err != nil {
		t.Fatalf("NewProgram: %s", err)
	}
	err = p.Compile()
	var lvalue *LvalueError
	if !errors.As(err, &lvalue) {
		t.Fatalf("expected LvalueError, got %v", err)
	}
}

// TestDeref verifies dereferences compile the address and load through it
// with the pointee's width.
func TestDeref(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.S32),
		[]*ast.Node{param("p", ast.New(ast.POINTER, ast.New(ast.S32)))},
		ast.New(ast.RETURN, ast.New(ast.TIMES, ast.Ident("p"))),
	))
	assertContains(t, p.Functions["f"].Stringify(),
		"$a0 -> $r0",
		"[$r0] -> $r0 /h",
	)
}

// TestWhileLowering verifies loop label structure: start label, negated
// condition jump to the end, a back jump and the end label.
func TestWhileLowering(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.VOID), nil,
		ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.S64), ast.Number(3)),
		ast.New(ast.WHILE, ast.Ident("x"),
			ast.New(ast.BLOCK,
				ast.New(ast.COLON, ast.Ident("y"), ast.New(ast.S64), ast.Number(0)),
			),
		),
	))
	assertContains(t, p.Functions["f"].Stringify(),
		"@.f$0s",
		"!$m0 -> $m0",
		": .f$0e if $m0",
		": .f$0s",
		"@.f$0e",
	)
}

// TestIfElseLowering verifies the conditional jump to the else label and
// the jump past it to the end label.
func TestIfElseLowering(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.VOID), nil,
		ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.S64), ast.Number(1)),
		ast.New(ast.IF, ast.Ident("x"),
			ast.New(ast.BLOCK, ast.New(ast.COLON, ast.Ident("a"), ast.New(ast.S64), ast.Number(1))),
			ast.New(ast.BLOCK, ast.New(ast.COLON, ast.Ident("b"), ast.New(ast.S64), ast.Number(2))),
		),
	))
	assertContains(t, p.Functions["f"].Stringify(),
		"!$m0 -> $m0",
		": .f$0e if $m0",
		": .f$0end",
		"@.f$0e",
		"@.f$0end",
	)
}

// TestCallLowering verifies the caller saves its in-use argument
// registers, loads the callee's arguments in order, links, restores and
// moves the return value.
func TestCallLowering(t *testing.T) {
	callee := fnNode("callee", ast.New(ast.S64),
		[]*ast.Node{param("a", ast.New(ast.S64)), param("b", ast.New(ast.S64))},
		ast.New(ast.RETURN, ast.Ident("a")),
	)
	caller := fnNode("caller", ast.New(ast.S64),
		[]*ast.Node{param("x", ast.New(ast.S64))},
		ast.New(ast.RETURN,
			ast.New(ast.LPAREN, ast.Ident("callee"),
				ast.New(ast.LIST, ast.Ident("x"), ast.Number(2)))),
	)
	p := mustProgram(t, callee, caller)
	got := p.Functions["caller"].Stringify()
	assertContains(t, got,
		"[ $a0",
		":: callee",
		"] $a0",
	)
	// The return value register lands in the destination after the call.
	joined := strings.Join(got, "\n")
	if !strings.Contains(joined, "$r0 -> $r0") {
		t.Errorf("missing return value move:\n%s", joined)
	}
}

// TestCallArityMismatch verifies calls with the wrong argument count are
// rejected.
func TestCallArityMismatch(t *testing.T) {
	callee := fnNode("callee", ast.New(ast.S64),
		[]*ast.Node{param("a", ast.New(ast.S64))},
		ast.New(ast.RETURN, ast.Ident("a")),
	)
	caller := fnNode("caller", ast.New(ast.VOID), nil,
		ast.New(ast.LPAREN, ast.Ident("callee"), ast.New(ast.LIST)),
	)
	p, err := NewProgram(ast.New(ast.BLOCK, callee, caller))
	if err != nil {
		t.Fatalf("NewProgram: %s", err)
	}
	err = p.Compile()
	var arity *ArityMismatchError
	if !errors.As(err, &arity) {
		t.Fatalf("expected ArityMismatchError, got %v", err)
	}
}

// TestCallUnknownFunction verifies unresolvable callees are rejected.
func TestCallUnknownFunction(t *testing.T) {
	caller := fnNode("caller", ast.New(ast.VOID), nil,
		ast.New(ast.LPAREN, ast.Ident("missing"), ast.New(ast.LIST)),
	)
	p, err := NewProgram(ast.New(ast.BLOCK, caller))
	if err != nil {
		t.Fatalf("NewProgram: %s", err)
	}
	err = p.Compile()
	var notFound *FunctionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected FunctionNotFoundError, got %v", err)
	}
}

// TestResolutionError verifies unknown names are rejected.
func TestResolutionError(t *testing.T) {
	p, err := NewProgram(ast.New(ast.BLOCK,
		fnNode("f", ast.New(ast.S64), nil,
			ast.New(ast.RETURN, ast.Ident("nope")),
		)))
	if err != nil {
		t.Fatalf("NewProgram: %s", err)
	}
	err = p.Compile()
	var res *ResolutionError
	if !errors.As(err, &res) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
}

// TestNameConflict verifies duplicate declarations in one scope fail while
// shadowing in a nested block is allowed.
func TestNameConflict(t *testing.T) {
	p, err := NewProgram(ast.New(ast.BLOCK,
		fnNode("f", ast.New(ast.VOID), nil,
			ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.S64)),
			ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.S64)),
		)))
	if err != nil {
		t.Fatalf("NewProgram: %s", err)
	}
	err = p.Compile()
	var conflict *NameConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected NameConflictError, got %v", err)
	}

	mustProgram(t, fnNode("g", ast.New(ast.VOID), nil,
		ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.S64)),
		ast.New(ast.BLOCK,
			ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.S64)),
		),
	))
}

// TestStringLiteral verifies string literals intern to stable labels.
func TestStringLiteral(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.VOID), nil,
		ast.New(ast.COLON, ast.Ident("a"), ast.New(ast.POINTER, ast.New(ast.U8)), ast.Str("hello")),
		ast.New(ast.COLON, ast.Ident("b"), ast.New(ast.POINTER, ast.New(ast.U8)), ast.Str("world")),
		ast.New(ast.COLON, ast.Ident("c"), ast.New(ast.POINTER, ast.New(ast.U8)), ast.Str("hello")),
	))
	assertContains(t, p.Functions["f"].Stringify(),
		"$str0 -> %0",
		"$str1 -> %1",
		"$str0 -> %2",
	)
	if got := p.Strings(); len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Errorf("interned strings = %v", got)
	}
}

// TestBoolLiteral verifies boolean literals lower to 0 and 1.
func TestBoolLiteral(t *testing.T) {
	p := mustProgram(t, fnNode("f", ast.New(ast.VOID), nil,
		ast.New(ast.COLON, ast.Ident("a"), ast.New(ast.BOOL), ast.Bool(true)),
		ast.New(ast.COLON, ast.Ident("b"), ast.New(ast.BOOL), ast.Bool(false)),
	))
	assertContains(t, p.Functions["f"].Stringify(),
		"1 -> %0",
		"0 -> %1",
	)
}

// TestGlobalLoad verifies reading a global loads through its label.
func TestGlobalLoad(t *testing.T) {
	p := mustProgram(t,
		ast.New(ast.COLON, ast.Ident("counter"), ast.New(ast.S64)),
		fnNode("f", ast.New(ast.S64), nil,
			ast.New(ast.RETURN, ast.Ident("counter")),
		),
	)
	assertContains(t, p.Functions["f"].Stringify(),
		"[counter] -> $r0",
	)
}
