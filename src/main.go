package main

import (
	"fmt"
	"os"
	"strings"

	"cmmc/src/backend"
	"cmmc/src/ir/ast"
	"cmmc/src/ir/lir"
	"cmmc/src/util"
)

// run executes the compiler stages over the given syntax tree root.
// Behaviour is defined by the util.Options structure.
func run(opt util.Options, root *ast.Node) error {
	if opt.Verbose {
		sb := strings.Builder{}
		root.Print(&sb, 0)
		fmt.Print(sb.String())
	}

	p, err := lir.NewProgram(root)
	if err != nil {
		return fmt.Errorf("program error: %s", err)
	}

	w := util.NewWriter(opt)
	if err := backend.GenerateAssembler(opt, p, w); err != nil {
		return fmt.Errorf("code generation error: %s", err)
	}
	return w.Close()
}

// sampleProgram builds the syntax tree of a small demonstration program.
// TODO: replace with the external parser's output once it is wired up.
func sampleProgram() *ast.Node {
	// counter: s64;
	// fn add(a: s64, b: s64) -> s64 { return a + b; }
	// fn main() -> s64 {
	//     x: s64 = 5;
	//     while (x) { y: s64 = 0; }
	//     return add(x, 2);
	// }
	param := func(name string, kind ast.Kind) *ast.Node {
		p := ast.Ident(name)
		p.Children = []*ast.Node{ast.New(kind)}
		return p
	}
	add := ast.New(ast.FN,
		ast.Ident("add"),
		ast.New(ast.S64),
		ast.New(ast.LIST, param("a", ast.S64), param("b", ast.S64)),
		ast.New(ast.BLOCK,
			ast.New(ast.RETURN, ast.New(ast.PLUS, ast.Ident("a"), ast.Ident("b"))),
		),
	)
	main := ast.New(ast.FN,
		ast.Ident("main"),
		ast.New(ast.S64),
		ast.New(ast.LIST),
		ast.New(ast.BLOCK,
			ast.New(ast.COLON, ast.Ident("x"), ast.New(ast.S64), ast.Number(5)),
			ast.New(ast.WHILE, ast.Ident("x"),
				ast.New(ast.BLOCK,
					ast.New(ast.COLON, ast.Ident("y"), ast.New(ast.S64), ast.Number(0)),
				),
			),
			ast.New(ast.RETURN,
				ast.New(ast.LPAREN, ast.Ident("add"),
					ast.New(ast.LIST, ast.Ident("x"), ast.Number(2)))),
		),
	)
	return ast.New(ast.BLOCK,
		ast.New(ast.COLON, ast.Ident("counter"), ast.New(ast.S64)),
		add,
		main,
	)
}

func main() {
	// Parse command line arguments.
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Printf("Command line argument error: %s\n", err)
		os.Exit(1)
	}

	if err := run(opt, sampleProgram()); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
}
