// Package nohttperror defines an analyzer that forbids net/http.Error outside
// package main. Handlers must answer through the JSON error responder so that
// every error body carries the error kind, message and request id.
package nohttperror

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

// Analyzer reports calls to http.Error in non-main packages.
var Analyzer = &analysis.Analyzer{
	Name:     "nohttperror",
	Doc:      "prohibits http.Error outside package main; write JSON errors instead",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() == "main" {
		return nil, nil
	}

	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)

		if strings.HasSuffix(pass.Fset.File(call.Pos()).Name(), "_test.go") {
			return
		}

		fn, ok := typeutil.Callee(pass.TypesInfo, call).(*types.Func)
		if !ok || fn.Pkg() == nil {
			return
		}

		if fn.Pkg().Path() == "net/http" && fn.Name() == "Error" {
			pass.Reportf(call.Pos(), "http.Error writes a plain text body; use the JSON error responder")
		}
	})

	return nil, nil
}
