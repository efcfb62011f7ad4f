package regcheck

import (
	"go/ast"
	"go/constant"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

var Analyzer = &analysis.Analyzer{
	Name: "seisflows_regcheck",
	Doc: `check function registration sites

Registered functions are looked up by name on remote workers, so the
registry on every process running the same binary must be identical.
That only holds when registration happens deterministically during
package initialization with names fixed at compile time. This checker
inspects seisflows.RegisterFunc calls and reports:

  - names that are not compile-time string constants
  - registrations outside package-init scope (top-level var
    declarations or init functions)

Checks are limited by static analysis and are best-effort.`,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

const registerFullName = "github.com/xumi1993/seisflows.RegisterFunc"

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	inspect.WithStack([]ast.Node{&ast.CallExpr{}}, func(node ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}
		call := node.(*ast.CallExpr)
		fn := typeutil.StaticCallee(pass.TypesInfo, call)
		if fn == nil || fn.FullName() != registerFullName {
			return true
		}
		if len(call.Args) != 2 {
			// Not a direct call; leave it to the compiler.
			return true
		}
		nameArg := call.Args[0]
		tv, ok := pass.TypesInfo.Types[nameArg]
		if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
			pass.ReportRangef(nameArg,
				"seisflows registration error: function name must be a compile-time string constant")
		} else if constant.StringVal(tv.Value) == "" {
			pass.ReportRangef(nameArg,
				"seisflows registration error: function name must not be empty")
		}
		if !initScope(stack) {
			pass.ReportRangef(call,
				"seisflows registration error: RegisterFunc must be called during package initialization (top-level var or func init)")
		}
		return true
	})

	return nil, nil
}

// initScope reports whether the node at the top of stack executes
// during package initialization: either in the initializer of a
// package-level variable or inside a func init body. Closures assigned
// at top level do not qualify, since nothing guarantees they ever run.
func initScope(stack []ast.Node) bool {
	for i := len(stack) - 1; i >= 0; i-- {
		switch n := stack[i].(type) {
		case *ast.FuncLit:
			return false
		case *ast.FuncDecl:
			return n.Recv == nil && n.Name.Name == "init"
		case *ast.ValueSpec:
			// A package-level var initializer: its parent GenDecl's
			// parent is the file itself.
			return i >= 2 && isFileDecl(stack[i-2], stack[i-1])
		}
	}
	return false
}

func isFileDecl(parent, decl ast.Node) bool {
	_, isFile := parent.(*ast.File)
	_, isGen := decl.(*ast.GenDecl)
	return isFile && isGen
}
