package format

import "github.com/leapstack-labs/flowgen/pkg/ir"

// usesName reports whether any statement references the identifier name.
func usesName(stmts []ir.Stmt, name string) bool {
	for _, s := range stmts {
		if stmtUses(s, name) {
			return true
		}
	}
	return false
}

func stmtUses(s ir.Stmt, name string) bool {
	switch s := s.(type) {
	case *ir.VarDecl:
		return exprUses(s.Value, name)
	case *ir.ExprStmt:
		return exprUses(s.X, name)
	case *ir.Return:
		return s.Value != nil && exprUses(s.Value, name)
	case *ir.TryCatch:
		return usesName(s.Body, name) || usesName(s.Catch, name)
	case *ir.FuncDecl:
		return usesName(s.Body, name)
	}
	return false
}

func exprUses(e ir.Expr, name string) bool {
	switch e := e.(type) {
	case *ir.Ident:
		return e.Name == name
	case *ir.Member:
		return exprUses(e.X, name)
	case *ir.Call:
		if exprUses(e.Func, name) {
			return true
		}
		for _, a := range e.Args {
			if exprUses(a, name) {
				return true
			}
		}
	case *ir.Conditional:
		return exprUses(e.Cond, name) || exprUses(e.Then, name) || exprUses(e.Else, name)
	case *ir.Object:
		for _, f := range e.Fields {
			if exprUses(f.Value, name) {
				return true
			}
		}
	case *ir.Array:
		for _, el := range e.Elems {
			if exprUses(el, name) {
				return true
			}
		}
	}
	return false
}
