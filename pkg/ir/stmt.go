package ir

// ---------- Statement Types ----------

// VarDecl binds a name to a value.
type VarDecl struct {
	Name  string
	Type  Type
	Value Expr
}

func (*VarDecl) irNode()   {}
func (*VarDecl) stmtNode() {}

// Param is a function parameter.
type Param struct {
	Name string
	Type Type
}

// FuncDecl declares a named function.
type FuncDecl struct {
	Name   string
	Params []Param
	Result Type
	Body   []Stmt
}

func (*FuncDecl) irNode()   {}
func (*FuncDecl) stmtNode() {}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct {
	X Expr
}

func (*ExprStmt) irNode()   {}
func (*ExprStmt) stmtNode() {}

// Return leaves the enclosing function. Value may be nil.
type Return struct {
	Value Expr
}

func (*Return) irNode()   {}
func (*Return) stmtNode() {}

// TryCatch runs Body and, if it fails, runs Catch with the failure bound to ErrName.
type TryCatch struct {
	Body    []Stmt
	ErrName string
	Catch   []Stmt
}

func (*TryCatch) irNode()   {}
func (*TryCatch) stmtNode() {}

// Do wraps an expression as a statement.
func Do(x Expr) *ExprStmt { return &ExprStmt{X: x} }
