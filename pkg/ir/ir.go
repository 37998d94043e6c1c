// Package ir defines the target-neutral program representation produced by
// the compiler and consumed by the printers in pkg/format.
//
// Expressions: Literal, Object, Array, Ident, Call, Member, Conditional.
// Statements: VarDecl, FuncDecl, ExprStmt, Return, TryCatch.
package ir

// Node is the base interface for all IR nodes.
type Node interface {
	irNode()
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Type is the abstract type of a parameter, variable or function result.
// Printers map it to a concrete type in the target language.
type Type int

// IR types.
const (
	TypeNone Type = iota
	TypeString
	TypeNumber
	TypeAny
	TypeError
	TypeRequest
	TypeResponse
	TypeListener
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeAny:
		return "any"
	case TypeError:
		return "error"
	case TypeRequest:
		return "request"
	case TypeResponse:
		return "response"
	case TypeListener:
		return "listener"
	default:
		return "unknown"
	}
}

// Program is a whole emitted program.
type Program struct {
	// Decls are top-level declarations in emission order.
	Decls []Stmt
	// Main holds the entry statements run at startup.
	Main []Stmt
}
