package ir

// ---------- Expression Types ----------

// LiteralKind represents the kind of a scalar literal.
type LiteralKind int

// LiteralKind constants.
const (
	LiteralNull LiteralKind = iota
	LiteralString
	LiteralNumber
	LiteralBool
)

// Literal is a scalar literal. Value holds nil, string, float64 or bool per Kind.
type Literal struct {
	Kind  LiteralKind
	Value any
}

func (*Literal) irNode()   {}
func (*Literal) exprNode() {}

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value Expr
}

// Object is a structured literal with ordered fields.
type Object struct {
	Fields []Field
}

func (*Object) irNode()   {}
func (*Object) exprNode() {}

// Array is a list literal.
type Array struct {
	Elems []Expr
}

func (*Array) irNode()   {}
func (*Array) exprNode() {}

// Ident references a declared name.
type Ident struct {
	Name string
}

func (*Ident) irNode()   {}
func (*Ident) exprNode() {}

// Call applies a function to arguments.
type Call struct {
	Func Expr
	Args []Expr
}

func (*Call) irNode()   {}
func (*Call) exprNode() {}

// Member selects a named member of a value (method or field).
type Member struct {
	X    Expr
	Name string
}

func (*Member) irNode()   {}
func (*Member) exprNode() {}

// Conditional evaluates Then when Cond holds, otherwise Else.
// In statement position printers may render it as an if/else.
type Conditional struct {
	Cond Expr
	Then Expr
	Else Expr
	// Type is the result type when used as a value.
	Type Type
}

func (*Conditional) irNode()   {}
func (*Conditional) exprNode() {}

// ---------- Constructors ----------

// Null returns the null literal.
func Null() *Literal { return &Literal{Kind: LiteralNull} }

// String returns a string literal.
func String(s string) *Literal { return &Literal{Kind: LiteralString, Value: s} }

// Number returns a number literal.
func Number(f float64) *Literal { return &Literal{Kind: LiteralNumber, Value: f} }

// Bool returns a boolean literal.
func Bool(b bool) *Literal { return &Literal{Kind: LiteralBool, Value: b} }

// Name returns an identifier reference.
func Name(name string) *Ident { return &Ident{Name: name} }

// CallNamed calls a function by name.
func CallNamed(name string, args ...Expr) *Call {
	return &Call{Func: Name(name), Args: args}
}

// CallMethod calls a member of a named value: recv.method(args...).
func CallMethod(recv, method string, args ...Expr) *Call {
	return &Call{Func: &Member{X: Name(recv), Name: method}, Args: args}
}
