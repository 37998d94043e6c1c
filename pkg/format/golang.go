package format

import (
	"fmt"
	goformat "go/format"
	"math"
	"strconv"

	"github.com/leapstack-labs/flowgen/pkg/ir"
)

// goPrinter renders IR as a Go main package.
type goPrinter struct {
	*Printer
	err error
}

func formatGo(prog *ir.Program) (string, error) {
	p := &goPrinter{Printer: newPrinter("\t")}
	p.raw(goRuntime)

	for _, decl := range prog.Decls {
		p.writeln()
		p.topLevel(decl)
	}

	p.writeln()
	p.line("func main() {")
	p.indent()
	p.stmts(prog.Main)
	p.dedent()
	p.line("}")

	if p.err != nil {
		return "", p.err
	}

	formatted, err := goformat.Source([]byte(p.String()))
	if err != nil {
		return "", fmt.Errorf("failed to format generated Go: %w", err)
	}
	return string(formatted), nil
}

func (p *goPrinter) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

func goType(t ir.Type) string {
	switch t {
	case ir.TypeString:
		return "string"
	case ir.TypeNumber:
		return "float64"
	case ir.TypeAny:
		return "any"
	case ir.TypeError:
		return "error"
	case ir.TypeRequest:
		return "*http.Request"
	case ir.TypeResponse:
		return "http.ResponseWriter"
	case ir.TypeListener:
		return "*http.Server"
	default:
		return ""
	}
}

// ---------- Statements ----------

func (p *goPrinter) topLevel(s ir.Stmt) {
	switch s := s.(type) {
	case *ir.VarDecl:
		p.write("var " + s.Name)
		if t := goType(s.Type); t != "" {
			p.write(" " + t)
		}
		p.write(" = ")
		p.expr(s.Value)
		p.writeln()
	case *ir.FuncDecl:
		p.funcDecl(s)
	default:
		p.fail("statement %T is not allowed at package level", s)
	}
}

func (p *goPrinter) funcDecl(fn *ir.FuncDecl) {
	p.write("func " + fn.Name + "(")
	p.formatList(len(fn.Params), func(i int) {
		p.write(fn.Params[i].Name + " " + goType(fn.Params[i].Type))
	}, ", ", false)
	p.write(")")
	if t := goType(fn.Result); t != "" {
		p.write(" " + t)
	}
	p.write(" {")
	p.writeln()
	p.indent()

	// A body that is a single try/catch recovers in the function itself.
	if len(fn.Body) == 1 {
		if tc, ok := fn.Body[0].(*ir.TryCatch); ok {
			p.recoverBlock(tc)
			p.stmts(tc.Body)
			p.dedent()
			p.line("}")
			return
		}
	}

	p.stmts(fn.Body)
	p.dedent()
	p.line("}")
}

func (p *goPrinter) stmts(list []ir.Stmt) {
	for _, s := range list {
		p.stmt(s)
	}
}

func (p *goPrinter) stmt(s ir.Stmt) {
	switch s := s.(type) {
	case *ir.VarDecl:
		if t := goType(s.Type); t != "" {
			p.write("var " + s.Name + " " + t + " = ")
		} else {
			p.write(s.Name + " := ")
		}
		p.expr(s.Value)
		p.writeln()
	case *ir.ExprStmt:
		if c, ok := s.X.(*ir.Conditional); ok {
			p.ifElse(c)
			return
		}
		p.expr(s.X)
		p.writeln()
	case *ir.Return:
		p.write("return")
		if s.Value != nil {
			p.space()
			p.expr(s.Value)
		}
		p.writeln()
	case *ir.TryCatch:
		p.line("func() {")
		p.indent()
		p.recoverBlock(s)
		p.stmts(s.Body)
		p.dedent()
		p.line("}()")
	case *ir.FuncDecl:
		p.fail("nested function %s is not supported", s.Name)
	default:
		p.fail("unknown statement %T", s)
	}
}

func (p *goPrinter) ifElse(c *ir.Conditional) {
	p.write("if ")
	p.expr(c.Cond)
	p.write(" {")
	p.writeln()
	p.indent()
	p.stmt(ir.Do(c.Then))
	p.dedent()
	if c.Else == nil {
		p.line("}")
		return
	}
	p.line("} else {")
	p.indent()
	p.stmt(ir.Do(c.Else))
	p.dedent()
	p.line("}")
}

// recoverBlock renders the catch half of a try/catch as a deferred recover.
func (p *goPrinter) recoverBlock(tc *ir.TryCatch) {
	p.line("defer func() {")
	p.indent()
	p.line("if recovered := recover(); recovered != nil {")
	p.indent()
	if tc.ErrName != "" && usesName(tc.Catch, tc.ErrName) {
		p.line(tc.ErrName + " := asError(recovered)")
	}
	p.stmts(tc.Catch)
	p.dedent()
	p.line("}")
	p.dedent()
	p.line("}()")
}

// ---------- Expressions ----------

func (p *goPrinter) expr(e ir.Expr) {
	switch e := e.(type) {
	case *ir.Literal:
		p.literal(e)
	case *ir.Object:
		p.write("object{")
		p.formatList(len(e.Fields), func(i int) {
			p.write("{" + strconv.Quote(e.Fields[i].Key) + ", ")
			p.expr(e.Fields[i].Value)
			p.write("}")
		}, ", ", false)
		p.write("}")
	case *ir.Array:
		p.write("[]any{")
		p.formatList(len(e.Elems), func(i int) { p.expr(e.Elems[i]) }, ", ", false)
		p.write("}")
	case *ir.Ident:
		p.write(e.Name)
	case *ir.Member:
		p.expr(e.X)
		p.write("." + e.Name)
	case *ir.Call:
		p.expr(e.Func)
		p.write("(")
		p.formatList(len(e.Args), func(i int) { p.expr(e.Args[i]) }, ", ", false)
		p.write(")")
	case *ir.Conditional:
		t := goType(e.Type)
		if t == "" {
			t = "any"
		}
		p.write("func() " + t + " { if ")
		p.expr(e.Cond)
		p.write(" { return ")
		p.expr(e.Then)
		p.write(" }; return ")
		p.expr(e.Else)
		p.write(" }()")
	case nil:
		p.fail("missing expression")
	default:
		p.fail("unknown expression %T", e)
	}
}

func (p *goPrinter) literal(l *ir.Literal) {
	switch l.Kind {
	case ir.LiteralNull:
		p.write("nil")
	case ir.LiteralString:
		s, _ := l.Value.(string)
		p.write(strconv.Quote(s))
	case ir.LiteralBool:
		b, _ := l.Value.(bool)
		p.write(strconv.FormatBool(b))
	case ir.LiteralNumber:
		f, _ := l.Value.(float64)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			p.fail("number %v has no literal form", f)
			return
		}
		p.write(formatNumber(f))
	default:
		p.fail("unknown literal kind %d", l.Kind)
	}
}
