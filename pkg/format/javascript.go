package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/leapstack-labs/flowgen/pkg/ir"
)

// jsPrinter renders IR as a CommonJS Node.js script.
type jsPrinter struct {
	*Printer
	err error
}

func formatJavaScript(prog *ir.Program) (string, error) {
	p := &jsPrinter{Printer: newPrinter("  ")}
	p.raw(jsRuntime)

	for _, decl := range prog.Decls {
		p.writeln()
		p.stmt(decl)
	}
	if len(prog.Main) > 0 {
		p.writeln()
		p.stmts(prog.Main)
	}

	if p.err != nil {
		return "", p.err
	}

	out := p.String()
	if err := validateJavaScript(out); err != nil {
		return "", err
	}
	return out, nil
}

// validateJavaScript parses the output with esbuild and reports syntax errors.
func validateJavaScript(src string) error {
	result := api.Transform(src, api.TransformOptions{
		Loader:   api.LoaderJS,
		Format:   api.FormatCommonJS,
		Platform: api.PlatformNode,
		LogLevel: api.LogLevelSilent,
	})
	if len(result.Errors) == 0 {
		return nil
	}

	var errMsg strings.Builder
	for _, e := range result.Errors {
		if e.Location != nil {
			fmt.Fprintf(&errMsg, "%d:%d: %s\n", e.Location.Line, e.Location.Column, e.Text)
		} else {
			fmt.Fprintf(&errMsg, "%s\n", e.Text)
		}
	}
	return fmt.Errorf("esbuild errors:\n%s", errMsg.String())
}

func (p *jsPrinter) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

// ---------- Statements ----------

func (p *jsPrinter) stmts(list []ir.Stmt) {
	for _, s := range list {
		p.stmt(s)
	}
}

func (p *jsPrinter) stmt(s ir.Stmt) {
	switch s := s.(type) {
	case *ir.VarDecl:
		p.write("const " + s.Name + " = ")
		p.expr(s.Value)
		p.line(";")
	case *ir.FuncDecl:
		p.write("function " + s.Name + "(")
		p.formatList(len(s.Params), func(i int) { p.write(s.Params[i].Name) }, ", ", false)
		p.line(") {")
		p.indent()
		p.stmts(s.Body)
		p.dedent()
		p.line("}")
	case *ir.ExprStmt:
		if c, ok := s.X.(*ir.Conditional); ok {
			p.ifElse(c)
			return
		}
		p.expr(s.X)
		p.line(";")
	case *ir.Return:
		p.write("return")
		if s.Value != nil {
			p.space()
			p.expr(s.Value)
		}
		p.line(";")
	case *ir.TryCatch:
		p.line("try {")
		p.indent()
		p.stmts(s.Body)
		p.dedent()
		name := s.ErrName
		if name == "" {
			name = "err"
		}
		p.line("} catch (" + name + ") {")
		p.indent()
		p.stmts(s.Catch)
		p.dedent()
		p.line("}")
	default:
		p.fail("unknown statement %T", s)
	}
}

func (p *jsPrinter) ifElse(c *ir.Conditional) {
	p.write("if (")
	p.expr(c.Cond)
	p.line(") {")
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

// ---------- Expressions ----------

func (p *jsPrinter) expr(e ir.Expr) {
	switch e := e.(type) {
	case *ir.Literal:
		p.literal(e)
	case *ir.Object:
		if len(e.Fields) == 0 {
			p.write("{}")
			return
		}
		p.write("{ ")
		p.formatList(len(e.Fields), func(i int) {
			p.write(jsKey(e.Fields[i].Key) + ": ")
			p.expr(e.Fields[i].Value)
		}, ", ", false)
		p.write(" }")
	case *ir.Array:
		p.write("[")
		p.formatList(len(e.Elems), func(i int) { p.expr(e.Elems[i]) }, ", ", false)
		p.write("]")
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
		p.write("(")
		p.expr(e.Cond)
		p.write(" ? ")
		p.expr(e.Then)
		p.write(" : ")
		p.expr(e.Else)
		p.write(")")
	case nil:
		p.fail("missing expression")
	default:
		p.fail("unknown expression %T", e)
	}
}

func (p *jsPrinter) literal(l *ir.Literal) {
	switch l.Kind {
	case ir.LiteralNull:
		p.write("null")
	case ir.LiteralString:
		s, _ := l.Value.(string)
		p.write(jsString(s))
	case ir.LiteralBool:
		if b, _ := l.Value.(bool); b {
			p.write("true")
		} else {
			p.write("false")
		}
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

// jsKey renders an object literal key. A literal __proto__ key would set the
// prototype instead of defining a property, so it is written as a computed key.
func jsKey(key string) string {
	if key == "__proto__" {
		return "[" + jsString(key) + "]"
	}
	return jsString(key)
}

// jsString quotes s as a JavaScript string literal.
// JSON string syntax is a subset of JavaScript's, including the U+2028/U+2029 escapes.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
