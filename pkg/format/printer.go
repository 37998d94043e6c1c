// Package format renders IR programs as source text for a target language.
package format

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Printer holds the output buffer and indentation state shared by the target printers.
type Printer struct {
	output      *bytes.Buffer
	indentUnit  string
	depth       int
	atLineStart bool
}

func newPrinter(indentUnit string) *Printer {
	return &Printer{
		output:      &bytes.Buffer{},
		indentUnit:  indentUnit,
		atLineStart: true,
	}
}

// String returns the printed output with exactly one trailing newline.
func (p *Printer) String() string {
	return strings.TrimRight(p.output.String(), "\n") + "\n"
}

func (p *Printer) write(s string) {
	if p.atLineStart && len(s) > 0 && s[0] != '\n' {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *Printer) writeln() {
	p.output.WriteByte('\n')
	p.atLineStart = true
}

// line writes s followed by a newline.
func (p *Printer) line(s string) {
	p.write(s)
	p.writeln()
}

// raw writes s unindented, used for fixed runtime text.
func (p *Printer) raw(s string) {
	p.output.WriteString(s)
	p.atLineStart = strings.HasSuffix(s, "\n")
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.depth; i++ {
		p.output.WriteString(p.indentUnit)
	}
	p.atLineStart = false
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

func (p *Printer) space() {
	p.output.WriteByte(' ')
}

// formatList prints a list of items with separators.
// count is the number of items, format is called for each index,
// sep is the separator string, multiline adds newlines after separators.
func (p *Printer) formatList(count int, format func(i int), sep string, multiline bool) {
	for i := 0; i < count; i++ {
		format(i)
		if i < count-1 {
			p.write(sep)
			if multiline {
				p.writeln()
			}
		}
	}
}

// maxExactInt is the largest magnitude printed as an integer constant.
const maxExactInt = 1 << 53

// formatNumber renders a float as the shortest literal both targets accept.
// Integral values in the exactly representable range print without exponent.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < maxExactInt {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
