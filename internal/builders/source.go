package builders

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/flowgen/pkg/ir"
)

func textSource() Builder {
	return Builder{
		Prefix: "text",
		Declare: func(ctx *Context) ([]ir.Stmt, error) {
			return []ir.Stmt{&ir.VarDecl{Name: ctx.Ident, Value: ir.String(ctx.Node.Content)}}, nil
		},
		Expression: reference,
	}
}

func jsonSource() Builder {
	return Builder{
		Prefix: "json",
		Declare: func(ctx *Context) ([]ir.Stmt, error) {
			value, err := ParseJSON(ctx.Node.Content)
			if err != nil {
				if ctx.ContentError != nil {
					ctx.ContentError(err)
				}
				value = &ir.Object{}
			}
			return []ir.Stmt{&ir.VarDecl{Name: ctx.Ident, Type: ir.TypeAny, Value: value}}, nil
		},
		Expression: reference,
	}
}

// ParseJSON parses a JSON document into a literal expression, keeping object
// key order. A repeated key keeps its first position and its last value.
func ParseJSON(content string) (ir.Expr, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	value, err := decodeValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("unexpected end of JSON input")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return value, nil
}

func decodeValue(dec *json.Decoder) (ir.Expr, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected %q", t)
		}
	case string:
		return ir.String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", t, err)
		}
		return ir.Number(f), nil
	case bool:
		return ir.Bool(t), nil
	case nil:
		return ir.Null(), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeObject(dec *json.Decoder) (ir.Expr, error) {
	obj := &ir.Object{}
	index := make(map[string]int)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %v", keyTok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		if i, seen := index[key]; seen {
			obj.Fields[i].Value = value
			continue
		}
		index[key] = len(obj.Fields)
		obj.Fields = append(obj.Fields, ir.Field{Key: key, Value: value})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) (ir.Expr, error) {
	arr := &ir.Array{}
	for dec.More() {
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, value)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return arr, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
