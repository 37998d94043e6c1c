package core

import "strings"

// NodeType is the closed set of node tags understood by the compiler.
type NodeType string

// Node type tags.
const (
	NodeTypeText   NodeType = "text-source"
	NodeTypeJSON   NodeType = "json-source"
	NodeTypeLog    NodeType = "log-sink"
	NodeTypeRoute  NodeType = "route"
	NodeTypeListen NodeType = "listen"
)

// nodeTypeAliases maps the editor's legacy tags onto node types.
var nodeTypeAliases = map[string]NodeType{
	"TEXT":   NodeTypeText,
	"JSON":   NodeTypeJSON,
	"LOG":    NodeTypeLog,
	"ROUTER": NodeTypeRoute,
	"PORT":   NodeTypeListen,
}

// ParseNodeType converts a tag or a legacy alias to a NodeType.
// Returns false for unknown tags.
func ParseNodeType(s string) (NodeType, bool) {
	switch t := NodeType(strings.ToLower(strings.TrimSpace(s))); t {
	case NodeTypeText, NodeTypeJSON, NodeTypeLog, NodeTypeRoute, NodeTypeListen:
		return t, true
	}
	t, ok := nodeTypeAliases[strings.ToUpper(strings.TrimSpace(s))]
	return t, ok
}

// IsTerminal reports whether nodes of this type anchor a call chain.
func (t NodeType) IsTerminal() bool { return t == NodeTypeListen }

// String returns the tag.
func (t NodeType) String() string { return string(t) }

// DataType is the declared type of a port.
type DataType string

// Port data types.
const (
	DataTypeString   DataType = "string"
	DataTypeNumber   DataType = "number"
	DataTypeAny      DataType = "any"
	DataTypeJSON     DataType = "json"
	DataTypeResponse DataType = "response"
)

// Accepts reports whether an input of type d may be fed from an output of type src.
func (d DataType) Accepts(src DataType) bool {
	return d == DataTypeAny || d == src
}

// PropertyDescriptor describes one input or output port.
type PropertyDescriptor struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	DataType DataType `json:"datatype" yaml:"datatype"`
}
