// Package loader reads flow graph snapshots from disk or request bodies.
//
// Three document formats are understood, chosen by file extension:
// JSON (the editor's native export), YAML (same shape) and HCL blocks.
// Every snapshot is checked against the embedded JSON Schema (JSON and YAML)
// and against the struct tags on core.Graph, then normalized: legacy type
// tags are mapped to canonical ones and node ports are filled from the
// type registry.
package loader

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/flowgen/internal/registry"
	"github.com/leapstack-labs/flowgen/pkg/core"
)

//go:embed graph.schema.json
var graphSchema []byte

// Format is a snapshot document format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("unsupported snapshot extension %q (expected .json, .yaml, .yml or .hcl)", filepath.Ext(path))
	}
}

// SnapshotError reports a document that is not a valid graph snapshot.
type SnapshotError struct {
	File     string
	Problems []string
}

func (e *SnapshotError) Error() string {
	msg := "invalid graph snapshot: " + strings.Join(e.Problems, "; ")
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

// Loader decodes and normalizes snapshots.
type Loader struct {
	reg      *registry.TypeRegistry
	schema   *gojsonschema.Schema
	validate *validator.Validate
	logger   *slog.Logger
}

// New creates a loader. A nil registry selects the built-in types and a nil
// logger discards output.
func New(reg *registry.TypeRegistry, logger *slog.Logger) (*Loader, error) {
	if reg == nil {
		reg = registry.NewDefault()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(graphSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile graph schema: %w", err)
	}
	return &Loader{
		reg:      reg,
		schema:   schema,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}, nil
}

// Load reads a snapshot file with the built-in node types.
func Load(path string) (*core.Graph, error) {
	l, err := New(nil, nil)
	if err != nil {
		return nil, err
	}
	return l.LoadFile(path)
}

// LoadFile reads and decodes the snapshot at path.
func (l *Loader) LoadFile(path string) (*core.Graph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return l.Decode(data, format, path)
}

// Decode parses a snapshot document. file is only used in error messages.
func (l *Loader) Decode(data []byte, format Format, file string) (*core.Graph, error) {
	var (
		doc *document
		err error
	)
	switch format {
	case FormatJSON:
		doc, err = l.decodeJSON(data, file)
	case FormatYAML:
		doc, err = l.decodeYAML(data, file)
	case FormatHCL:
		doc, err = decodeHCL(data, file)
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
	if err != nil {
		return nil, err
	}

	g := l.normalize(doc)
	if err := l.check(g, file); err != nil {
		return nil, err
	}

	l.logger.Debug("loaded graph snapshot",
		slog.String("file", file),
		slog.String("format", string(format)),
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("connections", len(g.Connections)),
	)
	return g, nil
}

// document is the on-disk shape. The editor stores overrides under
// "properties"; both keys are read and "overrides" wins on conflict.
type document struct {
	Nodes       []core.Node       `json:"nodes"`
	Connections []core.Connection `json:"connections"`
	Overrides   core.Overrides    `json:"overrides"`
	Properties  core.Overrides    `json:"properties"`
}

func (l *Loader) decodeJSON(data []byte, file string) (*document, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &SnapshotError{File: file, Problems: []string{"malformed JSON: " + err.Error()}}
	}
	if err := l.checkSchema(raw, file); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &SnapshotError{File: file, Problems: []string{err.Error()}}
	}
	return &doc, nil
}

func (l *Loader) decodeYAML(data []byte, file string) (*document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &SnapshotError{File: file, Problems: []string{"malformed YAML: " + err.Error()}}
	}
	if err := l.checkSchema(raw, file); err != nil {
		return nil, err
	}

	// yaml.v3 decodes mappings as map[string]any, so the JSON round trip
	// reuses the json tags on the core types.
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, &SnapshotError{File: file, Problems: []string{err.Error()}}
	}
	var doc document
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, &SnapshotError{File: file, Problems: []string{err.Error()}}
	}
	return &doc, nil
}

func (l *Loader) checkSchema(raw any, file string) error {
	result, err := l.schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return &SnapshotError{File: file, Problems: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &SnapshotError{File: file, Problems: problems}
}

// normalize builds the graph: canonical type tags, registry ports, merged overrides.
// Unknown type tags are kept so the compiler can report them against the node.
func (l *Loader) normalize(doc *document) *core.Graph {
	g := &core.Graph{
		Nodes:       doc.Nodes,
		Connections: doc.Connections,
		Overrides:   core.Overrides{},
	}
	if g.Nodes == nil {
		g.Nodes = []core.Node{}
	}
	if g.Connections == nil {
		g.Connections = []core.Connection{}
	}

	for _, table := range []core.Overrides{doc.Properties, doc.Overrides} {
		for nodeID, ports := range table {
			for portID, v := range ports {
				g.Overrides.Set(nodeID, portID, v)
			}
		}
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if nt, ok := core.ParseNodeType(string(n.Type)); ok {
			n.Type = nt
		}
		if l.reg.Has(n.Type) {
			d := l.reg.DescriptorsFor(n.Type)
			n.Inputs, n.Outputs = d.Inputs, d.Outputs
		}
	}
	return g
}

func (l *Loader) check(g *core.Graph, file string) error {
	err := l.validate.Struct(g)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &SnapshotError{File: file, Problems: []string{err.Error()}}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return &SnapshotError{File: file, Problems: problems}
}
