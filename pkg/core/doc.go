// Package core defines the shared language of the flowgen system.
//
// This package contains:
//   - Graph entities (Node, Connection, Overrides, Graph)
//   - Port typing (NodeType, DataType, PropertyDescriptor)
//   - Compile diagnostics (Severity, Diagnostic)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
