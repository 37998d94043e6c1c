package core

import "fmt"

// =============================================================================
// Severity
// =============================================================================

// Severity indicates the importance of a compile diagnostic.
type Severity int

// Severity levels for diagnostics.
const (
	// SeverityError indicates the graph cannot be compiled.
	SeverityError Severity = iota
	// SeverityWarning indicates a recovered problem in the graph.
	SeverityWarning
	// SeverityInfo indicates informational feedback.
	SeverityInfo
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// =============================================================================
// Diagnostic
// =============================================================================

// Diagnostic is a message about a node produced during compilation.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	NodeID   string   `json:"node_id,omitempty"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// String formats the diagnostic for terminal output.
func (d Diagnostic) String() string {
	if d.NodeID == "" {
		return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s[%s] node %q: %s", d.Severity, d.Code, d.NodeID, d.Message)
}
