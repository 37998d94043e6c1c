package compiler

import (
	"fmt"
	"strings"
)

// Error is the base interface for all compile errors.
type Error interface {
	error
	// NodeID returns the offending node, or "" when the error is graph-wide.
	NodeID() string
}

// baseError provides common error functionality.
type baseError struct {
	nodeID string
	msg    string
}

func (e *baseError) NodeID() string { return e.nodeID }
func (e *baseError) Error() string {
	if e.nodeID != "" {
		return fmt.Sprintf("node %q: %s", e.nodeID, e.msg)
	}
	return e.msg
}

// GraphValidationError reports a graph that cannot be compiled: a dangling
// node or port reference, a type mismatch, a bad literal or a cycle.
type GraphValidationError struct {
	baseError
	// ConnectionID is set when a specific connection is at fault.
	ConnectionID string
	// Cycle holds the node ids of a dependency cycle, first id repeated last.
	Cycle []string
	Cause error
}

// NewGraphValidationError creates a new validation error.
func NewGraphValidationError(nodeID, format string, args ...any) *GraphValidationError {
	return &GraphValidationError{baseError: baseError{nodeID: nodeID, msg: fmt.Sprintf(format, args...)}}
}

func newConnectionError(connID, format string, args ...any) *GraphValidationError {
	return &GraphValidationError{
		baseError:    baseError{msg: fmt.Sprintf("connection %q: ", connID) + fmt.Sprintf(format, args...)},
		ConnectionID: connID,
	}
}

func newCycleError(path []string) *GraphValidationError {
	nodeID := ""
	if len(path) > 0 {
		nodeID = path[0]
	}
	return &GraphValidationError{
		baseError: baseError{nodeID: nodeID, msg: "cyclic graph: " + strings.Join(path, " -> ")},
		Cycle:     path,
	}
}

func (e *GraphValidationError) Error() string {
	base := e.baseError.Error()
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *GraphValidationError) Unwrap() error { return e.Cause }

// NoEndpointError reports a graph without any listen node.
type NoEndpointError struct {
	baseError
}

func newNoEndpointError() *NoEndpointError {
	return &NoEndpointError{baseError: baseError{msg: "graph has no listen node"}}
}

// ContentParseError reports node content that failed to parse. It is
// recovered by substituting an empty value unless strict parsing is on.
type ContentParseError struct {
	baseError
	Cause error
}

func newContentParseError(nodeID string, cause error) *ContentParseError {
	return &ContentParseError{
		baseError: baseError{nodeID: nodeID, msg: "content is not valid JSON"},
		Cause:     cause,
	}
}

func (e *ContentParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.baseError.Error(), e.Cause)
}

func (e *ContentParseError) Unwrap() error { return e.Cause }

// EmissionError reports a failure while printing the program.
type EmissionError struct {
	baseError
	Cause error
}

func wrapEmissionError(nodeID, msg string, cause error) *EmissionError {
	return &EmissionError{baseError: baseError{nodeID: nodeID, msg: msg}, Cause: cause}
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("%s: %v", e.baseError.Error(), e.Cause)
}

func (e *EmissionError) Unwrap() error { return e.Cause }
