// Package state records compile history in SQLite.
//
// Every compile run by the CLI can be stored as a Build: which graph was
// compiled (by content hash), for which target, whether it succeeded and
// what it produced. The history is informational; the compiler itself is
// stateless and never reads it.
package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// BuildStatus is the outcome of one compile.
type BuildStatus string

// Build statuses.
const (
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
)

// Build is one recorded compile.
type Build struct {
	ID         string        `json:"id"`
	GraphFile  string        `json:"graph_file,omitempty"`
	GraphHash  string        `json:"graph_hash"`
	OutputHash string        `json:"output_hash,omitempty"`
	Target     string        `json:"target"`
	Status     BuildStatus   `json:"status"`
	Warnings   int           `json:"warnings"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Store persists builds.
type Store interface {
	// RecordBuild stores b, assigning ID and CreatedAt when they are unset.
	RecordBuild(ctx context.Context, b *Build) error
	// GetBuild returns the build with the given id.
	GetBuild(ctx context.Context, id string) (*Build, error)
	// ListBuilds returns up to limit builds, newest first.
	ListBuilds(ctx context.Context, limit int) ([]*Build, error)
	// LatestBuild returns the newest build of a graph, or nil if there is none.
	LatestBuild(ctx context.Context, graphHash string) (*Build, error)
	Close() error
}

// NewBuild describes one finished compile of graph. A nil compileErr marks
// it succeeded and output is hashed; otherwise the error text is kept.
func NewBuild(file string, graph []byte, target, output string, warnings int, started time.Time, compileErr error) *Build {
	b := &Build{
		GraphFile: file,
		GraphHash: Hash(graph),
		Target:    target,
		Status:    BuildStatusSucceeded,
		Warnings:  warnings,
		Duration:  time.Since(started),
	}
	if compileErr != nil {
		b.Status = BuildStatusFailed
		b.Error = compileErr.Error()
		return b
	}
	b.OutputHash = Hash([]byte(output))
	return b
}

// Hash returns the hex SHA-256 of data, used for graph and output hashes.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
