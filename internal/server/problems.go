package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moogar0880/problems"

	"github.com/leapstack-labs/flowgen/internal/compiler"
)

const problemContentType = "application/problem+json"

// compileProblem is an RFC 7807 document extended with the offending graph element.
type compileProblem struct {
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Status       int      `json:"status"`
	Detail       string   `json:"detail,omitempty"`
	Instance     string   `json:"instance,omitempty"`
	NodeID       string   `json:"node_id,omitempty"`
	ConnectionID string   `json:"connection_id,omitempty"`
	Cycle        []string `json:"cycle,omitempty"`
}

func extend(p *problems.Problem) *compileProblem {
	return &compileProblem{
		Type:     p.Type,
		Title:    p.Title,
		Status:   p.Status,
		Detail:   p.Detail,
		Instance: p.Instance,
	}
}

func newProblem(r *http.Request, status int, problemType, detail string) *problems.Problem {
	return problems.NewStatusProblem(status).
		WithInstance(r.URL.Path).
		WithType(problemType).
		WithDetail(detail)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, detail string) {
	sendProblem(w, status, newProblem(r, status, problemType, detail))
}

func sendProblem(w http.ResponseWriter, status int, p any) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

// writeCompileError maps compiler errors to problem documents: graph errors
// are the client's (422) and printer failures are ours (500).
func writeCompileError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *compiler.GraphValidationError
		noEndpointErr *compiler.NoEndpointError
		contentErr    *compiler.ContentParseError
		emissionErr   *compiler.EmissionError
	)

	status := http.StatusUnprocessableEntity
	var p *compileProblem
	switch {
	case errors.As(err, &validationErr):
		p = extend(newProblem(r, status, "validation_error", err.Error()))
		p.NodeID = validationErr.NodeID()
		p.ConnectionID = validationErr.ConnectionID
		p.Cycle = validationErr.Cycle
	case errors.As(err, &noEndpointErr):
		p = extend(newProblem(r, status, "no_endpoint", err.Error()))
	case errors.As(err, &contentErr):
		p = extend(newProblem(r, status, "content_parse_error", err.Error()))
		p.NodeID = contentErr.NodeID()
	case errors.As(err, &emissionErr):
		status = http.StatusInternalServerError
		p = extend(newProblem(r, status, "emission_error", err.Error()))
		p.NodeID = emissionErr.NodeID()
	default:
		status = http.StatusInternalServerError
		p = extend(newProblem(r, status, "internal_error", err.Error()))
	}
	sendProblem(w, status, p)
}
