package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/leapstack-labs/flowgen/internal/compiler"
	"github.com/leapstack-labs/flowgen/internal/loader"
	"github.com/leapstack-labs/flowgen/internal/state"
	"github.com/leapstack-labs/flowgen/pkg/core"
	"github.com/leapstack-labs/flowgen/pkg/format"
)

// WarningsHeader carries the number of compile warnings on a text response.
const WarningsHeader = "X-Flowgen-Warnings"

type validateResponse struct {
	Valid    bool              `json:"valid"`
	Warnings []core.Diagnostic `json:"warnings"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Registry.Types())
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	target := s.cfg.Target
	if name := r.URL.Query().Get("target"); name != "" {
		t, err := format.ParseTarget(name)
		if err != nil {
			writeProblem(w, r, http.StatusBadRequest, "invalid_target", err.Error())
			return
		}
		target = t
	}

	body, g, ok := s.readGraph(w, r)
	if !ok {
		return
	}

	started := time.Now()
	res, err := compiler.Compile(g, compiler.Options{
		Target:     target,
		StrictJSON: s.strict(r),
		Registry:   s.cfg.Registry,
		Logger:     s.logger,
	})
	s.record(r, body, target, res, started, err)
	if err != nil {
		writeCompileError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, res)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(WarningsHeader, strconv.Itoa(len(res.Warnings)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Source)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	_, g, ok := s.readGraph(w, r)
	if !ok {
		return
	}

	warnings, err := compiler.Check(g, compiler.Options{
		StrictJSON: s.strict(r),
		Registry:   s.cfg.Registry,
		Logger:     s.logger,
	})
	if err != nil {
		writeCompileError(w, r, err)
		return
	}
	if warnings == nil {
		warnings = []core.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Warnings: warnings})
}

// readGraph reads and decodes the request body, writing a problem on failure.
func (s *Server) readGraph(w http.ResponseWriter, r *http.Request) ([]byte, *core.Graph, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, r, http.StatusRequestEntityTooLarge, "body_too_large",
				"graph snapshot exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return nil, nil, false
		}
		writeProblem(w, r, http.StatusBadRequest, "unreadable_body", err.Error())
		return nil, nil, false
	}

	g, err := s.loader.Decode(body, requestFormat(r), "")
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalid_snapshot", err.Error())
		return nil, nil, false
	}
	return body, g, true
}

// strict lets a request opt in to strict JSON parsing with ?strict=true.
func (s *Server) strict(r *http.Request) bool {
	if v := r.URL.Query().Get("strict"); v != "" {
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}
	return s.cfg.StrictJSON
}

func (s *Server) record(r *http.Request, body []byte, target format.Target, res *compiler.Result, started time.Time, compileErr error) {
	if s.cfg.Store == nil {
		return
	}
	var (
		source   string
		warnings int
	)
	if res != nil {
		source, warnings = res.Source, len(res.Warnings)
	}
	b := state.NewBuild("", body, string(target), source, warnings, started, compileErr)
	if err := s.cfg.Store.RecordBuild(r.Context(), b); err != nil {
		s.logger.Warn("failed to record build", slog.String("error", err.Error()))
	}
}

// requestFormat picks the snapshot format from the Content-Type header.
func requestFormat(r *http.Request) loader.Format {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return loader.FormatJSON
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return loader.FormatYAML
	case "application/hcl", "text/hcl", "text/x-hcl":
		return loader.FormatHCL
	default:
		return loader.FormatJSON
	}
}

func wantsJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Accept"))
	return err == nil && mediaType == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
