// Package httpapi exposes the query engine over HTTP: a plain
// net/http.ServeMux, one handler per route, and a semaphore-backed
// admission gate bounding concurrent query handlers.
//
// The server wiring (http.Server plus signal-driven graceful shutdown)
// follows mcp.Server.StartSSE, with its MCP tool registry replaced by a
// small REST table. golang.org/x/sync/semaphore backs the admission gate,
// the sibling of the errgroup package internal/compiler already uses from
// the same module.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jptmoore/beingdb/internal/engine"
	"github.com/jptmoore/beingdb/internal/query"
)

// Info carries the name/version GET /version reports.
type Info struct {
	Name    string
	Version string
}

// Server wires an Engine to the HTTP surface behind an admission gate.
type Server struct {
	eng        *engine.Engine
	info       Info
	maxResults int
	gate       *semaphore.Weighted
	logger     *zap.Logger
}

// New builds a Server. maxResults is the server-wide ceiling composed with
// a request's own limit (effective_limit = min(user_limit, max_results));
// maxConcurrent sizes the admission gate.
func New(eng *engine.Engine, info Info, maxResults, maxConcurrent int, logger *zap.Logger) *Server {
	return &Server{
		eng:        eng,
		info:       info,
		maxResults: maxResults,
		gate:       semaphore.NewWeighted(int64(maxConcurrent)),
		logger:     logger,
	}
}

// Handler builds the ServeMux carrying the server's full routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /predicates", s.admit(s.handlePredicates))
	mux.HandleFunc("GET /query/{predicate}", s.admit(s.handleQueryPredicate))
	mux.HandleFunc("POST /query", s.admit(s.handleQuery))
	return mux
}

// ListenAndServe runs an http.Server on addr until ctx is cancelled, then
// shuts down gracefully, serving until SIGTERM/SIGINT.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// admit wraps handler with the admission gate: a process-wide cap on
// concurrent query handlers, returning 503 rather than queueing
// indefinitely when the gate is full.
func (s *Server) admit(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.gate.TryAcquire(1) {
			writeError(w, http.StatusServiceUnavailable, "server overloaded")
			return
		}
		defer s.gate.Release(1)
		handler(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "OK")
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    s.info.Name,
		"version": s.info.Version,
	})
}

func (s *Server) handlePredicates(w http.ResponseWriter, r *http.Request) {
	infos := s.eng.ListPredicatesWithArity()
	out := make([]map[string]interface{}, len(infos))
	for i, p := range infos {
		out[i] = map[string]interface{}{"name": p.Name, "arity": p.Arity}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"predicates": out})
}

func (s *Server) handleQueryPredicate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("predicate")
	facts, err := s.eng.QueryAll(r.Context(), name)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	rows := make([][]string, len(facts))
	for i, args := range facts {
		row := make([]string, len(args))
		for j, a := range args {
			row[j] = a.Text
		}
		rows[i] = row
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"predicate": name, "facts": rows})
}

type queryRequest struct {
	Query  string `json:"query"`
	Offset *int   `json:"offset"`
	Limit  *int   `json:"limit"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	q, ok := query.Parse(req.Query)
	if !ok {
		writeError(w, http.StatusBadRequest, "query parse error")
		return
	}
	q = engine.Optimize(q)

	if err := engine.ValidateQuery(q, req.Offset, req.Limit); err != nil {
		s.writeEngineError(w, err)
		return
	}

	limit := s.effectiveLimit(req.Limit)
	result, err := s.eng.ExecuteStreaming(r.Context(), q, req.Offset, &limit)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, engine.ResultToJSON(result, req.Offset, req.Limit))
}

// effectiveLimit composes a request's own limit with the server-wide
// ceiling: effective_limit = min(user_limit, max_results).
func (s *Server) effectiveLimit(requested *int) int {
	if requested == nil || *requested > s.maxResults {
		return s.maxResults
	}
	return *requested
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var qe *engine.QueryError
	if errors.As(err, &qe) {
		writeError(w, http.StatusBadRequest, qe.Message)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
