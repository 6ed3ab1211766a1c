// Package server exposes the question pipeline over HTTP.
//
// Three routes: POST /query runs one request end to end, GET /health
// probes the store, GET / is a bare liveness check. The handler maps
// failure classifications to status codes; a grammar rejection is a
// client-visible 422, not a 500, because the request itself was fine
// and the generated candidate was not.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/askfit/internal/execute"
	"github.com/roach88/askfit/internal/pipeline"
)

// Pinger probes the backing store. *execute.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP surface over one pipeline instance.
type Server struct {
	pipeline *pipeline.Pipeline
	store    Pinger
	logger   *slog.Logger
	mux      *http.ServeMux
}

// QueryRequest is the POST /query body.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the POST /query reply.
type QueryResponse struct {
	NaturalQuery string             `json:"natural_query"`
	GeneratedSQL string             `json:"generated_sql,omitempty"`
	Results      *execute.ResultSet `json:"results,omitempty"`
	Error        *QueryError        `json:"error,omitempty"`
	RequestToken string             `json:"request_token"`
}

// QueryError carries the failure classification to the client.
type QueryError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// New builds a server around a pipeline. store may be nil; /health then
// reports only the process itself.
func New(p *pipeline.Pipeline, store Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		pipeline: p,
		store:    store,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /query", s.handleQuery)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	return s
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.cors(s.mux))
}

// ListenAndServe blocks serving on addr until ctx is canceled, then
// drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "askfit API is running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{}
	status := http.StatusOK

	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			services["clickhouse"] = fmt.Sprintf("unreachable: %v", err)
			status = http.StatusServiceUnavailable
		} else {
			services["clickhouse"] = "connected"
		}
	}

	body := map[string]any{"services": services}
	if status == http.StatusOK {
		body["status"] = "healthy"
	} else {
		body["status"] = "unhealthy"
	}
	writeJSON(w, status, body)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "query must not be empty",
		})
		return
	}

	outcome := s.pipeline.Run(r.Context(), req.Query)

	resp := QueryResponse{
		NaturalQuery: outcome.Question,
		GeneratedSQL: outcome.Statement,
		Results:      outcome.Results,
		RequestToken: outcome.Token,
	}

	if outcome.Err != nil {
		resp.Error = &QueryError{
			Kind:    string(outcome.Err.Kind),
			Message: failureMessage(outcome.Err),
		}
		writeJSON(w, statusFor(outcome.Err.Kind), resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps a failure classification to an HTTP status.
func statusFor(kind pipeline.ErrorKind) int {
	switch kind {
	case pipeline.KindGrammarRejected:
		// The request was well formed; the generated candidate was not.
		return http.StatusUnprocessableEntity
	case pipeline.KindGenerationFailed, pipeline.KindExecutionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// failureMessage strips the RequestError envelope so the client sees
// the underlying reason without the token repeated.
func failureMessage(err *pipeline.RequestError) string {
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// cors applies the permissive policy the browser frontend needs.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
