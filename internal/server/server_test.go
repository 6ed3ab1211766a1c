package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/askfit/internal/execute"
	"github.com/roach88/askfit/internal/generate"
	"github.com/roach88/askfit/internal/grammar"
	"github.com/roach88/askfit/internal/pipeline"
	"github.com/roach88/askfit/internal/schema"
	"github.com/roach88/askfit/internal/testutil"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func newTestServer(t *testing.T, gen generate.Generator, exec execute.Executor, store Pinger) *Server {
	t.Helper()
	sch, err := schema.Load()
	require.NoError(t, err)
	spec, err := grammar.New(sch)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(spec, gen, exec, testutil.NewFixedTokens("req-1"), nil, logger)
	return New(p, store, logger)
}

func postQuery(t *testing.T, srv *Server, body string) (*httptest.ResponseRecorder, QueryResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp QueryResponse
	if rec.Code != http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestQuery_Success(t *testing.T) {
	gen := &testutil.CannedGenerator{SQL: "SELECT SUM(active_calories) FROM garmin_active_cal_data"}
	exec := &testutil.RecordingExecutor{Results: &execute.ResultSet{
		Columns:  []string{"SUM(active_calories)"},
		Rows:     [][]any{{float64(123456)}},
		RowCount: 1,
	}}
	srv := newTestServer(t, gen, exec, nil)

	rec, resp := postQuery(t, srv, `{"query": "total active calories?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "total active calories?", resp.NaturalQuery)
	assert.Equal(t, "SELECT SUM(active_calories) FROM garmin_active_cal_data", resp.GeneratedSQL)
	require.NotNil(t, resp.Results)
	assert.Equal(t, 1, resp.Results.RowCount)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "req-1", resp.RequestToken)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestQuery_GrammarRejectedIs422(t *testing.T) {
	gen := &testutil.CannedGenerator{SQL: "DROP TABLE garmin_active_cal_data"}
	exec := &testutil.RecordingExecutor{}
	srv := newTestServer(t, gen, exec, nil)

	rec, resp := postQuery(t, srv, `{"query": "drop the table"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "GRAMMAR_REJECTED", resp.Error.Kind)
	assert.NotEmpty(t, resp.Error.Message)
	assert.Empty(t, resp.GeneratedSQL)
	assert.Empty(t, exec.Statements(), "rejected candidate must not reach the store")
}

func TestQuery_GenerationFailureIs502(t *testing.T) {
	gen := &testutil.CannedGenerator{Err: &generate.Failure{Reason: "service unreachable"}}
	srv := newTestServer(t, gen, &testutil.RecordingExecutor{}, nil)

	rec, resp := postQuery(t, srv, `{"query": "anything"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "GENERATION_FAILED", resp.Error.Kind)
	assert.Contains(t, resp.Error.Message, "service unreachable")
}

func TestQuery_ExecutionFailureIs502(t *testing.T) {
	gen := &testutil.CannedGenerator{SQL: "SELECT * FROM garmin_active_cal_data"}
	exec := &testutil.RecordingExecutor{Err: &execute.Failure{Reason: "store refused connection"}}
	srv := newTestServer(t, gen, exec, nil)

	rec, resp := postQuery(t, srv, `{"query": "show everything"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "EXECUTION_FAILED", resp.Error.Kind)
	assert.Equal(t, "SELECT * FROM garmin_active_cal_data", resp.GeneratedSQL,
		"the validated statement is still reported")
}

func TestQuery_MalformedBody(t *testing.T) {
	srv := newTestServer(t, &testutil.CannedGenerator{}, &testutil.RecordingExecutor{}, nil)

	rec, _ := postQuery(t, srv, `{"query": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = postQuery(t, srv, `{"query": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = postQuery(t, srv, `{"query": "ok", "extra": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields rejected")
}

func TestQuery_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &testutil.CannedGenerator{}, &testutil.RecordingExecutor{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRoot_Liveness(t *testing.T) {
	srv := newTestServer(t, &testutil.CannedGenerator{}, &testutil.RecordingExecutor{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHealth_StoreConnected(t *testing.T) {
	srv := newTestServer(t, &testutil.CannedGenerator{}, &testutil.RecordingExecutor{}, fakePinger{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	services := body["services"].(map[string]any)
	assert.Equal(t, "connected", services["clickhouse"])
}

func TestHealth_StoreUnreachableIs503(t *testing.T) {
	srv := newTestServer(t, &testutil.CannedGenerator{}, &testutil.RecordingExecutor{},
		fakePinger{err: errors.New("dial tcp: connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
}

func TestCORS_PreflightAndHeaders(t *testing.T) {
	srv := newTestServer(t, &testutil.CannedGenerator{}, &testutil.RecordingExecutor{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}
