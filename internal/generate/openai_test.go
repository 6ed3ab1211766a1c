package generate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/askfit/internal/grammar"
	"github.com/roach88/askfit/internal/schema"
)

func testSpecAndSchema(t *testing.T) (*grammar.Spec, *schema.Schema) {
	t.Helper()
	sch, err := schema.Load()
	require.NoError(t, err)
	spec, err := grammar.New(sch)
	require.NoError(t, err)
	return spec, sch
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *OpenAIGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	spec, sch := testSpecAndSchema(t)
	return NewOpenAI(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}, spec, sch, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGenerate_ExtractsToolCallByType(t *testing.T) {
	// A reasoning item precedes the tool call; positional extraction
	// would pick the wrong item here.
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "resp_1",
			"status": "completed",
			"output": [
				{"type": "reasoning"},
				{"type": "custom_tool_call", "name": "sql_grammar", "input": "SELECT * FROM garmin_active_cal_data"}
			]
		}`))
	})

	sql, err := gen.Generate(context.Background(), "show me everything")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM garmin_active_cal_data", sql)
}

func TestGenerate_RequestShape(t *testing.T) {
	var captured responsesRequest
	var auth string

	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Write([]byte(`{"output": [{"type": "custom_tool_call", "name": "sql_grammar", "input": "SELECT * FROM garmin_active_cal_data"}]}`))
	})

	_, err := gen.Generate(context.Background(), "total calories?")
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "gpt-5-mini", captured.Model)
	assert.False(t, captured.ParallelToolCalls, "parallel sampling must be disabled")
	assert.Equal(t, "medium", captured.Reasoning.Effort)

	require.Len(t, captured.Tools, 1)
	tool := captured.Tools[0]
	assert.Equal(t, "custom", tool.Type)
	assert.Equal(t, "sql_grammar", tool.Name)
	assert.Equal(t, "grammar", tool.Format.Type)
	assert.Equal(t, "lark", tool.Format.Syntax)
	assert.Contains(t, tool.Format.Definition, "garmin_active_cal_data")

	assert.Contains(t, captured.Input, "total calories?")
	assert.Contains(t, captured.Input, "active_calories")
}

func TestGenerate_NoToolCallItem(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": [{"type": "reasoning"}, {"type": "message"}]}`))
	})

	_, err := gen.Generate(context.Background(), "anything")
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Reason, "no sql_grammar tool call")
}

func TestGenerate_MultipleToolCallItems(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": [
			{"type": "custom_tool_call", "name": "sql_grammar", "input": "SELECT * FROM garmin_active_cal_data"},
			{"type": "custom_tool_call", "name": "sql_grammar", "input": "SELECT steps FROM garmin_active_cal_data"}
		]}`))
	})

	_, err := gen.Generate(context.Background(), "anything")
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Reason, "want exactly 1")
}

func TestGenerate_EmptyCandidate(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": [{"type": "custom_tool_call", "name": "sql_grammar", "input": ""}]}`))
	})

	_, err := gen.Generate(context.Background(), "anything")
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Reason, "empty candidate")
}

func TestGenerate_APIError(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"code": "rate_limit_exceeded", "message": "slow down"}}`))
	})

	_, err := gen.Generate(context.Background(), "anything")
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Reason, "rate_limit_exceeded")
}

func TestGenerate_HTTPError(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := gen.Generate(context.Background(), "anything")
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Reason, "502")
}

func TestGenerate_Timeout(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"output": []}`))
	})
	gen.config.Timeout = 50 * time.Millisecond

	_, err := gen.Generate(context.Background(), "anything")
	var failure *Failure
	require.ErrorAs(t, err, &failure)
}

func TestGenerate_ContextCancellation(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, "anything")
	require.Error(t, err)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.True(t, errors.Is(err, context.Canceled) || failure.Err != nil)
}

func TestExtractCandidate_IgnoresOtherToolNames(t *testing.T) {
	_, err := extractCandidate([]outputItem{
		{Type: "custom_tool_call", Name: "other_tool", Input: "SELECT 1"},
	})
	var failure *Failure
	require.ErrorAs(t, err, &failure)
}
