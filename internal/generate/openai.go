package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/askfit/internal/grammar"
	"github.com/roach88/askfit/internal/schema"
)

// grammarToolName tags the constrained-output tool in both the request
// and the response. Extraction matches on it, never on item position.
const grammarToolName = "sql_grammar"

// defaultTimeout bounds one generation call end to end. Generation is a
// blocking call; a request whose generation exceeds this fails without
// affecting other in-flight requests.
const defaultTimeout = 60 * time.Second

// Config holds OpenAI client configuration.
type Config struct {
	APIKey  string        // API key (required)
	Model   string        // model name (default "gpt-5-mini")
	BaseURL string        // endpoint override, no trailing slash (default api.openai.com)
	Timeout time.Duration // per-call timeout (default 60s)
}

// OpenAIGenerator implements Generator against the OpenAI Responses API,
// shipping the grammar as a custom tool with a Lark-syntax constraint.
//
// One instance is created at process start and shared by all requests;
// the underlying http.Client is safe for concurrent use.
type OpenAIGenerator struct {
	config Config
	spec   *grammar.Spec
	sch    *schema.Schema
	client *http.Client
	logger *slog.Logger
}

// NewOpenAI creates a generator bound to one grammar and schema.
func NewOpenAI(cfg Config, spec *grammar.Spec, sch *schema.Schema, logger *slog.Logger) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = "gpt-5-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIGenerator{
		config: cfg,
		spec:   spec,
		sch:    sch,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Request/response shapes for the Responses API. Only the fields this
// client reads or writes are declared.

type responsesRequest struct {
	Model             string         `json:"model"`
	Input             string         `json:"input"`
	Text              textFormat     `json:"text"`
	Tools             []customTool   `json:"tools"`
	ParallelToolCalls bool           `json:"parallel_tool_calls"`
	Reasoning         reasoningLevel `json:"reasoning"`
}

type textFormat struct {
	Format formatType `json:"format"`
}

type formatType struct {
	Type string `json:"type"`
}

type customTool struct {
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Format      grammarConstraint `json:"format"`
}

type grammarConstraint struct {
	Type       string `json:"type"`
	Syntax     string `json:"syntax"`
	Definition string `json:"definition"`
}

type reasoningLevel struct {
	Effort string `json:"effort"`
}

type responsesResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Output []outputItem `json:"output"`
	Error  *apiError    `json:"error"`
}

// outputItem is one entry of the response's output list. The list shape
// is not stable upstream (reasoning items may precede or follow the tool
// call), so consumers must select by Type, never by index.
type outputItem struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, question string) (string, error) {
	reqBody := responsesRequest{
		Model: g.config.Model,
		Input: BuildPrompt(g.sch, question),
		Text:  textFormat{Format: formatType{Type: "text"}},
		Tools: []customTool{{
			Type:        "custom",
			Name:        grammarToolName,
			Description: "Emits one read-only SQL SELECT statement for the fitness table. The statement must obey the attached grammar.",
			Format: grammarConstraint{
				Type:       "grammar",
				Syntax:     "lark",
				Definition: g.spec.Lark(),
			},
		}},
		// One candidate per request: parallel sampling would break the
		// at-most-one-execution contract downstream.
		ParallelToolCalls: false,
		Reasoning:         reasoningLevel{Effort: "medium"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", failf(err, "marshal request")
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return "", failf(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	g.logger.Debug("calling generation service", "model", g.config.Model)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", failf(err, "generation service unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", failf(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", failf(nil, "generation service returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed responsesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", failf(err, "parse response")
	}
	if parsed.Error != nil {
		return "", failf(nil, "generation service error %s: %s", parsed.Error.Code, parsed.Error.Message)
	}

	candidate, err := extractCandidate(parsed.Output)
	if err != nil {
		return "", err
	}

	g.logger.Debug("candidate generated", "response_id", parsed.ID, "length", len(candidate))
	return candidate, nil
}

// extractCandidate selects the single constrained-output item from the
// response's output list.
//
// Selection is by item type and tool name. Zero such items means the
// service declined or drifted; more than one violates the one-candidate
// contract. Both are failures, not guesses.
func extractCandidate(output []outputItem) (string, error) {
	var candidates []string
	for _, item := range output {
		if item.Type == "custom_tool_call" && item.Name == grammarToolName {
			candidates = append(candidates, item.Input)
		}
	}

	switch len(candidates) {
	case 0:
		return "", failf(nil, "response carried no %s tool call", grammarToolName)
	case 1:
		if candidates[0] == "" {
			return "", failf(nil, "response carried an empty candidate")
		}
		return candidates[0], nil
	default:
		return "", failf(nil, "response carried %d %s tool calls, want exactly 1", len(candidates), grammarToolName)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
