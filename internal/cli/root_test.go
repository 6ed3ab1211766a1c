package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoot_RejectsInvalidFormat(t *testing.T) {
	_, _, err := runCLI(t, "--format", "xml", "grammar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRoot_HasAllSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "ask", "validate", "grammar", "eval", "audit"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestGrammar_PrintsLarkDefinition(t *testing.T) {
	stdout, _, err := runCLI(t, "grammar")
	require.NoError(t, err)

	assert.Contains(t, stdout, "start: query")
	assert.Contains(t, stdout, "garmin_active_cal_data")
	assert.Contains(t, stdout, "active_calories")
}

func TestGrammar_JSONFormat(t *testing.T) {
	stdout, _, err := runCLI(t, "--format", "json", "grammar")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "lark", data["syntax"])
	assert.Contains(t, data["definition"], "start: query")
}

func TestValidate_AcceptedStatement(t *testing.T) {
	stdout, _, err := runCLI(t, "validate",
		"SELECT SUM(active_calories) FROM garmin_active_cal_data")
	require.NoError(t, err)
	assert.Contains(t, stdout, "accepted")
}

func TestValidate_RejectedStatementExitsOne(t *testing.T) {
	stdout, _, err := runCLI(t, "validate", "DROP TABLE garmin_active_cal_data")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "rejected")
}

func TestValidate_JSONCarriesReasonAndOffset(t *testing.T) {
	stdout, _, err := runCLI(t, "--format", "json", "validate",
		"SELECT * FROM garmin_active_cal_data WHERE heart_rate > 100")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "GRAMMAR_REJECTED", resp.Error.Code)

	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["valid"])
	assert.NotEmpty(t, data["reason"])
}

func TestExitError_Codes(t *testing.T) {
	assert.Equal(t, 2, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, 1, GetExitCode(errors.New("plain error")))

	wrapped := WrapExitError(ExitCommandError, "context", errors.New("cause"))
	assert.Equal(t, 2, GetExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "context")
	assert.Contains(t, wrapped.Error(), "cause")
}

func TestOutputFormatter_TextAndJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}
	require.NoError(t, f.Success("done"))
	assert.Equal(t, "done\n", buf.String())

	buf.Reset()
	f.Format = "json"
	require.NoError(t, f.Error("GENERATION_FAILED", "timeout", nil))
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "GENERATION_FAILED", resp.Error.Code)
}

func TestVerboseLog_GoesToErrWriter(t *testing.T) {
	var out, errw bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errw, Verbose: true}
	f.VerboseLog("loaded %d suites", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3 suites\n", errw.String())

	f.Verbose = false
	errw.Reset()
	f.VerboseLog("hidden")
	assert.Empty(t, errw.String())
}

func TestEval_MissingCasesFlag(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"eval"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cases")
}

func TestAsk_RequiresExactlyOneArg(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"ask"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arg")
}
