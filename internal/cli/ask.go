package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/askfit/internal/execute"
	"github.com/roach88/askfit/internal/pipeline"
)

// AskResult is the JSON payload for the ask command.
type AskResult struct {
	Question     string             `json:"question"`
	GeneratedSQL string             `json:"generated_sql,omitempty"`
	Results      *execute.ResultSet `json:"results,omitempty"`
	RequestToken string             `json:"request_token"`
}

// NewAskCommand creates the ask command.
func NewAskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Translate a question to SQL and run it",
		Long: `Translate one natural-language question into grammar-validated SQL,
run it against ClickHouse, and print the rows.

Requires OPENAI_API_KEY and CLICKHOUSE_HOST in the environment.

Example:
  askfit ask "How many calories did I burn in the last 7 days?"
  askfit ask --format json "What's my average daily distance?"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runAsk(opts *RootOptions, question string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	logger := newLogger(opts)
	d, err := buildDeps(logger)
	if err != nil {
		return err
	}
	defer d.close()

	outcome := d.pipeline.Run(cmd.Context(), question)

	if outcome.Err != nil {
		_ = formatter.Error(string(outcome.Err.Kind), outcome.Err.Error(), map[string]string{
			"generated_sql": outcome.Statement,
			"request_token": outcome.Token,
		})
		code := ExitCommandError
		if outcome.Err.Kind == pipeline.KindGrammarRejected {
			code = ExitFailure
		}
		return NewExitError(code, string(outcome.Err.Kind))
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: AskResult{
			Question:     outcome.Question,
			GeneratedSQL: outcome.Statement,
			Results:      outcome.Results,
			RequestToken: outcome.Token,
		}})
	}

	fmt.Fprintf(formatter.Writer, "SQL: %s\n\n", outcome.Statement)
	printResultSet(formatter, outcome.Results)
	return nil
}

// printResultSet renders rows as aligned text.
func printResultSet(f *OutputFormatter, rs *execute.ResultSet) {
	if rs == nil || len(rs.Rows) == 0 {
		fmt.Fprintln(f.Writer, "(no rows)")
		return
	}

	fmt.Fprintln(f.Writer, strings.Join(rs.Columns, "\t"))
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		fmt.Fprintln(f.Writer, strings.Join(cells, "\t"))
	}
	fmt.Fprintf(f.Writer, "\n%d row(s)\n", rs.RowCount)
}
