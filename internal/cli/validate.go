package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/askfit/internal/grammar"
	"github.com/roach88/askfit/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	SQL    string `json:"sql"`
	Reason string `json:"reason,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <sql>",
		Short: "Check a SQL statement against the grammar",
		Long: `Check whether a SQL statement is accepted by the query grammar.

Runs entirely offline: no generation service or store is contacted.
Useful for probing the boundary the grammar enforces.

Example:
  askfit validate "SELECT SUM(active_calories) FROM garmin_active_cal_data"
  askfit validate "DROP TABLE garmin_active_cal_data"   # rejected`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateSQL(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidateSQL(opts *RootOptions, sql string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	spec, err := loadGrammar()
	if err != nil {
		return err
	}

	rej := spec.Validate(sql)
	if rej == nil {
		if formatter.Format == "json" {
			return formatter.JSON(CLIResponse{Status: "ok", Data: ValidationResult{Valid: true, SQL: sql}})
		}
		fmt.Fprintln(formatter.Writer, "✓ accepted")
		return nil
	}

	if formatter.Format == "json" {
		_ = formatter.JSON(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, SQL: sql, Reason: rej.Reason, Offset: rej.Offset},
			Error:  &CLIError{Code: "GRAMMAR_REJECTED", Message: rej.Reason},
		})
	} else {
		fmt.Fprintln(formatter.Writer, "✗ rejected")
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintf(formatter.Writer, "  %s\n", sql)
		if rej.Offset >= 0 && rej.Offset <= len(sql) {
			fmt.Fprintf(formatter.Writer, "  %s^\n", strings.Repeat(" ", rej.Offset))
		}
		fmt.Fprintf(formatter.Writer, "  %s (offset %d)\n", rej.Reason, rej.Offset)
	}

	return NewExitError(ExitFailure, "statement rejected by grammar")
}

// loadGrammar builds the grammar spec from the embedded schema.
func loadGrammar() (*grammar.Spec, error) {
	sch, err := schema.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load table schema", err)
	}
	spec, err := grammar.New(sch)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "build grammar", err)
	}
	return spec, nil
}
