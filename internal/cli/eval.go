package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/askfit/internal/evals"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	CasesDir   string
	ReportPath string
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run evaluation suites against the live service",
		Long: `Run YAML evaluation suites through the full pipeline: real
generation service, real store. Prints per-suite pass rates and
optionally writes a JSON report.

Exit code 1 when any case fails.

Example:
  askfit eval --cases internal/evals/testdata/cases
  askfit eval --cases ./cases --report eval-report.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CasesDir, "cases", "", "directory of suite YAML files (required)")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "write a JSON report to this path")
	_ = cmd.MarkFlagRequired("cases")

	return cmd
}

func runEval(opts *EvalOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	suites, err := evals.LoadSuiteDir(opts.CasesDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "load suites", err)
	}

	logger := newLogger(opts.RootOptions)
	d, err := buildDeps(logger)
	if err != nil {
		return err
	}
	defer d.close()

	report := evals.NewRunner(d.pipeline).RunAll(cmd.Context(), suites)

	if opts.ReportPath != "" {
		if err := report.WriteJSON(opts.ReportPath); err != nil {
			return WrapExitError(ExitCommandError, "write report", err)
		}
		formatter.VerboseLog("report written to %s", opts.ReportPath)
	}

	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{Status: "ok", Data: report}); err != nil {
			return err
		}
	} else {
		printReport(formatter, report)
	}

	if report.Summary.Failed > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d cases failed", report.Summary.Failed, report.Summary.Total))
	}
	return nil
}

func printReport(f *OutputFormatter, report *evals.Report) {
	for _, sr := range report.Suites {
		fmt.Fprintf(f.Writer, "%s: %d/%d (%.1f%%)\n", sr.SuiteName, sr.Passed, sr.Total, sr.PassRate*100)
		for _, cr := range sr.Results {
			mark := "✓"
			if !cr.Passed {
				mark = "✗"
			}
			fmt.Fprintf(f.Writer, "  %s %s\n", mark, cr.Description)
			if !cr.Passed {
				for _, ar := range cr.Assertions {
					if !ar.Passed {
						fmt.Fprintf(f.Writer, "      %s: %s\n", ar.Type, ar.Message)
					}
				}
			}
		}
	}
	fmt.Fprintf(f.Writer, "\nTotal: %d/%d (%.1f%%)\n",
		report.Summary.Passed, report.Summary.Total, report.Summary.PassRate*100)
}
