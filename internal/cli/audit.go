package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/askfit/internal/audit"
	"github.com/roach88/askfit/internal/config"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit [token]",
		Short: "Show the request audit log",
		Long: `Show recent entries from the request audit log, or one entry by its
request token.

Example:
  askfit audit
  askfit audit --limit 50
  askfit audit 0198c5b2-7f00-7abc-8def-0123456789ab`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			}
			return runAudit(opts, token, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "audit database path (overrides ASKFIT_AUDIT_PATH)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of entries to show")

	return cmd
}

func runAudit(opts *AuditOptions, token string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	path := opts.Database
	if path == "" {
		cfg, err := config.FromEnv()
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		path = cfg.AuditPath
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no audit database configured")
	}

	log, err := audit.Open(path, newLogger(opts.RootOptions))
	if err != nil {
		return WrapExitError(ExitCommandError, "open audit log", err)
	}
	defer log.Close()

	if token != "" {
		entry, err := log.ByToken(cmd.Context(), token)
		if err != nil {
			return WrapExitError(ExitCommandError, "read audit entry", err)
		}
		if formatter.Format == "json" {
			return formatter.JSON(CLIResponse{Status: "ok", Data: entry})
		}
		printEntry(formatter, entry)
		return nil
	}

	entries, err := log.Recent(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "read audit log", err)
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: entries})
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "(no entries)")
		return nil
	}
	for i := range entries {
		printEntry(formatter, &entries[i])
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

func printEntry(f *OutputFormatter, e *audit.Entry) {
	fmt.Fprintf(f.Writer, "%s  %s  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.State, e.Token)
	fmt.Fprintf(f.Writer, "  Q: %s\n", e.Question)
	if e.Statement != "" {
		fmt.Fprintf(f.Writer, "  SQL: %s\n", e.Statement)
	}
	if e.ErrorKind != "" {
		fmt.Fprintf(f.Writer, "  Error: %s: %s\n", e.ErrorKind, e.ErrorMessage)
	} else {
		fmt.Fprintf(f.Writer, "  Rows: %d (%s)\n", e.RowCount, e.Duration)
	}
}
