package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewGrammarCommand creates the grammar command.
func NewGrammarCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Print the query grammar",
		Long: `Print the Lark grammar the generation service is constrained with.

This is the exact definition shipped to the LLM as a custom tool and
the same vocabulary enforced locally at validation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadGrammar()
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
				return formatter.JSON(CLIResponse{Status: "ok", Data: map[string]string{
					"syntax":     "lark",
					"definition": spec.Lark(),
				}})
			}
			fmt.Fprint(cmd.OutOrStdout(), spec.Lark())
			return nil
		},
	}

	return cmd
}
