package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"stewardship/internal/giving/importer"
	"stewardship/internal/giving/reconcile"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <statement-file>",
		Short: "Import a bank statement (CSV or XLSX) and print the reconciliation summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOperator(); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result, err := appCtx.Importer.Import(cmd.Context(), importer.Upload{
				FileName:   filepath.Base(args[0]),
				Data:       data,
				ImportedBy: operator,
			})
			if err != nil {
				return err
			}
			if perr := result.PartialError(); perr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), perr)
				for _, e := range result.RowErrors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  row %d: %s\n", e.Row, e.Message)
				}
			}
			return printJSON(cmd.OutOrStdout(), reconcile.Summarize(result))
		},
	}
}
