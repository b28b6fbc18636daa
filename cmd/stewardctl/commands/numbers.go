package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func numbersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "numbers",
		Short: "Annual register number allocation",
	}
	cmd.AddCommand(numbersPreviewCmd(), numbersCommitCmd(), numbersListCmd(), numbersValidateCmd())
	return cmd
}

func numbersPreviewCmd() *cobra.Command {
	var regenerate bool
	cmd := &cobra.Command{
		Use:   "preview <year>",
		Short: "Show the proposed numbering without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("year must be an integer: %w", err)
			}
			t, err := today()
			if err != nil {
				return err
			}
			preview, err := appCtx.Allocator.GeneratePreview(cmd.Context(), year, t.Year(), regenerate)
			if err != nil {
				return err
			}
			if preview.AlreadyGenerated {
				fmt.Fprintf(cmd.ErrOrStderr(), "numbers for %d already exist; this preview cannot be committed\n", year)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NUMBER\tMEMBER\tMEMBER SINCE")
			for _, c := range preview.Candidates {
				fmt.Fprintf(w, "%d\t%s\t%s\n", c.CandidateNumber, c.Member.ID, c.Member.MemberSince.Format(time.DateOnly))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "preview even if the year is already numbered")
	return cmd
}

func numbersCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit <year>",
		Short: "Persist the numbering for a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOperator(); err != nil {
				return err
			}
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("year must be an integer: %w", err)
			}
			t, err := today()
			if err != nil {
				return err
			}
			res, err := appCtx.Allocator.Commit(cmd.Context(), year, t.Year(), operator)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "assigned %d numbers for %d\n", res.AssignedCount, res.Year)
			return nil
		},
	}
}

func numbersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <year>",
		Short: "List committed numbers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("year must be an integer: %w", err)
			}
			list, err := appCtx.Allocator.List(cmd.Context(), year)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
}

func numbersValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <year> <number>",
		Short: "Check a register number resolves to an active member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("year must be an integer: %w", err)
			}
			number, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("number must be an integer: %w", err)
			}
			v, err := appCtx.Allocator.Validate(cmd.Context(), number, year)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
}
