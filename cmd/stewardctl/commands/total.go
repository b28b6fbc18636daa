package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	id "stewardship/pkg/domain"
)

func totalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "total <member-id> <year>",
		Short: "Sum a member's contributions for a year",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := id.ParseMemberID(args[0])
			if err != nil {
				return err
			}
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("year must be an integer: %w", err)
			}
			total, err := appCtx.Ledger.MemberTotal(cmd.Context(), memberID, year)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), total.StringFixed(2))
			return nil
		},
	}
}
