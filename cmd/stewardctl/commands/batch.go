package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"stewardship/internal/giving/envelope"
	"stewardship/internal/giving/models"
)

func batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "batch <collection-date> <number=amount>...",
		Short:   "Submit a Sunday's envelope batch",
		Example: "  stewardctl batch 2026-03-08 1=20.00 2=15.50 --by treasurer",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireOperator(); err != nil {
				return err
			}
			date, err := time.Parse(time.DateOnly, args[0])
			if err != nil {
				return fmt.Errorf("collection date must be YYYY-MM-DD: %w", err)
			}
			entries, err := parseEntries(args[1:])
			if err != nil {
				return err
			}
			res, err := appCtx.Batches.SubmitBatch(cmd.Context(), envelope.Submission{
				CollectionDate: date,
				Entries:        entries,
				SubmittedBy:    operator,
			})
			if err != nil {
				var invalid *envelope.InvalidEntriesError
				if errors.As(err, &invalid) {
					fmt.Fprintf(cmd.ErrOrStderr(), "rejected register numbers: %s\n", joinNumbers(invalid.RegisterNumbers()))
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func parseEntries(raw []string) ([]models.EnvelopeEntry, error) {
	entries := make([]models.EnvelopeEntry, 0, len(raw))
	for _, arg := range raw {
		num, amt, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q must look like number=amount", arg)
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return nil, fmt.Errorf("entry %q: register number must be an integer", arg)
		}
		a, err := decimal.NewFromString(strings.TrimSpace(amt))
		if err != nil {
			return nil, fmt.Errorf("entry %q: amount must be a decimal", arg)
		}
		entries = append(entries, models.EnvelopeEntry{RegisterNumber: n, Amount: a})
	}
	return entries, nil
}

func joinNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
