// Package reconcile summarises import runs for operator review.
package reconcile

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stewardship/internal/giving/importer"
	id "stewardship/pkg/domain"
)

// UnmatchedLine is money that reached the bank but not a member.
type UnmatchedLine struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason,omitempty"`
}

type Summary struct {
	RunID                id.ImportRunID  `json:"run_id"`
	MatchedCount         int             `json:"matched_count"`
	UnmatchedCount       int             `json:"unmatched_count"`
	TotalAmountProcessed decimal.Decimal `json:"total_amount_processed"`
	MatchedAmount        decimal.Decimal `json:"matched_amount"`
	UnmatchedReferences  []string        `json:"unmatched_references"`
	Unmatched            []UnmatchedLine `json:"unmatched"`
	DuplicatesSkipped    int             `json:"duplicates_skipped"`
	RowErrors            int             `json:"row_errors"`
	ImportedAt           time.Time       `json:"imported_at"`
}

// Summarize aggregates one import run. Only newly imported lines count;
// duplicates were processed by an earlier run.
func Summarize(result *importer.Result) Summary {
	s := Summary{
		RunID:                result.RunID,
		TotalAmountProcessed: result.NewAmount(),
		MatchedAmount:        decimal.Zero,
		UnmatchedReferences:  []string{},
		Unmatched:            []UnmatchedLine{},
		DuplicatesSkipped:    result.DuplicatesSkipped,
		RowErrors:            len(result.RowErrors),
		ImportedAt:           result.ImportedAt,
	}

	refs := make(map[string]struct{})
	for _, line := range result.Lines {
		tx := line.Transaction
		if line.Matched() {
			s.MatchedCount++
			s.MatchedAmount = s.MatchedAmount.Add(tx.AmountIn)
			continue
		}
		s.UnmatchedCount++
		s.Unmatched = append(s.Unmatched, UnmatchedLine{
			Date:        tx.Date,
			Description: tx.Description,
			Reference:   tx.Reference,
			Amount:      tx.AmountIn,
			Reason:      string(line.Reason),
		})
		if tx.Reference != "" {
			refs[tx.Reference] = struct{}{}
		}
	}
	for ref := range refs {
		s.UnmatchedReferences = append(s.UnmatchedReferences, ref)
	}
	sort.Strings(s.UnmatchedReferences)
	return s
}
