package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
)

// BatchStatus is append-only; Submitted is terminal.
type BatchStatus string

const (
	BatchStatusSubmitted BatchStatus = "submitted"
)

// EnvelopeBatch is one Sunday's envelope collection.
//
// Invariants:
//   - CollectionDate is a Sunday
//   - TotalAmount and EnvelopeCount are derived from the entries, never set by callers
//   - At most one batch exists per CollectionDate
type EnvelopeBatch struct {
	ID             id.BatchID      `json:"id"`
	CollectionDate time.Time       `json:"collection_date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	EnvelopeCount  int             `json:"envelope_count"`
	Status         BatchStatus     `json:"status"`
	SubmittedBy    string          `json:"submitted_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EnvelopeEntry is one counted envelope.
type EnvelopeEntry struct {
	RegisterNumber int             `json:"register_number"`
	Amount         decimal.Decimal `json:"amount"`
}

// NewEnvelopeBatch derives the totals from entries.
func NewEnvelopeBatch(batchID id.BatchID, collectionDate time.Time, entries []EnvelopeEntry, submittedBy string, now time.Time) (*EnvelopeBatch, error) {
	collectionDate = DateOnly(collectionDate)
	if !IsCollectionDay(collectionDate) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "collection date must be a Sunday")
	}
	if len(entries) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "batch must contain at least one envelope")
	}
	total := decimal.Zero
	for _, e := range entries {
		if !WholeCents(e.Amount) || !e.Amount.IsPositive() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "envelope amounts must be positive whole cents")
		}
		total = total.Add(e.Amount)
	}
	return &EnvelopeBatch{
		ID:             batchID,
		CollectionDate: collectionDate,
		TotalAmount:    total,
		EnvelopeCount:  len(entries),
		Status:         BatchStatusSubmitted,
		SubmittedBy:    submittedBy,
		CreatedAt:      now,
	}, nil
}
