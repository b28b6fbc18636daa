package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "stewardship/pkg/domain"
)

// BankTransaction is one credit line taken from an uploaded statement.
// Re-imports produce fresh rows, so identity for deduplication is the
// TransactionKey rather than ID.
type BankTransaction struct {
	ID                    id.TransactionID `json:"id"`
	ImportRunID           id.ImportRunID   `json:"import_run_id"`
	Date                  time.Time        `json:"date"`
	Description           string           `json:"description"`
	Reference             string           `json:"reference"`
	AmountIn              decimal.Decimal  `json:"amount_in"`
	SourceFileFingerprint string           `json:"source_file_fingerprint"`
	RowNumber             int              `json:"row_number"`
	Deleted               bool             `json:"deleted"`
	CreatedAt             time.Time        `json:"created_at"`
}

// Key returns the composite deduplication key for the transaction.
func (t BankTransaction) Key() TransactionKey {
	return NewTransactionKey(t.Date, t.Reference, t.AmountIn)
}

// TransactionKey is the idempotency boundary for statement imports:
// (date, extracted reference, amount in).
type TransactionKey struct {
	Date      string
	Reference string
	Amount    string
}

func NewTransactionKey(date time.Time, reference string, amount decimal.Decimal) TransactionKey {
	return TransactionKey{
		Date:      DateOnly(date).Format(time.DateOnly),
		Reference: reference,
		Amount:    amount.StringFixed(2),
	}
}
