package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
)

// SourceKind tags the evidence channel that backs a contribution.
type SourceKind string

const (
	SourceBankImport SourceKind = "bank_import"
	SourceEnvelope   SourceKind = "envelope"
	SourceManual     SourceKind = "manual"
)

func (k SourceKind) IsValid() bool {
	switch k {
	case SourceBankImport, SourceEnvelope, SourceManual:
		return true
	}
	return false
}

// Source identifies the single evidentiary record behind a contribution.
// Exactly one of the IDs is set and it must agree with Kind.
type Source struct {
	Kind              SourceKind        `json:"kind"`
	BankTransactionID *id.TransactionID `json:"bank_transaction_id,omitempty"`
	EnvelopeBatchID   *id.BatchID       `json:"envelope_batch_id,omitempty"`
	ManualEntryID     *id.ManualEntryID `json:"manual_entry_id,omitempty"`
}

func BankSource(txID id.TransactionID) Source {
	return Source{Kind: SourceBankImport, BankTransactionID: &txID}
}

func EnvelopeSource(batchID id.BatchID) Source {
	return Source{Kind: SourceEnvelope, EnvelopeBatchID: &batchID}
}

func ManualSource(entryID id.ManualEntryID) Source {
	return Source{Kind: SourceManual, ManualEntryID: &entryID}
}

// Validate enforces the exactly-one-source invariant.
func (s Source) Validate() error {
	if !s.Kind.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "contribution source kind is required")
	}
	populated := 0
	if s.BankTransactionID != nil && !s.BankTransactionID.IsNil() {
		populated++
	}
	if s.EnvelopeBatchID != nil && !s.EnvelopeBatchID.IsNil() {
		populated++
	}
	if s.ManualEntryID != nil && !s.ManualEntryID.IsNil() {
		populated++
	}
	if populated != 1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "contribution must have exactly one source")
	}
	var matches bool
	switch s.Kind {
	case SourceBankImport:
		matches = s.BankTransactionID != nil && !s.BankTransactionID.IsNil()
	case SourceEnvelope:
		matches = s.EnvelopeBatchID != nil && !s.EnvelopeBatchID.IsNil()
	case SourceManual:
		matches = s.ManualEntryID != nil && !s.ManualEntryID.IsNil()
	}
	if !matches {
		return dErrors.New(dErrors.CodeInvariantViolation, "contribution source ID does not match its kind")
	}
	return nil
}

// ID returns the populated source identifier as a string.
func (s Source) ID() string {
	switch {
	case s.BankTransactionID != nil:
		return s.BankTransactionID.String()
	case s.EnvelopeBatchID != nil:
		return s.EnvelopeBatchID.String()
	case s.ManualEntryID != nil:
		return s.ManualEntryID.String()
	}
	return ""
}

// Contribution is one ledger row crediting money to a member.
// Deleted rows are kept for audit and excluded from every aggregate.
type Contribution struct {
	ID             id.ContributionID `json:"id"`
	MemberID       id.MemberID       `json:"member_id"`
	Amount         decimal.Decimal   `json:"amount"`
	Date           time.Time         `json:"date"`
	TransactionRef string            `json:"transaction_ref,omitempty"`
	Source         Source            `json:"source"`
	Note           string            `json:"note,omitempty"`
	Deleted        bool              `json:"deleted"`
	DeletedBy      string            `json:"deleted_by,omitempty"`
	DeletedAt      *time.Time        `json:"deleted_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// CanDelete reports whether the contribution may be soft deleted.
func (c *Contribution) CanDelete() error {
	if c.Deleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "contribution is already deleted")
	}
	return nil
}

// ApplyDeletion flags the row as deleted. Call CanDelete first.
func (c *Contribution) ApplyDeletion(by string, now time.Time) {
	c.Deleted = true
	c.DeletedBy = by
	c.DeletedAt = &now
}
