// Package domain holds typed identifiers shared across the giving packages.
//
// Each identifier is a distinct named UUID type so a member ID can never be
// passed where a batch ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "stewardship/pkg/domain-errors"
)

type (
	MemberID       uuid.UUID
	BatchID        uuid.UUID
	ContributionID uuid.UUID
	TransactionID  uuid.UUID
	ImportRunID    uuid.UUID
	ManualEntryID  uuid.UUID
)

func (id MemberID) String() string       { return uuid.UUID(id).String() }
func (id BatchID) String() string        { return uuid.UUID(id).String() }
func (id ContributionID) String() string { return uuid.UUID(id).String() }
func (id TransactionID) String() string  { return uuid.UUID(id).String() }
func (id ImportRunID) String() string    { return uuid.UUID(id).String() }
func (id ManualEntryID) String() string  { return uuid.UUID(id).String() }

func (id MemberID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id BatchID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ContributionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TransactionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ImportRunID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ManualEntryID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// Identifiers encode as their canonical string form in JSON and other text encodings.

func (id MemberID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id BatchID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ContributionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id TransactionID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id ImportRunID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ManualEntryID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }

func (id *MemberID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *BatchID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ContributionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TransactionID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ImportRunID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ManualEntryID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }

func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s, "member ID")
	return MemberID(u), err
}

func ParseBatchID(s string) (BatchID, error) {
	u, err := parseUUID(s, "batch ID")
	return BatchID(u), err
}

func ParseContributionID(s string) (ContributionID, error) {
	u, err := parseUUID(s, "contribution ID")
	return ContributionID(u), err
}

func ParseImportRunID(s string) (ImportRunID, error) {
	u, err := parseUUID(s, "import run ID")
	return ImportRunID(u), err
}

// parseUUID rejects empty, malformed and nil UUIDs at trust boundaries.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
