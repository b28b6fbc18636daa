package models

import (
	"time"

	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
)

// RegisterNumberAssignment ties a member to a number for one calendar year.
//
// Invariants:
//   - Number is unique within Year
//   - A member holds at most one assignment per Year
//   - Assignments are immutable once created
type RegisterNumberAssignment struct {
	MemberID  id.MemberID `json:"member_id"`
	Year      int         `json:"year"`
	Number    int         `json:"number"`
	CreatedBy string      `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewRegisterNumberAssignment(memberID id.MemberID, year, number int, createdBy string, now time.Time) (*RegisterNumberAssignment, error) {
	if memberID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "member ID is required")
	}
	if year < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "year must be positive")
	}
	if number < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "register number must be positive")
	}
	return &RegisterNumberAssignment{
		MemberID:  memberID,
		Year:      year,
		Number:    number,
		CreatedBy: createdBy,
		CreatedAt: now,
	}, nil
}

// YearState describes whether numbers have been generated for a year.
type YearState string

const (
	YearUngenerated YearState = "ungenerated"
	YearGenerated   YearState = "generated"
)
