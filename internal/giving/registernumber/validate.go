package registernumber

import (
	"context"
	"errors"

	"stewardship/internal/giving/ports"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
	"stewardship/pkg/platform/sentinel"
)

// Reason explains a failed or restricted validation.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonInvalidNumber  Reason = "invalid_number"
	ReasonNotAssigned    Reason = "not_assigned"
	ReasonMemberInactive Reason = "member_inactive"
	ReasonMemberUnknown  Reason = "member_unknown"
)

// Validation is the outcome of resolving a register number. Valid means an
// assignment exists; MemberActive must also hold before money is credited.
type Validation struct {
	Number       int         `json:"number"`
	Year         int         `json:"year"`
	Valid        bool        `json:"valid"`
	Reason       Reason      `json:"reason,omitempty"`
	MemberID     id.MemberID `json:"member_id,omitempty"`
	MemberActive bool        `json:"member_active"`
}

// Resolvable reports whether the number may receive money.
func (v Validation) Resolvable() bool {
	return v.Valid && v.MemberActive
}

// Validate resolves number for year in its own unit of work.
func (a *Allocator) Validate(ctx context.Context, number, year int) (*Validation, error) {
	var out *Validation
	err := a.uow.RunInTx(ctx, func(stores ports.Stores) error {
		var err error
		out, err = a.ValidateIn(ctx, stores, number, year)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateIn resolves number against stores that belong to a caller's unit of
// work, so a batch sees the same assignments it commits against.
func (a *Allocator) ValidateIn(ctx context.Context, stores ports.Stores, number, year int) (*Validation, error) {
	v := &Validation{Number: number, Year: year}
	if number < 1 {
		v.Reason = ReasonInvalidNumber
		return v, nil
	}

	assignment, err := stores.RegisterNumbers.FindByNumber(ctx, year, number)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			v.Reason = ReasonNotAssigned
			return v, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up register number")
	}
	v.Valid = true
	v.MemberID = assignment.MemberID

	member, err := a.members.FindByID(ctx, assignment.MemberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			v.Reason = ReasonMemberUnknown
			return v, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	v.MemberActive = member.IsActive()
	if !v.MemberActive {
		v.Reason = ReasonMemberInactive
	}
	return v, nil
}
