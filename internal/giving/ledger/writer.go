// Package ledger is the single write path for contribution rows.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"stewardship/internal/giving/models"
	"stewardship/internal/giving/ports"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
	"stewardship/pkg/platform/sentinel"
)

// Writer persists contributions for every channel. It checks row shape only;
// bank duplicates are filtered before rows reach it.
type Writer struct {
	now func() time.Time
}

func NewWriter() *Writer {
	return &Writer{now: time.Now}
}

// NewWriterWithClock is used by tests that assert CreatedAt.
func NewWriterWithClock(now func() time.Time) *Writer {
	return &Writer{now: now}
}

// Write validates c and stores it through stores, which must belong to the
// caller's unit of work. ID and CreatedAt are filled in when unset.
func (w *Writer) Write(ctx context.Context, stores ports.Stores, c *models.Contribution) (id.ContributionID, error) {
	if c == nil {
		return id.ContributionID{}, dErrors.New(dErrors.CodeInvariantViolation, "contribution is required")
	}
	if err := c.Source.Validate(); err != nil {
		return id.ContributionID{}, err
	}
	if !models.WholeCents(c.Amount) {
		return id.ContributionID{}, dErrors.New(dErrors.CodeInvariantViolation, "contribution amount must be in whole cents")
	}
	if !c.Amount.IsPositive() {
		return id.ContributionID{}, dErrors.New(dErrors.CodeInvariantViolation, "contribution amount must be positive")
	}
	if c.MemberID.IsNil() {
		return id.ContributionID{}, dErrors.New(dErrors.CodeInvariantViolation, "contribution member is required")
	}
	if c.Date.IsZero() {
		return id.ContributionID{}, dErrors.New(dErrors.CodeInvariantViolation, "contribution date is required")
	}

	if c.ID.IsNil() {
		c.ID = id.ContributionID(uuid.New())
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = w.now()
	}
	c.Date = models.DateOnly(c.Date)

	if err := stores.Contributions.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return id.ContributionID{}, dErrors.Wrap(err, dErrors.CodeConflict, "contribution already recorded")
		}
		return id.ContributionID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write contribution")
	}
	return c.ID, nil
}
