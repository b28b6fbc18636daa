package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
	"stewardship/pkg/platform/sentinel"
)

type ContributionStore struct {
	s *state
}

func (c *ContributionStore) Create(_ context.Context, contribution *models.Contribution) error {
	if _, exists := c.s.contributions[contribution.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	c.s.contributions[contribution.ID] = *contribution
	return nil
}

func (c *ContributionStore) FindByID(_ context.Context, contributionID id.ContributionID) (*models.Contribution, error) {
	found, ok := c.s.contributions[contributionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &found, nil
}

func (c *ContributionStore) MarkDeleted(_ context.Context, contributionID id.ContributionID, by string, at time.Time) error {
	found, ok := c.s.contributions[contributionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if found.Deleted {
		return sentinel.ErrInvalidState
	}
	found.ApplyDeletion(by, at)
	c.s.contributions[contributionID] = found
	return nil
}

func (c *ContributionStore) ListByBatch(_ context.Context, batchID id.BatchID) ([]*models.Contribution, error) {
	var out []*models.Contribution
	for _, v := range c.s.contributions {
		if v.Deleted || v.Source.EnvelopeBatchID == nil || *v.Source.EnvelopeBatchID != batchID {
			continue
		}
		row := v
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt) ||
			(out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].TransactionRef < out[j].TransactionRef)
	})
	return out, nil
}

func (c *ContributionStore) SumByMember(_ context.Context, memberID id.MemberID, from, to time.Time) (decimal.Decimal, error) {
	from, to = models.DateOnly(from), models.DateOnly(to)
	total := decimal.Zero
	for _, v := range c.s.contributions {
		if v.Deleted || v.MemberID != memberID {
			continue
		}
		d := models.DateOnly(v.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		total = total.Add(v.Amount)
	}
	return total, nil
}
