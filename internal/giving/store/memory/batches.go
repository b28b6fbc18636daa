package memory

import (
	"context"
	"time"

	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
	"stewardship/pkg/platform/sentinel"
)

type EnvelopeBatchStore struct {
	s *state
}

func (b *EnvelopeBatchStore) Create(_ context.Context, batch *models.EnvelopeBatch) error {
	date := models.DateOnly(batch.CollectionDate)
	if _, taken := b.s.batchDates[date]; taken {
		return sentinel.ErrAlreadyUsed
	}
	b.s.batches[batch.ID] = *batch
	b.s.batchDates[date] = batch.ID
	return nil
}

func (b *EnvelopeBatchStore) FindByID(_ context.Context, batchID id.BatchID) (*models.EnvelopeBatch, error) {
	batch, ok := b.s.batches[batchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &batch, nil
}

func (b *EnvelopeBatchStore) ExistsForDate(_ context.Context, collectionDate time.Time) (bool, error) {
	_, ok := b.s.batchDates[models.DateOnly(collectionDate)]
	return ok, nil
}
