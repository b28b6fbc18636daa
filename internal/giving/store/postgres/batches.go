package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
)

type EnvelopeBatchStore struct {
	q queryer
}

func (s *EnvelopeBatchStore) Create(ctx context.Context, batch *models.EnvelopeBatch) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO envelope_batches (
			id, collection_date, total_amount, envelope_count, status, submitted_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.UUID(batch.ID),
		models.DateOnly(batch.CollectionDate),
		batch.TotalAmount,
		batch.EnvelopeCount,
		string(batch.Status),
		batch.SubmittedBy,
		batch.CreatedAt,
	)
	return translate(err, "insert envelope batch")
}

func (s *EnvelopeBatchStore) FindByID(ctx context.Context, batchID id.BatchID) (*models.EnvelopeBatch, error) {
	var (
		b      models.EnvelopeBatch
		rawID  uuid.UUID
		status string
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, collection_date, total_amount, envelope_count, status, submitted_by, created_at
		FROM envelope_batches
		WHERE id = $1
	`, uuid.UUID(batchID)).Scan(&rawID, &b.CollectionDate, &b.TotalAmount, &b.EnvelopeCount, &status, &b.SubmittedBy, &b.CreatedAt)
	if err != nil {
		return nil, translate(err, "find envelope batch")
	}
	b.ID = id.BatchID(rawID)
	b.CollectionDate = models.DateOnly(b.CollectionDate)
	b.Status = models.BatchStatus(status)
	return &b, nil
}

func (s *EnvelopeBatchStore) ExistsForDate(ctx context.Context, collectionDate time.Time) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM envelope_batches WHERE collection_date = $1)`,
		models.DateOnly(collectionDate),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check envelope batch date: %w", err)
	}
	return exists, nil
}
