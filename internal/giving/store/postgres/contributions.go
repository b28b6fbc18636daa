package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
	"stewardship/pkg/platform/sentinel"
)

type ContributionStore struct {
	q queryer
}

const contributionColumns = `
	id, member_id, amount, contribution_date, transaction_ref, source_kind,
	bank_transaction_id, envelope_batch_id, manual_entry_id, note,
	deleted, deleted_by, deleted_at, created_at`

func (s *ContributionStore) Create(ctx context.Context, c *models.Contribution) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO contributions (`+contributionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		uuid.UUID(c.ID),
		uuid.UUID(c.MemberID),
		c.Amount,
		models.DateOnly(c.Date),
		c.TransactionRef,
		string(c.Source.Kind),
		nullUUID((*uuid.UUID)(c.Source.BankTransactionID)),
		nullUUID((*uuid.UUID)(c.Source.EnvelopeBatchID)),
		nullUUID((*uuid.UUID)(c.Source.ManualEntryID)),
		c.Note,
		c.Deleted,
		c.DeletedBy,
		nullTime(c.DeletedAt),
		c.CreatedAt,
	)
	return translate(err, "insert contribution")
}

func (s *ContributionStore) FindByID(ctx context.Context, contributionID id.ContributionID) (*models.Contribution, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+contributionColumns+` FROM contributions WHERE id = $1`,
		uuid.UUID(contributionID))
	c, err := scanContribution(row)
	if err != nil {
		return nil, translate(err, "find contribution")
	}
	return c, nil
}

func (s *ContributionStore) MarkDeleted(ctx context.Context, contributionID id.ContributionID, by string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE contributions
		SET deleted = TRUE, deleted_by = $2, deleted_at = $3
		WHERE id = $1 AND NOT deleted
	`, uuid.UUID(contributionID), by, at)
	if err != nil {
		return fmt.Errorf("soft delete contribution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete contribution: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, contributionID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *ContributionStore) ListByBatch(ctx context.Context, batchID id.BatchID) ([]*models.Contribution, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+contributionColumns+`
		FROM contributions
		WHERE envelope_batch_id = $1 AND NOT deleted
		ORDER BY created_at, transaction_ref
	`, uuid.UUID(batchID))
	if err != nil {
		return nil, fmt.Errorf("list batch contributions: %w", err)
	}
	defer rows.Close()

	var out []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ContributionStore) SumByMember(ctx context.Context, memberID id.MemberID, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM contributions
		WHERE member_id = $1 AND NOT deleted AND contribution_date BETWEEN $2 AND $3
	`, uuid.UUID(memberID), models.DateOnly(from), models.DateOnly(to)).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum member contributions: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContribution(row rowScanner) (*models.Contribution, error) {
	var (
		c                         models.Contribution
		rawID, memberID           uuid.UUID
		kind                      string
		bankID, batchID, manualID uuid.NullUUID
		deletedAt                 sql.NullTime
	)
	err := row.Scan(
		&rawID, &memberID, &c.Amount, &c.Date, &c.TransactionRef, &kind,
		&bankID, &batchID, &manualID, &c.Note,
		&c.Deleted, &c.DeletedBy, &deletedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.ContributionID(rawID)
	c.MemberID = id.MemberID(memberID)
	c.Date = models.DateOnly(c.Date)
	c.Source.Kind = models.SourceKind(kind)
	if bankID.Valid {
		v := id.TransactionID(bankID.UUID)
		c.Source.BankTransactionID = &v
	}
	if batchID.Valid {
		v := id.BatchID(batchID.UUID)
		c.Source.EnvelopeBatchID = &v
	}
	if manualID.Valid {
		v := id.ManualEntryID(manualID.UUID)
		c.Source.ManualEntryID = &v
	}
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Time
	}
	return &c, nil
}

func nullUUID(v *uuid.UUID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *v, Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
