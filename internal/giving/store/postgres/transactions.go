package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stewardship/internal/giving/models"
)

type BankTransactionStore struct {
	q queryer
}

func (s *BankTransactionStore) Create(ctx context.Context, tx *models.BankTransaction) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO bank_transactions (
			id, import_run_id, txn_date, description, reference, amount_in,
			source_file_fingerprint, row_number, deleted, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(tx.ID),
		uuid.UUID(tx.ImportRunID),
		models.DateOnly(tx.Date),
		tx.Description,
		tx.Reference,
		tx.AmountIn,
		tx.SourceFileFingerprint,
		tx.RowNumber,
		tx.Deleted,
		tx.CreatedAt,
	)
	return translate(err, "insert bank transaction")
}

func (s *BankTransactionStore) ListKeys(ctx context.Context, from, to time.Time) ([]models.TransactionKey, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT txn_date, reference, amount_in
		FROM bank_transactions
		WHERE NOT deleted AND txn_date BETWEEN $1 AND $2
	`, models.DateOnly(from), models.DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("list transaction keys: %w", err)
	}
	defer rows.Close()

	var keys []models.TransactionKey
	for rows.Next() {
		var (
			date      time.Time
			reference string
			amount    decimal.Decimal
		)
		if err := rows.Scan(&date, &reference, &amount); err != nil {
			return nil, fmt.Errorf("scan transaction key: %w", err)
		}
		keys = append(keys, models.NewTransactionKey(date, reference, amount))
	}
	return keys, rows.Err()
}
