package memory

import (
	"context"
	"time"

	"stewardship/internal/giving/models"
	"stewardship/pkg/platform/sentinel"
)

type BankTransactionStore struct {
	s *state
}

// Create mirrors the partial unique index on non-deleted (date, reference, amount).
func (b *BankTransactionStore) Create(_ context.Context, tx *models.BankTransaction) error {
	b.s.transactions[tx.ID] = *tx
	if tx.Deleted {
		return nil
	}
	key := tx.Key()
	if existing, ok := b.s.txKeys[key]; ok && !b.s.transactions[existing].Deleted {
		delete(b.s.transactions, tx.ID)
		return sentinel.ErrAlreadyUsed
	}
	b.s.txKeys[key] = tx.ID
	return nil
}

func (b *BankTransactionStore) ListKeys(_ context.Context, from, to time.Time) ([]models.TransactionKey, error) {
	from, to = models.DateOnly(from), models.DateOnly(to)
	var keys []models.TransactionKey
	for _, tx := range b.s.transactions {
		if tx.Deleted {
			continue
		}
		d := models.DateOnly(tx.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		keys = append(keys, tx.Key())
	}
	return keys, nil
}
