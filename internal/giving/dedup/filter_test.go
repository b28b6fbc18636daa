package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stewardship/internal/giving/models"
)

func tx(day int, ref, amount string) models.BankTransaction {
	return models.BankTransaction{
		Date:      time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
		Reference: ref,
		AmountIn:  decimal.RequireFromString(amount),
	}
}

func TestFilter(t *testing.T) {
	t.Run("everything is new on first import", func(t *testing.T) {
		candidates := []models.BankTransaction{tx(8, "1", "20.00"), tx(8, "2", "20.00")}

		got := Filter(candidates, nil)
		assert.Len(t, got.New, 2)
		assert.Empty(t, got.Duplicates)
	})

	t.Run("re-import of the same lines is all duplicates", func(t *testing.T) {
		candidates := []models.BankTransaction{tx(8, "1", "20.00"), tx(9, "", "5.00")}
		imported := []models.TransactionKey{candidates[0].Key(), candidates[1].Key()}

		got := Filter(candidates, imported)
		assert.Empty(t, got.New)
		assert.Len(t, got.Duplicates, len(candidates))
	})

	t.Run("amount scale does not defeat the key", func(t *testing.T) {
		imported := []models.TransactionKey{tx(8, "1", "20").Key()}

		got := Filter([]models.BankTransaction{tx(8, "1", "20.00")}, imported)
		assert.Empty(t, got.New)
	})

	t.Run("time of day does not defeat the key", func(t *testing.T) {
		late := tx(8, "1", "20.00")
		late.Date = late.Date.Add(15 * time.Hour)

		got := Filter([]models.BankTransaction{late}, []models.TransactionKey{tx(8, "1", "20.00").Key()})
		assert.Empty(t, got.New)
	})

	t.Run("overlapping statement keeps only the unseen tail", func(t *testing.T) {
		imported := []models.TransactionKey{tx(8, "1", "20.00").Key()}
		candidates := []models.BankTransaction{tx(8, "1", "20.00"), tx(15, "1", "20.00")}

		got := Filter(candidates, imported)
		require.Len(t, got.New, 1)
		assert.Equal(t, 15, got.New[0].Date.Day())
	})

	t.Run("identical lines within one file collapse", func(t *testing.T) {
		candidates := []models.BankTransaction{tx(8, "3", "10.00"), tx(8, "3", "10.00")}

		got := Filter(candidates, nil)
		assert.Len(t, got.New, 1)
		assert.Len(t, got.Duplicates, 1)
	})
}
