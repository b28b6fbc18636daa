package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stewardship/internal/giving/models"
	"stewardship/internal/giving/ports"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
	"stewardship/pkg/platform/sentinel"
)

func bankTxn(reference, amount string) *models.BankTransaction {
	return &models.BankTransaction{
		ID:        id.TransactionID(uuid.New()),
		Date:      time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		Reference: reference,
		AmountIn:  decimal.RequireFromString(amount),
	}
}

func keysIn(t *testing.T, uow *UnitOfWork) []models.TransactionKey {
	t.Helper()
	var keys []models.TransactionKey
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, uow.RunInTx(context.Background(), func(stores ports.Stores) error {
		var err error
		keys, err = stores.Transactions.ListKeys(context.Background(), day, day)
		return err
	}))
	return keys
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		uow := NewUnitOfWork()
		require.NoError(t, uow.RunInTx(ctx, func(stores ports.Stores) error {
			return stores.Transactions.Create(ctx, bankTxn("7", "25.00"))
		}))
		assert.Len(t, keysIn(t, uow), 1)
	})

	t.Run("discards every write when the callback fails", func(t *testing.T) {
		uow := NewUnitOfWork()
		boom := errors.New("boom")
		err := uow.RunInTx(ctx, func(stores ports.Stores) error {
			if err := stores.Transactions.Create(ctx, bankTxn("7", "25.00")); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Empty(t, keysIn(t, uow))
	})

	t.Run("duplicate transaction key", func(t *testing.T) {
		uow := NewUnitOfWork()
		err := uow.RunInTx(ctx, func(stores ports.Stores) error {
			if err := stores.Transactions.Create(ctx, bankTxn("7", "25.00")); err != nil {
				return err
			}
			return stores.Transactions.Create(ctx, bankTxn("7", "25"))
		})
		require.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
		assert.Empty(t, keysIn(t, uow))
	})

	t.Run("deleted rows free their transaction key", func(t *testing.T) {
		uow := NewUnitOfWork()
		live := bankTxn("7", "25.00")
		require.NoError(t, uow.RunInTx(ctx, func(stores ports.Stores) error {
			reversed := bankTxn("7", "25.00")
			reversed.Deleted = true
			if err := stores.Transactions.Create(ctx, reversed); err != nil {
				return err
			}
			if err := stores.Transactions.Create(ctx, live); err != nil {
				return err
			}
			// a reversed copy may still be stored beside the live row
			again := bankTxn("7", "25")
			again.Deleted = true
			return stores.Transactions.Create(ctx, again)
		}))
		keys := keysIn(t, uow)
		require.Len(t, keys, 1)
		assert.Equal(t, live.Key(), keys[0])
	})

	t.Run("cancelled context", func(t *testing.T) {
		uow := NewUnitOfWork()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := uow.RunInTx(cctx, func(ports.Stores) error {
			called = true
			return nil
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
		assert.False(t, called)
	})

	t.Run("configured timeout applies", func(t *testing.T) {
		uow := NewUnitOfWorkWithTimeout(time.Millisecond)
		err := uow.RunInTx(ctx, func(ports.Stores) error {
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, time.Millisecond, uow.timeout)
	})
}
