package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stewardship/internal/giving/models"
	"stewardship/internal/giving/ports"
	"stewardship/internal/giving/store/memory"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
)

func TestWriter(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	w := NewWriterWithClock(func() time.Time { return fixed })
	memberID := id.MemberID(uuid.New())
	batchID := id.BatchID(uuid.New())

	valid := func() *models.Contribution {
		return &models.Contribution{
			MemberID: memberID,
			Amount:   decimal.RequireFromString("20.00"),
			Date:     time.Date(2026, 3, 8, 10, 30, 0, 0, time.UTC),
			Source:   models.EnvelopeSource(batchID),
		}
	}

	t.Run("fills identity and normalises the date", func(t *testing.T) {
		uow := memory.NewUnitOfWork()
		c := valid()
		var got id.ContributionID
		err := uow.RunInTx(ctx, func(stores ports.Stores) error {
			var err error
			got, err = w.Write(ctx, stores, c)
			return err
		})
		require.NoError(t, err)
		assert.False(t, got.IsNil())
		assert.Equal(t, fixed, c.CreatedAt)
		assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), c.Date)
	})

	t.Run("trailing zeros below the cent are accepted", func(t *testing.T) {
		uow := memory.NewUnitOfWork()
		c := valid()
		c.Amount = decimal.RequireFromString("20.000")
		err := uow.RunInTx(ctx, func(stores ports.Stores) error {
			_, err := w.Write(ctx, stores, c)
			return err
		})
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("20").Equal(c.Amount))
	})

	tests := []struct {
		name   string
		mutate func(c *models.Contribution)
	}{
		{name: "zero amount", mutate: func(c *models.Contribution) { c.Amount = decimal.Zero }},
		{name: "negative amount", mutate: func(c *models.Contribution) { c.Amount = decimal.NewFromInt(-1) }},
		{name: "sub-cent amount that rounds to zero", mutate: func(c *models.Contribution) { c.Amount = decimal.RequireFromString("0.001") }},
		{name: "sub-cent amount", mutate: func(c *models.Contribution) { c.Amount = decimal.RequireFromString("20.005") }},
		{name: "missing member", mutate: func(c *models.Contribution) { c.MemberID = id.MemberID{} }},
		{name: "missing source kind", mutate: func(c *models.Contribution) { c.Source.Kind = "" }},
		{name: "kind disagrees with source", mutate: func(c *models.Contribution) { c.Source.Kind = models.SourceBankImport }},
		{name: "two sources", mutate: func(c *models.Contribution) {
			txID := id.TransactionID(uuid.New())
			c.Source.BankTransactionID = &txID
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := memory.NewUnitOfWork()
			c := valid()
			tt.mutate(c)
			err := uow.RunInTx(ctx, func(stores ports.Stores) error {
				_, err := w.Write(ctx, stores, c)
				return err
			})
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}

	t.Run("same ID twice conflicts", func(t *testing.T) {
		uow := memory.NewUnitOfWork()
		c := valid()
		err := uow.RunInTx(ctx, func(stores ports.Stores) error {
			if _, err := w.Write(ctx, stores, c); err != nil {
				return err
			}
			again := valid()
			again.ID = c.ID
			_, err := w.Write(ctx, stores, again)
			return err
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}
