package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"stewardship/internal/audit"
	"stewardship/internal/giving/models"
	"stewardship/internal/giving/store/memory"
	"stewardship/internal/members"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	service    *Service
	auditStore *audit.InMemoryStore
	active     models.Member
	inactive   models.Member
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.active = models.Member{ID: id.MemberID(uuid.New()), MemberSince: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), Status: models.MemberStatusActive}
	s.inactive = models.Member{ID: id.MemberID(uuid.New()), MemberSince: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), Status: models.MemberStatusInactive}
	s.auditStore = audit.NewInMemoryStore()
	s.service = NewService(
		memory.NewUnitOfWork(),
		members.NewInMemory(s.active, s.inactive),
		NewWriter(),
		WithAuditPublisher(audit.NewPublisher(s.auditStore)),
	)
}

func (s *ServiceSuite) manual(amount string, date time.Time) ManualEntry {
	return ManualEntry{
		MemberID:   s.active.ID,
		Amount:     decimal.RequireFromString(amount),
		Date:       date,
		Note:       "cheque handed in",
		RecordedBy: "treasurer",
	}
}

func (s *ServiceSuite) TestRecordManual() {
	s.Run("writes a manual contribution", func() {
		c, err := s.service.RecordManual(s.ctx, s.manual("40.00", time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)))
		s.Require().NoError(err)
		s.Equal(models.SourceManual, c.Source.Kind)
		s.NotNil(c.Source.ManualEntryID)
		s.Contains(c.TransactionRef, "MAN-20260402-")
		s.Len(s.auditStore.ListByAction(audit.ActionManualContribution), 1)
	})

	s.Run("inactive members cannot receive money", func() {
		entry := s.manual("10.00", time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
		entry.MemberID = s.inactive.ID
		_, err := s.service.RecordManual(s.ctx, entry)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown member", func() {
		entry := s.manual("10.00", time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
		entry.MemberID = id.MemberID(uuid.New())
		_, err := s.service.RecordManual(s.ctx, entry)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	for _, amount := range []string{"0.001", "20.005"} {
		s.Run("rejects sub-cent amount "+amount, func() {
			_, err := s.service.RecordManual(s.ctx, s.manual(amount, time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)))
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))

			total, err := s.service.MemberTotal(s.ctx, s.active.ID, 2026)
			s.Require().NoError(err)
			s.True(decimal.RequireFromString("40.00").Equal(total), "got %s", total)
		})
	}

	s.Run("requires a note", func() {
		entry := s.manual("10.00", time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
		entry.Note = " "
		_, err := s.service.RecordManual(s.ctx, entry)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestDeleteExcludesFromTotals() {
	kept, err := s.service.RecordManual(s.ctx, s.manual("25.00", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	s.Require().NoError(err)
	removed, err := s.service.RecordManual(s.ctx, s.manual("5.50", time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)))
	s.Require().NoError(err)
	_, err = s.service.RecordManual(s.ctx, s.manual("99.00", time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)))
	s.Require().NoError(err)

	total, err := s.service.MemberTotal(s.ctx, s.active.ID, 2026)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("30.50").Equal(total), "got %s", total)

	s.Require().NoError(s.service.Delete(s.ctx, removed.ID, "treasurer"))

	total, err = s.service.MemberTotal(s.ctx, s.active.ID, 2026)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("25.00").Equal(total), "got %s", total)

	s.Run("deleted row is retained", func() {
		got, err := s.service.Get(s.ctx, removed.ID)
		s.Require().NoError(err)
		s.True(got.Deleted)
		s.Equal("treasurer", got.DeletedBy)
		s.NotNil(got.DeletedAt)

		untouched, err := s.service.Get(s.ctx, kept.ID)
		s.Require().NoError(err)
		s.False(untouched.Deleted)
	})

	s.Run("second delete conflicts", func() {
		err := s.service.Delete(s.ctx, removed.ID, "treasurer")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown contribution", func() {
		err := s.service.Delete(s.ctx, id.ContributionID(uuid.New()), "treasurer")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Len(s.auditStore.ListByAction(audit.ActionContributionDeleted), 1)
}
