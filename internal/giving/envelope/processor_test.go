package envelope

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"stewardship/internal/audit"
	"stewardship/internal/giving/ledger"
	"stewardship/internal/giving/metrics"
	"stewardship/internal/giving/models"
	"stewardship/internal/giving/ports"
	"stewardship/internal/giving/registernumber"
	"stewardship/internal/giving/store/memory"
	"stewardship/internal/members"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
)

type ProcessorSuite struct {
	suite.Suite
	ctx        context.Context
	uow        *memory.UnitOfWork
	directory  *members.InMemory
	processor  *Processor
	ledger     *ledger.Service
	auditStore *audit.InMemoryStore
	memberA    models.Member
	memberB    models.Member
	memberC    models.Member
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}

func member(since string) models.Member {
	d, err := time.Parse(time.DateOnly, since)
	if err != nil {
		panic(err)
	}
	return models.Member{ID: id.MemberID(uuid.New()), MemberSince: d, Status: models.MemberStatusActive}
}

func sunday(day int) time.Time {
	return time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC)
}

func entry(number int, amount string) models.EnvelopeEntry {
	return models.EnvelopeEntry{RegisterNumber: number, Amount: decimal.RequireFromString(amount)}
}

func (s *ProcessorSuite) SetupTest() {
	s.ctx = context.Background()
	s.uow = memory.NewUnitOfWork()
	s.memberA = member("2020-01-01")
	s.memberB = member("2021-06-01")
	s.memberC = member("2019-03-01")
	s.directory = members.NewInMemory(s.memberA, s.memberB, s.memberC)

	allocator := registernumber.New(s.uow, s.directory)
	_, err := allocator.Commit(s.ctx, 2026, 2026, "treasurer")
	s.Require().NoError(err)

	writer := ledger.NewWriter()
	s.auditStore = audit.NewInMemoryStore()
	s.processor = New(s.uow, allocator, writer,
		WithAuditPublisher(audit.NewPublisher(s.auditStore)),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	s.ledger = ledger.NewService(s.uow, s.directory, writer)
}

func (s *ProcessorSuite) batchExists(date time.Time) bool {
	var exists bool
	s.Require().NoError(s.uow.RunInTx(s.ctx, func(stores ports.Stores) error {
		var err error
		exists, err = stores.Batches.ExistsForDate(s.ctx, date)
		return err
	}))
	return exists
}

func (s *ProcessorSuite) TestSubmitBatch() {
	result, err := s.processor.SubmitBatch(s.ctx, Submission{
		CollectionDate: sunday(8),
		Entries:        []models.EnvelopeEntry{entry(1, "20.00"), entry(2, "15.50")},
		SubmittedBy:    "counter",
	})
	s.Require().NoError(err)

	s.True(decimal.RequireFromString("35.50").Equal(result.TotalAmount), "got %s", result.TotalAmount)
	s.Equal(2, result.EnvelopeCount)
	s.Require().Len(result.Processed, 2)
	// Register numbers follow join order: C=1, A=2.
	s.Equal(s.memberC.ID, result.Processed[0].MemberID)
	s.Equal(s.memberA.ID, result.Processed[1].MemberID)
	s.Equal("ENV-20260308-0001", result.Processed[0].TransactionRef)
	s.Equal("ENV-20260308-0002", result.Processed[1].TransactionRef)

	s.Run("contributions are tagged with the batch", func() {
		lines, err := s.processor.ListContributions(s.ctx, result.BatchID)
		s.Require().NoError(err)
		s.Require().Len(lines, 2)
		for _, c := range lines {
			s.Equal(models.SourceEnvelope, c.Source.Kind)
			s.Require().NotNil(c.Source.EnvelopeBatchID)
			s.Equal(result.BatchID, *c.Source.EnvelopeBatchID)
		}
	})

	s.Run("batch can be fetched", func() {
		batch, err := s.processor.GetBatch(s.ctx, result.BatchID)
		s.Require().NoError(err)
		s.Equal(models.BatchStatusSubmitted, batch.Status)
		s.Equal(sunday(8), batch.CollectionDate)
		s.Equal("counter", batch.SubmittedBy)
	})

	s.Run("resubmitting the same Sunday conflicts", func() {
		_, err := s.processor.SubmitBatch(s.ctx, Submission{
			CollectionDate: sunday(8),
			Entries:        []models.EnvelopeEntry{entry(3, "5.00")},
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Len(s.auditStore.ListByAction(audit.ActionEnvelopeBatchSubmitted), 1)
}

func (s *ProcessorSuite) TestInvalidEntryRejectsWholeBatch() {
	_, err := s.processor.SubmitBatch(s.ctx, Submission{
		CollectionDate: sunday(15),
		Entries:        []models.EnvelopeEntry{entry(1, "10.00"), entry(99, "5.00")},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	var invalid *InvalidEntriesError
	s.Require().True(errors.As(err, &invalid))
	s.Equal([]int{99}, invalid.RegisterNumbers())
	s.Equal(string(registernumber.ReasonNotAssigned), invalid.Entries[0].Reason)

	s.False(s.batchExists(sunday(15)))
	total, err := s.ledger.MemberTotal(s.ctx, s.memberC.ID, 2026)
	s.Require().NoError(err)
	s.True(total.IsZero())
}

func (s *ProcessorSuite) TestSubCentAmountsRejectWholeBatch() {
	_, err := s.processor.SubmitBatch(s.ctx, Submission{
		CollectionDate: sunday(8),
		Entries:        []models.EnvelopeEntry{entry(1, "20.005"), entry(2, "15.505"), entry(3, "0.001")},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	var invalid *InvalidEntriesError
	s.Require().True(errors.As(err, &invalid))
	s.Equal([]int{1, 2, 3}, invalid.RegisterNumbers())
	for _, e := range invalid.Entries {
		s.Equal(ReasonSubCentAmount, e.Reason)
	}

	s.False(s.batchExists(sunday(8)))
	for _, m := range []models.Member{s.memberA, s.memberB, s.memberC} {
		total, err := s.ledger.MemberTotal(s.ctx, m.ID, 2026)
		s.Require().NoError(err)
		s.True(total.IsZero())
	}
}

func (s *ProcessorSuite) TestBatchTotalEqualsSumOfContributions() {
	result, err := s.processor.SubmitBatch(s.ctx, Submission{
		CollectionDate: sunday(8),
		Entries:        []models.EnvelopeEntry{entry(1, "20.500"), entry(2, "15.5"), entry(3, "0.01")},
	})
	s.Require().NoError(err)

	lines, err := s.processor.ListContributions(s.ctx, result.BatchID)
	s.Require().NoError(err)
	sum := decimal.Zero
	for _, c := range lines {
		s.True(c.Amount.IsPositive())
		sum = sum.Add(c.Amount)
	}
	s.True(decimal.RequireFromString("36.01").Equal(result.TotalAmount), "got %s", result.TotalAmount)
	s.True(result.TotalAmount.Equal(sum), "total %s, lines %s", result.TotalAmount, sum)
}

func (s *ProcessorSuite) TestInactiveMemberRejectsBatch() {
	inactive := s.memberB
	inactive.Status = models.MemberStatusInactive
	s.directory.Put(inactive)

	_, err := s.processor.SubmitBatch(s.ctx, Submission{
		CollectionDate: sunday(22),
		Entries:        []models.EnvelopeEntry{entry(3, "10.00")},
	})
	s.Require().Error(err)

	var invalid *InvalidEntriesError
	s.Require().True(errors.As(err, &invalid))
	s.Equal(string(registernumber.ReasonMemberInactive), invalid.Entries[0].Reason)
	s.False(s.batchExists(sunday(22)))
}

func (s *ProcessorSuite) TestNumbersResolveAgainstCollectionYear() {
	_, err := s.processor.SubmitBatch(s.ctx, Submission{
		CollectionDate: time.Date(2027, time.January, 3, 0, 0, 0, 0, time.UTC),
		Entries:        []models.EnvelopeEntry{entry(1, "10.00")},
	})
	s.Require().Error(err)
	var invalid *InvalidEntriesError
	s.Require().True(errors.As(err, &invalid))
	s.Equal(string(registernumber.ReasonNotAssigned), invalid.Entries[0].Reason)
}

func (s *ProcessorSuite) TestRejectsMalformedSubmissions() {
	tests := []struct {
		name string
		sub  Submission
	}{
		{name: "not a Sunday", sub: Submission{CollectionDate: sunday(9), Entries: []models.EnvelopeEntry{entry(1, "1.00")}}},
		{name: "no entries", sub: Submission{CollectionDate: sunday(8)}},
		{name: "zero amount", sub: Submission{CollectionDate: sunday(8), Entries: []models.EnvelopeEntry{entry(1, "0")}}},
		{name: "same number twice", sub: Submission{CollectionDate: sunday(8), Entries: []models.EnvelopeEntry{entry(1, "1.00"), entry(1, "2.00")}}},
		{name: "missing date", sub: Submission{Entries: []models.EnvelopeEntry{entry(1, "1.00")}}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.processor.SubmitBatch(s.ctx, tt.sub)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
	s.False(s.batchExists(sunday(8)))
}

func (s *ProcessorSuite) TestConcurrentSubmissionsForOneSunday() {
	const goroutines = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.processor.SubmitBatch(s.ctx, Submission{
				CollectionDate: sunday(29),
				Entries:        []models.EnvelopeEntry{entry(1, "10.00")},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(goroutines-1, conflicts)
}

func (s *ProcessorSuite) TestGetBatchNotFound() {
	_, err := s.processor.GetBatch(s.ctx, id.BatchID(uuid.New()))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.processor.ListContributions(s.ctx, id.BatchID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
