package registernumber

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"stewardship/internal/audit"
	"stewardship/internal/giving/models"
	"stewardship/internal/giving/ports"
	"stewardship/internal/giving/ports/mocks"
	"stewardship/internal/giving/store/memory"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
	"stewardship/pkg/platform/sentinel"
)

type AllocatorSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	members     *mocks.MockMemberDirectory
	uow         *memory.UnitOfWork
	auditStore  *audit.InMemoryStore
	allocator   *Allocator
	ctx         context.Context
	memberA     models.Member
	memberB     models.Member
	memberC     models.Member
	currentYear int
}

func TestAllocatorSuite(t *testing.T) {
	suite.Run(t, new(AllocatorSuite))
}

func (s *AllocatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.members = mocks.NewMockMemberDirectory(s.ctrl)
	s.uow = memory.NewUnitOfWork()
	s.auditStore = audit.NewInMemoryStore()
	s.allocator = New(s.uow, s.members,
		WithAuditPublisher(audit.NewPublisher(s.auditStore)),
		WithClock(func() time.Time { return time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) }),
	)
	s.ctx = context.Background()
	s.currentYear = 2026

	s.memberA = newMember("2020-01-01", models.MemberStatusActive)
	s.memberB = newMember("2021-06-01", models.MemberStatusActive)
	s.memberC = newMember("2019-03-01", models.MemberStatusActive)
}

func (s *AllocatorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func newMember(since string, status models.MemberStatus) models.Member {
	d, err := time.Parse(time.DateOnly, since)
	if err != nil {
		panic(err)
	}
	return models.Member{ID: id.MemberID(uuid.New()), MemberSince: d, Status: status}
}

func (s *AllocatorSuite) activeMembers() []models.Member {
	return []models.Member{s.memberA, s.memberB, s.memberC}
}

func (s *AllocatorSuite) TestGeneratePreview() {
	s.Run("orders earliest joiners first", func() {
		s.members.EXPECT().GetActiveMembers(gomock.Any()).Return(s.activeMembers(), nil)

		preview, err := s.allocator.GeneratePreview(s.ctx, 2026, s.currentYear, false)
		s.Require().NoError(err)
		s.Require().Len(preview.Candidates, 3)
		s.Equal(s.memberC.ID, preview.Candidates[0].Member.ID)
		s.Equal(1, preview.Candidates[0].CandidateNumber)
		s.Equal(s.memberA.ID, preview.Candidates[1].Member.ID)
		s.Equal(2, preview.Candidates[1].CandidateNumber)
		s.Equal(s.memberB.ID, preview.Candidates[2].Member.ID)
		s.Equal(3, preview.Candidates[2].CandidateNumber)
		s.False(preview.AlreadyGenerated)
	})

	s.Run("rejects past years", func() {
		_, err := s.allocator.GeneratePreview(s.ctx, 2025, s.currentYear, false)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("does not mutate storage", func() {
		s.members.EXPECT().GetActiveMembers(gomock.Any()).Return(s.activeMembers(), nil)

		_, err := s.allocator.GeneratePreview(s.ctx, 2027, s.currentYear, false)
		s.Require().NoError(err)

		state, err := s.allocator.State(s.ctx, 2027)
		s.Require().NoError(err)
		s.Equal(models.YearUngenerated, state)
	})

	s.Run("propagates directory failures as internal errors", func() {
		s.members.EXPECT().GetActiveMembers(gomock.Any()).Return(nil, errors.New("directory down"))

		_, err := s.allocator.GeneratePreview(s.ctx, 2026, s.currentYear, false)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *AllocatorSuite) TestCommit() {
	s.Run("persists the previewed assignment", func() {
		s.members.EXPECT().GetActiveMembers(gomock.Any()).Return(s.activeMembers(), nil).Times(2)

		preview, err := s.allocator.GeneratePreview(s.ctx, 2026, s.currentYear, false)
		s.Require().NoError(err)

		result, err := s.allocator.Commit(s.ctx, 2026, s.currentYear, "treasurer")
		s.Require().NoError(err)
		s.Equal(3, result.AssignedCount)

		committed, err := s.allocator.List(s.ctx, 2026)
		s.Require().NoError(err)
		s.Require().Len(committed, 3)
		for i, c := range preview.Candidates {
			s.Equal(c.Member.ID, committed[i].MemberID)
			s.Equal(c.CandidateNumber, committed[i].Number)
			s.Equal("treasurer", committed[i].CreatedBy)
		}
		s.Len(s.auditStore.ListByAction(audit.ActionRegisterNumbersCommitted), 1)
	})

	s.Run("second generation for the same year is rejected", func() {
		_, err := s.allocator.GeneratePreview(s.ctx, 2026, s.currentYear, false)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("regenerate flag previews but commit still conflicts", func() {
		s.members.EXPECT().GetActiveMembers(gomock.Any()).Return(s.activeMembers(), nil).Times(2)

		preview, err := s.allocator.GeneratePreview(s.ctx, 2026, s.currentYear, true)
		s.Require().NoError(err)
		s.True(preview.AlreadyGenerated)

		_, err = s.allocator.Commit(s.ctx, 2026, s.currentYear, "treasurer")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("requires a confirming operator", func() {
		_, err := s.allocator.Commit(s.ctx, 2028, s.currentYear, "  ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects an empty active set", func() {
		s.members.EXPECT().GetActiveMembers(gomock.Any()).Return(nil, nil)

		_, err := s.allocator.Commit(s.ctx, 2028, s.currentYear, "treasurer")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// TestConcurrentCommit verifies that racing commits for one year produce
// exactly one success and conflicts for the rest.
func (s *AllocatorSuite) TestConcurrentCommit() {
	const goroutines = 10
	s.members.EXPECT().GetActiveMembers(gomock.Any()).Return(s.activeMembers(), nil).Times(goroutines)

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
			_, err := s.allocator.Commit(s.ctx, 2030, s.currentYear, "treasurer")
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

func (s *AllocatorSuite) TestValidate() {
	inactive := newMember("2018-01-01", models.MemberStatusInactive)
	s.Require().NoError(s.uow.RunInTx(s.ctx, func(stores ports.Stores) error {
		return stores.RegisterNumbers.CreateMany(s.ctx, []*models.RegisterNumberAssignment{
			{MemberID: s.memberA.ID, Year: 2026, Number: 1, CreatedBy: "seed"},
			{MemberID: inactive.ID, Year: 2026, Number: 2, CreatedBy: "seed"},
		})
	}))

	s.Run("resolves an assigned number to an active member", func() {
		s.members.EXPECT().FindByID(gomock.Any(), s.memberA.ID).Return(&s.memberA, nil)

		v, err := s.allocator.Validate(s.ctx, 1, 2026)
		s.Require().NoError(err)
		s.True(v.Valid)
		s.True(v.MemberActive)
		s.True(v.Resolvable())
		s.Equal(s.memberA.ID, v.MemberID)
	})

	s.Run("flags inactive members", func() {
		s.members.EXPECT().FindByID(gomock.Any(), inactive.ID).Return(&inactive, nil)

		v, err := s.allocator.Validate(s.ctx, 2, 2026)
		s.Require().NoError(err)
		s.True(v.Valid)
		s.False(v.MemberActive)
		s.Equal(ReasonMemberInactive, v.Reason)
	})

	s.Run("unknown number in year is invalid", func() {
		v, err := s.allocator.Validate(s.ctx, 1, 2027)
		s.Require().NoError(err)
		s.False(v.Valid)
		s.Equal(ReasonNotAssigned, v.Reason)
	})

	s.Run("non-positive number is invalid", func() {
		v, err := s.allocator.Validate(s.ctx, 0, 2026)
		s.Require().NoError(err)
		s.False(v.Valid)
		s.Equal(ReasonInvalidNumber, v.Reason)
	})

	s.Run("member missing from directory cannot receive money", func() {
		s.members.EXPECT().FindByID(gomock.Any(), s.memberA.ID).Return(nil, sentinel.ErrNotFound)

		v, err := s.allocator.Validate(s.ctx, 1, 2026)
		s.Require().NoError(err)
		s.False(v.Resolvable())
		s.Equal(ReasonMemberUnknown, v.Reason)
	})
}

func TestOrder(t *testing.T) {
	sameDay := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	low := models.Member{ID: id.MemberID(uuid.MustParse("00000000-0000-0000-0000-000000000001")), MemberSince: sameDay, Status: models.MemberStatusActive}
	high := models.Member{ID: id.MemberID(uuid.MustParse("00000000-0000-0000-0000-000000000002")), MemberSince: sameDay, Status: models.MemberStatusActive}
	gone := models.Member{ID: id.MemberID(uuid.New()), MemberSince: sameDay.AddDate(-5, 0, 0), Status: models.MemberStatusInactive}

	first := Order([]models.Member{high, gone, low})
	second := Order([]models.Member{low, high, gone})

	if len(first) != 2 {
		t.Fatalf("expected inactive member to be skipped, got %d candidates", len(first))
	}
	if first[0].Member.ID != low.ID || first[1].Member.ID != high.ID {
		t.Fatalf("ties must break by member ID ascending")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("ordering must not depend on input order")
		}
	}
}
