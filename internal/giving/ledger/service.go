package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"stewardship/internal/audit"
	"stewardship/internal/giving/models"
	"stewardship/internal/giving/ports"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
	"stewardship/pkg/platform/sentinel"
	"stewardship/pkg/platform/tracing"
)

var tracer = otel.Tracer("stewardship/giving/ledger")

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service exposes the ledger operations that are not tied to a channel:
// manual one-off entries, soft deletion and member totals.
type Service struct {
	uow            ports.UnitOfWork
	members        ports.MemberDirectory
	writer         *Writer
	logger         *slog.Logger
	auditPublisher AuditPublisher
	now            func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(uow ports.UnitOfWork, members ports.MemberDirectory, writer *Writer, opts ...Option) *Service {
	s := &Service{uow: uow, members: members, writer: writer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ManualEntry is an operator-keyed contribution with no bank or envelope evidence.
type ManualEntry struct {
	MemberID   id.MemberID     `json:"member_id"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	Note       string          `json:"note"`
	RecordedBy string          `json:"recorded_by"`
}

// RecordManual writes a one-off contribution for an active member.
func (s *Service) RecordManual(ctx context.Context, entry ManualEntry) (*models.Contribution, error) {
	ctx, span := tracer.Start(ctx, "ledger.RecordManual")
	defer span.End()

	if entry.MemberID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "member ID is required")
	}
	if !models.WholeCents(entry.Amount) {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be in whole cents")
	}
	if !entry.Amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if entry.Date.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "date is required")
	}
	if strings.TrimSpace(entry.Note) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a note is required for manual contributions")
	}

	member, err := s.members.FindByID(ctx, entry.MemberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, tracing.Fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member"))
	}
	if !member.IsActive() {
		return nil, dErrors.New(dErrors.CodeValidation, "member is inactive")
	}

	entryID := id.ManualEntryID(uuid.New())
	contribution := &models.Contribution{
		MemberID:       entry.MemberID,
		Amount:         entry.Amount,
		Date:           entry.Date,
		TransactionRef: "MAN-" + entry.Date.Format("20060102") + "-" + entryID.String()[:8],
		Source:         models.ManualSource(entryID),
		Note:           strings.TrimSpace(entry.Note),
		CreatedAt:      s.now(),
	}

	err = s.uow.RunInTx(ctx, func(stores ports.Stores) error {
		_, err := s.writer.Write(ctx, stores, contribution)
		return err
	})
	if err != nil {
		return nil, tracing.Fail(span, err)
	}

	span.SetAttributes(attribute.String("contribution_id", contribution.ID.String()))
	s.logInfo(ctx, "manual contribution recorded",
		"contribution_id", contribution.ID.String(),
		"member_id", entry.MemberID.String(),
		"amount", contribution.Amount.StringFixed(2),
	)
	s.emit(ctx, audit.Event{
		Action:  audit.ActionManualContribution,
		Subject: contribution.ID.String(),
		ActorID: entry.RecordedBy,
		Attributes: map[string]string{
			"member_id": entry.MemberID.String(),
			"amount":    contribution.Amount.StringFixed(2),
		},
	})
	return contribution, nil
}

// Get returns a contribution, including soft-deleted ones.
func (s *Service) Get(ctx context.Context, contributionID id.ContributionID) (*models.Contribution, error) {
	var out *models.Contribution
	err := s.uow.RunInTx(ctx, func(stores ports.Stores) error {
		found, err := stores.Contributions.FindByID(ctx, contributionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "contribution not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contribution")
		}
		out = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete soft-deletes a contribution. The row stays for audit and drops out
// of every aggregate.
func (s *Service) Delete(ctx context.Context, contributionID id.ContributionID, deletedBy string) error {
	ctx, span := tracer.Start(ctx, "ledger.Delete")
	defer span.End()

	deletedBy = strings.TrimSpace(deletedBy)
	if deletedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "deleted by is required")
	}

	now := s.now()
	err := s.uow.RunInTx(ctx, func(stores ports.Stores) error {
		found, err := stores.Contributions.FindByID(ctx, contributionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "contribution not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contribution")
		}
		if err := found.CanDelete(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeConflict, "contribution cannot be deleted")
		}
		if err := stores.Contributions.MarkDeleted(ctx, contributionID, deletedBy, now); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "contribution was deleted concurrently")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete contribution")
		}
		return nil
	})
	if err != nil {
		return tracing.Fail(span, err)
	}

	s.logInfo(ctx, "contribution deleted",
		"contribution_id", contributionID.String(),
		"deleted_by", deletedBy,
	)
	s.emit(ctx, audit.Event{
		Action:  audit.ActionContributionDeleted,
		Subject: contributionID.String(),
		ActorID: deletedBy,
	})
	return nil
}

// MemberTotal sums a member's non-deleted contributions dated within year.
func (s *Service) MemberTotal(ctx context.Context, memberID id.MemberID, year int) (decimal.Decimal, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	total := decimal.Zero
	err := s.uow.RunInTx(ctx, func(stores ports.Stores) error {
		var err error
		total, err = stores.Contributions.SumByMember(ctx, memberID, from, to)
		return err
	})
	if err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to total contributions")
	}
	return total, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(event.Action),
			"error", err,
		)
	}
}
