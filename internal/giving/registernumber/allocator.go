// Package registernumber assigns and validates the yearly register numbers
// that tie numbered envelopes to members.
package registernumber

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"stewardship/internal/audit"
	"stewardship/internal/giving/metrics"
	"stewardship/internal/giving/models"
	"stewardship/internal/giving/ports"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
	"stewardship/pkg/platform/sentinel"
	"stewardship/pkg/platform/tracing"
)

var tracer = otel.Tracer("stewardship/giving/registernumber")

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Allocator owns the Ungenerated -> Generated lifecycle of a year's numbers.
type Allocator struct {
	uow            ports.UnitOfWork
	members        ports.MemberDirectory
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

type Option func(a *Allocator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(a *Allocator) {
		a.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Allocator) {
		a.metrics = m
	}
}

// WithClock overrides the timestamp source for CreatedAt. It never decides
// the current year; callers pass that explicitly.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

func New(uow ports.UnitOfWork, members ports.MemberDirectory, opts ...Option) *Allocator {
	a := &Allocator{uow: uow, members: members, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Candidate is one proposed assignment.
type Candidate struct {
	Member          models.Member `json:"member"`
	CandidateNumber int           `json:"candidate_number"`
}

// Preview is the read-only result of GeneratePreview.
type Preview struct {
	Year             int         `json:"year"`
	AlreadyGenerated bool        `json:"already_generated"`
	Candidates       []Candidate `json:"candidates"`
}

// CommitResult reports how many assignments were persisted.
type CommitResult struct {
	Year          int `json:"year"`
	AssignedCount int `json:"assigned_count"`
}

// GeneratePreview orders the active members and proposes numbers without
// touching storage. A year that already has numbers is rejected unless
// regenerate is set; even then the preview is informational only and Commit
// still refuses to overwrite.
func (a *Allocator) GeneratePreview(ctx context.Context, year, currentYear int, regenerate bool) (*Preview, error) {
	ctx, span := tracer.Start(ctx, "registernumber.GeneratePreview")
	defer span.End()
	span.SetAttributes(attribute.Int("year", year))

	if err := checkYear(year, currentYear); err != nil {
		return nil, err
	}

	generated, err := a.isGenerated(ctx, year)
	if err != nil {
		return nil, tracing.Fail(span, err)
	}
	if generated && !regenerate {
		return nil, dErrors.New(dErrors.CodeValidation, "register numbers already generated for "+strconv.Itoa(year))
	}

	active, err := a.members.GetActiveMembers(ctx)
	if err != nil {
		return nil, tracing.Fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active members"))
	}

	return &Preview{
		Year:             year,
		AlreadyGenerated: generated,
		Candidates:       Order(active),
	}, nil
}

// Commit persists one assignment per active member using the same ordering as
// GeneratePreview, inside a single unit of work.
func (a *Allocator) Commit(ctx context.Context, year, currentYear int, confirmedBy string) (*CommitResult, error) {
	ctx, span := tracer.Start(ctx, "registernumber.Commit")
	defer span.End()
	span.SetAttributes(attribute.Int("year", year))

	if err := checkYear(year, currentYear); err != nil {
		return nil, err
	}
	confirmedBy = strings.TrimSpace(confirmedBy)
	if confirmedBy == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "confirmed by is required")
	}

	active, err := a.members.GetActiveMembers(ctx)
	if err != nil {
		return nil, tracing.Fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active members"))
	}
	candidates := Order(active)
	if len(candidates) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "no active members to number")
	}

	now := a.now()
	assignments := make([]*models.RegisterNumberAssignment, 0, len(candidates))
	for _, c := range candidates {
		assignment, err := models.NewRegisterNumberAssignment(c.Member.ID, year, c.CandidateNumber, confirmedBy, now)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid assignment")
		}
		assignments = append(assignments, assignment)
	}

	err = a.uow.RunInTx(ctx, func(stores ports.Stores) error {
		exists, err := stores.RegisterNumbers.ExistsForYear(ctx, year)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check year")
		}
		if exists {
			return dErrors.New(dErrors.CodeConflict, "register numbers already exist for "+strconv.Itoa(year))
		}
		if err := stores.RegisterNumbers.CreateMany(ctx, assignments); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "register numbers were committed concurrently")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist register numbers")
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			a.metrics.IncrementConflict("register_numbers")
		}
		return nil, tracing.Fail(span, err)
	}

	a.metrics.AddRegisterNumbers(len(assignments))
	a.logInfo(ctx, "register numbers committed",
		"year", year,
		"assigned_count", len(assignments),
		"confirmed_by", confirmedBy,
	)
	a.emit(ctx, audit.Event{
		Action:  audit.ActionRegisterNumbersCommitted,
		Subject: strconv.Itoa(year),
		ActorID: confirmedBy,
		Attributes: map[string]string{
			"assigned_count": strconv.Itoa(len(assignments)),
		},
	})

	return &CommitResult{Year: year, AssignedCount: len(assignments)}, nil
}

// State reports whether numbers exist for year.
func (a *Allocator) State(ctx context.Context, year int) (models.YearState, error) {
	generated, err := a.isGenerated(ctx, year)
	if err != nil {
		return "", err
	}
	if generated {
		return models.YearGenerated, nil
	}
	return models.YearUngenerated, nil
}

// List returns the committed assignments for year ordered by number.
func (a *Allocator) List(ctx context.Context, year int) ([]*models.RegisterNumberAssignment, error) {
	var out []*models.RegisterNumberAssignment
	err := a.uow.RunInTx(ctx, func(stores ports.Stores) error {
		var err error
		out, err = stores.RegisterNumbers.ListByYear(ctx, year)
		return err
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list register numbers")
	}
	return out, nil
}

func (a *Allocator) isGenerated(ctx context.Context, year int) (bool, error) {
	var generated bool
	err := a.uow.RunInTx(ctx, func(stores ports.Stores) error {
		var err error
		generated, err = stores.RegisterNumbers.ExistsForYear(ctx, year)
		return err
	})
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check year")
	}
	return generated, nil
}

// Order sorts members by MemberSince ascending, breaking ties by member ID,
// and numbers them from 1. Inactive members are skipped.
func Order(members []models.Member) []Candidate {
	active := make([]models.Member, 0, len(members))
	for _, m := range members {
		if m.IsActive() {
			active = append(active, m)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		si, sj := models.DateOnly(active[i].MemberSince), models.DateOnly(active[j].MemberSince)
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return compareIDs(active[i].ID, active[j].ID) < 0
	})
	out := make([]Candidate, len(active))
	for i, m := range active {
		out[i] = Candidate{Member: m, CandidateNumber: i + 1}
	}
	return out
}

func compareIDs(a, b id.MemberID) int {
	ua, ub := uuid.UUID(a), uuid.UUID(b)
	return bytes.Compare(ua[:], ub[:])
}

func checkYear(year, currentYear int) error {
	if year < currentYear {
		return dErrors.New(dErrors.CodeValidation, "year must be the current or a future year")
	}
	return nil
}

func (a *Allocator) logInfo(ctx context.Context, msg string, args ...any) {
	if a.logger != nil {
		a.logger.InfoContext(ctx, msg, args...)
	}
}

func (a *Allocator) emit(ctx context.Context, event audit.Event) {
	if a.auditPublisher == nil {
		return
	}
	if err := a.auditPublisher.Emit(ctx, event); err != nil && a.logger != nil {
		a.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(event.Action),
			"error", err,
		)
	}
}
