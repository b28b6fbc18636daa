// Package envelope commits a Sunday's numbered-envelope collection as one
// atomic batch.
package envelope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"stewardship/internal/audit"
	"stewardship/internal/giving/ledger"
	"stewardship/internal/giving/metrics"
	"stewardship/internal/giving/models"
	"stewardship/internal/giving/ports"
	"stewardship/internal/giving/registernumber"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
	"stewardship/pkg/platform/sentinel"
	"stewardship/pkg/platform/tracing"
)

var tracer = otel.Tracer("stewardship/giving/envelope")

// RegisterValidator resolves register numbers inside the batch's unit of work.
type RegisterValidator interface {
	ValidateIn(ctx context.Context, stores ports.Stores, number, year int) (*registernumber.Validation, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

type Processor struct {
	uow            ports.UnitOfWork
	validator      RegisterValidator
	writer         *ledger.Writer
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(p *Processor) {
		p.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

func New(uow ports.UnitOfWork, validator RegisterValidator, writer *ledger.Writer, opts ...Option) *Processor {
	p := &Processor{uow: uow, validator: validator, writer: writer, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submission is one counted collection. Totals are always derived from Entries.
type Submission struct {
	CollectionDate time.Time              `json:"collection_date"`
	Entries        []models.EnvelopeEntry `json:"entries"`
	SubmittedBy    string                 `json:"submitted_by"`
}

// Processed confirms one envelope written to the ledger.
type Processed struct {
	RegisterNumber int               `json:"register_number"`
	MemberID       id.MemberID       `json:"member_id"`
	ContributionID id.ContributionID `json:"contribution_id"`
	Amount         decimal.Decimal   `json:"amount"`
	TransactionRef string            `json:"transaction_ref"`
}

type BatchResult struct {
	BatchID       id.BatchID      `json:"batch_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	EnvelopeCount int             `json:"envelope_count"`
	Processed     []Processed     `json:"processed"`
}

// SubmitBatch validates every entry and, only if all pass, writes the batch
// and one contribution per envelope in a single unit of work. Register
// numbers resolve against the collection date's year.
func (p *Processor) SubmitBatch(ctx context.Context, sub Submission) (*BatchResult, error) {
	ctx, span := tracer.Start(ctx, "envelope.SubmitBatch")
	defer span.End()

	collectionDate := models.DateOnly(sub.CollectionDate)
	span.SetAttributes(
		attribute.String("collection_date", collectionDate.Format(time.DateOnly)),
		attribute.Int("entries", len(sub.Entries)),
	)

	if sub.CollectionDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "collection date is required")
	}
	if !models.IsCollectionDay(collectionDate) {
		return nil, dErrors.New(dErrors.CodeValidation, "collection date must be a Sunday")
	}
	if len(sub.Entries) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "batch must contain at least one envelope")
	}
	if invalid := checkEntries(sub.Entries); len(invalid) > 0 {
		return nil, dErrors.Wrap(&InvalidEntriesError{Entries: invalid}, dErrors.CodeValidation, "batch rejected")
	}

	year := collectionDate.Year()
	now := p.now()
	var result *BatchResult

	err := p.uow.RunInTx(ctx, func(stores ports.Stores) error {
		exists, err := stores.Batches.ExistsForDate(ctx, collectionDate)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check collection date")
		}
		if exists {
			return dErrors.New(dErrors.CodeConflict, "a batch already exists for "+collectionDate.Format(time.DateOnly))
		}

		members := make([]id.MemberID, len(sub.Entries))
		var invalid []InvalidEntry
		for i, entry := range sub.Entries {
			v, err := p.validator.ValidateIn(ctx, stores, entry.RegisterNumber, year)
			if err != nil {
				return err
			}
			if !v.Resolvable() {
				invalid = append(invalid, InvalidEntry{Index: i, RegisterNumber: entry.RegisterNumber, Reason: string(v.Reason)})
				continue
			}
			members[i] = v.MemberID
		}
		if len(invalid) > 0 {
			return dErrors.Wrap(&InvalidEntriesError{Entries: invalid}, dErrors.CodeValidation, "batch rejected")
		}

		batch, err := models.NewEnvelopeBatch(id.BatchID(uuid.New()), collectionDate, sub.Entries, strings.TrimSpace(sub.SubmittedBy), now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "invalid batch")
		}
		if err := stores.Batches.Create(ctx, batch); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "a batch was submitted concurrently for "+collectionDate.Format(time.DateOnly))
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create batch")
		}

		processed := make([]Processed, 0, len(sub.Entries))
		for i, entry := range sub.Entries {
			c := &models.Contribution{
				MemberID:       members[i],
				Amount:         entry.Amount,
				Date:           collectionDate,
				TransactionRef: TransactionRef(collectionDate, i+1),
				Source:         models.EnvelopeSource(batch.ID),
				CreatedAt:      now,
			}
			contributionID, err := p.writer.Write(ctx, stores, c)
			if err != nil {
				return err
			}
			processed = append(processed, Processed{
				RegisterNumber: entry.RegisterNumber,
				MemberID:       members[i],
				ContributionID: contributionID,
				Amount:         c.Amount,
				TransactionRef: c.TransactionRef,
			})
		}

		result = &BatchResult{
			BatchID:       batch.ID,
			TotalAmount:   batch.TotalAmount,
			EnvelopeCount: batch.EnvelopeCount,
			Processed:     processed,
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			p.metrics.IncrementConflict("envelope_batch")
		}
		return nil, tracing.Fail(span, err)
	}

	p.metrics.RecordBatch(result.TotalAmount)
	p.logInfo(ctx, "envelope batch submitted",
		"batch_id", result.BatchID.String(),
		"collection_date", collectionDate.Format(time.DateOnly),
		"envelope_count", result.EnvelopeCount,
		"total_amount", result.TotalAmount.StringFixed(2),
	)
	p.emit(ctx, audit.Event{
		Action:  audit.ActionEnvelopeBatchSubmitted,
		Subject: result.BatchID.String(),
		ActorID: sub.SubmittedBy,
		Attributes: map[string]string{
			"collection_date": collectionDate.Format(time.DateOnly),
			"envelope_count":  strconv.Itoa(result.EnvelopeCount),
			"total_amount":    result.TotalAmount.StringFixed(2),
		},
	})
	return result, nil
}

// GetBatch loads a committed batch.
func (p *Processor) GetBatch(ctx context.Context, batchID id.BatchID) (*models.EnvelopeBatch, error) {
	var out *models.EnvelopeBatch
	err := p.uow.RunInTx(ctx, func(stores ports.Stores) error {
		var err error
		out, err = findBatch(ctx, stores, batchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListContributions returns the non-deleted lines of a batch.
func (p *Processor) ListContributions(ctx context.Context, batchID id.BatchID) ([]*models.Contribution, error) {
	var out []*models.Contribution
	err := p.uow.RunInTx(ctx, func(stores ports.Stores) error {
		if _, err := findBatch(ctx, stores, batchID); err != nil {
			return err
		}
		var err error
		out, err = stores.Contributions.ListByBatch(ctx, batchID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list batch contributions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func findBatch(ctx context.Context, stores ports.Stores, batchID id.BatchID) (*models.EnvelopeBatch, error) {
	batch, err := stores.Batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "envelope batch not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load envelope batch")
	}
	return batch, nil
}

// TransactionRef labels the seq-th envelope of a collection, e.g. ENV-20260308-0002.
func TransactionRef(collectionDate time.Time, seq int) string {
	return fmt.Sprintf("ENV-%s-%04d", collectionDate.Format("20060102"), seq)
}

// checkEntries catches problems that need no storage lookup.
func checkEntries(entries []models.EnvelopeEntry) []InvalidEntry {
	var invalid []InvalidEntry
	seen := make(map[int]struct{}, len(entries))
	for i, e := range entries {
		if !models.WholeCents(e.Amount) {
			invalid = append(invalid, InvalidEntry{Index: i, RegisterNumber: e.RegisterNumber, Reason: ReasonSubCentAmount})
			continue
		}
		if !e.Amount.IsPositive() {
			invalid = append(invalid, InvalidEntry{Index: i, RegisterNumber: e.RegisterNumber, Reason: ReasonNonPositiveAmount})
			continue
		}
		if _, dup := seen[e.RegisterNumber]; dup {
			invalid = append(invalid, InvalidEntry{Index: i, RegisterNumber: e.RegisterNumber, Reason: ReasonDuplicateNumber})
			continue
		}
		seen[e.RegisterNumber] = struct{}{}
	}
	return invalid
}

func (p *Processor) logInfo(ctx context.Context, msg string, args ...any) {
	if p.logger != nil {
		p.logger.InfoContext(ctx, msg, args...)
	}
}

func (p *Processor) emit(ctx context.Context, event audit.Event) {
	if p.auditPublisher == nil {
		return
	}
	if err := p.auditPublisher.Emit(ctx, event); err != nil && p.logger != nil {
		p.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(event.Action),
			"error", err,
		)
	}
}
