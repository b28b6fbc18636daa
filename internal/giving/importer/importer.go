// Package importer runs the bank channel: parse a statement, drop lines that
// were already imported, persist the rest and credit the ones whose
// reference resolves to an active member.
package importer

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
	"golang.org/x/sync/errgroup"

	"stewardship/internal/audit"
	"stewardship/internal/giving/dedup"
	"stewardship/internal/giving/ledger"
	"stewardship/internal/giving/metrics"
	"stewardship/internal/giving/models"
	"stewardship/internal/giving/ports"
	"stewardship/internal/giving/registernumber"
	"stewardship/internal/giving/statement"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
	"stewardship/pkg/platform/sentinel"
	"stewardship/pkg/platform/tracing"
)

var tracer = otel.Tracer("stewardship/giving/importer")

type RegisterValidator interface {
	ValidateIn(ctx context.Context, stores ports.Stores, number, year int) (*registernumber.Validation, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// ResultSink receives every committed import, e.g. to keep a reviewable summary.
type ResultSink interface {
	Record(ctx context.Context, result *Result) error
}

type Importer struct {
	uow            ports.UnitOfWork
	parser         *statement.Parser
	validator      RegisterValidator
	writer         *ledger.Writer
	sink           ResultSink
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

type Option func(*Importer)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		i.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(i *Importer) {
		i.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Importer) {
		i.metrics = m
	}
}

func WithResultSink(sink ResultSink) Option {
	return func(i *Importer) {
		i.sink = sink
	}
}

func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		i.now = now
	}
}

func New(uow ports.UnitOfWork, parser *statement.Parser, validator RegisterValidator, writer *ledger.Writer, opts ...Option) *Importer {
	i := &Importer{uow: uow, parser: parser, validator: validator, writer: writer, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Upload is one statement file submitted by an operator.
type Upload struct {
	FileName   string
	Data       []byte
	ImportedBy string
}

// Line is a newly persisted bank transaction and, when matched, the
// contribution it produced.
type Line struct {
	Transaction    models.BankTransaction `json:"transaction"`
	MemberID       *id.MemberID           `json:"member_id,omitempty"`
	ContributionID *id.ContributionID     `json:"contribution_id,omitempty"`
	Reason         registernumber.Reason  `json:"reason,omitempty"`
}

func (l Line) Matched() bool {
	return l.ContributionID != nil
}

// Result describes one committed import run.
type Result struct {
	RunID             id.ImportRunID       `json:"run_id"`
	FileName          string               `json:"file_name,omitempty"`
	Fingerprint       string               `json:"fingerprint"`
	Format            statement.Format     `json:"format"`
	TotalRows         int                  `json:"total_rows"`
	IgnoredNoMoneyIn  int                  `json:"ignored_no_money_in"`
	Candidates        int                  `json:"candidates"`
	NewTransactions   int                  `json:"new_transactions"`
	DuplicatesSkipped int                  `json:"duplicates_skipped"`
	RowErrors         []statement.RowError `json:"row_errors,omitempty"`
	Lines             []Line               `json:"lines"`
	ImportedAt        time.Time            `json:"imported_at"`
}

// PartialError reports skipped rows; the import itself succeeded.
func (r *Result) PartialError() error {
	if len(r.RowErrors) == 0 {
		return nil
	}
	return dErrors.New(dErrors.CodePartialParse, fmt.Sprintf("%d rows could not be parsed", len(r.RowErrors)))
}

// Import parses upload and commits the new lines in one unit of work.
// Nothing is persisted until parsing and duplicate filtering have finished;
// cancelling before that point discards the work.
func (i *Importer) Import(ctx context.Context, upload Upload) (*Result, error) {
	ctx, span := tracer.Start(ctx, "importer.Import")
	defer span.End()
	start := time.Now()

	if len(upload.Data) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "statement file is empty")
	}

	var (
		parsed      *statement.Result
		fingerprint string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		parsed, err = i.parser.Parse(gctx, upload.Data)
		return err
	})
	g.Go(func() error {
		fingerprint = statement.Fingerprint(upload.Data)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, tracing.Fail(span, err)
	}

	result := &Result{
		RunID:            id.ImportRunID(uuid.New()),
		FileName:         upload.FileName,
		Fingerprint:      fingerprint,
		Format:           parsed.Format,
		TotalRows:        parsed.TotalRows,
		IgnoredNoMoneyIn: parsed.IgnoredNoMoneyIn,
		Candidates:       len(parsed.Transactions),
		RowErrors:        parsed.Errors,
		ImportedAt:       i.now(),
	}
	span.SetAttributes(
		attribute.String("run_id", result.RunID.String()),
		attribute.Int("candidates", result.Candidates),
	)

	candidates := make([]models.BankTransaction, len(parsed.Transactions))
	for n, tx := range parsed.Transactions {
		tx.ID = id.TransactionID(uuid.New())
		tx.ImportRunID = result.RunID
		tx.SourceFileFingerprint = fingerprint
		tx.CreatedAt = result.ImportedAt
		candidates[n] = tx
	}

	err := i.uow.RunInTx(ctx, func(stores ports.Stores) error {
		var imported []models.TransactionKey
		if from, to, ok := parsed.DateRange(); ok {
			var err error
			imported, err = stores.Transactions.ListKeys(ctx, from, to)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load imported transactions")
			}
		}
		filtered := dedup.Filter(candidates, imported)

		lines := make([]Line, 0, len(filtered.New))
		for _, tx := range filtered.New {
			if err := stores.Transactions.Create(ctx, &tx); err != nil {
				if errors.Is(err, sentinel.ErrAlreadyUsed) {
					return dErrors.Wrap(err, dErrors.CodeConflict, "statement lines were imported concurrently")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store bank transaction")
			}
			line, err := i.match(ctx, stores, tx)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}

		result.NewTransactions = len(filtered.New)
		result.DuplicatesSkipped = len(filtered.Duplicates)
		result.Lines = lines
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			i.metrics.IncrementConflict("statement_import")
		}
		return nil, tracing.Fail(span, err)
	}

	matched := result.MatchedCount()
	i.metrics.AddStatementRows("new", result.NewTransactions)
	i.metrics.AddStatementRows("duplicate", result.DuplicatesSkipped)
	i.metrics.AddStatementRows("ignored", result.IgnoredNoMoneyIn)
	i.metrics.AddStatementRows("row_error", len(result.RowErrors))
	i.metrics.AddBankMatches(matched, result.NewTransactions-matched)
	i.metrics.ObserveImportDuration(time.Since(start))

	i.logInfo(ctx, "statement imported",
		"run_id", result.RunID.String(),
		"file_name", upload.FileName,
		"fingerprint", fingerprint,
		"candidates", result.Candidates,
		"new_transactions", result.NewTransactions,
		"duplicates_skipped", result.DuplicatesSkipped,
		"matched", matched,
		"row_errors", len(result.RowErrors),
	)

	if i.sink != nil {
		if err := i.sink.Record(ctx, result); err != nil && i.logger != nil {
			i.logger.WarnContext(ctx, "failed to record import summary",
				"run_id", result.RunID.String(),
				"error", err,
			)
		}
	}
	i.emit(ctx, audit.Event{
		Action:  audit.ActionStatementImported,
		Subject: result.RunID.String(),
		ActorID: upload.ImportedBy,
		Attributes: map[string]string{
			"fingerprint":        fingerprint,
			"new_transactions":   strconv.Itoa(result.NewTransactions),
			"duplicates_skipped": strconv.Itoa(result.DuplicatesSkipped),
			"matched":            strconv.Itoa(matched),
		},
	})
	return result, nil
}

// match credits tx to a member when its reference is a register number held
// by an active member in the transaction's year. Anything else stays
// unmatched for an operator to review.
func (i *Importer) match(ctx context.Context, stores ports.Stores, tx models.BankTransaction) (Line, error) {
	line := Line{Transaction: tx}
	if tx.Reference == "" {
		return line, nil
	}
	number, err := strconv.Atoi(tx.Reference)
	if err != nil {
		line.Reason = registernumber.ReasonInvalidNumber
		return line, nil
	}

	v, err := i.validator.ValidateIn(ctx, stores, number, tx.Date.Year())
	if err != nil {
		return Line{}, err
	}
	if !v.Resolvable() {
		line.Reason = v.Reason
		return line, nil
	}

	contributionID, err := i.writer.Write(ctx, stores, &models.Contribution{
		MemberID:       v.MemberID,
		Amount:         tx.AmountIn,
		Date:           tx.Date,
		TransactionRef: BankTransactionRef(tx),
		Source:         models.BankSource(tx.ID),
		Note:           tx.Description,
		CreatedAt:      tx.CreatedAt,
	})
	if err != nil {
		return Line{}, err
	}
	memberID := v.MemberID
	line.MemberID = &memberID
	line.ContributionID = &contributionID
	return line, nil
}

// BankTransactionRef labels a bank-channel contribution, e.g. BANK-20260308-REG12.
func BankTransactionRef(tx models.BankTransaction) string {
	return "BANK-" + tx.Date.Format("20060102") + "-REG" + strings.TrimSpace(tx.Reference)
}

func (r *Result) MatchedCount() int {
	n := 0
	for _, l := range r.Lines {
		if l.Matched() {
			n++
		}
	}
	return n
}

// NewAmount totals the money in newly persisted lines.
func (r *Result) NewAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(l.Transaction.AmountIn)
	}
	return total
}

func (i *Importer) logInfo(ctx context.Context, msg string, args ...any) {
	if i.logger != nil {
		i.logger.InfoContext(ctx, msg, args...)
	}
}

func (i *Importer) emit(ctx context.Context, event audit.Event) {
	if i.auditPublisher == nil {
		return
	}
	if err := i.auditPublisher.Emit(ctx, event); err != nil && i.logger != nil {
		i.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(event.Action),
			"error", err,
		)
	}
}
