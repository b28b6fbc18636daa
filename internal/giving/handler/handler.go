// Package handler exposes the giving operations over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"stewardship/internal/giving/envelope"
	"stewardship/internal/giving/importer"
	"stewardship/internal/giving/ledger"
	"stewardship/internal/giving/models"
	"stewardship/internal/giving/reconcile"
	"stewardship/internal/giving/registernumber"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
	"stewardship/pkg/platform/httputil"
	"stewardship/pkg/requestcontext"
)

// MaxStatementBytes caps statement uploads.
const MaxStatementBytes = 10 << 20

type Allocator interface {
	GeneratePreview(ctx context.Context, year, currentYear int, regenerate bool) (*registernumber.Preview, error)
	Commit(ctx context.Context, year, currentYear int, confirmedBy string) (*registernumber.CommitResult, error)
	Validate(ctx context.Context, number, year int) (*registernumber.Validation, error)
	List(ctx context.Context, year int) ([]*models.RegisterNumberAssignment, error)
	State(ctx context.Context, year int) (models.YearState, error)
}

type Importer interface {
	Import(ctx context.Context, upload importer.Upload) (*importer.Result, error)
}

type Reporter interface {
	GetSummary(ctx context.Context, runID id.ImportRunID) (*reconcile.Summary, error)
}

type BatchProcessor interface {
	SubmitBatch(ctx context.Context, sub envelope.Submission) (*envelope.BatchResult, error)
	GetBatch(ctx context.Context, batchID id.BatchID) (*models.EnvelopeBatch, error)
	ListContributions(ctx context.Context, batchID id.BatchID) ([]*models.Contribution, error)
}

type Ledger interface {
	RecordManual(ctx context.Context, entry ledger.ManualEntry) (*models.Contribution, error)
	Get(ctx context.Context, contributionID id.ContributionID) (*models.Contribution, error)
	Delete(ctx context.Context, contributionID id.ContributionID, deletedBy string) error
	MemberTotal(ctx context.Context, memberID id.MemberID, year int) (decimal.Decimal, error)
}

type Handler struct {
	allocator Allocator
	importer  Importer
	reporter  Reporter
	batches   BatchProcessor
	ledger    Ledger
	logger    *slog.Logger
}

func New(allocator Allocator, imp Importer, reporter Reporter, batches BatchProcessor, l Ledger, logger *slog.Logger) *Handler {
	return &Handler{
		allocator: allocator,
		importer:  imp,
		reporter:  reporter,
		batches:   batches,
		ledger:    l,
		logger:    logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/register-numbers/{year}", func(r chi.Router) {
		r.Get("/", h.handleListRegisterNumbers)
		r.Get("/preview", h.handlePreview)
		r.Post("/commit", h.handleCommit)
		r.Get("/{number}", h.handleValidate)
	})
	r.Post("/statements", h.handleImportStatement)
	r.Get("/imports/{runID}/summary", h.handleGetSummary)
	r.Post("/envelope-batches", h.handleSubmitBatch)
	r.Get("/envelope-batches/{batchID}", h.handleGetBatch)
	r.Post("/contributions/manual", h.handleRecordManual)
	r.Get("/contributions/{contributionID}", h.handleGetContribution)
	r.Delete("/contributions/{contributionID}", h.handleDeleteContribution)
	r.Get("/members/{memberID}/totals/{year}", h.handleMemberTotal)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	year, err := parseInt(chi.URLParam(r, "year"), "year")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	regenerate, _ := strconv.ParseBool(r.URL.Query().Get("regenerate"))

	preview, err := h.allocator.GeneratePreview(r.Context(), year, currentYear(r), regenerate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, preview)
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	year, err := parseInt(chi.URLParam(r, "year"), "year")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.allocator.Commit(r.Context(), year, currentYear(r), requestcontext.Operator(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListRegisterNumbers(w http.ResponseWriter, r *http.Request) {
	year, err := parseInt(chi.URLParam(r, "year"), "year")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	state, err := h.allocator.State(r.Context(), year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	assignments, err := h.allocator.List(r.Context(), year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if assignments == nil {
		assignments = []*models.RegisterNumberAssignment{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"year":        year,
		"state":       state,
		"assignments": assignments,
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	year, err := parseInt(chi.URLParam(r, "year"), "year")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	number, err := parseInt(chi.URLParam(r, "number"), "register number")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.allocator.Validate(r.Context(), number, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// handleImportStatement accepts either a multipart "file" field or the raw
// file as the request body.
func (h *Handler) handleImportStatement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxStatementBytes)

	upload := importer.Upload{ImportedBy: requestcontext.Operator(r.Context())}
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		upload.FileName = header.Filename
		if upload.Data, err = io.ReadAll(file); err != nil {
			h.writeError(w, r, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read upload"))
			return
		}
	} else {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			h.writeError(w, r, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read upload"))
			return
		}
		upload.FileName = r.URL.Query().Get("filename")
		upload.Data = data
	}

	result, err := h.importer.Import(r.Context(), upload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := map[string]any{
		"run_id":              result.RunID,
		"fingerprint":         result.Fingerprint,
		"format":              result.Format,
		"total_rows":          result.TotalRows,
		"ignored_no_money_in": result.IgnoredNoMoneyIn,
		"candidates":          result.Candidates,
		"new_transactions":    result.NewTransactions,
		"duplicates_skipped":  result.DuplicatesSkipped,
		"summary":             reconcile.Summarize(result),
	}
	if perr := result.PartialError(); perr != nil {
		resp["warning"] = perr.Error()
		resp["row_errors"] = result.RowErrors
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	runID, err := id.ParseImportRunID(chi.URLParam(r, "runID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.reporter.GetSummary(r.Context(), runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req SubmitBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := req.ToSubmission(requestcontext.Operator(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.batches.SubmitBatch(r.Context(), sub)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := id.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	batch, err := h.batches.GetBatch(r.Context(), batchID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lines, err := h.batches.ListContributions(r.Context(), batchID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"batch":         batch,
		"contributions": lines,
	})
}

func (h *Handler) handleRecordManual(w http.ResponseWriter, r *http.Request) {
	var req ManualContributionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	entry, err := req.ToEntry(requestcontext.Operator(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.ledger.RecordManual(r.Context(), entry)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGetContribution(w http.ResponseWriter, r *http.Request) {
	contributionID, err := id.ParseContributionID(chi.URLParam(r, "contributionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.ledger.Get(r.Context(), contributionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteContribution(w http.ResponseWriter, r *http.Request) {
	contributionID, err := id.ParseContributionID(chi.URLParam(r, "contributionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.ledger.Delete(r.Context(), contributionID, requestcontext.Operator(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMemberTotal(w http.ResponseWriter, r *http.Request) {
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := parseInt(chi.URLParam(r, "year"), "year")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	total, err := h.ledger.MemberTotal(r.Context(), memberID, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"member_id": memberID,
		"year":      year,
		"total":     total.StringFixed(2),
	})
}

// currentYear is taken from the request clock so that services never read
// the wall clock themselves.
func currentYear(r *http.Request) int {
	return requestcontext.Now(r.Context()).Year()
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal && h.logger != nil {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
