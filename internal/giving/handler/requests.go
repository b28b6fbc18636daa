package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stewardship/internal/giving/envelope"
	"stewardship/internal/giving/ledger"
	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
)

// MaxEnvelopesPerBatch bounds a single submission.
const MaxEnvelopesPerBatch = 1000

type EnvelopeEntryRequest struct {
	RegisterNumber int             `json:"register_number"`
	Amount         decimal.Decimal `json:"amount"`
}

type SubmitBatchRequest struct {
	CollectionDate string                 `json:"collection_date"`
	Entries        []EnvelopeEntryRequest `json:"entries"`
}

func (r *SubmitBatchRequest) ToSubmission(operator string) (envelope.Submission, error) {
	date, err := parseDate(r.CollectionDate)
	if err != nil {
		return envelope.Submission{}, err
	}
	if len(r.Entries) > MaxEnvelopesPerBatch {
		return envelope.Submission{}, dErrors.New(dErrors.CodeValidation,
			"too many envelopes in one batch (max "+strconv.Itoa(MaxEnvelopesPerBatch)+")")
	}
	entries := make([]models.EnvelopeEntry, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = models.EnvelopeEntry{RegisterNumber: e.RegisterNumber, Amount: e.Amount}
	}
	return envelope.Submission{CollectionDate: date, Entries: entries, SubmittedBy: operator}, nil
}

type ManualContributionRequest struct {
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
	Date     string          `json:"date"`
	Note     string          `json:"note"`
}

func (r *ManualContributionRequest) ToEntry(operator string) (ledger.ManualEntry, error) {
	memberID, err := id.ParseMemberID(r.MemberID)
	if err != nil {
		return ledger.ManualEntry{}, err
	}
	date, err := parseDate(r.Date)
	if err != nil {
		return ledger.ManualEntry{}, err
	}
	return ledger.ManualEntry{
		MemberID:   memberID,
		Amount:     r.Amount,
		Date:       date,
		Note:       r.Note,
		RecordedBy: operator,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "date is required")
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "date must be YYYY-MM-DD")
	}
	return t, nil
}

func parseInt(raw, name string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, name+" must be an integer")
	}
	return n, nil
}
