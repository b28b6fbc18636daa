// Package statement turns uploaded bank statement files into candidate bank
// transactions. Parsing is best-effort: bad rows are reported and skipped.
package statement

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"stewardship/internal/giving/models"
	dErrors "stewardship/pkg/domain-errors"
)

// Format is the detected container of a statement file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	zipMagic = []byte("PK\x03\x04")
	utf8BOM  = []byte("\xef\xbb\xbf")
)

// DetectFormat sniffs data. XLSX workbooks are zip archives; everything else
// is read as delimited text.
func DetectFormat(data []byte) Format {
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// RowError describes one skipped row. Row is 1-based and counts the header.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Result is the outcome of parsing one file.
type Result struct {
	Format           Format                   `json:"format"`
	Transactions     []models.BankTransaction `json:"transactions"`
	TotalRows        int                      `json:"total_rows"`
	IgnoredNoMoneyIn int                      `json:"ignored_no_money_in"`
	Errors           []RowError               `json:"errors,omitempty"`
}

// ErrorMessages flattens row errors for display.
func (r *Result) ErrorMessages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

// PartialError is non-nil when rows were skipped. It is informational;
// the transactions in r remain usable.
func (r *Result) PartialError() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return dErrors.New(dErrors.CodePartialParse,
		fmt.Sprintf("%d of %d rows could not be parsed", len(r.Errors), r.TotalRows))
}

// DateRange returns the earliest and latest transaction dates.
func (r *Result) DateRange() (from, to time.Time, ok bool) {
	for i, tx := range r.Transactions {
		if i == 0 || tx.Date.Before(from) {
			from = tx.Date
		}
		if i == 0 || tx.Date.After(to) {
			to = tx.Date
		}
	}
	return from, to, len(r.Transactions) > 0
}

type Parser struct {
	layout    Layout
	reference *ReferenceExtractor
}

func NewParser(layout Layout) (*Parser, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	ref, err := NewReferenceExtractor(layout.ReferencePattern)
	if err != nil {
		return nil, err
	}
	return &Parser{layout: layout, reference: ref}, nil
}

// Parse reads data as CSV or XLSX. It fails only when the file as a whole is
// unreadable or has no recognisable header; row problems land in Result.Errors.
func (p *Parser) Parse(ctx context.Context, data []byte) (*Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "statement file is empty")
	}

	format := DetectFormat(data)
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(data)
	default:
		rows, err = p.readCSV(data)
	}
	if err != nil {
		return nil, err
	}

	headerAt, cols, err := p.findHeader(rows)
	if err != nil {
		return nil, err
	}

	result := &Result{Format: format}
	for i := headerAt + 1; i < len(rows); i++ {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "statement parsing cancelled")
			}
		}
		row := rows[i]
		if blankRow(row) {
			continue
		}
		result.TotalRows++
		rowNumber := i + 1

		amount, hasMoney, err := parseAmount(cell(row, cols.amount))
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Message: err.Error()})
			continue
		}
		if !hasMoney {
			result.IgnoredNoMoneyIn++
			continue
		}
		date, err := p.parseDate(cell(row, cols.date), format)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Message: err.Error()})
			continue
		}

		description := strings.Join(strings.Fields(cell(row, cols.description)), " ")
		result.Transactions = append(result.Transactions, models.BankTransaction{
			Date:        date,
			Description: description,
			Reference:   p.reference.Extract(description),
			AmountIn:    amount,
			RowNumber:   rowNumber,
		})
	}
	return result, nil
}

func (p *Parser) readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.Comma = p.layout.delimiter()
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read statement csv")
		}
		rows = append(rows, record)
	}
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to open statement workbook")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "statement workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read statement sheet")
	}
	return rows, nil
}

type columns struct {
	date        int
	description int
	amount      int
}

func (p *Parser) findHeader(rows [][]string) (int, columns, error) {
	limit := min(len(rows), p.layout.HeaderSearchRows)
	for i := 0; i < limit; i++ {
		cols := columns{
			date:        columnIndex(rows[i], p.layout.DateColumns),
			description: columnIndex(rows[i], p.layout.DescriptionColumns),
			amount:      columnIndex(rows[i], p.layout.AmountInColumns),
		}
		if cols.date >= 0 && cols.description >= 0 && cols.amount >= 0 {
			return i, cols, nil
		}
	}
	return 0, columns{}, dErrors.New(dErrors.CodeValidation,
		"statement has no header row with date, description and money-in columns")
}

func (p *Parser) parseDate(raw string, format Format) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range p.layout.DateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return models.DateOnly(t), nil
		}
	}
	// Unformatted date cells come back as Excel serial numbers.
	if format == FormatXLSX {
		if serial, err := strconv.ParseFloat(raw, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return models.DateOnly(t), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// parseAmount reads a money-in cell. Blank, zero and negative values report
// hasMoney=false; anything non-numeric is an error.
func parseAmount(raw string) (amount decimal.Decimal, hasMoney bool, err error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\u00a0', '£', '$', '€':
			return -1
		}
		return r
	}, raw)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, false, nil
	}
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + strings.Trim(cleaned, "()")
	}
	amount, err = decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("non-numeric amount %q", strings.TrimSpace(raw))
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, false, nil
	}
	return amount, true, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
