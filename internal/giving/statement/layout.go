package statement

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	dErrors "stewardship/pkg/domain-errors"
	platformstrings "stewardship/pkg/platform/strings"
)

// DefaultReferencePattern matches "REG 12", "reg-0012", "REG#12" and similar
// tokens. The single capture group is the register number.
const DefaultReferencePattern = `(?i)\bREG[\s\-#]*0*(\d{1,6})\b`

// Layout describes how a bank's statement export is laid out. Column names
// are matched case-insensitively against the header row.
type Layout struct {
	DateColumns        []string `yaml:"date_columns"`
	DescriptionColumns []string `yaml:"description_columns"`
	AmountInColumns    []string `yaml:"amount_in_columns"`
	DateLayouts        []string `yaml:"date_layouts"`
	ReferencePattern   string   `yaml:"reference_pattern"`
	Delimiter          string   `yaml:"delimiter"`
	// HeaderSearchRows bounds how far into the file the header row may sit;
	// some banks prepend account details.
	HeaderSearchRows int `yaml:"header_search_rows"`
}

func DefaultLayout() Layout {
	return Layout{
		DateColumns:        []string{"Date", "Transaction Date", "Posting Date"},
		DescriptionColumns: []string{"Description", "Details", "Narrative", "Transaction Description"},
		AmountInColumns:    []string{"Money In", "Credit", "Paid In", "Credit Amount"},
		DateLayouts:        []string{"02/01/2006", "2006-01-02", "02 Jan 2006", "2-Jan-06", "02-Jan-2006"},
		ReferencePattern:   DefaultReferencePattern,
		Delimiter:          ",",
		HeaderSearchRows:   10,
	}
}

// LoadLayout reads a YAML layout file. Fields left out of the file keep
// their defaults.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to read statement layout: %w", err)
	}
	return ParseLayout(data)
}

func ParseLayout(data []byte) (Layout, error) {
	layout := DefaultLayout()
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return Layout{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to parse statement layout")
	}
	layout.DateColumns = platformstrings.DedupeAndTrim(layout.DateColumns, true)
	layout.DescriptionColumns = platformstrings.DedupeAndTrim(layout.DescriptionColumns, true)
	layout.AmountInColumns = platformstrings.DedupeAndTrim(layout.AmountInColumns, true)
	layout.DateLayouts = platformstrings.DedupeAndTrim(layout.DateLayouts, false)
	if err := layout.Validate(); err != nil {
		return Layout{}, err
	}
	return layout, nil
}

func (l Layout) Validate() error {
	switch {
	case len(l.DateColumns) == 0:
		return dErrors.New(dErrors.CodeValidation, "statement layout needs at least one date column")
	case len(l.DescriptionColumns) == 0:
		return dErrors.New(dErrors.CodeValidation, "statement layout needs at least one description column")
	case len(l.AmountInColumns) == 0:
		return dErrors.New(dErrors.CodeValidation, "statement layout needs at least one money-in column")
	case len(l.DateLayouts) == 0:
		return dErrors.New(dErrors.CodeValidation, "statement layout needs at least one date layout")
	case utf8.RuneCountInString(l.Delimiter) != 1:
		return dErrors.New(dErrors.CodeValidation, "statement delimiter must be a single character")
	case l.HeaderSearchRows < 1:
		return dErrors.New(dErrors.CodeValidation, "header search rows must be positive")
	}
	if _, err := compileReference(l.ReferencePattern); err != nil {
		return err
	}
	return nil
}

func compileReference(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid reference pattern")
	}
	if re.NumSubexp() != 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "reference pattern must have exactly one capture group")
	}
	return re, nil
}

func (l Layout) delimiter() rune {
	r, _ := utf8.DecodeRuneInString(l.Delimiter)
	return r
}

// columnIndex finds the first header cell matching one of aliases.
func columnIndex(header []string, aliases []string) int {
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		for _, alias := range aliases {
			if strings.EqualFold(name, alias) {
				return i
			}
		}
	}
	return -1
}
