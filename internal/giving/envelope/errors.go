package envelope

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry-level rejection reasons beyond those the register validator returns.
const (
	ReasonSubCentAmount     = "sub_cent_amount"
	ReasonNonPositiveAmount = "non_positive_amount"
	ReasonDuplicateNumber   = "duplicate_number"
)

// InvalidEntry names one envelope that blocked a batch.
type InvalidEntry struct {
	Index          int    `json:"index"`
	RegisterNumber int    `json:"register_number"`
	Reason         string `json:"reason"`
}

// InvalidEntriesError lists every envelope that failed validation so the
// operator can correct all of them before resubmitting.
type InvalidEntriesError struct {
	Entries []InvalidEntry
}

func (e *InvalidEntriesError) Error() string {
	parts := make([]string, len(e.Entries))
	for i, entry := range e.Entries {
		parts[i] = strconv.Itoa(entry.RegisterNumber) + " (" + entry.Reason + ")"
	}
	return fmt.Sprintf("%d invalid envelope(s): %s", len(e.Entries), strings.Join(parts, ", "))
}

// RegisterNumbers returns the rejected numbers in entry order.
func (e *InvalidEntriesError) RegisterNumbers() []int {
	out := make([]int, len(e.Entries))
	for i, entry := range e.Entries {
		out[i] = entry.RegisterNumber
	}
	return out
}

// Details exposes the rejected entries to transports.
func (e *InvalidEntriesError) Details() any {
	return e.Entries
}
