// Package memory provides in-process implementations of the giving stores.
// A unit of work runs against a private copy of the state and swaps it in
// only when the callback succeeds, which gives the same all-or-nothing
// behaviour as the Postgres transaction.
package memory

import (
	"time"

	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
)

type yearNumber struct {
	year   int
	number int
}

type memberYear struct {
	member id.MemberID
	year   int
}

type state struct {
	assignments   map[yearNumber]models.RegisterNumberAssignment
	memberYears   map[memberYear]int
	transactions  map[id.TransactionID]models.BankTransaction
	txKeys        map[models.TransactionKey]id.TransactionID
	batches       map[id.BatchID]models.EnvelopeBatch
	batchDates    map[time.Time]id.BatchID
	contributions map[id.ContributionID]models.Contribution
}

func newState() *state {
	return &state{
		assignments:   make(map[yearNumber]models.RegisterNumberAssignment),
		memberYears:   make(map[memberYear]int),
		transactions:  make(map[id.TransactionID]models.BankTransaction),
		txKeys:        make(map[models.TransactionKey]id.TransactionID),
		batches:       make(map[id.BatchID]models.EnvelopeBatch),
		batchDates:    make(map[time.Time]id.BatchID),
		contributions: make(map[id.ContributionID]models.Contribution),
	}
}

// clone copies every map. Values are stored by value so a shallow map copy is
// enough to isolate the working copy from the committed state.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.memberYears {
		c.memberYears[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.txKeys {
		c.txKeys[k] = v
	}
	for k, v := range s.batches {
		c.batches[k] = v
	}
	for k, v := range s.batchDates {
		c.batchDates[k] = v
	}
	for k, v := range s.contributions {
		c.contributions[k] = v
	}
	return c
}
