package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics provides observability for the giving core. All methods are
// nil-safe so services can run without a registry.
type Metrics struct {
	// Statement import outcomes per transaction: "new", "duplicate", "ignored", "row_error"
	StatementRows *prometheus.CounterVec

	// Matching outcome of newly imported transactions: "matched", "unmatched"
	BankMatches *prometheus.CounterVec

	ImportDuration prometheus.Histogram

	BatchesSubmitted prometheus.Counter
	BatchTotal       prometheus.Histogram

	RegisterNumbersAssigned prometheus.Counter

	// Commit conflicts by operation: "register_numbers", "envelope_batch", "statement_import"
	Conflicts *prometheus.CounterVec
}

// New registers all giving metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StatementRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stewardship_statement_rows_total",
			Help: "Statement rows processed by outcome",
		}, []string{"outcome"}),

		BankMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stewardship_bank_transactions_matched_total",
			Help: "Newly imported bank transactions by match outcome",
		}, []string{"outcome"}),

		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stewardship_statement_import_duration_seconds",
			Help:    "Duration of a full statement import including persistence",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		BatchesSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stewardship_envelope_batches_submitted_total",
			Help: "Envelope batches committed",
		}),

		BatchTotal: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stewardship_envelope_batch_amount",
			Help:    "Total amount of committed envelope batches",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),

		RegisterNumbersAssigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "stewardship_register_numbers_assigned_total",
			Help: "Register numbers persisted by commit",
		}),

		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stewardship_commit_conflicts_total",
			Help: "Commits rejected by a uniqueness constraint",
		}, []string{"operation"}),
	}
}

func (m *Metrics) AddStatementRows(outcome string, n int) {
	if m != nil && n > 0 {
		m.StatementRows.WithLabelValues(outcome).Add(float64(n))
	}
}

func (m *Metrics) AddBankMatches(matched, unmatched int) {
	if m == nil {
		return
	}
	m.BankMatches.WithLabelValues("matched").Add(float64(matched))
	m.BankMatches.WithLabelValues("unmatched").Add(float64(unmatched))
}

func (m *Metrics) ObserveImportDuration(d time.Duration) {
	if m != nil {
		m.ImportDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) RecordBatch(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.BatchesSubmitted.Inc()
	m.BatchTotal.Observe(total.InexactFloat64())
}

func (m *Metrics) AddRegisterNumbers(n int) {
	if m != nil {
		m.RegisterNumbersAssigned.Add(float64(n))
	}
}

func (m *Metrics) IncrementConflict(operation string) {
	if m != nil {
		m.Conflicts.WithLabelValues(operation).Inc()
	}
}
