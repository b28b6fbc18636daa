package models

import "github.com/shopspring/decimal"

// WholeCents reports whether amount carries no digits below the cent.
// Ledger amounts are stored as NUMERIC(12,2), so anything finer would be
// rounded on write and drift from the totals derived from it.
func WholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(2))
}
