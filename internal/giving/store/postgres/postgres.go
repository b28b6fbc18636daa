// Package postgres implements the giving stores on PostgreSQL via lib/pq.
// Uniqueness invariants live in the schema so that concurrent writers are
// serialised by the database and surface as sentinel.ErrAlreadyUsed.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"stewardship/internal/giving/ports"
	"stewardship/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// NewStores binds every store to q, normally a *sql.Tx.
func NewStores(q queryer) ports.Stores {
	return ports.Stores{
		RegisterNumbers: &RegisterNumberStore{q: q},
		Transactions:    &BankTransactionStore{q: q},
		Batches:         &EnvelopeBatchStore{q: q},
		Contributions:   &ContributionStore{q: q},
	}
}

// translate maps driver errors onto sentinel facts.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%s: %w", op, sentinel.ErrAlreadyUsed)
	}
	return fmt.Errorf("%s: %w", op, err)
}
