package postgres

import (
	"context"
	"database/sql"
	"time"

	"stewardship/internal/giving/ports"
	dErrors "stewardship/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// UnitOfWork runs each callback inside one database transaction.
type UnitOfWork struct {
	db      *sql.DB
	timeout time.Duration
}

func NewUnitOfWork(db *sql.DB, timeout time.Duration) *UnitOfWork {
	return &UnitOfWork{db: db, timeout: timeout}
}

func (u *UnitOfWork) RunInTx(ctx context.Context, fn func(stores ports.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := u.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(NewStores(tx)); err != nil {
		return err
	}

	return tx.Commit()
}
