package memory

import (
	"context"
	"sync"
	"time"

	"stewardship/internal/giving/ports"
	dErrors "stewardship/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// UnitOfWork serialises units of work behind a single lock and commits by
// swapping in the working copy.
type UnitOfWork struct {
	mu      sync.Mutex
	current *state
	timeout time.Duration
}

// NewUnitOfWork returns an empty in-memory backend.
func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{current: newState()}
}

// NewUnitOfWorkWithTimeout bounds each unit of work that arrives without a deadline.
func NewUnitOfWorkWithTimeout(timeout time.Duration) *UnitOfWork {
	return &UnitOfWork{current: newState(), timeout: timeout}
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

	u.mu.Lock()
	defer u.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	work := u.current.clone()
	if err := fn(storesFor(work)); err != nil {
		return err
	}
	u.current = work
	return nil
}

func storesFor(s *state) ports.Stores {
	return ports.Stores{
		RegisterNumbers: &RegisterNumberStore{s: s},
		Transactions:    &BankTransactionStore{s: s},
		Batches:         &EnvelopeBatchStore{s: s},
		Contributions:   &ContributionStore{s: s},
	}
}
