// Package ports declares the persistence and collaborator boundaries of the
// giving core. Services depend on these interfaces; store/memory and
// store/postgres implement them.
package ports

//go:generate mockgen -destination=mocks/mocks.go -package=mocks stewardship/internal/giving/ports MemberDirectory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
)

// MemberDirectory is the member-management collaborator.
type MemberDirectory interface {
	GetActiveMembers(ctx context.Context) ([]models.Member, error)
	FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error)
}

// RegisterNumberStore persists yearly register number assignments.
// CreateMany returns sentinel.ErrAlreadyUsed when (year, number) or
// (member, year) is already taken.
type RegisterNumberStore interface {
	ExistsForYear(ctx context.Context, year int) (bool, error)
	CreateMany(ctx context.Context, assignments []*models.RegisterNumberAssignment) error
	FindByNumber(ctx context.Context, year, number int) (*models.RegisterNumberAssignment, error)
	ListByYear(ctx context.Context, year int) ([]*models.RegisterNumberAssignment, error)
}

// BankTransactionStore persists imported statement lines. Create returns
// sentinel.ErrAlreadyUsed when a non-deleted row with the same key exists.
type BankTransactionStore interface {
	Create(ctx context.Context, tx *models.BankTransaction) error
	ListKeys(ctx context.Context, from, to time.Time) ([]models.TransactionKey, error)
}

// EnvelopeBatchStore persists envelope batches. Create returns
// sentinel.ErrAlreadyUsed when a batch exists for the collection date.
type EnvelopeBatchStore interface {
	Create(ctx context.Context, batch *models.EnvelopeBatch) error
	FindByID(ctx context.Context, batchID id.BatchID) (*models.EnvelopeBatch, error)
	ExistsForDate(ctx context.Context, collectionDate time.Time) (bool, error)
}

// ContributionStore persists ledger rows.
type ContributionStore interface {
	Create(ctx context.Context, c *models.Contribution) error
	FindByID(ctx context.Context, contributionID id.ContributionID) (*models.Contribution, error)
	MarkDeleted(ctx context.Context, contributionID id.ContributionID, by string, at time.Time) error
	ListByBatch(ctx context.Context, batchID id.BatchID) ([]*models.Contribution, error)
	SumByMember(ctx context.Context, memberID id.MemberID, from, to time.Time) (decimal.Decimal, error)
}

// Stores groups the stores bound to one unit of work.
type Stores struct {
	RegisterNumbers RegisterNumberStore
	Transactions    BankTransactionStore
	Batches         EnvelopeBatchStore
	Contributions   ContributionStore
}

// UnitOfWork is the explicit transaction boundary for every write path.
// fn runs against stores scoped to one transaction; a non-nil return rolls
// the whole unit back.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(stores Stores) error) error
}
