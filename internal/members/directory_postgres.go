package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
	"stewardship/pkg/platform/sentinel"
)

// Postgres reads members from the shared members table owned by the
// member-management module.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (d *Postgres) GetActiveMembers(ctx context.Context) ([]models.Member, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, member_since, status FROM members WHERE status = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	defer rows.Close()

	var out []models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (d *Postgres) FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, member_since, status FROM members WHERE id = $1`, uuid.UUID(memberID))
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

// Upsert writes a member row. The member-management module owns this table;
// the giving core only uses it for seeding and tests.
func (d *Postgres) Upsert(ctx context.Context, m models.Member) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO members (id, member_since, status) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET member_since = EXCLUDED.member_since, status = EXCLUDED.status
	`, uuid.UUID(m.ID), models.DateOnly(m.MemberSince), string(m.Status))
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*models.Member, error) {
	var (
		m      models.Member
		rawID  uuid.UUID
		status string
	)
	if err := row.Scan(&rawID, &m.MemberSince, &status); err != nil {
		return nil, err
	}
	m.ID = id.MemberID(rawID)
	m.MemberSince = models.DateOnly(m.MemberSince)
	m.Status = models.MemberStatus(status)
	return &m, nil
}
