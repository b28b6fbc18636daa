package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
)

type RegisterNumberStore struct {
	q queryer
}

func (s *RegisterNumberStore) ExistsForYear(ctx context.Context, year int) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM register_number_assignments WHERE year = $1)`, year,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check register numbers for year: %w", err)
	}
	return exists, nil
}

func (s *RegisterNumberStore) CreateMany(ctx context.Context, assignments []*models.RegisterNumberAssignment) error {
	query := `
		INSERT INTO register_number_assignments (member_id, year, number, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, a := range assignments {
		_, err := s.q.ExecContext(ctx, query,
			uuid.UUID(a.MemberID), a.Year, a.Number, a.CreatedBy, a.CreatedAt)
		if err != nil {
			return translate(err, "insert register number")
		}
	}
	return nil
}

func (s *RegisterNumberStore) FindByNumber(ctx context.Context, year, number int) (*models.RegisterNumberAssignment, error) {
	var (
		a        models.RegisterNumberAssignment
		memberID uuid.UUID
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT member_id, year, number, created_by, created_at
		FROM register_number_assignments
		WHERE year = $1 AND number = $2
	`, year, number).Scan(&memberID, &a.Year, &a.Number, &a.CreatedBy, &a.CreatedAt)
	if err != nil {
		return nil, translate(err, "find register number")
	}
	a.MemberID = id.MemberID(memberID)
	return &a, nil
}

func (s *RegisterNumberStore) ListByYear(ctx context.Context, year int) ([]*models.RegisterNumberAssignment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT member_id, year, number, created_by, created_at
		FROM register_number_assignments
		WHERE year = $1
		ORDER BY number
	`, year)
	if err != nil {
		return nil, fmt.Errorf("list register numbers: %w", err)
	}
	defer rows.Close()

	var out []*models.RegisterNumberAssignment
	for rows.Next() {
		var (
			a        models.RegisterNumberAssignment
			memberID uuid.UUID
		)
		if err := rows.Scan(&memberID, &a.Year, &a.Number, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan register number: %w", err)
		}
		a.MemberID = id.MemberID(memberID)
		out = append(out, &a)
	}
	return out, rows.Err()
}
