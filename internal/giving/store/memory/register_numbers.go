package memory

import (
	"context"
	"sort"

	"stewardship/internal/giving/models"
	"stewardship/pkg/platform/sentinel"
)

type RegisterNumberStore struct {
	s *state
}

func (r *RegisterNumberStore) ExistsForYear(_ context.Context, year int) (bool, error) {
	for k := range r.s.assignments {
		if k.year == year {
			return true, nil
		}
	}
	return false, nil
}

func (r *RegisterNumberStore) CreateMany(_ context.Context, assignments []*models.RegisterNumberAssignment) error {
	for _, a := range assignments {
		numKey := yearNumber{year: a.Year, number: a.Number}
		memberKey := memberYear{member: a.MemberID, year: a.Year}
		if _, taken := r.s.assignments[numKey]; taken {
			return sentinel.ErrAlreadyUsed
		}
		if _, taken := r.s.memberYears[memberKey]; taken {
			return sentinel.ErrAlreadyUsed
		}
		r.s.assignments[numKey] = *a
		r.s.memberYears[memberKey] = a.Number
	}
	return nil
}

func (r *RegisterNumberStore) FindByNumber(_ context.Context, year, number int) (*models.RegisterNumberAssignment, error) {
	a, ok := r.s.assignments[yearNumber{year: year, number: number}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (r *RegisterNumberStore) ListByYear(_ context.Context, year int) ([]*models.RegisterNumberAssignment, error) {
	var out []*models.RegisterNumberAssignment
	for k, v := range r.s.assignments {
		if k.year != year {
			continue
		}
		a := v
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
