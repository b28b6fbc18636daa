// Package members adapts the member-management collaborator to the
// ports.MemberDirectory boundary used by the giving core.
package members

import (
	"context"
	"sort"
	"sync"

	"stewardship/internal/giving/models"
	id "stewardship/pkg/domain"
	"stewardship/pkg/platform/sentinel"
)

// InMemory is a member directory held in process.
type InMemory struct {
	mu      sync.RWMutex
	members map[id.MemberID]models.Member
}

func NewInMemory(seed ...models.Member) *InMemory {
	d := &InMemory{members: make(map[id.MemberID]models.Member)}
	for _, m := range seed {
		d.members[m.ID] = m
	}
	return d
}

// Put inserts or replaces a member.
func (d *InMemory) Put(m models.Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[m.ID] = m
}

func (d *InMemory) GetActiveMembers(_ context.Context) ([]models.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Member, 0, len(d.members))
	for _, m := range d.members {
		if m.IsActive() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (d *InMemory) FindByID(_ context.Context, memberID id.MemberID) (*models.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.members[memberID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}
