package models

import (
	"time"

	id "stewardship/pkg/domain"
)

// MemberStatus is the lifecycle state of a congregation member.
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

func (s MemberStatus) IsValid() bool {
	return s == MemberStatusActive || s == MemberStatusInactive
}

// Member is the slice of member identity the ledger core needs. The full
// record is owned by the member-management collaborator.
type Member struct {
	ID          id.MemberID  `json:"id"`
	MemberSince time.Time    `json:"member_since"`
	Status      MemberStatus `json:"status"`
}

func (m Member) IsActive() bool {
	return m.Status == MemberStatusActive
}
