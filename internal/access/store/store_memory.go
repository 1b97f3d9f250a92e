package store

import (
	"context"
	"sync"

	"regportal/internal/access"
	"regportal/pkg/domain"
)

type grantKey struct {
	user    domain.UserID
	subject domain.SubjectID
}

// InMemory holds grants in a map. Used by unit tests and local development.
type InMemory struct {
	mu     sync.RWMutex
	grants map[grantKey]access.GrantStatus
}

func NewInMemory() *InMemory {
	return &InMemory{grants: make(map[grantKey]access.GrantStatus)}
}

// Put records or replaces a grant.
func (s *InMemory) Put(grant access.Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grantKey{user: grant.UserID, subject: grant.SubjectID}] = grant.Status
}

func (s *InMemory) HasApprovedGrant(_ context.Context, userID domain.UserID, subjectID domain.SubjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grants[grantKey{user: userID, subject: subjectID}] == access.GrantApproved, nil
}

func (s *InMemory) ListApprovedSubjects(_ context.Context, userID domain.UserID) ([]domain.SubjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SubjectID
	for key, status := range s.grants {
		if key.user == userID && status == access.GrantApproved {
			out = append(out, key.subject)
		}
	}
	return out, nil
}
