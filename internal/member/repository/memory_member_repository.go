package repository

import (
	"context"
	"sync"

	"service_marketplace/internal/member/domain"
)

// MemoryMemberRepository in process directory for local runs and tests
type MemoryMemberRepository struct {
	mu      sync.RWMutex
	members map[string]domain.Member
}

// NewMemoryMemberRepository create a MemoryMemberRepository seeded with members
func NewMemoryMemberRepository(members ...domain.Member) *MemoryMemberRepository {
	r := &MemoryMemberRepository{members: make(map[string]domain.Member)}
	for _, m := range members {
		r.members[m.MemberID] = m
	}
	return r
}

// Put add or replace a member
func (r *MemoryMemberRepository) Put(m domain.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m.MemberID] = m
}

// FindByIDs members whose id is in ids
func (r *MemoryMemberRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Member{}
	for _, id := range ids {
		if m, ok := r.members[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}
