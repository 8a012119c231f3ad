// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/pkg/pointer"
	"github.com/taibuivan/waitgate/pkg/slice"
)

// # In-Memory Repository

// MemoryIdentityRepository implements [IdentityRepository] in process memory.
// The username index is checked and written under one lock, which gives the
// same uniqueness guarantee as the Postgres constraint.
type MemoryIdentityRepository struct {
	mu         sync.RWMutex
	byID       map[string]*Identity
	byUsername map[string]string
	clock      clockwork.Clock
}

// NewMemoryIdentityRepository creates an empty repository. A nil clock uses
// the wall clock.
func NewMemoryIdentityRepository(clock clockwork.Clock) *MemoryIdentityRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryIdentityRepository{
		byID:       make(map[string]*Identity),
		byUsername: make(map[string]string),
		clock:      clock,
	}
}

// FindByUsername implements [IdentityRepository].
func (repository *MemoryIdentityRepository) FindByUsername(_ context.Context, username string) (*Identity, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	id, ok := repository.byUsername[username]
	if !ok {
		return nil, apperr.NotFound(resourceName)
	}
	return clone(repository.byID[id]), nil
}

// FindByID implements [IdentityRepository].
func (repository *MemoryIdentityRepository) FindByID(_ context.Context, id string) (*Identity, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	identity, ok := repository.byID[id]
	if !ok {
		return nil, apperr.NotFound(resourceName)
	}
	return clone(identity), nil
}

// Create implements [IdentityRepository].
func (repository *MemoryIdentityRepository) Create(_ context.Context, identity *Identity) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, taken := repository.byUsername[identity.Username]; taken {
		return ErrUserExists
	}

	repository.byID[identity.ID] = clone(identity)
	repository.byUsername[identity.Username] = identity.ID
	return nil
}

// SetVerification implements [IdentityRepository].
func (repository *MemoryIdentityRepository) SetVerification(_ context.Context, id, tokenHash string, expiry time.Time) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	identity, ok := repository.byID[id]
	if !ok || identity.IsVerified() {
		return apperr.NotFound(resourceName)
	}

	identity.VerificationTokenHash = pointer.To(tokenHash)
	identity.VerificationExpiry = pointer.To(expiry)
	identity.UpdatedAt = repository.clock.Now()
	return nil
}

// MarkVerified implements [IdentityRepository].
func (repository *MemoryIdentityRepository) MarkVerified(_ context.Context, id, tokenHash string, at time.Time) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	identity, ok := repository.byID[id]
	if !ok || identity.IsVerified() || pointer.Val(identity.VerificationTokenHash) != tokenHash {
		return false, nil
	}

	identity.EmailVerifiedAt = pointer.To(at)
	identity.VerificationTokenHash = nil
	identity.VerificationExpiry = nil
	identity.UpdatedAt = at
	return true, nil
}

// Update implements [IdentityRepository].
func (repository *MemoryIdentityRepository) Update(_ context.Context, id string, patch Patch) (*Identity, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	identity, ok := repository.byID[id]
	if !ok {
		return nil, apperr.NotFound(resourceName)
	}

	if patch.PasswordHash != nil {
		identity.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		identity.Role = *patch.Role
	}
	identity.UpdatedAt = repository.clock.Now()

	return clone(identity), nil
}

// List implements [IdentityRepository].
func (repository *MemoryIdentityRepository) List(_ context.Context, filter ListFilter) ([]*Identity, int, error) {
	repository.mu.RLock()
	all := make([]*Identity, 0, len(repository.byID))
	for _, identity := range repository.byID {
		all = append(all, clone(identity))
	}
	repository.mu.RUnlock()

	if len(filter.Roles) > 0 {
		all = slice.Filter(all, func(identity *Identity) bool {
			return slices.Contains(filter.Roles, identity.Role)
		})
	}

	slices.SortFunc(all, func(a, b *Identity) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	total := len(all)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)

	return all[start:end], total, nil
}

func clone(identity *Identity) *Identity {
	copied := *identity
	return &copied
}
