// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package waitlist

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/pkg/pagination"
	"github.com/taibuivan/waitgate/pkg/pointer"
)

// MemoryRepository implements [Repository] in process memory. Entries are
// keyed by email, so the duplicate check and the insert share one lock.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*Entry
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byEmail: make(map[string]*Entry)}
}

// FindByEmail implements [Repository].
func (repository *MemoryRepository) FindByEmail(_ context.Context, email string) (*Entry, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	entry, ok := repository.byEmail[email]
	if !ok {
		return nil, apperr.NotFound(resourceName)
	}
	return clone(entry), nil
}

// Create implements [Repository].
func (repository *MemoryRepository) Create(_ context.Context, entry *Entry) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, taken := repository.byEmail[entry.Email]; taken {
		return ErrAlreadyOnList
	}
	repository.byEmail[entry.Email] = clone(entry)
	return nil
}

// SetVerification implements [Repository].
func (repository *MemoryRepository) SetVerification(_ context.Context, id, tokenHash string, expiry time.Time) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	entry := repository.findByID(id)
	if entry == nil || entry.IsVerified() {
		return apperr.NotFound(resourceName)
	}

	entry.VerificationTokenHash = pointer.To(tokenHash)
	entry.VerificationExpiry = pointer.To(expiry)
	return nil
}

// MarkVerified implements [Repository].
func (repository *MemoryRepository) MarkVerified(_ context.Context, id, tokenHash string, at time.Time) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	entry := repository.findByID(id)
	if entry == nil || entry.IsVerified() || pointer.Val(entry.VerificationTokenHash) != tokenHash {
		return false, nil
	}

	entry.EmailVerifiedAt = pointer.To(at)
	entry.VerificationTokenHash = nil
	entry.VerificationExpiry = nil
	return true, nil
}

// List implements [Repository].
func (repository *MemoryRepository) List(_ context.Context, params pagination.Params) ([]*Entry, int, error) {
	repository.mu.RLock()
	all := make([]*Entry, 0, len(repository.byEmail))
	for _, entry := range repository.byEmail {
		all = append(all, clone(entry))
	}
	repository.mu.RUnlock()

	slices.SortFunc(all, func(a, b *Entry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	total := len(all)
	start := min(params.Offset(), total)
	end := min(start+params.Limit, total)

	return all[start:end], total, nil
}

// findByID scans the email index. Callers hold the lock.
func (repository *MemoryRepository) findByID(id string) *Entry {
	for _, entry := range repository.byEmail {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

func clone(entry *Entry) *Entry {
	copied := *entry
	return &copied
}
