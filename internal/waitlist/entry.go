// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package waitlist implements waitlist sign-up and its email verification.

Entries live in their own identity space: no password, no role. They follow
the same verification lifecycle as identities, with tokens issued by
[sec.VerificationTokenManager].
*/
package waitlist

import (
	"context"
	"time"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/pkg/pagination"
)

// # Domain Entities

// Entry is a waitlist sign-up. Email is normalized.
type Entry struct {
	ID                    string
	Name                  string
	Email                 string
	Interests             *string
	EmailVerifiedAt       *time.Time
	VerificationTokenHash *string
	VerificationExpiry    *time.Time
	CreatedAt             time.Time
}

// IsVerified reports whether the entry confirmed its email.
func (entry *Entry) IsVerified() bool {
	return entry.EmailVerifiedAt != nil
}

// View is the client-facing projection of an [Entry].
type View struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Interests       *string    `json:"interests,omitempty"`
	EmailVerified   bool       `json:"emailVerified"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// ToView projects an entry for API responses.
func ToView(entry *Entry) View {
	return View{
		ID:              entry.ID,
		Name:            entry.Name,
		Email:           entry.Email,
		Interests:       entry.Interests,
		EmailVerified:   entry.IsVerified(),
		EmailVerifiedAt: entry.EmailVerifiedAt,
		CreatedAt:       entry.CreatedAt,
	}
}

// # Limits & Messages

const (
	// MaxNameLength bounds the display name, in characters.
	MaxNameLength = 100
	// MaxInterestsLength bounds the free-text interests, in characters.
	MaxInterestsLength = 1000
)

const (
	MessageJoined          = "Joined the waitlist"
	MessageAlreadyOnList   = "Email already on waitlist"
	MessageEmailVerified   = "Email verified"
	MessageAlreadyVerified = "Email already verified"

	resourceName                = "Waitlist entry"
	resourcePendingVerification = "Pending verification"
)

// Field names used in validation errors and request payloads.
const (
	FieldName      = "name"
	FieldEmail     = "email"
	FieldInterests = "interests"
	FieldToken     = "token"
)

// ErrAlreadyOnList is the conflict every repository returns on a duplicate email.
var ErrAlreadyOnList = apperr.Conflict(MessageAlreadyOnList)

// # Repository Contract

// Repository defines the data access contract for waitlist entries.
//
// Lookups of a missing entry return apperr.NotFound.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Entry, error)

	// Create persists a new entry, returning [ErrAlreadyOnList] on a duplicate email.
	Create(ctx context.Context, entry *Entry) error

	// SetVerification replaces the pending token of an unverified entry.
	SetVerification(ctx context.Context, id, tokenHash string, expiry time.Time) error

	// MarkVerified transitions an entry to verified while tokenHash is still
	// pending. It reports false if the token was consumed or replaced.
	MarkVerified(ctx context.Context, id, tokenHash string, at time.Time) (bool, error)

	// List returns one page of entries, newest first, with the total count.
	List(ctx context.Context, params pagination.Params) ([]*Entry, int, error)
}
