// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements identity registration, login and email verification.

It defines the Identity entity, its repository contract with Postgres and
in-memory implementations, the authentication service and its HTTP handlers.

# Architecture

Credentials are hashed through a bounded [sec.HashPool], tokens are issued by
[sec.TokenCodec], and verification links come from
[sec.VerificationTokenManager]. The repository's unique constraint on the
username is the only authority on duplicates.
*/
package auth

import (
	"time"

	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/pkg/pagination"
)

// # Domain Entities

// Identity is a registered account. Username is the normalized email.
type Identity struct {
	ID                    string
	Username              string
	PasswordHash          string
	Role                  sec.UserRole
	EmailVerifiedAt       *time.Time
	VerificationTokenHash *string
	VerificationExpiry    *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsVerified reports whether the identity confirmed its email.
func (identity *Identity) IsVerified() bool {
	return identity.EmailVerifiedAt != nil
}

// Subject returns the token subject for this identity.
func (identity *Identity) Subject() sec.Subject {
	return sec.Subject{
		ID:       identity.ID,
		Username: identity.Username,
		Role:     identity.Role.String(),
	}
}

// View is the client-facing projection of an [Identity].
type View struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Role            string     `json:"role"`
	EmailVerified   bool       `json:"emailVerified"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// View projects the identity for API responses. Secrets never leave here.
func (identity *Identity) View() View {
	return View{
		ID:              identity.ID,
		Username:        identity.Username,
		Role:            identity.Role.String(),
		EmailVerified:   identity.IsVerified(),
		EmailVerifiedAt: identity.EmailVerifiedAt,
		CreatedAt:       identity.CreatedAt,
	}
}

// ToView adapts [Identity.View] for slice mapping.
func ToView(identity *Identity) View {
	return identity.View()
}

// # Mutations & Queries

// Patch lists the mutable fields of an identity. Nil fields are left alone.
type Patch struct {
	PasswordHash *string
	Role         *sec.UserRole
}

// ListFilter narrows an identity listing.
type ListFilter struct {
	Roles []sec.UserRole
	pagination.Params
}

// # Field Identifiers

// Field names used in validation errors and request payloads.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldToken           = "token"
	FieldRefreshToken    = "refreshToken"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
	FieldRole            = "role"
)
