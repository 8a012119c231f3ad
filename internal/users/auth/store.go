// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
)

var (
	// ErrUserExists is the conflict every repository returns on a duplicate username.
	ErrUserExists = apperr.Conflict(MessageUserExists)

	// ErrAlreadyVerified rejects a resend for a confirmed email.
	ErrAlreadyVerified = apperr.BadRequest("ALREADY_VERIFIED", MessageAlreadyVerified)
)

// resourcePendingVerification names the missing resource of a verify request
// without a matching pending token.
const resourcePendingVerification = "Pending verification"

// # Identity Data Access

// IdentityRepository defines the data access contract for identities.
//
// Lookups of a missing identity return apperr.NotFound("User").
type IdentityRepository interface {

	/*
		FindByUsername returns the identity with the given normalized username.

		Parameters:
		  - ctx: context.Context
		  - username: string (normalized email)

		Returns:
		  - *Identity: Hydrated entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByUsername(ctx context.Context, username string) (*Identity, error)

	/*
		FindByID returns the identity with the given ID.

		Parameters:
		  - ctx: context.Context
		  - id: string

		Returns:
		  - *Identity: Hydrated entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(ctx context.Context, id string) (*Identity, error)

	/*
		Create persists a new identity.

		Parameters:
		  - ctx: context.Context
		  - identity: *Identity

		Returns:
		  - error: ErrUserExists on a duplicate username, or storage failures
	*/
	Create(ctx context.Context, identity *Identity) error

	/*
		SetVerification replaces the pending verification token of an
		unverified identity.

		Parameters:
		  - ctx: context.Context
		  - id: string
		  - tokenHash: string
		  - expiry: time.Time

		Returns:
		  - error: apperr.NotFound or storage failures
	*/
	SetVerification(ctx context.Context, id, tokenHash string, expiry time.Time) error

	/*
		MarkVerified transitions an identity to verified, but only while
		tokenHash is still its pending token. The pending token is cleared.

		Parameters:
		  - ctx: context.Context
		  - id: string
		  - tokenHash: string
		  - at: time.Time

		Returns:
		  - bool: false if the token was already consumed or replaced
		  - error: Storage failures
	*/
	MarkVerified(ctx context.Context, id, tokenHash string, at time.Time) (bool, error)

	/*
		Update applies a partial update and returns the resulting identity.

		Parameters:
		  - ctx: context.Context
		  - id: string
		  - patch: Patch

		Returns:
		  - *Identity: Updated entity
		  - error: apperr.NotFound or storage failures
	*/
	Update(ctx context.Context, id string, patch Patch) (*Identity, error)

	/*
		List returns one page of identities, newest first.

		Parameters:
		  - ctx: context.Context
		  - filter: ListFilter

		Returns:
		  - []*Identity: Page items
		  - int: Total matching identities
		  - error: Storage failures
	*/
	List(ctx context.Context, filter ListFilter) ([]*Identity, int, error)
}
