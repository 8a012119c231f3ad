// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/waitgate/internal/platform/database/schema"
	"github.com/taibuivan/waitgate/internal/platform/dberr"
	"github.com/taibuivan/waitgate/internal/platform/postgres"
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/pkg/slice"
)

// resourceName is used in NotFound errors.
const resourceName = "User"

// # Postgres Repository

// PostgresIdentityRepository implements [IdentityRepository] using pgx.
type PostgresIdentityRepository struct {
	db postgres.DBTX
}

// NewPostgresIdentityRepository creates a repository on a pool or transaction.
func NewPostgresIdentityRepository(db postgres.DBTX) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{db: db}
}

var identityColumns = schema.List(schema.Identity.Columns())

/*
FindByUsername retrieves an identity by its unique username.

Parameters:
  - ctx: context.Context
  - username: string

Returns:
  - *Identity: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresIdentityRepository) FindByUsername(ctx context.Context, username string) (*Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		identityColumns, schema.Identity.Table, schema.Identity.Username)

	identity, err := scanIdentity(repository.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, dberr.Wrap(err, "identity_find_by_username", resourceName, nil)
	}
	return identity, nil
}

/*
FindByID retrieves an identity by its primary key.

Parameters:
  - ctx: context.Context
  - id: string

Returns:
  - *Identity: Hydrated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresIdentityRepository) FindByID(ctx context.Context, id string) (*Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		identityColumns, schema.Identity.Table, schema.Identity.ID)

	identity, err := scanIdentity(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "identity_find_by_id", resourceName, nil)
	}
	return identity, nil
}

/*
Create inserts a new identity. A unique violation on the username becomes
[ErrUserExists].

Parameters:
  - ctx: context.Context
  - identity: *Identity

Returns:
  - error: ErrUserExists or database errors
*/
func (repository *PostgresIdentityRepository) Create(ctx context.Context, identity *Identity) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		schema.Identity.Table, identityColumns)

	_, err := repository.db.Exec(ctx, query,
		identity.ID,
		identity.Username,
		identity.PasswordHash,
		identity.Role.String(),
		identity.EmailVerifiedAt,
		identity.VerificationTokenHash,
		identity.VerificationExpiry,
		identity.CreatedAt,
		identity.UpdatedAt,
	)

	return dberr.Wrap(err, "identity_create", resourceName, ErrUserExists)
}

/*
SetVerification stores a new pending token for an unverified identity.

Parameters:
  - ctx: context.Context
  - id: string
  - tokenHash: string
  - expiry: time.Time

Returns:
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresIdentityRepository) SetVerification(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = now() WHERE %s = $1 AND %s IS NULL`,
		schema.Identity.Table,
		schema.Identity.VerificationTokenHash,
		schema.Identity.VerificationExpiresAt,
		schema.Identity.UpdatedAt,
		schema.Identity.ID,
		schema.Identity.EmailVerifiedAt,
	)

	tag, err := repository.db.Exec(ctx, query, id, tokenHash, expiry)
	if err != nil {
		return dberr.Wrap(err, "identity_set_verification", resourceName, nil)
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "identity_set_verification", resourceName, nil)
	}
	return nil
}

/*
MarkVerified applies the verified transition if tokenHash is still pending.

Parameters:
  - ctx: context.Context
  - id: string
  - tokenHash: string
  - at: time.Time

Returns:
  - bool: Whether a row transitioned
  - error: Database errors
*/
func (repository *PostgresIdentityRepository) MarkVerified(ctx context.Context, id, tokenHash string, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $3, %s = NULL, %s = NULL, %s = $3
		WHERE %s = $1 AND %s = $2 AND %s IS NULL`,
		schema.Identity.Table,
		schema.Identity.EmailVerifiedAt,
		schema.Identity.VerificationTokenHash,
		schema.Identity.VerificationExpiresAt,
		schema.Identity.UpdatedAt,
		schema.Identity.ID,
		schema.Identity.VerificationTokenHash,
		schema.Identity.EmailVerifiedAt,
	)

	tag, err := repository.db.Exec(ctx, query, id, tokenHash, at)
	if err != nil {
		return false, dberr.Wrap(err, "identity_mark_verified", resourceName, nil)
	}
	return tag.RowsAffected() == 1, nil
}

/*
Update applies the non-nil fields of patch and returns the updated row.

Parameters:
  - ctx: context.Context
  - id: string
  - patch: Patch

Returns:
  - *Identity: Updated entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresIdentityRepository) Update(ctx context.Context, id string, patch Patch) (*Identity, error) {
	var role *string
	if patch.Role != nil {
		value := patch.Role.String()
		role = &value
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = COALESCE($2, %s), %s = COALESCE($3, %s), %s = now()
		WHERE %s = $1 RETURNING %s`,
		schema.Identity.Table,
		schema.Identity.PasswordHash, schema.Identity.PasswordHash,
		schema.Identity.Role, schema.Identity.Role,
		schema.Identity.UpdatedAt,
		schema.Identity.ID,
		identityColumns,
	)

	identity, err := scanIdentity(repository.db.QueryRow(ctx, query, id, patch.PasswordHash, role))
	if err != nil {
		return nil, dberr.Wrap(err, "identity_update", resourceName, nil)
	}
	return identity, nil
}

/*
List returns a page of identities, newest first, optionally filtered by role.

Description: The total is computed with COUNT(*) OVER() in the same query.

Parameters:
  - ctx: context.Context
  - filter: ListFilter

Returns:
  - []*Identity: Page items
  - int: Total matching identities
  - error: Database errors
*/
func (repository *PostgresIdentityRepository) List(ctx context.Context, filter ListFilter) ([]*Identity, int, error) {
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(fmt.Sprintf(`SELECT %s, COUNT(*) OVER() AS total_count FROM %s WHERE TRUE`,
		identityColumns, schema.Identity.Table))

	if len(filter.Roles) > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = ANY($%d)", schema.Identity.Role, argID))
		args = append(args, slice.Map(filter.Roles, sec.UserRole.String))
		argID++
	}

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s DESC, %s DESC", schema.Identity.CreatedAt, schema.Identity.ID))
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, filter.Limit, filter.Offset())

	rows, err := repository.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "identity_list", resourceName, nil)
	}
	defer rows.Close()

	var (
		identities []*Identity
		total      int
	)
	for rows.Next() {
		identity, err := scanIdentity(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("identity_list_scan: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("identity_list_rows: %w", err)
	}

	return identities, total, nil
}

// scanIdentity hydrates an identity in [schema.IdentityTable.Columns] order,
// followed by any extra destinations.
func scanIdentity(row pgx.Row, extra ...any) (*Identity, error) {
	var (
		identity Identity
		role     string
	)

	dest := []any{
		&identity.ID,
		&identity.Username,
		&identity.PasswordHash,
		&role,
		&identity.EmailVerifiedAt,
		&identity.VerificationTokenHash,
		&identity.VerificationExpiry,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	}

	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	identity.Role = sec.UserRole(role)
	return &identity, nil
}
