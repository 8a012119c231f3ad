// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package waitlist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/waitgate/internal/platform/database/schema"
	"github.com/taibuivan/waitgate/internal/platform/dberr"
	"github.com/taibuivan/waitgate/internal/platform/postgres"
	"github.com/taibuivan/waitgate/pkg/pagination"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db postgres.DBTX
}

// NewPostgresRepository creates a repository on a pool or transaction.
func NewPostgresRepository(db postgres.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var entryColumns = schema.List(schema.WaitlistEntry.Columns())

// FindByEmail implements [Repository].
func (repository *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		entryColumns, schema.WaitlistEntry.Table, schema.WaitlistEntry.Email)

	entry, err := scanEntry(repository.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "waitlist_find_by_email", resourceName, nil)
	}
	return entry, nil
}

// Create implements [Repository].
func (repository *PostgresRepository) Create(ctx context.Context, entry *Entry) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.WaitlistEntry.Table, entryColumns)

	_, err := repository.db.Exec(ctx, query,
		entry.ID,
		entry.Name,
		entry.Email,
		entry.Interests,
		entry.EmailVerifiedAt,
		entry.VerificationTokenHash,
		entry.VerificationExpiry,
		entry.CreatedAt,
	)

	return dberr.Wrap(err, "waitlist_create", resourceName, ErrAlreadyOnList)
}

// SetVerification implements [Repository].
func (repository *PostgresRepository) SetVerification(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s IS NULL`,
		schema.WaitlistEntry.Table,
		schema.WaitlistEntry.VerificationTokenHash,
		schema.WaitlistEntry.VerificationExpiresAt,
		schema.WaitlistEntry.ID,
		schema.WaitlistEntry.EmailVerifiedAt,
	)

	tag, err := repository.db.Exec(ctx, query, id, tokenHash, expiry)
	if err != nil {
		return dberr.Wrap(err, "waitlist_set_verification", resourceName, nil)
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "waitlist_set_verification", resourceName, nil)
	}
	return nil
}

// MarkVerified implements [Repository].
func (repository *PostgresRepository) MarkVerified(ctx context.Context, id, tokenHash string, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $3, %s = NULL, %s = NULL
		WHERE %s = $1 AND %s = $2 AND %s IS NULL`,
		schema.WaitlistEntry.Table,
		schema.WaitlistEntry.EmailVerifiedAt,
		schema.WaitlistEntry.VerificationTokenHash,
		schema.WaitlistEntry.VerificationExpiresAt,
		schema.WaitlistEntry.ID,
		schema.WaitlistEntry.VerificationTokenHash,
		schema.WaitlistEntry.EmailVerifiedAt,
	)

	tag, err := repository.db.Exec(ctx, query, id, tokenHash, at)
	if err != nil {
		return false, dberr.Wrap(err, "waitlist_mark_verified", resourceName, nil)
	}
	return tag.RowsAffected() == 1, nil
}

/*
List returns a page of entries, newest first.

Description: The total is computed with COUNT(*) OVER() in the same query, so
a page past the end reports a total of zero.

Parameters:
  - ctx: context.Context
  - params: pagination.Params

Returns:
  - []*Entry: Page items
  - int: Total entries
  - error: Database errors
*/
func (repository *PostgresRepository) List(ctx context.Context, params pagination.Params) ([]*Entry, int, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() AS total_count FROM %s ORDER BY %s DESC, %s DESC LIMIT $1 OFFSET $2`,
		entryColumns, schema.WaitlistEntry.Table, schema.WaitlistEntry.CreatedAt, schema.WaitlistEntry.ID)

	rows, err := repository.db.Query(ctx, query, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err, "waitlist_list", resourceName, nil)
	}
	defer rows.Close()

	var (
		entries []*Entry
		total   int
	)
	for rows.Next() {
		entry, err := scanEntry(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("waitlist_list_scan: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("waitlist_list_rows: %w", err)
	}

	return entries, total, nil
}

func scanEntry(row pgx.Row, extra ...any) (*Entry, error) {
	var entry Entry
	dest := []any{
		&entry.ID,
		&entry.Name,
		&entry.Email,
		&entry.Interests,
		&entry.EmailVerifiedAt,
		&entry.VerificationTokenHash,
		&entry.VerificationExpiry,
		&entry.CreatedAt,
	}

	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &entry, nil
}
