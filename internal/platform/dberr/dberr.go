// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Wrap inspects a database error and classifies it.
//
//   - pgx.ErrNoRows becomes NotFound(resource).
//   - A unique violation becomes conflict, when one is given.
//   - Anything else is wrapped with action for the logs and surfaces as 500.
func Wrap(err error, action, resource string, conflict *apperr.AppError) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	if conflict != nil && IsUniqueViolation(err) {
		return conflict.WithCause(err)
	}

	return fmt.Errorf("%s: %w", action, err)
}
