//go:build integration

// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/internal/platform/migration"
	pgpool "github.com/taibuivan/waitgate/internal/platform/postgres"
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/internal/users/auth"
	"github.com/taibuivan/waitgate/pkg/pagination"
	"github.com/taibuivan/waitgate/pkg/uuid"
)

// startPostgres starts a migrated PostgreSQL container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("waitgate_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrations, err := filepath.Abs("../../../data/migrations")
	require.NoError(t, err)
	require.NoError(t, migration.RunUp(dsn, migrations, slog.New(slog.NewTextHandler(io.Discard, nil))))

	return dsn
}

/*
TestPostgresIdentityRepository_Integration exercises the repository against a
real database, including the unique constraint under concurrent inserts.
*/
func TestPostgresIdentityRepository_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	pool, err := pgpool.Connect(ctx, dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := auth.NewPostgresIdentityRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("concurrent create", func(t *testing.T) {
		const attempts = 6
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			created   int
			conflicts int
		)

		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.Create(ctx, &auth.Identity{
					ID:           uuid.New(),
					Username:     "race@example.com",
					PasswordHash: "$argon2id$hash",
					Role:         sec.RoleUser,
					CreatedAt:    now,
					UpdatedAt:    now,
				})

				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					created++
				} else if apperr.IsCode(err, "CONFLICT") {
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, created)
		assert.Equal(t, attempts-1, conflicts)
	})

	t.Run("verification lifecycle", func(t *testing.T) {
		identity := &auth.Identity{
			ID:           uuid.New(),
			Username:     "lifecycle@example.com",
			PasswordHash: "$argon2id$hash",
			Role:         sec.RoleUser,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, repo.Create(ctx, identity))
		require.NoError(t, repo.SetVerification(ctx, identity.ID, "digest-1", now.Add(time.Hour)))

		ok, err := repo.MarkVerified(ctx, identity.ID, "digest-stale", now)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.MarkVerified(ctx, identity.ID, "digest-1", now)
		require.NoError(t, err)
		assert.True(t, ok)

		stored, err := repo.FindByID(ctx, identity.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsVerified())
		assert.Nil(t, stored.VerificationTokenHash)

		assert.True(t, apperr.IsNotFound(repo.SetVerification(ctx, identity.ID, "digest-2", now)))
	})

	t.Run("update and list", func(t *testing.T) {
		found, err := repo.FindByUsername(ctx, "lifecycle@example.com")
		require.NoError(t, err)

		admin := sec.RoleAdmin
		updated, err := repo.Update(ctx, found.ID, auth.Patch{Role: &admin})
		require.NoError(t, err)
		assert.Equal(t, sec.RoleAdmin, updated.Role)
		assert.Equal(t, found.PasswordHash, updated.PasswordHash)

		admins, total, err := repo.List(ctx, auth.ListFilter{
			Roles:  []sec.UserRole{sec.RoleAdmin},
			Params: pagination.Params{Page: 1, Limit: 10},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, admins, 1)
		assert.Equal(t, found.ID, admins[0].ID)
	})
}
