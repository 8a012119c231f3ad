// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taibuivan/waitgate/internal/platform/config"
	"github.com/taibuivan/waitgate/internal/platform/constants"
	"github.com/taibuivan/waitgate/internal/platform/migration"
	pgstore "github.com/taibuivan/waitgate/internal/platform/postgres"
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/internal/users/account"
	"github.com/taibuivan/waitgate/internal/users/auth"
)

var errPostgresRequired = errors.New("this command requires STORE_BACKEND=postgres")

func newMigrateCommand(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(*cobra.Command, []string) error {
			if application.cfg.StoreBackend != config.BackendPostgres {
				return errPostgresRequired
			}
			return migration.RunUp(application.cfg.DatabaseURL, application.cfg.MigrationPath, application.log)
		},
	}
}

func newSetRoleCommand(application *app) *cobra.Command {
	var email, role string

	command := &cobra.Command{
		Use:   "set-role --email <email> --role <role>",
		Short: "Assign a role to an identity",
		RunE: func(command *cobra.Command, _ []string) error {
			if application.cfg.StoreBackend != config.BackendPostgres {
				return errPostgresRequired
			}
			return setRole(command.Context(), application, email, role)
		},
	}

	command.Flags().StringVar(&email, "email", "", "email of the identity")
	command.Flags().StringVar(&role, "role", "", "one of user, moderator, admin")
	_ = command.MarkFlagRequired("email")
	_ = command.MarkFlagRequired("role")

	return command
}

func setRole(ctx context.Context, application *app, email, role string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.StartupTimeout)
	defer cancel()

	pool, err := pgstore.Connect(ctx, application.cfg.DatabaseURL, application.log)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Only the repository is used, so hashing stays unconfigured.
	service := account.NewService(auth.NewPostgresIdentityRepository(pool), sec.NewHashPool(sec.NewArgon2idHasher(sec.HashParams{}), 1, nil), nil)

	view, err := service.SetRoleByUsername(ctx, email, role)
	if err != nil {
		return fmt.Errorf("set_role: %w", err)
	}

	application.log.Info("role_assigned",
		slog.String("user_id", view.ID),
		slog.String("role", view.Role),
	)
	return nil
}
