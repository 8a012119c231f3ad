// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/internal/platform/ctxutil"
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/internal/platform/validate"
	"github.com/taibuivan/waitgate/internal/users/auth"
	"github.com/taibuivan/waitgate/pkg/pagination"
	"github.com/taibuivan/waitgate/pkg/slice"
)

// # Service Layer

// Service orchestrates profile, password and role management on top of the
// identity repository.
type Service struct {
	identities auth.IdentityRepository
	passwords  auth.PasswordHasher
	observer   auth.Observer
}

// NewService constructs a new [Service]. observer may be nil.
func NewService(identities auth.IdentityRepository, passwords auth.PasswordHasher, observer auth.Observer) *Service {
	return &Service{
		identities: identities,
		passwords:  passwords,
		observer:   observer,
	}
}

// # Profile Management

/*
Me returns the profile of the authenticated identity.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - *auth.View: Client-facing profile
  - error: Not found or execution failures
*/
func (service *Service) Me(ctx context.Context, userID string) (*auth.View, error) {
	identity, err := service.identities.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_me_failed: %w", err)
	}

	view := identity.View()
	return &view, nil
}

/*
ChangePassword rotates the caller's password after checking the current one.

Parameters:
  - ctx: context.Context
  - userID: string
  - input: ChangePasswordInput

Returns:
  - error: ValidationError, Unauthorized on a wrong current password, or
    execution failures
*/
func (service *Service) ChangePassword(ctx context.Context, userID string, input ChangePasswordInput) error {
	validator := &validate.Validator{}
	validator.Present(auth.FieldCurrentPassword, input.CurrentPassword).
		Present(auth.FieldNewPassword, input.NewPassword).
		Password(auth.FieldNewPassword, input.NewPassword)

	if err := validator.Err(); err != nil {
		return err
	}

	identity, err := service.identities.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("account_service_change_password_lookup_failed: %w", err)
	}

	matched, err := service.passwords.Verify(ctx, input.CurrentPassword, identity.PasswordHash)
	if err != nil {
		return fmt.Errorf("account_service_change_password_verify_failed: %w", err)
	}
	if !matched {
		service.observe(EventChangePassword, false)
		return apperr.Unauthorized(MessageWrongPassword)
	}

	passwordHash, err := service.passwords.Hash(ctx, input.NewPassword)
	if err != nil {
		return fmt.Errorf("account_service_change_password_hash_failed: %w", err)
	}

	if _, err := service.identities.Update(ctx, userID, auth.Patch{PasswordHash: &passwordHash}); err != nil {
		return fmt.Errorf("account_service_change_password_update_failed: %w", err)
	}

	service.observe(EventChangePassword, true)
	ctxutil.GetLogger(ctx).InfoContext(ctx, "password_changed", slog.String("user_id", userID))

	return nil
}

// # Administration

/*
ListUsers returns a page of identities, newest first.

Parameters:
  - ctx: context.Context
  - input: ListInput

Returns:
  - *Page: Views and pagination metadata
  - error: ValidationError on an unknown role, or execution failures
*/
func (service *Service) ListUsers(ctx context.Context, input ListInput) (*Page, error) {
	validator := &validate.Validator{}
	for _, role := range input.Roles {
		validator.OneOf(auth.FieldRole, role, roleNames...)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	identities, total, err := service.identities.List(ctx, auth.ListFilter{
		Roles:  slice.Map(input.Roles, func(role string) sec.UserRole { return sec.UserRole(role) }),
		Params: input.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("account_service_list_failed: %w", err)
	}

	items := slice.Map(identities, auth.ToView)
	if items == nil {
		items = []auth.View{}
	}

	return &Page{
		Items: items,
		Meta:  pagination.NewMeta(input.Page, input.Limit, total),
	}, nil
}

/*
UpdateRole assigns a role to another identity.

Description: An administrator cannot change their own role, so the last
administrator cannot lock everyone out by accident.

Parameters:
  - ctx: context.Context
  - actorID: string (the administrator)
  - targetID: string
  - role: string

Returns:
  - *auth.View: Updated profile
  - error: ValidationError, Forbidden, NotFound or execution failures
*/
func (service *Service) UpdateRole(ctx context.Context, actorID, targetID, role string) (*auth.View, error) {
	validator := &validate.Validator{}
	validator.UUID(fieldID, targetID).
		Required(auth.FieldRole, role).
		OneOf(auth.FieldRole, role, roleNames...)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	if actorID == targetID {
		return nil, apperr.Forbidden(MessageCannotChangeOwn)
	}

	view, err := service.setRole(ctx, targetID, sec.UserRole(role))
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "role_updated",
		slog.String("actor_id", actorID),
		slog.String("user_id", targetID),
		slog.String("role", role),
	)
	return view, nil
}

/*
SetRoleByUsername assigns a role by normalized email. It backs the
administrative CLI, which has no caller identity.

Parameters:
  - ctx: context.Context
  - email: string
  - role: string

Returns:
  - *auth.View: Updated profile
  - error: ValidationError, NotFound or execution failures
*/
func (service *Service) SetRoleByUsername(ctx context.Context, email, role string) (*auth.View, error) {
	username := validate.NormalizeEmail(email)

	validator := &validate.Validator{}
	validator.Required(auth.FieldEmail, username).
		Email(auth.FieldEmail, username).
		OneOf(auth.FieldRole, role, roleNames...)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	identity, err := service.identities.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("account_service_set_role_lookup_failed: %w", err)
	}

	return service.setRole(ctx, identity.ID, sec.UserRole(role))
}

func (service *Service) setRole(ctx context.Context, id string, role sec.UserRole) (*auth.View, error) {
	identity, err := service.identities.Update(ctx, id, auth.Patch{Role: &role})
	if err != nil {
		service.observe(EventRoleUpdated, false)
		return nil, fmt.Errorf("account_service_update_role_failed: %w", err)
	}

	service.observe(EventRoleUpdated, true)
	view := identity.View()
	return &view, nil
}

func (service *Service) observe(event string, succeeded bool) {
	if service.observer != nil {
		service.observer.ObserveAuth(event, succeeded)
	}
}
