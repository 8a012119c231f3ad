// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles the authenticated side of an identity: the caller's
own profile, password changes and the administrative listing and role
management of identities.

# Architecture

  - Domain: This package depends on the auth package for the Identity entity
    and its repository contract. It owns no storage of its own.
  - Security: Password changes go through the same bounded hash pool as
    registration.
*/
package account

import (
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/internal/users/auth"
	"github.com/taibuivan/waitgate/pkg/pagination"
	"github.com/taibuivan/waitgate/pkg/slice"
)

// # Inputs & Results

// ChangePasswordInput carries a password rotation request.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ListInput narrows the admin identity listing. Roles holds raw query values
// and is validated by the service.
type ListInput struct {
	Roles []string
	pagination.Params
}

// Page is one page of identities with its metadata.
type Page struct {
	Items []auth.View
	Meta  pagination.Meta
}

// # Messages

const (
	MessagePasswordChanged = "Password changed successfully"
	MessageWrongPassword   = "Current password is incorrect"
	MessageCannotChangeOwn = "Cannot change your own role"
	MessageRoleUpdated     = "Role updated"
)

// Event names reported to the auth observer.
const (
	EventChangePassword = "change_password"
	EventRoleUpdated    = "role_updated"
)

// fieldID names the path parameter of admin routes.
const fieldID = "id"

// roleNames lists every assignable role for validation.
var roleNames = slice.Map(sec.Roles, sec.UserRole.String)
