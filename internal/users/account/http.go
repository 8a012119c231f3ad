// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/waitgate/internal/platform/respond"
	requestutil "github.com/taibuivan/waitgate/internal/platform/request"
	"github.com/taibuivan/waitgate/internal/users/auth"
	"github.com/taibuivan/waitgate/pkg/pagination"
	"github.com/taibuivan/waitgate/pkg/query"
)

// Handler implements the HTTP layer for account and identity administration.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns the self-service endpoints. The caller mounts them behind
// bearer authentication.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/me", handler.getMe)
	router.Post("/change-password", handler.changePassword)

	return router
}

// AdminRoutes returns the identity administration endpoints. The caller
// mounts them behind a moderator-level role check; adminOnly further guards
// role changes. limit runs last on every route, so callers rejected by a
// role check never spend quota.
func (handler *Handler) AdminRoutes(adminOnly, limit func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.With(limit).Get("/", handler.listUsers)
	router.With(adminOnly, limit).Patch("/{id}/role", handler.updateRole)

	return router
}

// # Self-Service Endpoints

/*
GET /api/v1/account/me.

Response:
  - 200: View: The caller's profile
  - 401: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	view, err := handler.accountService.Me(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, view)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

/*
POST /api/v1/account/change-password.

Request:
  - body: changePasswordRequest

Response:
  - 200: Password changed
  - 400: Validation failure
  - 401: Wrong current password or authentication required
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.accountService.ChangePassword(request.Context(), userID, ChangePasswordInput{
		CurrentPassword: input.CurrentPassword,
		NewPassword:     input.NewPassword,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MessagePasswordChanged, nil)
}

// # Administration Endpoints

/*
GET /api/v1/admin/users?page=&limit=&role=.

Description: role accepts a comma-separated list.

Response:
  - 200: Paginated views
  - 400: Unknown role
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	page, err := handler.accountService.ListUsers(request.Context(), ListInput{
		Roles:  query.StringSlice(request.URL.Query().Get(auth.FieldRole)),
		Params: pagination.FromRequest(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, page.Items, page.Meta)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

/*
PATCH /api/v1/admin/users/{id}/role.

Request:
  - body: updateRoleRequest

Response:
  - 200: View: Updated profile
  - 400: Invalid id or role
  - 403: Own role
  - 404: Unknown identity
*/
func (handler *Handler) updateRole(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRoleRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	view, err := handler.accountService.UpdateRole(request.Context(), actorID, requestutil.Param(request, fieldID), input.Role)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MessageRoleUpdated, view)
}
