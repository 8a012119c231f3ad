// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	requestutil "github.com/taibuivan/waitgate/internal/platform/request"
	"github.com/taibuivan/waitgate/internal/platform/respond"
	"github.com/taibuivan/waitgate/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// Each route needs its own gateway stages, so the handlers are exported and
// the API server attaches them with the matching middleware chain.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// # Request Payloads

// credentialsRequest accepts the identifier under either key.
type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (input credentialsRequest) credentials() Credentials {
	username := input.Username
	if username == "" {
		username = input.Email
	}
	return Credentials{Username: username, Password: input.Password}
}

type tokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

/*
Register handles the creation of a new identity.

POST /api/v1/auth/register

Request:
  - Body: credentialsRequest (username or email, password)

Response:
  - 201: Session: Created identity and token pair
  - 400: Invalid input
  - 409: User already exists
*/
func (handler *Handler) Register(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Register(request.Context(), input.credentials())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusCreated, MessageRegistered, session)
}

/*
Login authenticates an identity.

POST /api/v1/auth/login

Request:
  - Body: credentialsRequest (username or email, password)

Response:
  - 200: Session: Identity and token pair
  - 401: Invalid credentials
*/
func (handler *Handler) Login(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), input.credentials())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MessageLoggedIn, session)
}

/*
Refresh issues a new pair for the bearer of a valid access token.

POST /api/v1/auth/refresh

Response:
  - 200: Session: Fresh token pair
  - 401: Authentication required or invalid token
*/
func (handler *Handler) Refresh(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Refresh(request.Context(), claims)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MessageTokenRefreshed, session)
}

/*
Token exchanges a refresh token for a new pair.

POST /api/v1/auth/token

Request:
  - Body: tokenRequest (refreshToken)

Response:
  - 200: Session: Fresh token pair
  - 400: Missing refresh token
  - 401: Invalid or expired token
*/
func (handler *Handler) Token(writer http.ResponseWriter, request *http.Request) {
	var input tokenRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.Required(FieldRefreshToken, input.RefreshToken).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.RefreshWithToken(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MessageTokenRefreshed, session)
}

/*
VerifyEmail confirms ownership of a registered email.

POST /api/v1/auth/verify-email

Request:
  - Body: verifyEmailRequest (token, email)

Response:
  - 200: Email verified, or already verified
  - 400: Invalid or expired link
  - 404: No pending verification
*/
func (handler *Handler) VerifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input verifyEmailRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.VerifyEmail(request.Context(), input.Email, input.Token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	message := MessageEmailVerified
	if result == AlreadyVerified {
		message = MessageAlreadyVerified
	}
	respond.Message(writer, http.StatusOK, message, nil)
}

/*
ResendVerification issues a new verification link to the caller.

POST /api/v1/auth/resend-verification

Response:
  - 202: Verification email sent
  - 400: Email already verified
  - 401: Authentication required
*/
func (handler *Handler) ResendVerification(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResendVerification(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusAccepted, MessageVerificationSent, nil)
}
