// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package waitlist

import (
	"net/http"

	requestutil "github.com/taibuivan/waitgate/internal/platform/request"
	"github.com/taibuivan/waitgate/internal/platform/respond"
	"github.com/taibuivan/waitgate/pkg/pagination"
)

// MessageResendAccepted is returned by resend whether or not the email is listed.
const MessageResendAccepted = "If this email is on the waitlist, a new link has been sent"

// Handler implements the waitlist HTTP endpoints. Routes are attached by the
// API server with their gateway stages.
type Handler struct {
	waitlistService *Service
}

// NewHandler constructs a new waitlist [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{waitlistService: service}
}

type joinRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Interests string `json:"interests"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type resendRequest struct {
	Email string `json:"email"`
}

/*
Join handles a waitlist sign-up.

POST /api/v1/waitlist

Response:
  - 201: View: Created entry
  - 400: Invalid input
  - 409: Email already on waitlist
*/
func (handler *Handler) Join(writer http.ResponseWriter, request *http.Request) {
	var input joinRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	view, err := handler.waitlistService.Join(request.Context(), JoinInput{
		Name:      input.Name,
		Email:     input.Email,
		Interests: input.Interests,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusCreated, MessageJoined, view)
}

/*
Verify confirms a waitlist email.

POST /api/v1/waitlist/verify

Response:
  - 200: Email verified, or already verified
  - 400: Invalid or expired link
  - 404: No pending verification
*/
func (handler *Handler) Verify(writer http.ResponseWriter, request *http.Request) {
	var input verifyRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	alreadyVerified, err := handler.waitlistService.Verify(request.Context(), input.Email, input.Token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	message := MessageEmailVerified
	if alreadyVerified {
		message = MessageAlreadyVerified
	}
	respond.Message(writer, http.StatusOK, message, nil)
}

/*
Resend issues a new verification link.

POST /api/v1/waitlist/resend

Response:
  - 202: Accepted, whether or not the email is listed
  - 400: Invalid email
*/
func (handler *Handler) Resend(writer http.ResponseWriter, request *http.Request) {
	var input resendRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.waitlistService.Resend(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusAccepted, MessageResendAccepted, nil)
}

/*
List returns the waitlist for moderators.

GET /api/v1/admin/waitlist?page=&limit=

Response:
  - 200: Paginated views
*/
func (handler *Handler) List(writer http.ResponseWriter, request *http.Request) {
	views, meta, err := handler.waitlistService.List(request.Context(), pagination.FromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, views, meta)
}
