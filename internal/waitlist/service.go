// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/waitgate/internal/notify"
	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/internal/platform/ctxutil"
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/internal/platform/validate"
	"github.com/taibuivan/waitgate/pkg/pagination"
	"github.com/taibuivan/waitgate/pkg/slice"
	"github.com/taibuivan/waitgate/pkg/uuid"
)

// Event names reported to the observer.
const (
	EventJoin   = "waitlist_join"
	EventVerify = "waitlist_verify"
	EventResend = "waitlist_resend"
)

// Sender delivers verification links without blocking the caller.
type Sender interface {
	Dispatch(ctx context.Context, message notify.Message)
}

// Observer receives the outcome of waitlist events.
type Observer interface {
	ObserveAuth(event string, succeeded bool)
}

// Service implements waitlist sign-up, verification and listing.
type Service struct {
	entries       Repository
	verifications *sec.VerificationTokenManager
	sender        Sender
	observer      Observer
	clock         clockwork.Clock
}

// NewService constructs a [Service]. sender and observer may be nil; a nil
// clock uses the wall clock.
func NewService(entries Repository, verifications *sec.VerificationTokenManager, sender Sender, observer Observer, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if verifications == nil {
		verifications = sec.NewVerificationTokenManager(clock)
	}
	return &Service{
		entries:       entries,
		verifications: verifications,
		sender:        sender,
		observer:      observer,
		clock:         clock,
	}
}

// JoinInput is a waitlist sign-up request.
type JoinInput struct {
	Name      string
	Email     string
	Interests string
}

/*
Join validates the sign-up, stores an unverified entry and sends its
verification link.

Parameters:
  - ctx: context.Context
  - input: JoinInput

Returns:
  - *View: Created entry
  - error: ValidationError, ErrAlreadyOnList or internal failures
*/
func (service *Service) Join(ctx context.Context, input JoinInput) (*View, error) {
	name := strings.TrimSpace(input.Name)
	email := validate.NormalizeEmail(input.Email)
	interests := strings.TrimSpace(input.Interests)

	validator := &validate.Validator{}
	validator.Required(FieldName, name).
		MaxLen(FieldName, name, MaxNameLength).
		Required(FieldEmail, email).
		Email(FieldEmail, email).
		MaxLen(FieldInterests, interests, MaxInterestsLength)

	if err := validator.Err(); err != nil {
		service.observe(EventJoin, false)
		return nil, err
	}

	issued, err := service.verifications.Issue()
	if err != nil {
		service.observe(EventJoin, false)
		return nil, fmt.Errorf("waitlist_service_verification_token_failed: %w", err)
	}

	entry := &Entry{
		ID:                    uuid.New(),
		Name:                  name,
		Email:                 email,
		VerificationTokenHash: &issued.Hash,
		VerificationExpiry:    &issued.ExpiresAt,
		CreatedAt:             service.clock.Now(),
	}
	if interests != "" {
		entry.Interests = &interests
	}

	if err := service.entries.Create(ctx, entry); err != nil {
		service.observe(EventJoin, false)
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("waitlist_service_join_failed: %w", err)
	}

	service.send(ctx, entry, issued.Token)
	service.observe(EventJoin, true)
	ctxutil.GetLogger(ctx).InfoContext(ctx, "waitlist_joined", slog.String("entry_id", entry.ID))

	view := ToView(entry)
	return &view, nil
}

/*
Verify confirms the pending verification of the entry with email.

Parameters:
  - ctx: context.Context
  - email: string
  - token: string

Returns:
  - bool: true if the email had been verified before
  - error: ValidationError, NotFound, InvalidVerificationLink or VerificationLinkExpired
*/
func (service *Service) Verify(ctx context.Context, email, token string) (bool, error) {
	email = validate.NormalizeEmail(email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).Required(FieldToken, token)
	if err := validator.Err(); err != nil {
		service.observe(EventVerify, false)
		return false, err
	}

	entry, err := service.entries.FindByEmail(ctx, email)
	if err != nil {
		service.observe(EventVerify, false)
		if apperr.IsNotFound(err) {
			return false, apperr.NotFound(resourcePendingVerification)
		}
		return false, fmt.Errorf("waitlist_service_verify_lookup_failed: %w", err)
	}

	if entry.IsVerified() {
		return true, nil
	}

	if entry.VerificationTokenHash == nil || entry.VerificationExpiry == nil {
		service.observe(EventVerify, false)
		return false, apperr.NotFound(resourcePendingVerification)
	}

	if err := service.verifications.Check(token, *entry.VerificationTokenHash, *entry.VerificationExpiry); err != nil {
		service.observe(EventVerify, false)
		if errors.Is(err, sec.ErrVerificationExpired) {
			return false, apperr.VerificationLinkExpired()
		}
		return false, apperr.InvalidVerificationLink()
	}

	transitioned, err := service.entries.MarkVerified(ctx, entry.ID, *entry.VerificationTokenHash, service.clock.Now())
	if err != nil {
		service.observe(EventVerify, false)
		return false, fmt.Errorf("waitlist_service_mark_verified_failed: %w", err)
	}
	if !transitioned {
		service.observe(EventVerify, false)
		return false, apperr.InvalidVerificationLink()
	}

	service.observe(EventVerify, true)
	return false, nil
}

/*
Resend issues a new link for an unverified entry. Unknown and verified
emails succeed silently so the endpoint cannot be used to probe the list.

Parameters:
  - ctx: context.Context
  - email: string

Returns:
  - error: ValidationError or internal failures
*/
func (service *Service) Resend(ctx context.Context, email string) error {
	email = validate.NormalizeEmail(email)

	validator := &validate.Validator{}
	if err := validator.Required(FieldEmail, email).Email(FieldEmail, email).Err(); err != nil {
		return err
	}

	entry, err := service.entries.FindByEmail(ctx, email)
	if apperr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		service.observe(EventResend, false)
		return fmt.Errorf("waitlist_service_resend_lookup_failed: %w", err)
	}
	if entry.IsVerified() {
		return nil
	}

	issued, err := service.verifications.Issue()
	if err != nil {
		service.observe(EventResend, false)
		return fmt.Errorf("waitlist_service_verification_token_failed: %w", err)
	}

	if err := service.entries.SetVerification(ctx, entry.ID, issued.Hash, issued.ExpiresAt); err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		service.observe(EventResend, false)
		return fmt.Errorf("waitlist_service_set_verification_failed: %w", err)
	}

	service.send(ctx, entry, issued.Token)
	service.observe(EventResend, true)
	return nil
}

/*
List returns a page of entries, newest first.

Parameters:
  - ctx: context.Context
  - params: pagination.Params

Returns:
  - []View: Page items, never nil
  - pagination.Meta: Page metadata
  - error: Execution failures
*/
func (service *Service) List(ctx context.Context, params pagination.Params) ([]View, pagination.Meta, error) {
	entries, total, err := service.entries.List(ctx, params)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("waitlist_service_list_failed: %w", err)
	}

	views := slice.Map(entries, ToView)
	if views == nil {
		views = []View{}
	}
	return views, pagination.NewMeta(params.Page, params.Limit, total), nil
}

func (service *Service) send(ctx context.Context, entry *Entry, token string) {
	if service.sender == nil {
		return
	}
	service.sender.Dispatch(ctx, notify.Message{
		Kind:        notify.KindWaitlist,
		Destination: entry.Email,
		DisplayName: entry.Name,
		Token:       token,
	})
}

func (service *Service) observe(event string, succeeded bool) {
	if service.observer != nil {
		service.observer.ObserveAuth(event, succeeded)
	}
}
