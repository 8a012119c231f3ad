// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/waitgate/internal/notify"
	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/internal/platform/ctxutil"
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/internal/platform/validate"
	"github.com/taibuivan/waitgate/pkg/uuid"
)

// # Contracts & Types

// PasswordHasher hashes and verifies credentials under a context.
// [sec.HashPool] satisfies it.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encoded string) (bool, error)
}

// TokenIssuer signs token pairs and validates refresh tokens.
// [sec.TokenCodec] satisfies it.
type TokenIssuer interface {
	IssuePair(subject sec.Subject) (*sec.TokenPair, error)
	VerifyRefresh(token string) (string, error)
}

// VerificationSender delivers verification links without blocking the caller.
// [notify.Dispatcher] satisfies it.
type VerificationSender interface {
	Dispatch(ctx context.Context, message notify.Message)
}

// Observer receives the outcome of every authentication event.
type Observer interface {
	ObserveAuth(event string, succeeded bool)
}

// Deps groups the collaborators of [Service].
type Deps struct {
	Identities    IdentityRepository
	Passwords     PasswordHasher
	Tokens        TokenIssuer
	Verifications *sec.VerificationTokenManager
	Sender        VerificationSender
	Observer      Observer
	Clock         clockwork.Clock
}

// Service implements registration, login, token refresh and email
// verification for identities.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed by the security team.
type Service struct {
	identities    IdentityRepository
	passwords     PasswordHasher
	tokens        TokenIssuer
	verifications *sec.VerificationTokenManager
	sender        VerificationSender
	observer      Observer
	clock         clockwork.Clock

	// dummyHash is verified against when the username is unknown so both
	// login failures cost one hash computation. It is computed up front.
	dummyHash string
	dummyErr  error
}

// NewService constructs a [Service]. A nil Clock uses the wall clock and a
// nil Observer records nothing.
func NewService(deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Verifications == nil {
		deps.Verifications = sec.NewVerificationTokenManager(deps.Clock)
	}

	service := &Service{
		identities:    deps.Identities,
		passwords:     deps.Passwords,
		tokens:        deps.Tokens,
		verifications: deps.Verifications,
		sender:        deps.Sender,
		observer:      deps.Observer,
		clock:         deps.Clock,
	}

	service.dummyHash, service.dummyErr = deps.Passwords.Hash(context.Background(), "waitgate-timing-parity")

	return service
}

// Credentials is the input of register and login.
type Credentials struct {
	Username string
	Password string
}

// Session is what a client receives after authenticating.
type Session struct {
	User View `json:"user"`
	sec.TokenPair
}

// # Registration Flow

/*
Register normalizes and validates credentials, then creates an unverified
identity with a pending verification token.

Description: Duplicates are detected only by the repository's unique
constraint, so concurrent registrations of one username yield exactly one
success. The verification link is dispatched in the background.

Parameters:
  - ctx: context.Context
  - input: Credentials

Returns:
  - *Session: Created identity with a fresh token pair
  - error: ValidationError, ErrUserExists or internal failures
*/
func (service *Service) Register(ctx context.Context, input Credentials) (*Session, error) {
	username := validate.NormalizeEmail(input.Username)

	validator := &validate.Validator{}
	validator.Required(FieldUsername, username).
		Email(FieldUsername, username).
		Present(FieldPassword, input.Password).
		Password(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		service.observe(EventRegister, false)
		return nil, err
	}

	passwordHash, err := service.passwords.Hash(ctx, input.Password)
	if err != nil {
		service.observe(EventRegister, false)
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	issued, err := service.verifications.Issue()
	if err != nil {
		service.observe(EventRegister, false)
		return nil, fmt.Errorf("auth_service_verification_token_failed: %w", err)
	}

	now := service.clock.Now()
	identity := &Identity{
		ID:                    uuid.New(),
		Username:              username,
		PasswordHash:          passwordHash,
		Role:                  sec.RoleUser,
		VerificationTokenHash: &issued.Hash,
		VerificationExpiry:    &issued.ExpiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	// The unique constraint is the only authority on duplicates.
	if err := service.identities.Create(ctx, identity); err != nil {
		service.observe(EventRegister, false)
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	session, err := service.issueSession(identity)
	if err != nil {
		service.observe(EventRegister, false)
		return nil, err
	}

	service.sendVerification(ctx, identity.Username, issued.Token)
	service.observe(EventRegister, true)

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_registered", slog.String("user_id", identity.ID))

	return session, nil
}

// # Authentication Flow

/*
Login verifies credentials and issues a token pair.

Description: An unknown username and a wrong password fail with the same
[MessageInvalidCredentials] error after the same amount of hashing work.

Parameters:
  - ctx: context.Context
  - input: Credentials

Returns:
  - *Session: Authenticated identity with a fresh token pair
  - error: Unauthorized or internal failures
*/
func (service *Service) Login(ctx context.Context, input Credentials) (*Session, error) {
	username := validate.NormalizeEmail(input.Username)

	validator := &validate.Validator{}
	validator.Required(FieldUsername, username).
		Present(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		service.observe(EventLogin, false)
		return nil, err
	}

	identity, err := service.identities.FindByUsername(ctx, username)
	if err != nil && !apperr.IsNotFound(err) {
		service.observe(EventLogin, false)
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	encoded := service.dummyHash
	if identity != nil {
		encoded = identity.PasswordHash
	} else if service.dummyErr != nil {
		service.observe(EventLogin, false)
		return nil, fmt.Errorf("auth_service_dummy_hash_failed: %w", service.dummyErr)
	}

	matched, err := service.passwords.Verify(ctx, input.Password, encoded)
	if err != nil {
		service.observe(EventLogin, false)
		return nil, fmt.Errorf("auth_service_verify_failed: %w", err)
	}

	if identity == nil || !matched {
		service.observe(EventLogin, false)
		return nil, apperr.Unauthorized(MessageInvalidCredentials)
	}

	session, err := service.issueSession(identity)
	if err != nil {
		service.observe(EventLogin, false)
		return nil, err
	}

	service.observe(EventLogin, true)
	return session, nil
}

// # Session Management

/*
Refresh issues a new pair for the identity behind verified access claims.

Description: The identity is reloaded so the new access token carries its
current role.

Parameters:
  - ctx: context.Context
  - claims: *sec.AuthClaims

Returns:
  - *Session: Fresh token pair
  - error: Unauthorized if the identity no longer exists
*/
func (service *Service) Refresh(ctx context.Context, claims *sec.AuthClaims) (*Session, error) {
	if claims == nil {
		service.observe(EventRefresh, false)
		return nil, apperr.Unauthorized(MessageInvalidToken)
	}
	return service.refreshFor(ctx, claims.UserID)
}

/*
RefreshWithToken exchanges a refresh token for a new pair.

Parameters:
  - ctx: context.Context
  - refreshToken: string

Returns:
  - *Session: Fresh token pair
  - error: Unauthorized for any invalid, expired or wrong-type token
*/
func (service *Service) RefreshWithToken(ctx context.Context, refreshToken string) (*Session, error) {
	subjectID, err := service.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		service.observe(EventRefresh, false)
		return nil, apperr.Unauthorized(MessageInvalidToken).WithCause(err)
	}
	return service.refreshFor(ctx, subjectID)
}

func (service *Service) refreshFor(ctx context.Context, id string) (*Session, error) {
	identity, err := service.identities.FindByID(ctx, id)
	if err != nil {
		service.observe(EventRefresh, false)
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized(MessageInvalidToken)
		}
		return nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}

	session, err := service.issueSession(identity)
	if err != nil {
		service.observe(EventRefresh, false)
		return nil, err
	}

	service.observe(EventRefresh, true)
	return session, nil
}

// # Email Verification

// VerifyResult tells a verified request apart from a repeated one.
type VerifyResult int

const (
	// Verified means this request performed the transition.
	Verified VerifyResult = iota
	// AlreadyVerified means the email had been confirmed before.
	AlreadyVerified
)

/*
VerifyEmail confirms the pending verification of the identity with email.

Description: An unknown email or an identity without a pending token is
NotFound. A token that does not match is reported before an expired one.
The transition only applies while the presented token is still pending, so
two concurrent confirmations succeed at most once.

Parameters:
  - ctx: context.Context
  - email: string
  - token: string

Returns:
  - VerifyResult: Verified or AlreadyVerified
  - error: ValidationError, NotFound, InvalidVerificationLink or VerificationLinkExpired
*/
func (service *Service) VerifyEmail(ctx context.Context, email, token string) (VerifyResult, error) {
	username := validate.NormalizeEmail(email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, username).Required(FieldToken, token)
	if err := validator.Err(); err != nil {
		service.observe(EventVerify, false)
		return Verified, err
	}

	identity, err := service.identities.FindByUsername(ctx, username)
	if err != nil {
		service.observe(EventVerify, false)
		if apperr.IsNotFound(err) {
			return Verified, apperr.NotFound(resourcePendingVerification)
		}
		return Verified, fmt.Errorf("auth_service_verify_lookup_failed: %w", err)
	}

	if identity.IsVerified() {
		return AlreadyVerified, nil
	}

	if identity.VerificationTokenHash == nil || identity.VerificationExpiry == nil {
		service.observe(EventVerify, false)
		return Verified, apperr.NotFound(resourcePendingVerification)
	}

	if err := service.checkToken(token, *identity.VerificationTokenHash, *identity.VerificationExpiry); err != nil {
		service.observe(EventVerify, false)
		return Verified, err
	}

	transitioned, err := service.identities.MarkVerified(ctx, identity.ID, *identity.VerificationTokenHash, service.clock.Now())
	if err != nil {
		service.observe(EventVerify, false)
		return Verified, fmt.Errorf("auth_service_mark_verified_failed: %w", err)
	}
	if !transitioned {
		service.observe(EventVerify, false)
		return Verified, apperr.InvalidVerificationLink()
	}

	service.observe(EventVerify, true)
	ctxutil.GetLogger(ctx).InfoContext(ctx, "email_verified", slog.String("user_id", identity.ID))

	return Verified, nil
}

/*
ResendVerification replaces the pending token of an unverified identity and
sends a new link. The previous link stops working.

Parameters:
  - ctx: context.Context
  - id: string

Returns:
  - error: NotFound, ErrAlreadyVerified or internal failures
*/
func (service *Service) ResendVerification(ctx context.Context, id string) error {
	identity, err := service.identities.FindByID(ctx, id)
	if err != nil {
		service.observe(EventResend, false)
		if apperr.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("auth_service_resend_lookup_failed: %w", err)
	}

	if identity.IsVerified() {
		service.observe(EventResend, false)
		return ErrAlreadyVerified
	}

	issued, err := service.verifications.Issue()
	if err != nil {
		service.observe(EventResend, false)
		return fmt.Errorf("auth_service_verification_token_failed: %w", err)
	}

	if err := service.identities.SetVerification(ctx, identity.ID, issued.Hash, issued.ExpiresAt); err != nil {
		service.observe(EventResend, false)
		if apperr.IsNotFound(err) {
			// Verified between the lookup and the update.
			return ErrAlreadyVerified
		}
		return fmt.Errorf("auth_service_set_verification_failed: %w", err)
	}

	service.sendVerification(ctx, identity.Username, issued.Token)
	service.observe(EventResend, true)

	return nil
}

// # Helpers

func (service *Service) issueSession(identity *Identity) (*Session, error) {
	pair, err := service.tokens.IssuePair(identity.Subject())
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_issue_failed: %w", err)
	}
	return &Session{User: identity.View(), TokenPair: *pair}, nil
}

// checkToken maps the verification state machine onto client errors.
func (service *Service) checkToken(token, storedHash string, expiry time.Time) error {
	err := service.verifications.Check(token, storedHash, expiry)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sec.ErrVerificationExpired):
		return apperr.VerificationLinkExpired()
	default:
		return apperr.InvalidVerificationLink()
	}
}

func (service *Service) sendVerification(ctx context.Context, username, token string) {
	if service.sender == nil {
		return
	}
	service.sender.Dispatch(ctx, notify.Message{
		Kind:        notify.KindIdentity,
		Destination: username,
		DisplayName: username,
		Token:       token,
	})
}

func (service *Service) observe(event string, succeeded bool) {
	if service.observer != nil {
		service.observer.ObserveAuth(event, succeeded)
	}
}
