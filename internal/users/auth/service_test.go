// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/waitgate/internal/notify"
	"github.com/taibuivan/waitgate/internal/platform/apperr"
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/internal/users/auth"
	"github.com/taibuivan/waitgate/pkg/pointer"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var fastParams = sec.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type capturingSender struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (sender *capturingSender) Dispatch(_ context.Context, message notify.Message) {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	sender.messages = append(sender.messages, message)
}

func (sender *capturingSender) last(t *testing.T) notify.Message {
	t.Helper()
	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.NotEmpty(t, sender.messages)
	return sender.messages[len(sender.messages)-1]
}

type eventRecorder struct {
	mu     sync.Mutex
	events map[string][]bool
}

func (recorder *eventRecorder) ObserveAuth(event string, succeeded bool) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.events == nil {
		recorder.events = make(map[string][]bool)
	}
	recorder.events[event] = append(recorder.events[event], succeeded)
}

type harness struct {
	service  *auth.Service
	repo     *auth.MemoryIdentityRepository
	codec    *sec.TokenCodec
	clock    *clockwork.FakeClock
	sender   *capturingSender
	recorder *eventRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	codec, err := sec.NewTokenCodec(testSecret, "waitgate.test", time.Hour, clock)
	require.NoError(t, err)

	h := &harness{
		repo:     auth.NewMemoryIdentityRepository(clock),
		codec:    codec,
		clock:    clock,
		sender:   &capturingSender{},
		recorder: &eventRecorder{},
	}
	h.service = auth.NewService(auth.Deps{
		Identities:    h.repo,
		Passwords:     sec.NewHashPool(sec.NewArgon2idHasher(fastParams), 4, nil),
		Tokens:        codec,
		Verifications: sec.NewVerificationTokenManager(clock),
		Sender:        h.sender,
		Observer:      h.recorder,
		Clock:         clock,
	})
	return h
}

func (h *harness) register(t *testing.T, username, password string) *auth.Session {
	t.Helper()
	session, err := h.service.Register(context.Background(), auth.Credentials{Username: username, Password: password})
	require.NoError(t, err)
	return session
}

/*
TestService_Register_NormalizesAndIssuesPair checks the stored username, the
default role and that the issued tokens verify.
*/
func TestService_Register_NormalizesAndIssuesPair(t *testing.T) {
	h := newHarness(t)

	session := h.register(t, "  Test@Example.COM ", "secret123")

	assert.Equal(t, "test@example.com", session.User.Username)
	assert.Equal(t, sec.RoleUser.String(), session.User.Role)
	assert.False(t, session.User.EmailVerified)

	claims, err := h.codec.VerifyAccess(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, "test@example.com", claims.Username)

	subject, err := h.codec.VerifyRefresh(session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, subject)

	stored, err := h.repo.FindByUsername(context.Background(), "test@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))
	require.NotNil(t, stored.VerificationTokenHash)

	message := h.sender.last(t)
	assert.Equal(t, notify.KindIdentity, message.Kind)
	assert.Equal(t, "test@example.com", message.Destination)
	assert.Equal(t, sec.HashToken(message.Token), *stored.VerificationTokenHash)
	assert.Equal(t, h.clock.Now().Add(sec.VerificationTokenTTL), *stored.VerificationExpiry)
}

/*
TestService_Register_Validation covers the password policy and the username shape.
*/
func TestService_Register_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"five characters", "a@example.com", "12345", true},
		{"six characters", "b@example.com", "123456", false},
		{"very long password", "c@example.com", strings.Repeat("x", 1000), false},
		{"six multibyte characters", "d@example.com", "пароль", false},
		{"six spaces", "e@example.com", "      ", false},
		{"empty password", "f@example.com", "", true},
		{"not an email", "not-an-email", "secret123", true},
		{"empty username", "", "secret123", true},
		{"unicode domain", "user@bücher.de", "secret123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.service.Register(context.Background(), auth.Credentials{Username: tt.username, Password: tt.password})
			if tt.wantErr {
				require.Error(t, err)
				appErr := apperr.As(err)
				require.NotNil(t, appErr)
				assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
				assert.Equal(t, "Invalid input", appErr.Message)
				return
			}
			require.NoError(t, err)
		})
	}
}

/*
TestService_Register_ConcurrentDuplicates races registrations of one username
that differ only in case and expects exactly one winner.
*/
func TestService_Register_ConcurrentDuplicates(t *testing.T) {
	h := newHarness(t)

	const attempts = 8
	variants := []string{"race@example.com", "RACE@example.com", "Race@Example.com", " race@EXAMPLE.com"}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	start := make(chan struct{})

	for i := range attempts {
		wg.Add(1)
		go func(username string) {
			defer wg.Done()
			<-start
			_, err := h.service.Register(context.Background(), auth.Credentials{Username: username, Password: "secret123"})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperr.IsCode(err, "CONFLICT"):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(variants[i%len(variants)])
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)
}

/*
TestService_Register_Duplicate returns the conflict message.
*/
func TestService_Register_Duplicate(t *testing.T) {
	h := newHarness(t)
	h.register(t, "dup@example.com", "secret123")

	_, err := h.service.Register(context.Background(), auth.Credentials{Username: "DUP@example.com", Password: "other-pass"})
	require.Error(t, err)
	assert.Equal(t, auth.MessageUserExists, err.Error())
	assert.Equal(t, 409, apperr.As(err).HTTPStatus)
	assert.Equal(t, []bool{true, false}, h.recorder.events[auth.EventRegister])
}

/*
TestService_Login covers success in any case and the identical failure for
an unknown username and a wrong password.
*/
func TestService_Login(t *testing.T) {
	h := newHarness(t)
	registered := h.register(t, "login@example.com", "secret123")

	session, err := h.service.Login(context.Background(), auth.Credentials{Username: "LOGIN@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)

	_, wrongPassword := h.service.Login(context.Background(), auth.Credentials{Username: "login@example.com", Password: "wrong-pass"})
	_, unknownUser := h.service.Login(context.Background(), auth.Credentials{Username: "ghost@example.com", Password: "secret123"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, apperr.As(wrongPassword), apperr.As(unknownUser))
	assert.Equal(t, auth.MessageInvalidCredentials, wrongPassword.Error())
	assert.Equal(t, 401, apperr.As(unknownUser).HTTPStatus)
}

/*
TestService_Refresh_UsesCurrentRole reloads the identity so a promotion shows
up in the next access token.
*/
func TestService_Refresh_UsesCurrentRole(t *testing.T) {
	h := newHarness(t)
	registered := h.register(t, "promote@example.com", "secret123")

	claims, err := h.codec.VerifyAccess(registered.AccessToken)
	require.NoError(t, err)

	_, err = h.repo.Update(context.Background(), registered.User.ID, auth.Patch{Role: pointer.To(sec.RoleAdmin)})
	require.NoError(t, err)

	session, err := h.service.Refresh(context.Background(), claims)
	require.NoError(t, err)

	refreshed, err := h.codec.VerifyAccess(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdmin.String(), refreshed.Role)
}

/*
TestService_RefreshWithToken accepts only refresh tokens of existing identities.
*/
func TestService_RefreshWithToken(t *testing.T) {
	h := newHarness(t)
	registered := h.register(t, "rotate@example.com", "secret123")

	orphan, _, err := h.codec.IssueRefreshToken("0190d6a2-0000-7000-8000-000000000000")
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"refresh token", registered.RefreshToken, false},
		{"access token", registered.AccessToken, true},
		{"garbage", "not-a-token", true},
		{"deleted identity", orphan, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := h.service.RefreshWithToken(context.Background(), tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, auth.MessageInvalidToken, err.Error())
				assert.Equal(t, 401, apperr.As(err).HTTPStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, registered.User.ID, session.User.ID)
		})
	}
}

/*
TestService_VerifyEmail walks the verification state machine.
*/
func TestService_VerifyEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		token    func(real string) string
		advance  time.Duration
		wantCode string
	}{
		{"valid", "verify@example.com", func(real string) string { return real }, 0, ""},
		{"email in other case", "VERIFY@example.com", func(real string) string { return real }, 0, ""},
		{"wrong token", "verify@example.com", func(string) string { return strings.Repeat("0", 64) }, 0, "INVALID_VERIFICATION"},
		{"expired", "verify@example.com", func(real string) string { return real }, 25 * time.Hour, "VERIFICATION_EXPIRED"},
		{"expired and wrong", "verify@example.com", func(string) string { return "nope" }, 25 * time.Hour, "INVALID_VERIFICATION"},
		{"unknown email", "nobody@example.com", func(real string) string { return real }, 0, "NOT_FOUND"},
		{"missing token", "verify@example.com", func(string) string { return "" }, 0, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.register(t, "verify@example.com", "secret123")
			token := h.sender.last(t).Token
			h.clock.Advance(tt.advance)

			result, err := h.service.VerifyEmail(context.Background(), tt.email, tt.token(token))
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperr.As(err).Code)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, auth.Verified, result)

			stored, err := h.repo.FindByUsername(context.Background(), "verify@example.com")
			require.NoError(t, err)
			assert.True(t, stored.IsVerified())
			assert.Nil(t, stored.VerificationTokenHash)
		})
	}
}

/*
TestService_VerifyEmail_Twice reports the second confirmation as already verified.
*/
func TestService_VerifyEmail_Twice(t *testing.T) {
	h := newHarness(t)
	h.register(t, "twice@example.com", "secret123")
	token := h.sender.last(t).Token

	_, err := h.service.VerifyEmail(context.Background(), "twice@example.com", token)
	require.NoError(t, err)

	result, err := h.service.VerifyEmail(context.Background(), "twice@example.com", token)
	require.NoError(t, err)
	assert.Equal(t, auth.AlreadyVerified, result)
}

/*
TestService_ResendVerification invalidates the previous link.
*/
func TestService_ResendVerification(t *testing.T) {
	h := newHarness(t)
	registered := h.register(t, "resend@example.com", "secret123")
	first := h.sender.last(t).Token

	require.NoError(t, h.service.ResendVerification(context.Background(), registered.User.ID))
	second := h.sender.last(t).Token
	assert.NotEqual(t, first, second)

	_, err := h.service.VerifyEmail(context.Background(), "resend@example.com", first)
	assert.True(t, apperr.IsCode(err, "INVALID_VERIFICATION"))

	_, err = h.service.VerifyEmail(context.Background(), "resend@example.com", second)
	require.NoError(t, err)

	err = h.service.ResendVerification(context.Background(), registered.User.ID)
	assert.True(t, apperr.IsCode(err, "ALREADY_VERIFIED"))
}

type countingHasher struct {
	auth.PasswordHasher
	hashes   atomic.Int32
	verifies atomic.Int32
}

func (hasher *countingHasher) Hash(ctx context.Context, password string) (string, error) {
	hasher.hashes.Add(1)
	return hasher.PasswordHasher.Hash(ctx, password)
}

func (hasher *countingHasher) Verify(ctx context.Context, password, encoded string) (bool, error) {
	hasher.verifies.Add(1)
	return hasher.PasswordHasher.Verify(ctx, password, encoded)
}

/*
TestService_Login_UnknownUserCostsOneVerify prepares the timing-parity hash at
construction, so every unknown-user login runs exactly one verification.
*/
func TestService_Login_UnknownUserCostsOneVerify(t *testing.T) {
	clock := clockwork.NewFakeClock()
	codec, err := sec.NewTokenCodec(testSecret, "waitgate.test", time.Hour, clock)
	require.NoError(t, err)

	hasher := &countingHasher{PasswordHasher: sec.NewHashPool(sec.NewArgon2idHasher(fastParams), 2, nil)}
	service := auth.NewService(auth.Deps{
		Identities: auth.NewMemoryIdentityRepository(clock),
		Passwords:  hasher,
		Tokens:     codec,
		Clock:      clock,
	})
	assert.EqualValues(t, 1, hasher.hashes.Load())

	for range 3 {
		_, err := service.Login(context.Background(), auth.Credentials{Username: "ghost@example.com", Password: "secret123"})
		assert.Equal(t, auth.MessageInvalidCredentials, err.Error())
	}

	assert.EqualValues(t, 1, hasher.hashes.Load())
	assert.EqualValues(t, 3, hasher.verifies.Load())
}
