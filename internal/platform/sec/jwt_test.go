// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/waitgate/internal/platform/sec"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newCodec(t *testing.T, clock clockwork.Clock) *sec.TokenCodec {
	t.Helper()
	codec, err := sec.NewTokenCodec(testSecret, "waitgate.test", time.Hour, clock)
	require.NoError(t, err)
	return codec
}

/*
TestTokenCodec_WeakSecret verifies that short secrets are rejected at construction.
*/
func TestTokenCodec_WeakSecret(t *testing.T) {
	_, err := sec.NewTokenCodec("too-short", "waitgate.test", time.Hour, nil)
	require.Error(t, err)
}

/*
TestTokenCodec_AccessRoundTrip checks that claims survive issuance and verification.
*/
func TestTokenCodec_AccessRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClock()
	codec := newCodec(t, clock)

	token, expiresAt, err := codec.IssueAccessToken(sec.Subject{ID: "id-1", Username: "a@example.com", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), expiresAt)

	claims, err := codec.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.UserID)
	assert.Equal(t, "id-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, sec.TokenTypeAccess, claims.TokenType)
}

/*
TestTokenCodec_AccessExpiry verifies the token stops verifying once the TTL elapses.
*/
func TestTokenCodec_AccessExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	codec := newCodec(t, clock)

	token, _, err := codec.IssueAccessToken(sec.Subject{ID: "id-1"})
	require.NoError(t, err)

	clock.Advance(time.Hour - time.Second)
	_, err = codec.VerifyAccess(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = codec.VerifyAccess(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sec.ErrInvalidToken))
}

/*
TestTokenCodec_RefreshLifetime checks the fixed seven-day refresh window.
*/
func TestTokenCodec_RefreshLifetime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	codec := newCodec(t, clock)

	pair, err := codec.IssuePair(sec.Subject{ID: "id-2", Username: "b@example.com", Role: "user"})
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(sec.RefreshTokenTTL), pair.RefreshExpiresAt)

	clock.Advance(6 * 24 * time.Hour)
	subjectID, err := codec.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "id-2", subjectID)

	// The access token expired long ago.
	_, err = codec.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	clock.Advance(2 * 24 * time.Hour)
	_, err = codec.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestTokenCodec_RejectsUntrusted collapses every failure mode into ErrInvalidToken.
*/
func TestTokenCodec_RejectsUntrusted(t *testing.T) {
	clock := clockwork.NewFakeClock()
	codec := newCodec(t, clock)

	pair, err := codec.IssuePair(sec.Subject{ID: "id-3", Role: "user"})
	require.NoError(t, err)

	otherCodec, err := sec.NewTokenCodec(strings.Repeat("z", 32), "waitgate.test", time.Hour, clock)
	require.NoError(t, err)
	forged, _, err := otherCodec.IssueAccessToken(sec.Subject{ID: "id-3", Role: "admin"})
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "id-3", "uid": "id-3", "typ": "access", "iss": "waitgate.test",
		"exp": clock.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		verify func() error
	}{
		{"garbage", func() error { _, err := codec.VerifyAccess("not.a.token"); return err }},
		{"empty", func() error { _, err := codec.VerifyAccess(""); return err }},
		{"forged_signature", func() error { _, err := codec.VerifyAccess(forged); return err }},
		{"alg_none", func() error { _, err := codec.VerifyAccess(noneToken); return err }},
		{"refresh_as_access", func() error { _, err := codec.VerifyAccess(pair.RefreshToken); return err }},
		{"access_as_refresh", func() error { _, err := codec.VerifyRefresh(pair.AccessToken); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verify()
			require.Error(t, err)
			assert.ErrorIs(t, err, sec.ErrInvalidToken)
		})
	}
}
