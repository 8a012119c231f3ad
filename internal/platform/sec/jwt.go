// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (credential hashing, JWT
// signing, one-time verification tokens) from the domain logic. Services
// receive these primitives through constructors and never touch key material
// directly.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/samber/oops"
)

// # Token Types

const (
	// TokenTypeAccess marks a short-lived bearer token.
	TokenTypeAccess = "access"

	// TokenTypeRefresh marks a token that can only be exchanged for a new pair.
	TokenTypeRefresh = "refresh"

	// DefaultAccessTokenTTL applies when no TTL is configured.
	DefaultAccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is fixed and not configurable.
	RefreshTokenTTL = 7 * 24 * time.Hour

	// MinSecretLength is the smallest accepted HMAC secret, in bytes.
	MinSecretLength = 32
)

// ErrInvalidToken is the single failure reported for any bearer token that
// cannot be trusted. Expired, forged, malformed and wrong-type tokens are
// indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrWeakSecret is returned at construction when the signing secret is too short.
var ErrWeakSecret = oops.Code("AUTH_WEAK_SECRET").Errorf("jwt secret must be at least %d bytes", MinSecretLength)

// AuthClaims represents the payload embedded inside a signed token.
//
// Custom claims are abbreviated to keep the token small. The middleware
// rebuilds the caller identity from these fields without a store lookup.
type AuthClaims struct {
	jwt.RegisteredClaims

	UserID    string `json:"uid"`
	Username  string `json:"unm,omitempty"`
	Role      string `json:"rol,omitempty"`
	TokenType string `json:"typ"`
}

// Subject is the identity a token is issued for.
type Subject struct {
	ID       string
	Username string
	Role     string
}

// TokenPair is the credential set handed to a client after authentication.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// TokenCodec issues and verifies HS256 tokens.
type TokenCodec struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	clock     clockwork.Clock
	parser    *jwt.Parser
}

// NewTokenCodec validates the secret and builds a codec. A nil clock uses
// the wall clock; a non-positive accessTTL uses [DefaultAccessTokenTTL].
func NewTokenCodec(secret, issuer string, accessTTL time.Duration, clock clockwork.Clock) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &TokenCodec{
		secret:    []byte(secret),
		issuer:    issuer,
		accessTTL: accessTTL,
		clock:     clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(clock.Now),
		),
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (codec *TokenCodec) AccessTTL() time.Duration {
	return codec.accessTTL
}

// IssueAccessToken signs an access token for subject.
func (codec *TokenCodec) IssueAccessToken(subject Subject) (string, time.Time, error) {
	return codec.sign(AuthClaims{
		UserID:    subject.ID,
		Username:  subject.Username,
		Role:      subject.Role,
		TokenType: TokenTypeAccess,
	}, codec.accessTTL)
}

// IssueRefreshToken signs a refresh token carrying only the subject ID.
func (codec *TokenCodec) IssueRefreshToken(subjectID string) (string, time.Time, error) {
	return codec.sign(AuthClaims{
		UserID:    subjectID,
		TokenType: TokenTypeRefresh,
	}, RefreshTokenTTL)
}

// IssuePair signs a fresh access and refresh token for subject.
func (codec *TokenCodec) IssuePair(subject Subject) (*TokenPair, error) {
	accessToken, accessExpiry, err := codec.IssueAccessToken(subject)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExpiry, err := codec.IssueRefreshToken(subject.ID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresAt:        accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// VerifyAccess checks an access token and returns its claims.
func (codec *TokenCodec) VerifyAccess(tokenString string) (*AuthClaims, error) {
	return codec.verify(tokenString, TokenTypeAccess)
}

// VerifyToken satisfies the middleware verifier contract; only access
// tokens are accepted as bearer credentials.
func (codec *TokenCodec) VerifyToken(tokenString string) (*AuthClaims, error) {
	return codec.VerifyAccess(tokenString)
}

// VerifyRefresh checks a refresh token and returns the subject ID.
func (codec *TokenCodec) VerifyRefresh(tokenString string) (string, error) {
	claims, err := codec.verify(tokenString, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (codec *TokenCodec) sign(claims AuthClaims, ttl time.Duration) (string, time.Time, error) {
	issuedAt := codec.clock.Now()
	expiresAt := issuedAt.Add(ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    codec.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_SIGN_FAILED").Wrap(err)
	}

	return signed, expiresAt, nil
}

func (codec *TokenCodec) verify(tokenString, expectedType string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := codec.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return codec.secret, nil
	})
	if err != nil {
		return nil, invalidToken(err)
	}

	if !token.Valid {
		return nil, invalidToken(errors.New("token not valid"))
	}

	if claims.TokenType != expectedType {
		return nil, invalidToken(fmt.Errorf("unexpected token type %q", claims.TokenType))
	}

	if claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, invalidToken(errors.New("subject mismatch"))
	}

	return claims, nil
}

// invalidToken keeps the cause for logs while exposing only [ErrInvalidToken].
func invalidToken(cause error) error {
	return oops.Code("AUTH_INVALID_TOKEN").Wrap(fmt.Errorf("%w: %w", ErrInvalidToken, cause))
}
