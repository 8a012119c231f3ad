// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/oops"
)

// # One-Time Verification Tokens

const (
	// VerificationTokenBytes is the entropy of a verification token.
	VerificationTokenBytes = 32

	// VerificationTokenTTL is how long an emailed link stays usable.
	VerificationTokenTTL = 24 * time.Hour
)

var (
	// ErrVerificationMismatch means the presented token does not match the pending one.
	ErrVerificationMismatch = errors.New("verification token mismatch")

	// ErrVerificationExpired means the token matched but its expiry has passed.
	ErrVerificationExpired = errors.New("verification token expired")
)

// GenerateSecureToken returns length random bytes, hex-encoded.
func GenerateSecureToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", oops.Code("AUTH_TOKEN_GENERATION_FAILED").Wrap(err)
	}
	return hex.EncodeToString(buffer), nil
}

// HashToken returns the hex SHA-256 digest of a token. Only this digest is
// ever persisted.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// IssuedToken is a freshly generated verification token. Token goes to the
// recipient; Hash and ExpiresAt go to storage.
type IssuedToken struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
}

// VerificationTokenManager issues and checks one-time email verification tokens.
type VerificationTokenManager struct {
	clock clockwork.Clock
	ttl   time.Duration
}

// NewVerificationTokenManager creates a manager. A nil clock uses the wall clock.
func NewVerificationTokenManager(clock clockwork.Clock) *VerificationTokenManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &VerificationTokenManager{clock: clock, ttl: VerificationTokenTTL}
}

// Generate returns a new plaintext token.
func (manager *VerificationTokenManager) Generate() (string, error) {
	return GenerateSecureToken(VerificationTokenBytes)
}

// ExpiryFromNow returns the expiry for a token issued now.
func (manager *VerificationTokenManager) ExpiryFromNow() time.Time {
	return manager.clock.Now().Add(manager.ttl)
}

// Hash digests a plaintext token for storage.
func (manager *VerificationTokenManager) Hash(plaintext string) string {
	return HashToken(plaintext)
}

// VerifyMatch compares the digest of plaintext against storedHash in
// constant time.
func (manager *VerificationTokenManager) VerifyMatch(plaintext, storedHash string) bool {
	if plaintext == "" || storedHash == "" {
		return false
	}

	candidate := HashToken(plaintext)
	if len(candidate) != len(storedHash) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}

// IsExpired reports whether now is past expiry.
func (manager *VerificationTokenManager) IsExpired(expiry time.Time) bool {
	return manager.clock.Now().After(expiry)
}

// Issue generates a token together with its digest and expiry.
func (manager *VerificationTokenManager) Issue() (*IssuedToken, error) {
	token, err := manager.Generate()
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		Token:     token,
		Hash:      manager.Hash(token),
		ExpiresAt: manager.ExpiryFromNow(),
	}, nil
}

// Check applies the verification state machine to a pending token. A
// mismatch is reported before expiry, so an expired link is only revealed
// to a holder of the correct token.
func (manager *VerificationTokenManager) Check(plaintext, storedHash string, expiry time.Time) error {
	if !manager.VerifyMatch(plaintext, storedHash) {
		return ErrVerificationMismatch
	}
	if manager.IsExpired(expiry) {
		return ErrVerificationExpired
	}
	return nil
}
