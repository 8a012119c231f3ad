// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// # Credential Hashing

// HashParams tunes the argon2id cost. Every encoded hash embeds the parameters
// it was produced with, so changing them never invalidates stored credentials.
type HashParams struct {
	// Memory is the memory cost in KiB.
	Memory uint32
	// Iterations is the number of passes over memory.
	Iterations uint32
	// Parallelism is the number of lanes.
	Parallelism uint8
	// SaltLength is the per-hash random salt size in bytes.
	SaltLength uint32
	// KeyLength is the derived key size in bytes.
	KeyLength uint32
}

// DefaultHashParams returns the OWASP-recommended argon2id baseline
// (64 MiB, 1 pass, 4 lanes).
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:      64 * 1024,
		Iterations:  1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher produces and checks salted credential hashes.
type PasswordHasher interface {
	// Hash returns an encoded hash with a fresh random salt.
	Hash(password string) (string, error)

	// Verify reports whether password matches encoded. Malformed input
	// yields false, never an error or panic.
	Verify(password, encoded string) bool
}

// Argon2idHasher implements [PasswordHasher] with argon2id in PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// There is no input length ceiling; every byte of the password contributes
// to the derived key.
type Argon2idHasher struct {
	params HashParams
}

// NewArgon2idHasher creates a hasher with the given parameters. Zero fields
// fall back to [DefaultHashParams].
func NewArgon2idHasher(params HashParams) *Argon2idHasher {
	defaults := DefaultHashParams()
	if params.Memory == 0 {
		params.Memory = defaults.Memory
	}
	if params.Iterations == 0 {
		params.Iterations = defaults.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = defaults.Parallelism
	}
	if params.SaltLength == 0 {
		params.SaltLength = defaults.SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = defaults.KeyLength
	}
	return &Argon2idHasher{params: params}
}

// Hash produces an argon2id hash of the password.
func (hasher *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, hasher.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt,
		hasher.params.Iterations, hasher.params.Memory, hasher.params.Parallelism, hasher.params.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		hasher.params.Memory,
		hasher.params.Iterations,
		hasher.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters embedded in encoded and
// compares it in constant time.
func (hasher *Argon2idHasher) Verify(password, encoded string) bool {
	decoded, err := decodeArgon2id(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), decoded.salt,
		decoded.params.Iterations, decoded.params.Memory, decoded.params.Parallelism, uint32(len(decoded.key)))

	return subtle.ConstantTimeCompare(computed, decoded.key) == 1
}

type decodedHash struct {
	params HashParams
	salt   []byte
	key    []byte
}

// maxDecodedMemory bounds the memory cost accepted from a stored record (4 GiB).
const maxDecodedMemory = 4 * 1024 * 1024

// decodeArgon2id parses a PHC string. Any structural problem is reported as
// AUTH_INVALID_HASH.
func decodeArgon2id(encoded string) (*decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// argon2.IDKey panics on zero passes or lanes.
	if iterations < 1 || threads < 1 || threads > 255 || memory < 1 || memory > maxDecodedMemory {
		return nil, oops.Code("AUTH_INVALID_HASH").
			With("memory", memory, "iterations", iterations, "threads", threads).
			Errorf("hash parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid salt encoding")
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > 1024 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid key encoding")
	}

	return &decodedHash{
		params: HashParams{
			Memory:      memory,
			Iterations:  iterations,
			Parallelism: uint8(threads),
		},
		salt: salt,
		key:  key,
	}, nil
}
