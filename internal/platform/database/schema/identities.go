// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// IdentityTable represents the 'identities' table
type IdentityTable struct {
	Table                 string
	UsernameKey           string
	ID                    string
	Username              string
	PasswordHash          string
	Role                  string
	EmailVerifiedAt       string
	VerificationTokenHash string
	VerificationExpiresAt string
	CreatedAt             string
	UpdatedAt             string
}

// Identity is the schema definition for identities
var Identity = IdentityTable{
	Table:                 "identities",
	UsernameKey:           "identities_username_key",
	ID:                    "id",
	Username:              "username",
	PasswordHash:          "password_hash",
	Role:                  "role",
	EmailVerifiedAt:       "email_verified_at",
	VerificationTokenHash: "verification_token_hash",
	VerificationExpiresAt: "verification_expires_at",
	CreatedAt:             "created_at",
	UpdatedAt:             "updated_at",
}

// Columns returns all standard column names, in scan order
func (t IdentityTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.PasswordHash, t.Role, t.EmailVerifiedAt,
		t.VerificationTokenHash, t.VerificationExpiresAt, t.CreatedAt, t.UpdatedAt,
	}
}
