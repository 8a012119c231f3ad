// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// WaitlistEntryTable represents the 'waitlist_entries' table
type WaitlistEntryTable struct {
	Table                 string
	EmailKey              string
	ID                    string
	Name                  string
	Email                 string
	Interests             string
	EmailVerifiedAt       string
	VerificationTokenHash string
	VerificationExpiresAt string
	CreatedAt             string
}

// WaitlistEntry is the schema definition for waitlist_entries
var WaitlistEntry = WaitlistEntryTable{
	Table:                 "waitlist_entries",
	EmailKey:              "waitlist_entries_email_key",
	ID:                    "id",
	Name:                  "name",
	Email:                 "email",
	Interests:             "interests",
	EmailVerifiedAt:       "email_verified_at",
	VerificationTokenHash: "verification_token_hash",
	VerificationExpiresAt: "verification_expires_at",
	CreatedAt:             "created_at",
}

// Columns returns all standard column names, in scan order
func (t WaitlistEntryTable) Columns() []string {
	return []string{
		t.ID, t.Name, t.Email, t.Interests, t.EmailVerifiedAt,
		t.VerificationTokenHash, t.VerificationExpiresAt, t.CreatedAt,
	}
}
