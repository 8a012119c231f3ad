// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Authentication Events

// Event names reported to the auth observer.
const (
	EventRegister = "register"
	EventLogin    = "login"
	EventRefresh  = "refresh"
	EventVerify   = "verify_email"
	EventResend   = "resend_verification"
)

// # Client Messages

const (
	// MessageUserExists is returned when the normalized username is taken.
	MessageUserExists = "User already exists"

	// MessageInvalidCredentials is the single login failure message.
	MessageInvalidCredentials = "Invalid credentials"

	// MessageInvalidToken is the single bearer/refresh failure message.
	MessageInvalidToken = "Invalid or expired token"

	MessageRegistered       = "Registration successful"
	MessageLoggedIn         = "Login successful"
	MessageTokenRefreshed   = "Token refreshed"
	MessageEmailVerified    = "Email verified"
	MessageAlreadyVerified  = "Email already verified"
	MessageVerificationSent = "Verification email sent"
)
