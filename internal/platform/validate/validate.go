// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError], plus the input
// normalization shared by every identity-bearing request.
//
// # Architecture
//
// This package is used in the service layer. It ensures that business logic
// only operates on normalized, semantically valid data.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/waitgate/internal/platform/apperr"
)

// MinPasswordLength is the shortest accepted password, in characters. There
// is no upper bound.
const MinPasswordLength = 6

var (
	// emailRegex is intentionally permissive: one '@', no whitespace, a dot in the domain.
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// uuidRegex matches a UUIDv4 or UUIDv7 string.
	uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	// domainProfile checks that a mail domain has a valid ASCII form.
	domainProfile = idna.New(idna.MapForLookup(), idna.BidiRule())

	// ErrInvalidJSON is returned when the request body cannot be decoded,
	// including fields of the wrong JSON type.
	ErrInvalidJSON = apperr.ValidationError("Invalid input")
)

// # Normalization

// NormalizeEmail trims surrounding whitespace, applies Unicode NFC and
// lowercases the result. Two inputs that differ only in case or
// composition normalize to the same identity key.
func NormalizeEmail(raw string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(raw)))
}

// IsEmail reports whether value looks like an email address with a domain
// that has a valid IDNA form. Internationalized and punycode domains pass.
func IsEmail(value string) bool {
	if !emailRegex.MatchString(value) {
		return false
	}

	domain := value[strings.LastIndex(value, "@")+1:]
	_, err := domainProfile.ToASCII(domain)
	return err == nil
}

// # Validator

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// Present fails only if the value is empty. Whitespace counts, so it suits
// secrets such as passwords.
func (v *Validator) Present(field, value string) *Validator {
	if value == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// MinLen fails if the Unicode character count is below min.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, fmt.Sprintf("Minimum %d characters", min))
	}
	return v
}

// Email fails if the value is not a plausible email address. Callers pass
// the normalized form.
func (v *Validator) Email(field, value string) *Validator {
	if !IsEmail(value) {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// Password applies the password policy: at least [MinPasswordLength]
// characters, no maximum.
func (v *Validator) Password(field, value string) *Validator {
	return v.MinLen(field, value, MinPasswordLength)
}

// UUID fails if the value is not a valid UUID string (case-insensitive).
func (v *Validator) UUID(field, value string) *Validator {
	if !uuidRegex.MatchString(strings.ToLower(value)) {
		v.add(field, "Must be a valid UUID")
	}
	return v
}

// OneOf fails if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Custom adds a failure with a custom message if the condition is true.
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) with message
// "Invalid input" if any rules failed, or nil if all rules passed.
//
// This is the only output method. Call it at the end of the chain.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Invalid input", v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
