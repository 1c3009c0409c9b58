// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// MinPasswordLength is the minimum number of characters in a password.
const MinPasswordLength = 8

// Violation identifies one failed password rule.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Password rules, in the order they are reported.
var (
	ViolationTooShort      = Violation{Rule: "too_short", Message: "password must be at least 8 characters long"}
	ViolationMissingUpper  = Violation{Rule: "missing_upper", Message: "password must contain at least one uppercase letter"}
	ViolationMissingLower  = Violation{Rule: "missing_lower", Message: "password must contain at least one lowercase letter"}
	ViolationMissingDigit  = Violation{Rule: "missing_digit", Message: "password must contain at least one number (0-9)"}
	ViolationMissingSymbol = Violation{Rule: "missing_symbol", Message: "password must contain at least one special character"}
)

// ValidatePassword checks password against every complexity rule and
// returns all violations. An empty result means the password is acceptable.
func ValidatePassword(password string) []Violation {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		default:
			hasSymbol = true
			if unicode.IsUpper(r) {
				hasUpper = true
			}
			if unicode.IsLower(r) {
				hasLower = true
			}
		}
	}

	var violations []Violation
	if utf8.RuneCountInString(password) < MinPasswordLength {
		violations = append(violations, ViolationTooShort)
	}
	if !hasUpper {
		violations = append(violations, ViolationMissingUpper)
	}
	if !hasLower {
		violations = append(violations, ViolationMissingLower)
	}
	if !hasDigit {
		violations = append(violations, ViolationMissingDigit)
	}
	if !hasSymbol {
		violations = append(violations, ViolationMissingSymbol)
	}
	return violations
}

// CheckPassword returns a validation error listing every violation, or nil.
func CheckPassword(password string) error {
	violations := ValidatePassword(password)
	if len(violations) == 0 {
		return nil
	}
	return oops.Code("AUTH_WEAK_PASSWORD").
		With("violations", violations).
		Wrapf(ErrValidation, "password does not meet complexity requirements")
}

// Violations extracts the password violations carried by err, if any.
func Violations(err error) []Violation {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	v, _ := oopsErr.Context()["violations"].([]Violation)
	return v
}
