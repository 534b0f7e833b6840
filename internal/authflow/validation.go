// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package authflow

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// # Form Validation
//
// The rules below run in a fixed order and stop at the first violation,
// so a form with several problems reports the same single message every
// time. No provider or database call happens for an invalid form.

const (
	maxEmailLen    = 255
	minPasswordLen = 6
	maxPasswordLen = 100
	minNameLen     = 2
	maxNameLen     = 100
	maxPhoneLen    = 20
)

// validateEmail checks the trimmed address against grammar and length.
func validateEmail(email string) string {
	trimmed := strings.TrimSpace(email)
	parsed, err := mail.ParseAddress(trimmed)
	if err != nil || parsed.Address != trimmed {
		// Rejects display-name forms like "Leyla <leyla@example.com>".
		return "Please enter a valid email address"
	}
	if utf8.RuneCountInString(trimmed) > maxEmailLen {
		return "Email is too long"
	}
	return ""
}

// validatePassword checks the password bounds. The password is never trimmed.
// Bounds count Unicode characters, not bytes, so "qarabağ" is 7 characters.
func validatePassword(password string) string {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return "Password must be at least 6 characters"
	}
	if utf8.RuneCountInString(password) > maxPasswordLen {
		return "Password is too long"
	}
	return ""
}

// ValidateCredentials runs the login-form checks: email, then password.
// It returns the first violation message, or "" when the form is valid.
func ValidateCredentials(email, password string) string {
	if msg := validateEmail(email); msg != "" {
		return msg
	}
	return validatePassword(password)
}

// ValidateRegistration runs the registration-form checks in order: email,
// password, full name, phone, then the farmer-only fields. The phone is
// optional and only checked when present. It returns the first violation
// message, or "" when the form is valid.
func ValidateRegistration(form *RegisterForm) string {
	if msg := ValidateCredentials(form.Email, form.Password); msg != "" {
		return msg
	}

	name := strings.TrimSpace(form.FullName)
	if utf8.RuneCountInString(name) < minNameLen {
		return "Name must be at least 2 characters"
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Name is too long"
	}

	if phone := strings.TrimSpace(form.Phone); utf8.RuneCountInString(phone) > maxPhoneLen {
		return "Phone number is too long"
	}

	if form.Role == roleFarmer {
		if strings.TrimSpace(form.FarmName) == "" {
			return "Farm name is required"
		}
		if strings.TrimSpace(form.FarmLocation) == "" {
			return "Farm location is required"
		}
	}

	return ""
}
