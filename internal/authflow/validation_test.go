// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package authflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farmmarket/api/internal/profile"
)

func validRegisterForm(role profile.Role) *RegisterForm {
	form := &RegisterForm{
		Email:    "leyla@example.com",
		Password: "secret123",
		FullName: "Leyla Mammadova",
		Role:     role,
	}
	if role == profile.RoleFarmer {
		form.FarmName = "Quba Orchards"
		form.FarmLocation = "Quba"
	}
	return form
}

func TestValidateCredentials(t *testing.T) {
	cases := []struct {
		name     string
		email    string
		password string
		want     string
	}{
		{"valid", "leyla@example.com", "secret123", ""},
		{"email trimmed before checking", "  leyla@example.com  ", "secret123", ""},
		{"malformed email", "not-an-email", "secret123", "Please enter a valid email address"},
		{"empty email", "", "secret123", "Please enter a valid email address"},
		{"display-name form rejected", "Leyla <leyla@example.com>", "secret123", "Please enter a valid email address"},
		{"email too long", strings.Repeat("a", 250) + "@example.com", "secret123", "Email is too long"},
		{"password too short", "leyla@example.com", "12345", "Password must be at least 6 characters"},
		{"password too long", "leyla@example.com", strings.Repeat("x", 101), "Password is too long"},
		// Multibyte passwords are measured in characters, not bytes.
		{"five multibyte characters rejected", "leyla@example.com", "əəəəə", "Password must be at least 6 characters"},
		{"six multibyte characters accepted", "leyla@example.com", "əəəəəə", ""},
		{"hundred multibyte characters accepted", "leyla@example.com", strings.Repeat("ş", 100), ""},
		{"email checked before password", "not-an-email", "12345", "Please enter a valid email address"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateCredentials(tc.email, tc.password))
		})
	}
}

func TestValidateRegistration(t *testing.T) {
	t.Run("accepts a complete customer form", func(t *testing.T) {
		assert.Empty(t, ValidateRegistration(validRegisterForm(profile.RoleCustomer)))
	})

	t.Run("accepts a complete farmer form", func(t *testing.T) {
		assert.Empty(t, ValidateRegistration(validRegisterForm(profile.RoleFarmer)))
	})

	t.Run("name too short", func(t *testing.T) {
		form := validRegisterForm(profile.RoleCustomer)
		form.FullName = " L "
		assert.Equal(t, "Name must be at least 2 characters", ValidateRegistration(form))
	})

	t.Run("name too long", func(t *testing.T) {
		form := validRegisterForm(profile.RoleCustomer)
		form.FullName = strings.Repeat("x", 101)
		assert.Equal(t, "Name is too long", ValidateRegistration(form))
	})

	t.Run("single multibyte character is still too short a name", func(t *testing.T) {
		form := validRegisterForm(profile.RoleCustomer)
		form.FullName = "Ə"
		assert.Equal(t, "Name must be at least 2 characters", ValidateRegistration(form))
	})

	t.Run("two multibyte characters make a valid name", func(t *testing.T) {
		form := validRegisterForm(profile.RoleCustomer)
		form.FullName = "Əli"
		assert.Empty(t, ValidateRegistration(form))
	})

	t.Run("hundred-character multibyte name accepted", func(t *testing.T) {
		form := validRegisterForm(profile.RoleCustomer)
		form.FullName = strings.Repeat("ü", 100)
		assert.Empty(t, ValidateRegistration(form))
	})

	t.Run("phone is optional", func(t *testing.T) {
		form := validRegisterForm(profile.RoleCustomer)
		form.Phone = ""
		assert.Empty(t, ValidateRegistration(form))
	})

	t.Run("phone too long", func(t *testing.T) {
		form := validRegisterForm(profile.RoleCustomer)
		form.Phone = strings.Repeat("9", 21)
		assert.Equal(t, "Phone number is too long", ValidateRegistration(form))
	})

	t.Run("phone length counts characters", func(t *testing.T) {
		form := validRegisterForm(profile.RoleCustomer)
		form.Phone = strings.Repeat("٩", 20) // Arabic-Indic digits, 2 bytes each
		assert.Empty(t, ValidateRegistration(form))
	})

	t.Run("farmer needs a farm name", func(t *testing.T) {
		form := validRegisterForm(profile.RoleFarmer)
		form.FarmName = "   "
		assert.Equal(t, "Farm name is required", ValidateRegistration(form))
	})

	t.Run("farmer needs a farm location", func(t *testing.T) {
		form := validRegisterForm(profile.RoleFarmer)
		form.FarmLocation = ""
		assert.Equal(t, "Farm location is required", ValidateRegistration(form))
	})

	t.Run("customer skips the farm checks", func(t *testing.T) {
		form := validRegisterForm(profile.RoleCustomer)
		form.FarmName = ""
		form.FarmLocation = ""
		assert.Empty(t, ValidateRegistration(form))
	})

	t.Run("reports only the first violation", func(t *testing.T) {
		form := validRegisterForm(profile.RoleFarmer)
		form.Password = "123"
		form.FullName = "x"
		form.FarmName = ""
		assert.Equal(t, "Password must be at least 6 characters", ValidateRegistration(form))
	})
}
