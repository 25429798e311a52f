// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package validation provides request validation using go-playground/validator
// v10 behind a thread-safe singleton, plus the lead-email syntax check used
// by the subscription endpoint.
//
// The email rule is deliberately a simple shape check (local@domain.tld with
// a 2+ letter TLD), not RFC 5322: the landing page only needs to reject
// obvious typos before handing the address to the mailing-list provider.
package validation

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// leadEmailPattern is the syntax gate for submitted emails. Rejects a
// missing "@", empty local or domain parts, and single-character TLDs.
var leadEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[A-Za-z]{2,}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// instance returns the singleton validator, creating it on first use.
func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// lead_email mirrors the Email helper for struct-tag use.
		_ = validate.RegisterValidation("lead_email", func(fl validator.FieldLevel) bool {
			return Email(fl.Field().String())
		})
	})
	return validate
}

// Email reports whether the address passes the lead-email syntax check.
// The address is trimmed before matching; normalization for storage is the
// caller's concern.
func Email(address string) bool {
	return leadEmailPattern.MatchString(strings.TrimSpace(address))
}

// ValidateStruct validates a struct using its `validate` tags. Returns nil
// when validation passes.
func ValidateStruct(v interface{}) error {
	return instance().Struct(v)
}
