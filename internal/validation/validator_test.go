// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{"plain address", "client@maison.com", true},
		{"subdomain", "vip@list.maison.co.uk", true},
		{"plus tag", "style+launch@example.org", true},
		{"surrounding whitespace", "  client@maison.com  ", true},
		{"missing at sign", "clientmaison.com", false},
		{"empty string", "", false},
		{"empty local part", "@maison.com", false},
		{"empty domain part", "client@", false},
		{"domain without dot", "client@maison", false},
		{"single character tld", "client@maison.c", false},
		{"dot directly after at", "client@.com", false},
		{"spaces inside", "cli ent@maison.com", false},
		{"double at", "a@b@maison.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Email(tt.email), "email %q", tt.email)
		})
	}
}

func TestValidateStructLeadEmailTag(t *testing.T) {
	type form struct {
		Email string `validate:"required,lead_email"`
	}

	assert.NoError(t, ValidateStruct(&form{Email: "client@maison.com"}))
	assert.Error(t, ValidateStruct(&form{Email: "client@maison.c"}))
	assert.Error(t, ValidateStruct(&form{Email: ""}))
}
