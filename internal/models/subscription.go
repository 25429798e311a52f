// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package models

import (
	"strings"
	"time"
)

// Subscription represents one email opt-in attempt from the landing page.
// The normalized email is the natural key: resubmitting the same address
// updates location, IP, and timestamp fields instead of creating a
// duplicate row.
type Subscription struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	IPAddress         string    `json:"ip_address"`
	Country           string    `json:"country,omitempty"`
	CountryCode       string    `json:"country_code,omitempty"`
	City              string    `json:"city,omitempty"`
	Region            string    `json:"region,omitempty"`
	RegionCode        string    `json:"region_code,omitempty"`
	Timezone          string    `json:"timezone,omitempty"`
	Latitude          float64   `json:"latitude,omitempty"`
	Longitude         float64   `json:"longitude,omitempty"`
	LocationString    string    `json:"location_string,omitempty"`
	UserAgent         string    `json:"user_agent,omitempty"`
	Referer           string    `json:"referer,omitempty"`
	EntryPoint        string    `json:"entry_point,omitempty"`
	DeviceType        string    `json:"device_type,omitempty"`
	Browser           string    `json:"browser,omitempty"`
	OS                string    `json:"os,omitempty"`
	MailerliteGroupID string    `json:"mailerlite_group_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email address so that case and
// whitespace variants of the same address map onto one subscription row.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
