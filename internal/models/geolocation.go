// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package models defines the core data types shared across the Vitrine
// subsystems: subscriptions, visitors, geolocation records, device
// classification results, and IP labels.
package models

import "strings"

// Geolocation holds a best-effort location record for an IP address.
// Every field is optional; a lookup failure yields a nil *Geolocation
// rather than a partially trusted one.
type Geolocation struct {
	IPAddress   string  `json:"ip_address"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	City        string  `json:"city,omitempty"`
	Region      string  `json:"region,omitempty"`
	RegionCode  string  `json:"region_code,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// LocationString composes a human-readable "City, Region, Country" string,
// skipping empty components. Returns "" when nothing is known.
func (g *Geolocation) LocationString() string {
	if g == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{g.City, g.Region, g.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// DeviceInfo is the result of coarse user-agent classification.
type DeviceInfo struct {
	Type    string `json:"type"`
	Browser string `json:"browser"`
	OS      string `json:"os"`
}
