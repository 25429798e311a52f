// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package models

import "time"

// Visitor represents one browser session's aggregated activity. The session
// identifier is the natural key; each update increments the visit counter,
// recomputes the session duration, and merges the new page URL into the
// deduplicated visited-pages set.
type Visitor struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id"`
	IPAddress        string    `json:"ip_address"`
	Country          string    `json:"country,omitempty"`
	CountryCode      string    `json:"country_code,omitempty"`
	City             string    `json:"city,omitempty"`
	Region           string    `json:"region,omitempty"`
	Latitude         float64   `json:"latitude,omitempty"`
	Longitude        float64   `json:"longitude,omitempty"`
	Timezone         string    `json:"timezone,omitempty"`
	DeviceType       string    `json:"device_type,omitempty"`
	Browser          string    `json:"browser,omitempty"`
	OS               string    `json:"os,omitempty"`
	ScreenResolution string    `json:"screen_resolution,omitempty"`
	PagesVisited     []string  `json:"pages_visited"`
	VisitCount       int       `json:"visit_count"`
	UAETime          string    `json:"uae_time,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
	Referer          string    `json:"referer,omitempty"`
	EntryPoint       string    `json:"entry_point,omitempty"`
	SessionStart     time.Time `json:"session_start"`
	SessionDuration  int64     `json:"session_duration"`
	TotalSessionTime int64     `json:"total_session_time"`
	FirstVisit       time.Time `json:"first_visit"`
	LastVisit        time.Time `json:"last_visit"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Label is the operator-assigned tag for the visitor's IP, joined from
	// ip_labels on read. It is never written through this type.
	Label string `json:"label,omitempty"`
}

// IPLabel is an optional operator-assigned human-readable tag for an IP
// address. Vitrine reads these for notification context but never writes
// them; labels are maintained out of band.
type IPLabel struct {
	IPAddress string `json:"ip_address"`
	Label     string `json:"label"`
}

// MergePage returns the visited-pages set with page appended if it is not
// already present. The database upsert applies the same rule in SQL; this
// helper exists for callers that build a visitor snapshot without a
// round-trip to the store.
func MergePage(pages []string, page string) []string {
	if page == "" {
		return pages
	}
	for _, p := range pages {
		if p == page {
			return pages
		}
	}
	return append(pages, page)
}
