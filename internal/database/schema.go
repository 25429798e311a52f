// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package database

// schemaDDL is executed in order by EnsureSchema. Every statement is
// idempotent so the set can run against an empty database or one that is
// already current.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id                  BIGSERIAL PRIMARY KEY,
		email               TEXT NOT NULL UNIQUE,
		ip_address          TEXT NOT NULL DEFAULT '',
		country             TEXT NOT NULL DEFAULT '',
		country_code        TEXT NOT NULL DEFAULT '',
		city                TEXT NOT NULL DEFAULT '',
		region              TEXT NOT NULL DEFAULT '',
		region_code         TEXT NOT NULL DEFAULT '',
		timezone            TEXT NOT NULL DEFAULT '',
		latitude            DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude           DOUBLE PRECISION NOT NULL DEFAULT 0,
		location_string     TEXT NOT NULL DEFAULT '',
		user_agent          TEXT NOT NULL DEFAULT '',
		referer             TEXT NOT NULL DEFAULT '',
		entry_point         TEXT NOT NULL DEFAULT '',
		device_type         TEXT NOT NULL DEFAULT '',
		browser             TEXT NOT NULL DEFAULT '',
		os                  TEXT NOT NULL DEFAULT '',
		mailerlite_group_id TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS visitors (
		id                 BIGSERIAL PRIMARY KEY,
		session_id         TEXT NOT NULL UNIQUE,
		ip_address         TEXT NOT NULL DEFAULT '',
		country            TEXT NOT NULL DEFAULT '',
		country_code       TEXT NOT NULL DEFAULT '',
		city               TEXT NOT NULL DEFAULT '',
		region             TEXT NOT NULL DEFAULT '',
		latitude           DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude          DOUBLE PRECISION NOT NULL DEFAULT 0,
		timezone           TEXT NOT NULL DEFAULT '',
		device_type        TEXT NOT NULL DEFAULT '',
		browser            TEXT NOT NULL DEFAULT '',
		os                 TEXT NOT NULL DEFAULT '',
		screen_resolution  TEXT NOT NULL DEFAULT '',
		pages_visited      TEXT[] NOT NULL DEFAULT '{}',
		visit_count        INTEGER NOT NULL DEFAULT 1,
		uae_time           TEXT NOT NULL DEFAULT '',
		user_agent         TEXT NOT NULL DEFAULT '',
		referer            TEXT NOT NULL DEFAULT '',
		entry_point        TEXT NOT NULL DEFAULT '',
		session_start      TIMESTAMPTZ NOT NULL DEFAULT now(),
		session_duration   BIGINT NOT NULL DEFAULT 0,
		total_session_time BIGINT NOT NULL DEFAULT 0,
		first_visit        TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_visit         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// Serves the per-IP history scan behind the heuristic signals.
	`CREATE INDEX IF NOT EXISTS idx_visitors_ip_last_visit
		ON visitors (ip_address, last_visit DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_visitors_last_visit
		ON visitors (last_visit DESC)`,

	`CREATE TABLE IF NOT EXISTS ip_labels (
		ip_address TEXT PRIMARY KEY,
		label      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}
