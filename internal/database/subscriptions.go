// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package database

import (
	"context"
	"fmt"

	"github.com/vitrineapp/vitrine/internal/models"
)

const subscriptionColumns = `id, email, ip_address, country, country_code, city, region,
	region_code, timezone, latitude, longitude, location_string, user_agent, referer,
	entry_point, device_type, browser, os, mailerlite_group_id, created_at, updated_at`

// UpsertSubscription inserts the subscription or, when the email already
// exists, refreshes its IP, location, and timestamp fields. The original
// created_at and the first-seen request metadata are preserved; a repeat
// signup is an update, not a new lead.
func (db *DB) UpsertSubscription(ctx context.Context, s *models.Subscription) (*models.Subscription, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := db.opContext(ctx)
	defer cancel()

	query := `
		INSERT INTO subscriptions (
			email, ip_address, country, country_code, city, region, region_code,
			timezone, latitude, longitude, location_string, user_agent, referer,
			entry_point, device_type, browser, os, mailerlite_group_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (email) DO UPDATE SET
			ip_address      = EXCLUDED.ip_address,
			country         = EXCLUDED.country,
			country_code    = EXCLUDED.country_code,
			city            = EXCLUDED.city,
			region          = EXCLUDED.region,
			region_code     = EXCLUDED.region_code,
			timezone        = EXCLUDED.timezone,
			latitude        = EXCLUDED.latitude,
			longitude       = EXCLUDED.longitude,
			location_string = EXCLUDED.location_string,
			updated_at      = now()
		RETURNING ` + subscriptionColumns

	row := db.conn.QueryRowContext(ctx, query,
		models.NormalizeEmail(s.Email), s.IPAddress, s.Country, s.CountryCode,
		s.City, s.Region, s.RegionCode, s.Timezone, s.Latitude, s.Longitude,
		s.LocationString, s.UserAgent, s.Referer, s.EntryPoint,
		s.DeviceType, s.Browser, s.OS, s.MailerliteGroupID,
	)

	var out models.Subscription
	err := row.Scan(
		&out.ID, &out.Email, &out.IPAddress, &out.Country, &out.CountryCode,
		&out.City, &out.Region, &out.RegionCode, &out.Timezone,
		&out.Latitude, &out.Longitude, &out.LocationString,
		&out.UserAgent, &out.Referer, &out.EntryPoint,
		&out.DeviceType, &out.Browser, &out.OS, &out.MailerliteGroupID,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		logPGError("upsert_subscription", err)
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return &out, nil
}
