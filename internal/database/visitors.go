// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/vitrineapp/vitrine/internal/models"
)

const visitorColumns = `id, session_id, ip_address, country, country_code, city, region,
	latitude, longitude, timezone, device_type, browser, os, screen_resolution,
	pages_visited, visit_count, uae_time, user_agent, referer, entry_point,
	session_start, session_duration, total_session_time, first_visit, last_visit, updated_at`

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisitor(row rowScanner) (*models.Visitor, error) {
	var v models.Visitor
	err := row.Scan(
		&v.ID, &v.SessionID, &v.IPAddress, &v.Country, &v.CountryCode,
		&v.City, &v.Region, &v.Latitude, &v.Longitude, &v.Timezone,
		&v.DeviceType, &v.Browser, &v.OS, &v.ScreenResolution,
		pq.Array(&v.PagesVisited), &v.VisitCount, &v.UAETime,
		&v.UserAgent, &v.Referer, &v.EntryPoint,
		&v.SessionStart, &v.SessionDuration, &v.TotalSessionTime,
		&v.FirstVisit, &v.LastVisit, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVisitor returns the visitor row for the session, or (nil, nil) when
// the session has not been seen before.
func (db *DB) GetVisitor(ctx context.Context, sessionID string) (*models.Visitor, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := db.opContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors WHERE session_id = $1`, sessionID)

	v, err := scanVisitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logPGError("get_visitor", err)
		return nil, fmt.Errorf("failed to get visitor: %w", err)
	}
	return v, nil
}

// UpsertVisitor records one tracking hit. A new session inserts a fresh
// row; a known session increments the visit counter, merges page into the
// deduplicated visited-pages array, recomputes the session duration from
// the stored session start, and folds the elapsed delta into the
// cumulative total. The write is atomic, so concurrent hits for the same
// session never lose counts.
func (db *DB) UpsertVisitor(ctx context.Context, v *models.Visitor, page string) (*models.Visitor, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := db.opContext(ctx)
	defer cancel()

	query := `
		INSERT INTO visitors (
			session_id, ip_address, country, country_code, city, region,
			latitude, longitude, timezone, device_type, browser, os,
			screen_resolution, pages_visited, uae_time, user_agent, referer, entry_point
		) VALUES (
			$1, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			CASE WHEN $2 = '' THEN '{}'::text[] ELSE ARRAY[$2] END,
			$15, $16, $17, $18
		)
		ON CONFLICT (session_id) DO UPDATE SET
			ip_address        = EXCLUDED.ip_address,
			country           = EXCLUDED.country,
			country_code      = EXCLUDED.country_code,
			city              = EXCLUDED.city,
			region            = EXCLUDED.region,
			latitude          = EXCLUDED.latitude,
			longitude         = EXCLUDED.longitude,
			timezone          = EXCLUDED.timezone,
			device_type       = EXCLUDED.device_type,
			browser           = EXCLUDED.browser,
			os                = EXCLUDED.os,
			screen_resolution = CASE WHEN EXCLUDED.screen_resolution <> ''
				THEN EXCLUDED.screen_resolution ELSE visitors.screen_resolution END,
			pages_visited     = CASE WHEN $2 = '' OR $2 = ANY(visitors.pages_visited)
				THEN visitors.pages_visited ELSE array_append(visitors.pages_visited, $2) END,
			visit_count       = visitors.visit_count + 1,
			uae_time          = EXCLUDED.uae_time,
			user_agent        = EXCLUDED.user_agent,
			session_duration  = GREATEST(0, EXTRACT(EPOCH FROM (now() - visitors.session_start))::bigint),
			total_session_time = visitors.total_session_time + GREATEST(0,
				GREATEST(0, EXTRACT(EPOCH FROM (now() - visitors.session_start))::bigint) - visitors.session_duration),
			last_visit        = now(),
			updated_at        = now()
		RETURNING ` + visitorColumns

	row := db.conn.QueryRowContext(ctx, query,
		v.SessionID, page, v.IPAddress, v.Country, v.CountryCode, v.City, v.Region,
		v.Latitude, v.Longitude, v.Timezone, v.DeviceType, v.Browser, v.OS,
		v.ScreenResolution, v.UAETime, v.UserAgent, v.Referer, v.EntryPoint,
	)

	out, err := scanVisitor(row)
	if err != nil {
		logPGError("upsert_visitor", err)
		return nil, fmt.Errorf("failed to upsert visitor: %w", err)
	}
	return out, nil
}

// VisitorHistoryByIP returns up to limit visitor sessions for the IP,
// newest first. The heuristic signals read a bounded window of these.
func (db *DB) VisitorHistoryByIP(ctx context.Context, ip string, limit int) ([]*models.Visitor, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := db.opContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+visitorColumns+` FROM visitors
		 WHERE ip_address = $1 ORDER BY last_visit DESC LIMIT $2`, ip, limit)
	if err != nil {
		logPGError("visitor_history", err)
		return nil, fmt.Errorf("failed to query visitor history: %w", err)
	}
	defer rows.Close()

	var history []*models.Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			logPGError("visitor_history", err)
			return nil, fmt.Errorf("failed to scan visitor history: %w", err)
		}
		history = append(history, v)
	}
	if err := rows.Err(); err != nil {
		logPGError("visitor_history", err)
		return nil, fmt.Errorf("failed to read visitor history: %w", err)
	}
	return history, nil
}

// CountRecentSessions returns how many of the IP's sessions were last
// active today and within the past hour. The frequency heuristics need
// unbounded counts, which the bounded history window cannot supply.
func (db *DB) CountRecentSessions(ctx context.Context, ip string) (today, lastHour int, err error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return 0, 0, err
	}

	ctx, cancel := db.opContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE last_visit >= date_trunc('day', now())),
			COUNT(*) FILTER (WHERE last_visit >= now() - interval '1 hour')
		FROM visitors WHERE ip_address = $1`, ip).Scan(&today, &lastHour)
	if err != nil {
		logPGError("count_recent_sessions", err)
		return 0, 0, fmt.Errorf("failed to count recent sessions: %w", err)
	}
	return today, lastHour, nil
}

// ListVisitors returns a page of visitors ordered by most recent activity,
// each joined with its operator-assigned IP label when one exists, plus
// the total row count for pagination.
func (db *DB) ListVisitors(ctx context.Context, limit, offset int) ([]*models.Visitor, int, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, 0, err
	}

	ctx, cancel := db.opContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT v.id, v.session_id, v.ip_address, v.country, v.country_code, v.city, v.region,
			v.latitude, v.longitude, v.timezone, v.device_type, v.browser, v.os,
			v.screen_resolution, v.pages_visited, v.visit_count, v.uae_time,
			v.user_agent, v.referer, v.entry_point, v.session_start, v.session_duration,
			v.total_session_time, v.first_visit, v.last_visit, v.updated_at,
			COALESCE(l.label, '') AS label
		FROM visitors v
		LEFT JOIN ip_labels l ON l.ip_address = v.ip_address
		ORDER BY v.last_visit DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		logPGError("list_visitors", err)
		return nil, 0, fmt.Errorf("failed to list visitors: %w", err)
	}
	defer rows.Close()

	var visitors []*models.Visitor
	for rows.Next() {
		var v models.Visitor
		err := rows.Scan(
			&v.ID, &v.SessionID, &v.IPAddress, &v.Country, &v.CountryCode,
			&v.City, &v.Region, &v.Latitude, &v.Longitude, &v.Timezone,
			&v.DeviceType, &v.Browser, &v.OS, &v.ScreenResolution,
			pq.Array(&v.PagesVisited), &v.VisitCount, &v.UAETime,
			&v.UserAgent, &v.Referer, &v.EntryPoint,
			&v.SessionStart, &v.SessionDuration, &v.TotalSessionTime,
			&v.FirstVisit, &v.LastVisit, &v.UpdatedAt, &v.Label,
		)
		if err != nil {
			logPGError("list_visitors", err)
			return nil, 0, fmt.Errorf("failed to scan visitor: %w", err)
		}
		visitors = append(visitors, &v)
	}
	if err := rows.Err(); err != nil {
		logPGError("list_visitors", err)
		return nil, 0, fmt.Errorf("failed to read visitors: %w", err)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM visitors`).Scan(&total); err != nil {
		logPGError("list_visitors", err)
		return nil, 0, fmt.Errorf("failed to count visitors: %w", err)
	}
	return visitors, total, nil
}
