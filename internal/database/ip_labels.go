// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package database

import (
	"context"
	"database/sql"
	"errors"
)

// LookupIPLabel returns the operator-assigned label for the IP, or "" when
// none is set or the lookup fails. Labels only decorate notifications, so
// a failure here is logged and otherwise invisible.
func (db *DB) LookupIPLabel(ctx context.Context, ip string) string {
	if err := db.EnsureSchema(ctx); err != nil {
		return ""
	}

	ctx, cancel := db.opContext(ctx)
	defer cancel()

	var label string
	err := db.conn.QueryRowContext(ctx,
		`SELECT label FROM ip_labels WHERE ip_address = $1`, ip).Scan(&label)
	if errors.Is(err, sql.ErrNoRows) {
		return ""
	}
	if err != nil {
		logPGError("lookup_ip_label", err)
		return ""
	}
	return label
}
