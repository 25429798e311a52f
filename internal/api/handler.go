// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package api implements the HTTP surface of Vitrine: the subscription
// endpoint, the visitor tracking endpoints, health probes, and metrics.
//
// The error policy is uniform and deliberate: only the two client mistakes
// a browser can fix (a malformed email, a missing session id) surface as
// 400. Every infrastructure failure behind a request, whether database,
// geolocation, mailing list, or webhook, is logged and masked; a lead must
// never bounce off the landing page because a backend dependency hiccuped.
package api

import (
	"context"

	"github.com/vitrineapp/vitrine/internal/config"
	"github.com/vitrineapp/vitrine/internal/detection"
	"github.com/vitrineapp/vitrine/internal/geoip"
	"github.com/vitrineapp/vitrine/internal/mailer"
	"github.com/vitrineapp/vitrine/internal/models"
	"github.com/vitrineapp/vitrine/internal/notify"
)

// Store is the persistence capability the handlers consume. Implemented by
// *database.DB; tests substitute an in-memory fake.
type Store interface {
	Ping(ctx context.Context) error
	UpsertSubscription(ctx context.Context, s *models.Subscription) (*models.Subscription, error)
	GetVisitor(ctx context.Context, sessionID string) (*models.Visitor, error)
	UpsertVisitor(ctx context.Context, v *models.Visitor, page string) (*models.Visitor, error)
	VisitorHistoryByIP(ctx context.Context, ip string, limit int) ([]*models.Visitor, error)
	CountRecentSessions(ctx context.Context, ip string) (today, lastHour int, err error)
	ListVisitors(ctx context.Context, limit, offset int) ([]*models.Visitor, int, error)
	LookupIPLabel(ctx context.Context, ip string) string
}

// Mailer relays captured leads to the mailing-list provider.
type Mailer interface {
	Configured() bool
	Subscribe(ctx context.Context, email string, fields map[string]string) mailer.Result
}

// Notifier delivers operational notifications to the messaging webhook.
type Notifier interface {
	Notify(ctx context.Context, kind config.PathKind, msg notify.Message) bool
}

// Handler carries the wired dependencies for all routes. Store may be nil
// when no database is configured; handlers then degrade to stateless
// best-effort behavior instead of failing.
type Handler struct {
	cfg        config.Config
	store      Store
	geo        geoip.Provider
	mailer     Mailer
	notifier   Notifier
	thresholds detection.Thresholds
}

// NewHandler wires the route handlers.
func NewHandler(cfg config.Config, store Store, geo geoip.Provider, m Mailer, n Notifier) *Handler {
	return &Handler{
		cfg:        cfg,
		store:      store,
		geo:        geo,
		mailer:     m,
		notifier:   n,
		thresholds: detection.DefaultThresholds(),
	}
}
