// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package geoip

import (
	"context"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vitrineapp/vitrine/internal/config"
	"github.com/vitrineapp/vitrine/internal/logging"
	"github.com/vitrineapp/vitrine/internal/models"
)

// BreakerProvider wraps a Provider with a circuit breaker. Geolocation is
// awaited inline during request handling, so once the upstream starts
// failing consistently the breaker opens and lookups fail immediately
// instead of burning the full timeout on every visit.
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker[*models.Geolocation]
}

// NewBreakerProvider wraps inner with a consecutive-failure breaker.
func NewBreakerProvider(inner Provider, cfg config.GeoIPConfig) *BreakerProvider {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	settings := gobreaker.Settings{
		Name:        "geoip-" + inner.Name(),
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Geolocation circuit breaker state change")
		},
	}

	return &BreakerProvider{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[*models.Geolocation](settings),
	}
}

// Name returns the wrapped provider name.
func (b *BreakerProvider) Name() string {
	return b.inner.Name()
}

// Lookup delegates to the wrapped provider through the breaker.
func (b *BreakerProvider) Lookup(ctx context.Context, ipAddress string) (*models.Geolocation, error) {
	return b.breaker.Execute(func() (*models.Geolocation, error) {
		return b.inner.Lookup(ctx, ipAddress)
	})
}
