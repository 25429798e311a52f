// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package geoip resolves client IP addresses to best-effort location
// records via an external lookup service. Lookups are single-shot (no
// retries); a circuit breaker keeps a flapping provider from adding
// latency to every request.
package geoip

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vitrineapp/vitrine/internal/config"
	"github.com/vitrineapp/vitrine/internal/logging"
	"github.com/vitrineapp/vitrine/internal/metrics"
	"github.com/vitrineapp/vitrine/internal/models"
)

// Provider defines the interface for geolocation lookup services.
type Provider interface {
	// Lookup returns geolocation data for the given IP address, or an
	// error when the lookup fails or the IP is invalid.
	Lookup(ctx context.Context, ipAddress string) (*models.Geolocation, error)

	// Name returns the provider name for logging.
	Name() string
}

// IPAPIProvider implements Provider against the ip-api.com JSON endpoint
// (free tier, no credentials). The base URL is configurable so tests can
// point it at a local server.
type IPAPIProvider struct {
	client  *http.Client
	baseURL string
}

// ipAPIResponse is the ip-api.com JSON shape for the fields Vitrine asks for.
type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
}

// NewIPAPIProvider creates an ip-api.com provider from configuration.
func NewIPAPIProvider(cfg config.GeoIPConfig) *IPAPIProvider {
	return &IPAPIProvider{
		client:  &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Name returns the provider name.
func (p *IPAPIProvider) Name() string {
	return "ip-api"
}

// Lookup queries the endpoint for geolocation data. Private, loopback, and
// syntactically invalid addresses fail fast without a network call.
func (p *IPAPIProvider) Lookup(ctx context.Context, ipAddress string) (*models.Geolocation, error) {
	if err := validateLookupIP(ipAddress); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?fields=status,message,country,countryCode,region,regionName,city,lat,lon,timezone", p.baseURL, ipAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create geoip request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geoip lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geoip provider returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode geoip response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("geoip lookup rejected: %s", result.Message)
	}

	return &models.Geolocation{
		IPAddress:   ipAddress,
		Country:     result.Country,
		CountryCode: result.CountryCode,
		City:        result.City,
		Region:      result.RegionName,
		RegionCode:  result.Region,
		Timezone:    result.Timezone,
		Latitude:    result.Lat,
		Longitude:   result.Lon,
	}, nil
}

// validateLookupIP rejects addresses no public lookup can resolve.
func validateLookupIP(ipAddress string) error {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return fmt.Errorf("invalid IP address: %q", ipAddress)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return fmt.Errorf("non-routable IP address: %s", ipAddress)
	}
	return nil
}

// Resolve is the handler-facing wrapper: it returns nil (not an error) for
// any failure, including the literal "unknown" placeholder, since location
// is an optional enrichment that must never block the main flow.
func Resolve(ctx context.Context, p Provider, ipAddress string) *models.Geolocation {
	if p == nil || ipAddress == "" || ipAddress == "unknown" {
		metrics.GeoLookupsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	geo, err := p.Lookup(ctx, ipAddress)
	if err != nil {
		metrics.GeoLookupsTotal.WithLabelValues("failure").Inc()
		logging.Debug().
			Str("provider", p.Name()).
			Str("ip", ipAddress).
			Err(err).
			Msg("Geolocation lookup failed")
		return nil
	}

	metrics.GeoLookupsTotal.WithLabelValues("success").Inc()
	return geo
}

// timeoutOrDefault guards against a zero config timeout.
func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}
