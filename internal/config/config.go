// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package config loads and validates the Vitrine configuration.
//
// Configuration is layered via Koanf v2, highest priority last:
//
//  1. Built-in defaults (struct provider)
//  2. Optional YAML config file (CONFIG_PATH or ./config.yaml)
//  3. Environment variables (SERVER_PORT, DATABASE_URL, ...)
//
// The resulting Config struct is constructed once at process start and
// passed explicitly into every component; nothing reads the process
// environment at call time.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Vitrine server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	GeoIP    GeoIPConfig    `koanf:"geoip"`
	Mailer   MailerConfig   `koanf:"mailer"`
	Notify   NotifyConfig   `koanf:"notify"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	// ReadTimeout/WriteTimeout bound each request's socket I/O.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds the graceful drain on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// SiteURL is the public base URL of the landing page, used as the
	// default entry point recorded on subscriptions and visitors.
	SiteURL string `koanf:"site_url"`

	// CORSOrigins lists allowed browser origins. Defaults to "*" since the
	// API backs a public landing page.
	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig configures the PostgreSQL connection pool.
type DatabaseConfig struct {
	// URL is a libpq connection string (postgres://...). Empty disables
	// persistence; handlers degrade to best-effort in-memory snapshots.
	URL string `koanf:"url"`

	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`

	// QueryTimeout bounds every query issued by the store.
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// GeoIPConfig configures the IP geolocation provider.
type GeoIPConfig struct {
	// BaseURL is the lookup endpoint; the IP is appended as a path segment.
	BaseURL string `koanf:"base_url"`

	Timeout time.Duration `koanf:"timeout"`

	// BreakerFailures is the consecutive-failure count that opens the
	// circuit; BreakerCooldown is how long it stays open.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

// MailerConfig configures the outbound mailing-list provider.
// Both mechanisms are optional and tried opportunistically: the embedded
// form endpoint first, then the authenticated API.
type MailerConfig struct {
	// FormURL is the provider's embedded-form submission endpoint.
	FormURL string `koanf:"form_url"`

	// APIKey authenticates against the provider API.
	APIKey string `koanf:"api_key"`

	// APIBaseURL is the provider API root. Overridable for tests.
	APIBaseURL string `koanf:"api_base_url"`

	// GroupID is the target list/group, either a raw numeric ID or a
	// dashboard URL containing "group=<digits>".
	GroupID string `koanf:"group_id"`

	Timeout time.Duration `koanf:"timeout"`
}

// NotifyConfig configures the webhook notification dispatcher.
type NotifyConfig struct {
	// SubscribeWebhookURL and VisitorWebhookURL are the per-path webhook
	// endpoints; WebhookURL is the shared fallback checked when the
	// specific one is empty.
	SubscribeWebhookURL string `koanf:"subscribe_webhook_url"`
	VisitorWebhookURL   string `koanf:"visitor_webhook_url"`
	WebhookURL          string `koanf:"webhook_url"`

	// Timeout bounds each delivery attempt.
	Timeout time.Duration `koanf:"timeout"`

	// MaxAttempts is the total attempt budget for transient failures;
	// BaseDelay is the linear backoff unit between attempts (1x, 2x, ...).
	MaxAttempts int           `koanf:"max_attempts" validate:"min=1"`
	BaseDelay   time.Duration `koanf:"base_delay"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// PathKind identifies which handler path a notification originates from.
// The dispatcher resolves its webhook URL per path.
type PathKind string

const (
	// PathSubscribe tags notifications from the subscription handler.
	PathSubscribe PathKind = "subscribe"

	// PathVisitor tags notifications from the visitor tracking handler.
	PathVisitor PathKind = "visitor"
)

// WebhookURLFor returns the first configured webhook URL for the given
// path, or "" when none is configured.
func (n NotifyConfig) WebhookURLFor(kind PathKind) string {
	candidates := []string{n.WebhookURL}
	switch kind {
	case PathSubscribe:
		candidates = []string{n.SubscribeWebhookURL, n.WebhookURL}
	case PathVisitor:
		candidates = []string{n.VisitorWebhookURL, n.WebhookURL}
	}
	for _, url := range candidates {
		if url != "" {
			return url
		}
	}
	return ""
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Notify.MaxAttempts < 1 {
		return fmt.Errorf("notify.max_attempts must be at least 1, got %d", c.Notify.MaxAttempts)
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify.timeout must be positive, got %s", c.Notify.Timeout)
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("database.query_timeout must be positive, got %s", c.Database.QueryTimeout)
	}
	if c.GeoIP.Timeout <= 0 {
		return fmt.Errorf("geoip.timeout must be positive, got %s", c.GeoIP.Timeout)
	}
	return nil
}
