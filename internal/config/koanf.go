// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority
// order. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vitrine/config.yaml",
	"/etc/vitrine/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			SiteURL:         "",
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			URL:             "",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    5 * time.Second,
		},
		GeoIP: GeoIPConfig{
			BaseURL:         "http://ip-api.com/json",
			Timeout:         5 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 60 * time.Second,
		},
		Mailer: MailerConfig{
			FormURL:    "",
			APIKey:     "",
			APIBaseURL: "https://connect.mailerlite.com/api",
			GroupID:    "",
			Timeout:    10 * time.Second,
		},
		Notify: NotifyConfig{
			SubscribeWebhookURL: "",
			VisitorWebhookURL:   "",
			WebhookURL:          "",
			Timeout:             10 * time.Second,
			MaxAttempts:         3,
			BaseDelay:           1 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables (highest priority), then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the path of the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed from comma-separated strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw := k.Get(path)
		s, ok := raw.(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				values = append(values, trimmed)
			}
		}
		if err := k.Set(path, values); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// It handles both the canonical SECTION_FIELD scheme and the legacy
// variable names the landing page deployment already uses.
//
// Examples:
//   - SERVER_PORT -> server.port
//   - DATABASE_URL -> database.url
//   - MAILERLITE_API_KEY -> mailer.api_key
//   - SLACK_WEBHOOK_URL -> notify.webhook_url
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	// Legacy variable names kept for deployment compatibility.
	envMappings := map[string]string{
		"site_url":              "server.site_url",
		"cors_origins":          "server.cors_origins",
		"database_url":          "database.url",
		"postgres_url":          "database.url",
		"mailerlite_form_url":   "mailer.form_url",
		"mailerlite_api_key":    "mailer.api_key",
		"mailerlite_group_id":   "mailer.group_id",
		"subscribe_webhook_url": "notify.subscribe_webhook_url",
		"visitor_webhook_url":   "notify.visitor_webhook_url",
		"slack_webhook_url":     "notify.webhook_url",
		"webhook_url":           "notify.webhook_url",
		"log_level":             "logging.level",
		"log_format":            "logging.format",
		"log_caller":            "logging.caller",
	}
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Canonical scheme: first segment is the section.
	sections := []string{"server", "database", "geoip", "mailer", "notify", "logging"}
	for _, section := range sections {
		prefix := section + "_"
		if strings.HasPrefix(key, prefix) {
			return section + "." + strings.TrimPrefix(key, prefix)
		}
	}

	// Unknown variables are ignored by returning an empty path.
	return ""
}
