// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package mailer relays captured leads to the external mailing-list
// provider (MailerLite). Two delivery mechanisms exist and are tried
// opportunistically: the embedded-form endpoint first (no credentials),
// then the authenticated API. Provider failures never abort the
// subscription flow; the caller records the outcome and moves on.
package mailer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vitrineapp/vitrine/internal/config"
	"github.com/vitrineapp/vitrine/internal/logging"
)

// groupIDPattern extracts a numeric group identifier from a dashboard URL
// such as "https://dashboard.mailerlite.com/subscribers?group=123456".
var groupIDPattern = regexp.MustCompile(`[?&]group=(\d+)`)

// digitsOnly matches a raw numeric group identifier.
var digitsOnly = regexp.MustCompile(`^\d+$`)

// Result reports the outcome of a delivery attempt.
type Result struct {
	// Delivered is true when any mechanism accepted the address,
	// including the provider reporting it as already subscribed.
	Delivered bool

	// AlreadySubscribed is true when the provider recognized the address.
	AlreadySubscribed bool

	// Mechanism names what delivered: "form", "api", or "" on failure.
	Mechanism string

	// GroupID is the resolved numeric group used for the API mechanism.
	GroupID string
}

// Client talks to the mailing-list provider.
type Client struct {
	cfg    config.MailerConfig
	client *http.Client
}

// NewClient creates a provider client from configuration.
func NewClient(cfg config.MailerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether at least one delivery mechanism is set up.
func (c *Client) Configured() bool {
	return c.cfg.FormURL != "" || c.cfg.APIKey != ""
}

// Subscribe attempts delivery of the email through the configured
// mechanisms. The extra fields (name, city, notes) are forwarded when a
// mechanism supports them. Errors are logged, never returned: the result
// only says whether anything got through.
func (c *Client) Subscribe(ctx context.Context, email string, fields map[string]string) Result {
	result := Result{GroupID: ExtractGroupID(c.cfg.GroupID)}

	if c.cfg.FormURL != "" {
		if ok := c.submitForm(ctx, email); ok {
			result.Delivered = true
			result.Mechanism = "form"
		}
	}

	if !result.Delivered && c.cfg.APIKey != "" {
		delivered, already := c.submitAPI(ctx, email, fields, result.GroupID)
		if delivered {
			result.Delivered = true
			result.AlreadySubscribed = already
			result.Mechanism = "api"
		}
	}

	return result
}

// submitForm posts the address to the embedded-form endpoint.
func (c *Client) submitForm(ctx context.Context, email string) bool {
	form := url.Values{}
	form.Set("fields[email]", email)
	form.Set("ml-submit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.FormURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		logging.Err(err).Msg("Failed to build mailing-list form request")
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		logging.Err(err).Msg("Mailing-list form submission failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Warn().Int("status", resp.StatusCode).Msg("Mailing-list form rejected submission")
		return false
	}
	return true
}

// apiSubscriberRequest is the provider API payload.
type apiSubscriberRequest struct {
	Email  string            `json:"email"`
	Fields map[string]string `json:"fields,omitempty"`
	Groups []string          `json:"groups,omitempty"`
}

// submitAPI posts the address to the authenticated provider API. An
// "already subscribed" rejection counts as delivered: the lead is on the
// list, which is all the product cares about.
func (c *Client) submitAPI(ctx context.Context, email string, fields map[string]string, groupID string) (delivered, already bool) {
	payload := apiSubscriberRequest{Email: email, Fields: fields}
	if groupID != "" {
		payload.Groups = []string{groupID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logging.Err(err).Msg("Failed to marshal mailing-list API payload")
		return false, false
	}

	endpoint := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/subscribers"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		logging.Err(err).Msg("Failed to build mailing-list API request")
		return false, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		logging.Err(err).Msg("Mailing-list API call failed")
		return false, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, false
	}
	if strings.Contains(strings.ToLower(string(respBody)), "already") {
		return true, true
	}

	logging.Warn().
		Int("status", resp.StatusCode).
		Msg("Mailing-list API rejected subscriber")
	return false, false
}

// ExtractGroupID resolves the configured group setting into a numeric
// identifier. Accepts either raw digits or a dashboard URL containing
// "group=<digits>"; anything else yields "".
func ExtractGroupID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if digitsOnly.MatchString(raw) {
		return raw
	}
	if m := groupIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}
