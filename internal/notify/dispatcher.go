// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package notify posts formatted messages to a configured messaging
// webhook. Delivery is best effort: transient failures are retried with
// linear backoff, client errors are treated as configuration problems and
// not retried, and an exhausted or unconfigured dispatch is simply dropped.
// There is no dead-letter store; this is an operational convenience
// channel, not a system of record.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vitrineapp/vitrine/internal/config"
	"github.com/vitrineapp/vitrine/internal/logging"
	"github.com/vitrineapp/vitrine/internal/metrics"
	"github.com/vitrineapp/vitrine/internal/retry"
)

// statusError carries a non-2xx webhook response through the retry loop so
// the retryable predicate can distinguish client from server errors.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.code)
}

// webhookPayload is the JSON body posted to the webhook endpoint. The
// "text" field is understood by Slack-compatible receivers.
type webhookPayload struct {
	Text string `json:"text"`
}

// Dispatcher delivers notification messages to the configured webhook.
type Dispatcher struct {
	cfg    config.NotifyConfig
	client *http.Client
}

// NewDispatcher creates a dispatcher from configuration. The HTTP client
// timeout bounds each individual delivery attempt.
func NewDispatcher(cfg config.NotifyConfig) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify posts the message to the webhook configured for the given path.
// Returns true when delivered, false when no webhook is configured, the
// endpoint rejected the message, or the attempt budget was exhausted.
// Never returns an error: callers treat dispatch as fire-and-forget.
func (d *Dispatcher) Notify(ctx context.Context, kind config.PathKind, msg Message) bool {
	url := d.cfg.WebhookURLFor(kind)
	if url == "" {
		logging.Debug().Str("path", string(kind)).Msg("No webhook configured, dropping notification")
		metrics.RecordNotification(string(kind), "skipped")
		return false
	}

	body, err := json.Marshal(webhookPayload{Text: msg.Render()})
	if err != nil {
		logging.Err(err).Msg("Failed to marshal webhook payload")
		metrics.RecordNotification(string(kind), "failed")
		return false
	}

	deliveryID := uuid.NewString()
	log := logging.With().
		Str("delivery_id", deliveryID).
		Str("path", string(kind)).
		Logger()

	attempts := 0
	err = retry.Do(ctx,
		retry.Policy{MaxAttempts: d.cfg.MaxAttempts, BaseDelay: d.cfg.BaseDelay},
		retryableWebhookError,
		func() error {
			attempts++
			return d.post(ctx, url, body)
		})
	if err != nil {
		log.Warn().Err(err).Int("attempts", attempts).Msg("Notification dropped")
		metrics.RecordNotification(string(kind), "failed")
		return false
	}

	log.Debug().Int("attempts", attempts).Msg("Notification delivered")
	metrics.RecordNotification(string(kind), "delivered")
	return true
}

// post performs one delivery attempt.
func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

// retryableWebhookError treats 4xx responses as permanent (a bad or
// revoked webhook URL will not fix itself between attempts) and everything
// else, including network errors and 5xx, as transient.
func retryableWebhookError(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code < 400 || se.code >= 500
	}
	return true
}
