// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vitrineapp/vitrine/internal/logging"
)

// errorResponse is the 400 body for the two surfaced client errors.
type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes v as a JSON response. An encode failure at this point
// is unrecoverable (headers are already out), so it is only logged.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Err(err).Msg("Failed to encode response")
	}
}

// respondError writes the client-error shape.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// clientIP extracts the originating client address: first entry of
// X-Forwarded-For, then X-Real-IP, then the socket peer. Returns the
// literal "unknown" when nothing usable is present, which downstream
// consumers (geolocation, history scans) treat as unresolvable.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// bestEffort runs a side effect whose failure must not influence the
// response. The error is logged under the operation name and discarded;
// this is the single funnel through which all masked infrastructure
// failures pass.
func bestEffort(operation string, fn func() error) {
	if err := fn(); err != nil {
		logging.Warn().
			Str("operation", operation).
			Err(err).
			Msg("Best-effort operation failed")
	}
}
