// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package api

import "net/http"

// healthResponse is the probe body.
type healthResponse struct {
	Status string `json:"status"`
}

// HealthLive handles GET /api/health/live: the process is up and serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// HealthReady handles GET /api/health/ready: the database is reachable.
// With no database configured the service is degraded but still serving,
// so readiness reports unavailable to keep traffic steering honest.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || h.store.Ping(r.Context()) != nil {
		respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
