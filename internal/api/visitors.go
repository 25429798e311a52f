// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vitrineapp/vitrine/internal/config"
	"github.com/vitrineapp/vitrine/internal/detection"
	"github.com/vitrineapp/vitrine/internal/device"
	"github.com/vitrineapp/vitrine/internal/geoip"
	"github.com/vitrineapp/vitrine/internal/logging"
	"github.com/vitrineapp/vitrine/internal/metrics"
	"github.com/vitrineapp/vitrine/internal/models"
	"github.com/vitrineapp/vitrine/internal/notify"
	"github.com/vitrineapp/vitrine/internal/validation"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// brandTimezone renders the "local time" string stored with each visit.
// The brand operates out of Dubai; if tzdata is unavailable the fixed
// UTC+4 offset is equivalent (the zone has no DST).
var brandTimezone = loadBrandTimezone()

func loadBrandTimezone() *time.Location {
	loc, err := time.LoadLocation("Asia/Dubai")
	if err != nil {
		return time.FixedZone("GST", 4*60*60)
	}
	return loc
}

// trackVisitorRequest is the tracking beacon payload sent by the page.
type trackVisitorRequest struct {
	SessionID        string `json:"sessionId" validate:"required"`
	PageURL          string `json:"pageUrl"`
	UserAgent        string `json:"userAgent"`
	Referer          string `json:"referer"`
	ScreenResolution string `json:"screenResolution"`
}

// trackVisitorResponse echoes the visitor snapshot after the hit.
type trackVisitorResponse struct {
	Success     bool            `json:"success"`
	Visitor     *models.Visitor `json:"visitor"`
	Country     string          `json:"country"`
	CountryCode string          `json:"countryCode"`
}

// listVisitorsResponse is the paginated dump shape.
type listVisitorsResponse struct {
	Success  bool              `json:"success"`
	Visitors []*models.Visitor `json:"visitors"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// TrackVisitor handles POST /api/visitors.
func (h *Handler) TrackVisitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req trackVisitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.Debug().Err(err).Msg("Unparsable visitor payload")
	}

	req.SessionID = strings.TrimSpace(req.SessionID)
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	ip := clientIP(r)
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}

	geo := geoip.Resolve(ctx, h.geo, ip)
	dev := device.Classify(userAgent)

	existing, history, counts := h.loadVisitorContext(r, req.SessionID, ip)
	now := time.Now()
	signals := detection.Evaluate(existing != nil, history, counts, now, h.thresholds)

	visitor := h.buildVisitor(&req, ip, userAgent, geo, dev, now)
	if existing != nil {
		visitor.PagesVisited = models.MergePage(existing.PagesVisited, req.PageURL)
		visitor.VisitCount = existing.VisitCount + 1
		visitor.SessionStart = existing.SessionStart
		visitor.FirstVisit = existing.FirstVisit
	}

	if h.store != nil {
		bestEffort("upsert_visitor", func() error {
			stored, err := h.store.UpsertVisitor(ctx, visitor, req.PageURL)
			if err == nil {
				visitor = stored
			}
			return err
		})
	}

	// A repeat hit within a known session stays quiet unless a heuristic
	// fired; new sessions and alerting hits notify.
	if signals.NewVisitor || signals.Alerting() {
		h.notifyVisit(r, visitor, signals)
	}
	recordVisitorHit(signals)

	respondJSON(w, http.StatusOK, trackVisitorResponse{
		Success:     true,
		Visitor:     visitor,
		Country:     visitor.Country,
		CountryCode: visitor.CountryCode,
	})
}

// loadVisitorContext fetches the session's existing row, the bounded
// per-IP history for the daily/duration rules, and the unbounded frequency
// counters for the today/hour rules. All reads are best effort: on failure
// the hit is treated as new, with counters derived from whatever history
// was read.
func (h *Handler) loadVisitorContext(r *http.Request, sessionID, ip string) (*models.Visitor, []models.Visitor, detection.Counts) {
	if h.store == nil {
		return nil, nil, detection.Counts{}
	}

	var existing *models.Visitor
	bestEffort("get_visitor", func() error {
		v, err := h.store.GetVisitor(r.Context(), sessionID)
		existing = v
		return err
	})

	var history []models.Visitor
	var counts detection.Counts
	counted := false
	if ip != "" && ip != "unknown" {
		bestEffort("visitor_history", func() error {
			rows, err := h.store.VisitorHistoryByIP(r.Context(), ip, h.thresholds.DailyWindow)
			for _, row := range rows {
				history = append(history, *row)
			}
			return err
		})
		bestEffort("count_recent_sessions", func() error {
			today, lastHour, err := h.store.CountRecentSessions(r.Context(), ip)
			if err != nil {
				return err
			}
			counts = detection.Counts{SessionsToday: today, SessionsLastHour: lastHour}
			counted = true
			return nil
		})
	}
	if !counted {
		counts = detection.CountsFromHistory(history, time.Now())
	}
	return existing, history, counts
}

// buildVisitor assembles the first-visit snapshot for this hit.
func (h *Handler) buildVisitor(req *trackVisitorRequest, ip, userAgent string, geo *models.Geolocation, dev models.DeviceInfo, now time.Time) *models.Visitor {
	v := &models.Visitor{
		SessionID:        req.SessionID,
		IPAddress:        ip,
		DeviceType:       dev.Type,
		Browser:          dev.Browser,
		OS:               dev.OS,
		ScreenResolution: req.ScreenResolution,
		PagesVisited:     models.MergePage(nil, req.PageURL),
		VisitCount:       1,
		UAETime:          now.In(brandTimezone).Format("02/01/2006, 15:04:05"),
		UserAgent:        userAgent,
		Referer:          req.Referer,
		EntryPoint:       h.cfg.Server.SiteURL,
		SessionStart:     now,
		FirstVisit:       now,
		LastVisit:        now,
		UpdatedAt:        now,
	}
	if geo != nil {
		v.Country = geo.Country
		v.CountryCode = geo.CountryCode
		v.City = geo.City
		v.Region = geo.Region
		v.Latitude = geo.Latitude
		v.Longitude = geo.Longitude
		v.Timezone = geo.Timezone
	}
	return v
}

// notifyVisit posts the visit notification tagged with fired heuristics.
func (h *Handler) notifyVisit(r *http.Request, v *models.Visitor, signals detection.Signals) {
	if h.notifier == nil {
		return
	}

	var label string
	if h.store != nil {
		label = h.store.LookupIPLabel(r.Context(), v.IPAddress)
	}

	header := "New visitor"
	if !signals.NewVisitor {
		header = "Returning visitor"
	}

	msg := notify.Message{
		Header: header,
		Fields: []notify.Field{
			{Name: "Time", Value: time.Now().UTC().Format(time.RFC3339)},
			{Name: "Local time", Value: v.UAETime},
			{Name: "IP", Value: v.IPAddress},
			{Name: "Label", Value: label},
			{Name: "Location", Value: locationSummary(v)},
			{Name: "Coordinates", Value: coordinates(v.Latitude, v.Longitude)},
			{Name: "Device", Value: deviceSummary(v.DeviceType, v.Browser, v.OS)},
			{Name: "Visit count", Value: strconv.Itoa(v.VisitCount)},
			{Name: "Pages", Value: strings.Join(v.PagesVisited, ", ")},
			{Name: "Session duration", Value: durationSummary(v.SessionDuration)},
			{Name: "Referer", Value: v.Referer},
		},
		Alerts: signals.Reasons,
	}
	h.notifier.Notify(r.Context(), config.PathVisitor, msg)
}

// locationSummary joins the visitor's resolved location parts.
func locationSummary(v *models.Visitor) string {
	var parts []string
	for _, p := range []string{v.City, v.Region, v.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// durationSummary renders a session duration in seconds, or "" when the
// session has no elapsed time yet.
func durationSummary(seconds int64) string {
	if seconds <= 0 {
		return ""
	}
	return fmt.Sprintf("%ds", seconds)
}

// recordVisitorHit classifies the hit for metrics.
func recordVisitorHit(signals detection.Signals) {
	kind := "returning"
	switch {
	case signals.NewVisitor:
		kind = "new"
	case signals.Alerting():
		kind = "alerting"
	}
	metrics.VisitorHitsTotal.WithLabelValues(kind).Inc()
}

// ListVisitors handles GET /api/visitors with limit/offset pagination.
func (h *Handler) ListVisitors(w http.ResponseWriter, r *http.Request) {
	limit := parseBoundedInt(r.URL.Query().Get("limit"), defaultListLimit, 1, maxListLimit)
	offset := parseBoundedInt(r.URL.Query().Get("offset"), 0, 0, 1<<30)

	visitors := []*models.Visitor{}
	total := 0
	if h.store != nil {
		bestEffort("list_visitors", func() error {
			rows, count, err := h.store.ListVisitors(r.Context(), limit, offset)
			if err != nil {
				return err
			}
			if rows != nil {
				visitors = rows
			}
			total = count
			return nil
		})
	}

	respondJSON(w, http.StatusOK, listVisitorsResponse{
		Success:  true,
		Visitors: visitors,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// parseBoundedInt parses a query integer with a default and clamps it into
// [min, max].
func parseBoundedInt(raw string, def, min, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
