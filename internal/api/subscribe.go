// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/vitrineapp/vitrine/internal/config"
	"github.com/vitrineapp/vitrine/internal/device"
	"github.com/vitrineapp/vitrine/internal/geoip"
	"github.com/vitrineapp/vitrine/internal/logging"
	"github.com/vitrineapp/vitrine/internal/mailer"
	"github.com/vitrineapp/vitrine/internal/metrics"
	"github.com/vitrineapp/vitrine/internal/models"
	"github.com/vitrineapp/vitrine/internal/notify"
	"github.com/vitrineapp/vitrine/internal/validation"
)

// subscribeRequest is the landing-page form payload. Only email is
// validated; the optional fields are forwarded to the mailing list as-is.
type subscribeRequest struct {
	Email         string `json:"email" validate:"required,lead_email"`
	FullName      string `json:"fullName"`
	CityCountry   string `json:"cityCountry"`
	WhatBringsYou string `json:"whatBringsYou"`
}

// subscribeResponse is the success shape. It is returned for every request
// that passes email validation, regardless of what happened downstream.
type subscribeResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	MailerliteSuccess bool   `json:"mailerliteSuccess"`
	Timestamp         string `json:"timestamp"`
}

// Subscribe handles POST /api/subscribe.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.Debug().Err(err).Msg("Unparsable subscribe payload")
	}

	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}
	email := models.NormalizeEmail(req.Email)

	ip := clientIP(r)
	geo := geoip.Resolve(ctx, h.geo, ip)
	dev := device.Classify(r.UserAgent())

	result := h.deliverToMailingList(r, email, &req)

	sub := h.buildSubscription(r, email, ip, geo, dev, result.GroupID)
	if h.store != nil {
		bestEffort("upsert_subscription", func() error {
			stored, err := h.store.UpsertSubscription(ctx, sub)
			if err == nil {
				sub = stored
			}
			return err
		})
	}

	h.notifySubscription(r, sub, result)

	respondJSON(w, http.StatusOK, subscribeResponse{
		Success:           true,
		Message:           "Successfully subscribed",
		MailerliteSuccess: result.Delivered,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	})
}

// deliverToMailingList relays the lead to the provider, forwarding the
// optional form fields, and records the outcome metric.
func (h *Handler) deliverToMailingList(r *http.Request, email string, req *subscribeRequest) mailer.Result {
	if h.mailer == nil || !h.mailer.Configured() {
		metrics.SubscriptionsTotal.WithLabelValues("skipped").Inc()
		return mailer.Result{}
	}

	fields := map[string]string{}
	if req.FullName != "" {
		fields["name"] = req.FullName
	}
	if req.CityCountry != "" {
		fields["city"] = req.CityCountry
	}
	if req.WhatBringsYou != "" {
		fields["notes"] = req.WhatBringsYou
	}

	result := h.mailer.Subscribe(r.Context(), email, fields)

	outcome := "failed"
	switch {
	case result.AlreadySubscribed:
		outcome = "already_subscribed"
	case result.Delivered:
		outcome = "delivered"
	}
	metrics.SubscriptionsTotal.WithLabelValues(outcome).Inc()

	logging.Info().
		Str("mechanism", result.Mechanism).
		Bool("delivered", result.Delivered).
		Msg("Mailing-list relay finished")
	return result
}

// buildSubscription assembles the row to persist from the request context.
func (h *Handler) buildSubscription(r *http.Request, email, ip string, geo *models.Geolocation, dev models.DeviceInfo, groupID string) *models.Subscription {
	sub := &models.Subscription{
		Email:             email,
		IPAddress:         ip,
		UserAgent:         r.UserAgent(),
		Referer:           r.Referer(),
		EntryPoint:        h.cfg.Server.SiteURL,
		DeviceType:        dev.Type,
		Browser:           dev.Browser,
		OS:                dev.OS,
		MailerliteGroupID: groupID,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	if geo != nil {
		sub.Country = geo.Country
		sub.CountryCode = geo.CountryCode
		sub.City = geo.City
		sub.Region = geo.Region
		sub.RegionCode = geo.RegionCode
		sub.Timezone = geo.Timezone
		sub.Latitude = geo.Latitude
		sub.Longitude = geo.Longitude
		sub.LocationString = geo.LocationString()
	}
	return sub
}

// notifySubscription posts the new-lead notification. Best effort.
func (h *Handler) notifySubscription(r *http.Request, sub *models.Subscription, result mailer.Result) {
	if h.notifier == nil {
		return
	}

	var label string
	if h.store != nil {
		label = h.store.LookupIPLabel(r.Context(), sub.IPAddress)
	}

	msg := notify.Message{
		Header: "New subscription",
		Fields: []notify.Field{
			{Name: "Email", Value: sub.Email},
			{Name: "Time", Value: time.Now().UTC().Format(time.RFC3339)},
			{Name: "IP", Value: sub.IPAddress},
			{Name: "Label", Value: label},
			{Name: "Location", Value: sub.LocationString},
			{Name: "Coordinates", Value: coordinates(sub.Latitude, sub.Longitude)},
			{Name: "Device", Value: deviceSummary(sub.DeviceType, sub.Browser, sub.OS)},
			{Name: "Referer", Value: sub.Referer},
			{Name: "Mailing list", Value: result.Mechanism},
		},
	}
	h.notifier.Notify(r.Context(), config.PathSubscribe, msg)
}

// coordinates renders a lat/lon pair, or "" when unresolved.
func coordinates(lat, lon float64) string {
	if lat == 0 && lon == 0 {
		return ""
	}
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

// deviceSummary renders the classified device triple.
func deviceSummary(deviceType, browser, os string) string {
	if deviceType == "" && browser == "" && os == "" {
		return ""
	}
	return fmt.Sprintf("%s / %s / %s", deviceType, browser, os)
}
