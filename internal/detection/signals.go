// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package detection computes per-visit heuristic signals from a visitor's
// recent history. Signals are ephemeral: they are recomputed on every
// tracking request from a bounded slice of rows sharing the client IP and
// never persisted, which keeps the rules unit-testable in isolation from
// the database.
package detection

import (
	"fmt"
	"time"

	"github.com/vitrineapp/vitrine/internal/models"
)

// Signals is the result of evaluating one visit against recent history.
type Signals struct {
	// NewVisitor is true when no row exists for this session identifier.
	NewVisitor bool `json:"is_new_visitor"`

	// DailyVisitor is true when the IP has visits on enough distinct
	// calendar days within its recent history window.
	DailyVisitor bool `json:"is_daily_visitor"`

	// UnusualPattern is true when any frequency or duration rule fired.
	UnusualPattern bool `json:"is_unusual_pattern"`

	// Reasons describes each fired rule in notification-ready text.
	Reasons []string `json:"reasons,omitempty"`
}

// Alerting reports whether any signal warrants a notification on an
// otherwise quiet returning-session hit.
func (s Signals) Alerting() bool {
	return s.DailyVisitor || s.UnusualPattern
}

// Counts carries per-IP frequency counters computed over an unbounded
// range, normally by the store. The bounded history slice caps at
// DailyWindow rows, so the today/hour rules would never cross their
// thresholds if they counted rows from it.
type Counts struct {
	// SessionsToday is how many of the IP's sessions were last active
	// today.
	SessionsToday int

	// SessionsLastHour is how many were last active within the past hour.
	SessionsLastHour int
}

// CountsFromHistory derives the frequency counters from a history slice.
// A fallback for when the store's counters are unavailable: a bounded
// slice undercounts, so callers prefer the unbounded source.
func CountsFromHistory(history []models.Visitor, now time.Time) Counts {
	var c Counts
	today := now.Format("2006-01-02")
	for _, v := range history {
		if v.LastVisit.IsZero() {
			continue
		}
		if v.LastVisit.In(now.Location()).Format("2006-01-02") == today {
			c.SessionsToday++
		}
		if now.Sub(v.LastVisit) <= time.Hour {
			c.SessionsLastHour++
		}
	}
	return c
}

// Thresholds parameterizes the heuristic rules.
type Thresholds struct {
	// DailyWindow is how many of the newest history rows are examined for
	// the daily-visitor rule.
	DailyWindow int

	// DailyMinDays is the distinct calendar-day count within the window
	// that marks a daily visitor.
	DailyMinDays int

	// MaxSessionsPerDay flags an IP exceeding this many sessions today.
	MaxSessionsPerDay int

	// LongSession flags any historical session lasting longer than this.
	LongSession time.Duration

	// ShortSession and MaxShortSessions flag bursts of very short
	// sessions, but only once the IP has ShortSessionMinTotal total
	// visits (avoids flagging brand-new visitors).
	ShortSession         time.Duration
	MaxShortSessions     int
	ShortSessionMinTotal int

	// MaxSessionsPerHour flags an IP exceeding this many sessions within
	// the last hour.
	MaxSessionsPerHour int
}

// DefaultThresholds returns the production rule parameters.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DailyWindow:          7,
		DailyMinDays:         3,
		MaxSessionsPerDay:    10,
		LongSession:          2 * time.Hour,
		ShortSession:         10 * time.Second,
		MaxShortSessions:     5,
		ShortSessionMinTotal: 10,
		MaxSessionsPerHour:   3,
	}
}

// Evaluate computes the heuristic signals for the current visit.
// sessionSeen indicates whether a row already exists for this session id;
// history holds rows sharing the client IP ordered newest-first (callers
// pass at most a bounded recent slice); counts holds the unbounded
// frequency counters for the same IP.
func Evaluate(sessionSeen bool, history []models.Visitor, counts Counts, now time.Time, th Thresholds) Signals {
	s := Signals{NewVisitor: !sessionSeen}

	if isDailyVisitor(history, now, th) {
		s.DailyVisitor = true
		s.Reasons = append(s.Reasons, fmt.Sprintf(
			"Daily visitor: seen on %d+ distinct days within the last %d visits",
			th.DailyMinDays, th.DailyWindow))
	}

	unusual := unusualReasons(history, counts, th)
	if len(unusual) > 0 {
		s.UnusualPattern = true
		s.Reasons = append(s.Reasons, unusual...)
	}

	return s
}

// isDailyVisitor reports whether the newest DailyWindow rows span at least
// DailyMinDays distinct calendar days.
func isDailyVisitor(history []models.Visitor, now time.Time, th Thresholds) bool {
	window := history
	if len(window) > th.DailyWindow {
		window = window[:th.DailyWindow]
	}

	days := make(map[string]struct{}, len(window))
	for _, v := range window {
		if v.LastVisit.IsZero() {
			continue
		}
		days[v.LastVisit.In(now.Location()).Format("2006-01-02")] = struct{}{}
	}
	return len(days) >= th.DailyMinDays
}

// unusualReasons applies the duration rules over the history window and
// the frequency rules over the unbounded counters.
func unusualReasons(history []models.Visitor, counts Counts, th Thresholds) []string {
	var reasons []string

	var shortSessions, totalVisits int
	var longest time.Duration

	for _, v := range history {
		totalVisits += v.VisitCount

		d := time.Duration(v.SessionDuration) * time.Second
		if d > longest {
			longest = d
		}
		if d < th.ShortSession {
			shortSessions++
		}
	}

	if counts.SessionsToday > th.MaxSessionsPerDay {
		reasons = append(reasons, fmt.Sprintf(
			"High frequency: %d visits from this IP today", counts.SessionsToday))
	}
	if longest > th.LongSession {
		reasons = append(reasons, fmt.Sprintf(
			"Long session: %s in a single session", longest.Round(time.Minute)))
	}
	if shortSessions > th.MaxShortSessions && totalVisits > th.ShortSessionMinTotal {
		reasons = append(reasons, fmt.Sprintf(
			"Rapid sampling: %d sessions under %s", shortSessions, th.ShortSession))
	}
	if counts.SessionsLastHour > th.MaxSessionsPerHour {
		reasons = append(reasons, fmt.Sprintf(
			"Burst: %d visits within the last hour", counts.SessionsLastHour))
	}

	return reasons
}
