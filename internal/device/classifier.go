// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Package device classifies user-agent strings into coarse device, browser,
// and operating-system categories via substring matching. It is a pure,
// total function: unrecognized agents fall back to "desktop"/"Unknown"
// rather than failing. Anything finer-grained than this is out of scope;
// the categories only feed notification text and analytics columns.
package device

import (
	"strings"

	"github.com/vitrineapp/vitrine/internal/models"
)

// Device type categories.
const (
	TypeDesktop = "desktop"
	TypeMobile  = "mobile"
	TypeTablet  = "tablet"
)

// Unknown is the fallback for browser and OS when no token matches.
const Unknown = "Unknown"

// Classify parses a user-agent string into coarse categories. It never
// fails; an empty or unrecognized agent yields desktop/Unknown/Unknown.
func Classify(userAgent string) models.DeviceInfo {
	return models.DeviceInfo{
		Type:    classifyType(userAgent),
		Browser: classifyBrowser(userAgent),
		OS:      classifyOS(userAgent),
	}
}

func classifyType(ua string) string {
	switch {
	case strings.Contains(ua, "iPad") || strings.Contains(ua, "Tablet"):
		return TypeTablet
	case strings.Contains(ua, "Mobile") || strings.Contains(ua, "Android") || strings.Contains(ua, "iPhone"):
		return TypeMobile
	default:
		return TypeDesktop
	}
}

func classifyBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "Edg"):
		return "Edge"
	case strings.Contains(ua, "OPR") || strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Chrome"):
		return "Chrome"
	case strings.Contains(ua, "Firefox"):
		return "Firefox"
	case strings.Contains(ua, "Safari"):
		return "Safari"
	default:
		return Unknown
	}
}

func classifyOS(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad"):
		return "iOS"
	case strings.Contains(ua, "Mac OS X") || strings.Contains(ua, "Macintosh"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	default:
		return Unknown
	}
}
