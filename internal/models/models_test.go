// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "client@maison.com", NormalizeEmail("  Client@Maison.COM "))
	assert.Equal(t, "a@b.co", NormalizeEmail("a@b.co"))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestMergePage(t *testing.T) {
	pages := MergePage(nil, "/")
	assert.Equal(t, []string{"/"}, pages)

	pages = MergePage(pages, "/collection")
	assert.Equal(t, []string{"/", "/collection"}, pages)

	// Duplicates and empties leave the set unchanged.
	assert.Equal(t, pages, MergePage(pages, "/"))
	assert.Equal(t, pages, MergePage(pages, ""))
}

func TestLocationString(t *testing.T) {
	var nilGeo *Geolocation
	assert.Equal(t, "", nilGeo.LocationString())

	g := &Geolocation{City: "Dubai", Country: "United Arab Emirates"}
	assert.Equal(t, "Dubai, United Arab Emirates", g.LocationString())

	g = &Geolocation{Country: "France"}
	assert.Equal(t, "France", g.LocationString())
}
