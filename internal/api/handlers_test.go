// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrineapp/vitrine/internal/config"
	"github.com/vitrineapp/vitrine/internal/mailer"
	"github.com/vitrineapp/vitrine/internal/models"
	"github.com/vitrineapp/vitrine/internal/notify"
)

// fakeStore is an in-memory Store with switchable write failures.
type fakeStore struct {
	visitors map[string]*models.Visitor
	history  []*models.Visitor
	subs     []*models.Subscription
	labels   map[string]string

	// sessionsToday/sessionsLastHour are the unbounded frequency counters
	// CountRecentSessions reports, independent of the bounded history.
	sessionsToday    int
	sessionsLastHour int

	pingErr    error
	failWrites bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		visitors: map[string]*models.Visitor{},
		labels:   map[string]string{},
	}
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) UpsertSubscription(_ context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if s.failWrites {
		return nil, errors.New("connection refused")
	}
	stored := *sub
	stored.Email = models.NormalizeEmail(sub.Email)
	stored.ID = int64(len(s.subs) + 1)
	s.subs = append(s.subs, &stored)
	return &stored, nil
}

func (s *fakeStore) GetVisitor(_ context.Context, sessionID string) (*models.Visitor, error) {
	if s.failWrites {
		return nil, errors.New("connection refused")
	}
	return s.visitors[sessionID], nil
}

func (s *fakeStore) UpsertVisitor(_ context.Context, v *models.Visitor, page string) (*models.Visitor, error) {
	if s.failWrites {
		return nil, errors.New("connection refused")
	}
	if existing, ok := s.visitors[v.SessionID]; ok {
		existing.VisitCount++
		existing.PagesVisited = models.MergePage(existing.PagesVisited, page)
		existing.LastVisit = time.Now()
		out := *existing
		return &out, nil
	}
	stored := *v
	stored.ID = int64(len(s.visitors) + 1)
	stored.VisitCount = 1
	s.visitors[v.SessionID] = &stored
	out := stored
	return &out, nil
}

func (s *fakeStore) VisitorHistoryByIP(_ context.Context, ip string, limit int) ([]*models.Visitor, error) {
	if s.failWrites {
		return nil, errors.New("connection refused")
	}
	history := s.history
	if len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (s *fakeStore) CountRecentSessions(_ context.Context, ip string) (int, int, error) {
	if s.failWrites {
		return 0, 0, errors.New("connection refused")
	}
	return s.sessionsToday, s.sessionsLastHour, nil
}

func (s *fakeStore) ListVisitors(_ context.Context, limit, offset int) ([]*models.Visitor, int, error) {
	if s.failWrites {
		return nil, 0, errors.New("connection refused")
	}
	if offset >= len(s.history) {
		return nil, len(s.history), nil
	}
	end := offset + limit
	if end > len(s.history) {
		end = len(s.history)
	}
	return s.history[offset:end], len(s.history), nil
}

func (s *fakeStore) LookupIPLabel(_ context.Context, ip string) string { return s.labels[ip] }

// fakeMailer captures the relayed lead.
type fakeMailer struct {
	configured bool
	result     mailer.Result
	gotEmail   string
	gotFields  map[string]string
}

func (m *fakeMailer) Configured() bool { return m.configured }

func (m *fakeMailer) Subscribe(_ context.Context, email string, fields map[string]string) mailer.Result {
	m.gotEmail = email
	m.gotFields = fields
	return m.result
}

// fakeNotifier records dispatched messages.
type fakeNotifier struct {
	kinds    []config.PathKind
	messages []notify.Message
}

func (n *fakeNotifier) Notify(_ context.Context, kind config.PathKind, msg notify.Message) bool {
	n.kinds = append(n.kinds, kind)
	n.messages = append(n.messages, msg)
	return true
}

// fakeGeo is a canned geolocation provider.
type fakeGeo struct {
	geo *models.Geolocation
	err error
}

func (g *fakeGeo) Lookup(context.Context, string) (*models.Geolocation, error) {
	return g.geo, g.err
}

func (g *fakeGeo) Name() string { return "fake" }

func dubaiGeo() *models.Geolocation {
	return &models.Geolocation{
		Country:     "United Arab Emirates",
		CountryCode: "AE",
		City:        "Dubai",
		Latitude:    25.2048,
		Longitude:   55.2708,
	}
}

type fixture struct {
	handler  *Handler
	store    *fakeStore
	mailer   *fakeMailer
	notifier *fakeNotifier
}

func newFixture() *fixture {
	store := newFakeStore()
	m := &fakeMailer{configured: true, result: mailer.Result{Delivered: true, Mechanism: "api"}}
	n := &fakeNotifier{}
	h := NewHandler(config.Config{}, store, &fakeGeo{geo: dubaiGeo()}, m, n)
	return &fixture{handler: h, store: store, mailer: m, notifier: n}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	f := newFixture()

	for _, email := range []string{"", "plainaddress", "no@tld", "a b@c.com", "user@domain.c"} {
		rec := postJSON(t, f.handler.Subscribe, "/api/subscribe", map[string]string{"email": email})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "email %q", email)
		body := decodeBody[errorResponse](t, rec)
		assert.NotEmpty(t, body.Error)
	}
	assert.Empty(t, f.store.subs)
	assert.Empty(t, f.notifier.messages)
}

func TestSubscribeHappyPath(t *testing.T) {
	f := newFixture()

	rec := postJSON(t, f.handler.Subscribe, "/api/subscribe", map[string]string{
		"email":    "  Client@Maison.COM ",
		"fullName": "A. Client",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[subscribeResponse](t, rec)
	assert.True(t, body.Success)
	assert.True(t, body.MailerliteSuccess)
	assert.NotEmpty(t, body.Timestamp)

	// Lead normalized before relay and persistence.
	assert.Equal(t, "client@maison.com", f.mailer.gotEmail)
	assert.Equal(t, "A. Client", f.mailer.gotFields["name"])
	require.Len(t, f.store.subs, 1)
	assert.Equal(t, "client@maison.com", f.store.subs[0].Email)
	assert.Equal(t, "United Arab Emirates", f.store.subs[0].Country)
	assert.Equal(t, "desktop", f.store.subs[0].DeviceType)

	require.Len(t, f.notifier.kinds, 1)
	assert.Equal(t, config.PathSubscribe, f.notifier.kinds[0])
	assert.Contains(t, f.notifier.messages[0].Render(), "client@maison.com")
}

func TestSubscribeMasksInfrastructureFailures(t *testing.T) {
	f := newFixture()
	f.store.failWrites = true
	f.mailer.result = mailer.Result{}

	rec := postJSON(t, f.handler.Subscribe, "/api/subscribe", map[string]string{"email": "a@b.co"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[subscribeResponse](t, rec)
	assert.True(t, body.Success)
	assert.False(t, body.MailerliteSuccess)
}

func TestSubscribeWithoutStoreOrMailer(t *testing.T) {
	h := NewHandler(config.Config{}, nil, &fakeGeo{err: errors.New("down")}, nil, nil)

	rec := postJSON(t, h.Subscribe, "/api/subscribe", map[string]string{"email": "a@b.co"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[subscribeResponse](t, rec)
	assert.True(t, body.Success)
	assert.False(t, body.MailerliteSuccess)
}

func TestTrackVisitorRequiresSessionID(t *testing.T) {
	f := newFixture()

	for _, payload := range []map[string]string{
		{"pageUrl": "/"},
		{"sessionId": "   ", "pageUrl": "/"},
	} {
		rec := postJSON(t, f.handler.TrackVisitor, "/api/visitors", payload)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody[errorResponse](t, rec)
		assert.Contains(t, body.Error, "sessionId")
	}
	assert.Empty(t, f.notifier.messages)
}

func TestTrackVisitorNewSessionNotifies(t *testing.T) {
	f := newFixture()

	rec := postJSON(t, f.handler.TrackVisitor, "/api/visitors", map[string]string{
		"sessionId": "sess-1",
		"pageUrl":   "/collection",
		"userAgent": "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0) Safari/604.1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[trackVisitorResponse](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "United Arab Emirates", body.Country)
	assert.Equal(t, "AE", body.CountryCode)
	require.NotNil(t, body.Visitor)
	assert.Equal(t, "sess-1", body.Visitor.SessionID)
	assert.Equal(t, 1, body.Visitor.VisitCount)
	assert.Equal(t, []string{"/collection"}, body.Visitor.PagesVisited)
	assert.Equal(t, "mobile", body.Visitor.DeviceType)
	assert.NotEmpty(t, body.Visitor.UAETime)

	require.Len(t, f.notifier.kinds, 1)
	assert.Equal(t, config.PathVisitor, f.notifier.kinds[0])
	assert.Equal(t, "New visitor", f.notifier.messages[0].Header)
}

func TestTrackVisitorQuietReturningHit(t *testing.T) {
	f := newFixture()
	f.store.visitors["sess-1"] = &models.Visitor{
		SessionID:    "sess-1",
		IPAddress:    "192.0.2.1",
		PagesVisited: []string{"/"},
		VisitCount:   1,
		LastVisit:    time.Now().Add(-2 * time.Hour),
	}
	f.store.history = []*models.Visitor{f.store.visitors["sess-1"]}

	rec := postJSON(t, f.handler.TrackVisitor, "/api/visitors", map[string]string{
		"sessionId": "sess-1",
		"pageUrl":   "/",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[trackVisitorResponse](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Visitor.VisitCount)
	// Same page resubmitted: the set must not grow.
	assert.Equal(t, []string{"/"}, body.Visitor.PagesVisited)
	assert.Empty(t, f.notifier.messages, "quiet returning hit must not notify")
}

func TestTrackVisitorReturningHitWithBurstNotifies(t *testing.T) {
	f := newFixture()
	f.store.visitors["sess-1"] = &models.Visitor{
		SessionID:  "sess-1",
		IPAddress:  "192.0.2.1",
		VisitCount: 1,
		LastVisit:  time.Now().Add(-time.Minute),
	}
	// Four sessions from this IP within the last hour trips the burst rule.
	f.store.sessionsLastHour = 4
	f.store.sessionsToday = 4

	rec := postJSON(t, f.handler.TrackVisitor, "/api/visitors", map[string]string{
		"sessionId": "sess-1",
		"pageUrl":   "/",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.notifier.messages, 1)
	assert.Equal(t, "Returning visitor", f.notifier.messages[0].Header)
	assert.NotEmpty(t, f.notifier.messages[0].Alerts)
}

func TestTrackVisitorHighDailyFrequencyNotifies(t *testing.T) {
	f := newFixture()
	f.store.visitors["sess-1"] = &models.Visitor{
		SessionID:  "sess-1",
		IPAddress:  "192.0.2.1",
		VisitCount: 1,
		LastVisit:  time.Now().Add(-2 * time.Hour),
	}
	// Twelve same-day sessions recorded for this IP, of which the history
	// window only ever returns the newest seven rows. The frequency rule
	// must still fire from the full count.
	for i := 0; i < 12; i++ {
		f.store.history = append(f.store.history, &models.Visitor{
			IPAddress:  "192.0.2.1",
			VisitCount: 1,
			LastVisit:  time.Now().Add(-time.Duration(i+2) * time.Hour),
		})
	}
	f.store.sessionsToday = 12

	rec := postJSON(t, f.handler.TrackVisitor, "/api/visitors", map[string]string{
		"sessionId": "sess-1",
		"pageUrl":   "/",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, strings.Join(f.notifier.messages[0].Alerts, "\n"), "High frequency")
	assert.Contains(t, strings.Join(f.notifier.messages[0].Alerts, "\n"), "12 visits")
}

func TestTrackVisitorSurvivesStoreFailure(t *testing.T) {
	f := newFixture()
	f.store.failWrites = true

	rec := postJSON(t, f.handler.TrackVisitor, "/api/visitors", map[string]string{
		"sessionId": "sess-1",
		"pageUrl":   "/",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[trackVisitorResponse](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "sess-1", body.Visitor.SessionID)
}

func TestListVisitors(t *testing.T) {
	f := newFixture()
	for i := 0; i < 3; i++ {
		f.store.history = append(f.store.history, &models.Visitor{
			SessionID: "sess-" + strings.Repeat("x", i+1),
			IPAddress: "192.0.2.1",
		})
	}
	f.store.labels["192.0.2.1"] = "Office"

	req := httptest.NewRequest(http.MethodGet, "/api/visitors?limit=2&offset=1", nil)
	rec := httptest.NewRecorder()
	f.handler.ListVisitors(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[listVisitorsResponse](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 2, body.Limit)
	assert.Equal(t, 1, body.Offset)
	assert.Len(t, body.Visitors, 2)
}

func TestListVisitorsDefaultsAndClamps(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/visitors?limit=99999&offset=-4", nil)
	rec := httptest.NewRecorder()
	f.handler.ListVisitors(rec, req)

	body := decodeBody[listVisitorsResponse](t, rec)
	assert.Equal(t, maxListLimit, body.Limit)
	assert.Equal(t, 0, body.Offset)
	assert.NotNil(t, body.Visitors)
}

func TestHealthProbes(t *testing.T) {
	f := newFixture()

	rec := httptest.NewRecorder()
	f.handler.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	f.store.pingErr = errors.New("connection refused")
	rec = httptest.NewRecorder()
	f.handler.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterWiring(t *testing.T) {
	f := newFixture()
	router := NewRouter(config.ServerConfig{}, f.handler)

	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(`{"email":"bad"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
