package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/gkobilansky/variant-goat/internal/config"
	"github.com/gkobilansky/variant-goat/internal/events"
	"github.com/gkobilansky/variant-goat/internal/registry"
	"github.com/gkobilansky/variant-goat/internal/server"
	"github.com/gkobilansky/variant-goat/internal/storage"
)

type fixture struct {
	srv    *server.Server
	events *events.Store
	db     *badger.DB
}

func setup(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	reg := registry.New(
		&registry.Test{
			ID:      "hero",
			Name:    "Hero Headline",
			Enabled: true,
			Variants: []registry.Variant{
				{ID: "a", Weight: 60, Config: map[string]any{"headline": "Ship Faster"}},
				{ID: "b", Weight: 40, Config: map[string]any{"headline": "Build Better"}},
			},
			DefaultVariant: "a",
		},
	)

	db, err := storage.OpenBadgerInMemory()
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ev, err := events.Open(t.TempDir() + "/events.db")
	if err != nil {
		t.Fatalf("failed to open events store: %v", err)
	}
	t.Cleanup(func() { ev.Close() })

	return &fixture{
		srv:    server.New(cfg, reg, db, ev, nil, ""),
		events: ev,
		db:     db,
	}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeResolve(t *testing.T, w *httptest.ResponseRecorder) server.ResolveResponse {
	t.Helper()
	var resp server.ResolveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestResolveEndpoint(t *testing.T) {
	f := setup(t, config.Default())

	w := f.do(t, httptest.NewRequest(http.MethodGet, "/v?t=hero&vid=alice", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decodeResolve(t, w)
	if resp.TestID != "hero" {
		t.Errorf("test_id = %q", resp.TestID)
	}
	if resp.VariantID != "a" && resp.VariantID != "b" {
		t.Errorf("variant_id = %q, want a or b", resp.VariantID)
	}
	if resp.Config == nil {
		t.Error("expected a config payload")
	}

	// The assignment must be mirrored into a cookie.
	foundMirror := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "vgt_assignments" && c.Value != "" {
			foundMirror = true
			if c.MaxAge <= 0 {
				t.Errorf("mirror cookie MaxAge = %d, want positive expiry", c.MaxAge)
			}
		}
	}
	if !foundMirror {
		t.Error("expected the vgt_assignments mirror cookie to be set")
	}

	// Same visitor again: stable assignment across requests.
	first := resp.VariantID
	for i := 0; i < 5; i++ {
		w := f.do(t, httptest.NewRequest(http.MethodGet, "/v?t=hero&vid=alice", nil))
		if got := decodeResolve(t, w).VariantID; got != first {
			t.Fatalf("assignment changed from %q to %q", first, got)
		}
	}
}

func TestResolveEndpoint_MintsVisitorID(t *testing.T) {
	f := setup(t, config.Default())

	w := f.do(t, httptest.NewRequest(http.MethodGet, "/v?t=hero", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "vgt_vid" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected a generated visitor id cookie")
	}
}

func TestResolveEndpoint_UnknownTest(t *testing.T) {
	f := setup(t, config.Default())

	w := f.do(t, httptest.NewRequest(http.MethodGet, "/v?t=nope&vid=alice", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestResolveEndpoint_MissingParam(t *testing.T) {
	f := setup(t, config.Default())

	w := f.do(t, httptest.NewRequest(http.MethodGet, "/v", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func beacon(t *testing.T, f *fixture, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal beacon: %v", err)
	}
	return f.do(t, httptest.NewRequest(http.MethodPost, "/b", bytes.NewReader(raw)))
}

func TestBeacon_ConversionGating(t *testing.T) {
	f := setup(t, config.Default())
	ctx := context.Background()

	// No prior assignment: accepted, but no event recorded.
	w := beacon(t, f, map[string]any{"t": "hero", "e": "conversion", "type": "signup", "vid": "bob"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	stats, err := f.events.VariantStats(ctx, "hero")
	if err != nil {
		t.Fatalf("VariantStats failed: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("stats = %+v, want none before assignment", stats)
	}

	// Assign bob, then convert: event recorded against the assigned variant.
	rw := f.do(t, httptest.NewRequest(http.MethodGet, "/v?t=hero&vid=bob", nil))
	assigned := decodeResolve(t, rw).VariantID

	w = beacon(t, f, map[string]any{"t": "hero", "e": "conversion", "type": "signup", "vid": "bob"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	stats, err = f.events.VariantStats(ctx, "hero")
	if err != nil {
		t.Fatalf("VariantStats failed: %v", err)
	}
	var conversions int
	for _, st := range stats {
		if st.VariantID == assigned {
			conversions = st.Conversions
		}
	}
	if conversions != 1 {
		t.Errorf("conversions for %s = %d, want 1", assigned, conversions)
	}
}

func TestBeacon_Validation(t *testing.T) {
	f := setup(t, config.Default())

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing test", map[string]any{"e": "conversion", "vid": "bob"}},
		{"missing visitor", map[string]any{"t": "hero", "e": "conversion"}},
		{"bad event type", map[string]any{"t": "hero", "e": "view", "vid": "bob"}},
		{"interaction without type", map[string]any{"t": "hero", "e": "interaction", "vid": "bob"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := beacon(t, f, tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	f := setup(t, config.Default())

	w := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp server.HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.TestsCount != 1 {
		t.Errorf("tests_count = %d, want 1", resp.TestsCount)
	}
}

func TestTestsAPI(t *testing.T) {
	f := setup(t, config.Default())

	w := f.do(t, httptest.NewRequest(http.MethodGet, "/api/tests", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var tests []registry.Test
	if err := json.NewDecoder(w.Body).Decode(&tests); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(tests) != 1 || tests[0].ID != "hero" {
		t.Errorf("tests = %+v", tests)
	}
}
