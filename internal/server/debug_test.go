package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gkobilansky/variant-goat/internal/config"
)

func debugConfig() *config.Config {
	cfg := config.Default()
	cfg.Debug = true
	return cfg
}

func withToken(f *fixture, req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "vgt_token", Value: f.srv.Token()})
	return req
}

func TestDebugConsole_NotMountedWithoutDebug(t *testing.T) {
	f := setup(t, config.Default())

	w := f.do(t, httptest.NewRequest(http.MethodGet, "/debug/info", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when debug mode is off", w.Code)
	}
}

func TestDebugConsole_RequiresToken(t *testing.T) {
	f := setup(t, debugConfig())

	w := f.do(t, httptest.NewRequest(http.MethodGet, "/debug/info", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without token", w.Code)
	}

	w = f.do(t, httptest.NewRequest(http.MethodGet, "/debug/info?token=wrong", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 with bad token", w.Code)
	}
}

func TestDebugConsole_QueryTokenServedDirectly(t *testing.T) {
	f := setup(t, debugConfig())

	// A valid query token answers the request itself, no redirect round
	// trip, and sets the cookie so the param can be dropped next time.
	w := f.do(t, httptest.NewRequest(http.MethodGet, "/debug/info?token="+f.srv.Token()+"&vid=alice", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var tokenCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "vgt_token" {
			tokenCookie = c
		}
	}
	if tokenCookie == nil || tokenCookie.Value != f.srv.Token() {
		t.Fatalf("token cookie = %+v, want the console token", tokenCookie)
	}

	// The cookie alone authenticates the follow-up request.
	req := httptest.NewRequest(http.MethodGet, "/debug/info?vid=alice", nil)
	req.AddCookie(tokenCookie)
	if w := f.do(t, req); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with cookie only", w.Code)
	}
}

func TestDebugInfo(t *testing.T) {
	f := setup(t, debugConfig())

	req := withToken(f, httptest.NewRequest(http.MethodGet, "/debug/info?vid=alice", nil))
	w := f.do(t, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		VisitorID string `json:"visitor_id"`
		Tests     []struct {
			TestID    string `json:"test_id"`
			VariantID string `json:"variant_id"`
		} `json:"tests"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.VisitorID != "alice" {
		t.Errorf("visitor_id = %q, want alice", resp.VisitorID)
	}
	if len(resp.Tests) != 1 || resp.Tests[0].TestID != "hero" || resp.Tests[0].VariantID == "" {
		t.Errorf("tests = %+v", resp.Tests)
	}
}

func TestDebugForce(t *testing.T) {
	f := setup(t, debugConfig())

	body, _ := json.Marshal(map[string]string{"t": "hero", "v": "b", "vid": "carol"})
	req := withToken(f, httptest.NewRequest(http.MethodPost, "/debug/force", bytes.NewReader(body)))
	w := f.do(t, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	// The forced assignment wins on the public resolve path.
	rw := f.do(t, httptest.NewRequest(http.MethodGet, "/v?t=hero&vid=carol", nil))
	if got := decodeResolve(t, rw).VariantID; got != "b" {
		t.Errorf("resolved variant = %q, want forced b", got)
	}
}

func TestDebugVariant(t *testing.T) {
	f := setup(t, debugConfig())

	req := withToken(f, httptest.NewRequest(http.MethodGet, "/debug/variant?t=hero&vid=alice", nil))
	w := f.do(t, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decodeResolve(t, w)
	if resp.VariantID != "a" && resp.VariantID != "b" {
		t.Errorf("variant_id = %q", resp.VariantID)
	}
}

func TestDebugConvert_Gated(t *testing.T) {
	f := setup(t, debugConfig())

	// Unassigned visitor: accepted, nothing recorded.
	body, _ := json.Marshal(map[string]string{"t": "hero", "type": "signup", "vid": "dave"})
	req := withToken(f, httptest.NewRequest(http.MethodPost, "/debug/convert", bytes.NewReader(body)))
	if w := f.do(t, req); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	evs, err := f.events.Events(context.Background(), "hero")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	for _, e := range evs {
		if e.EventType == "conversion" {
			t.Error("conversion recorded for unassigned visitor")
		}
	}
}
