package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status        string `json:"status"`
	TestsCount    int    `json:"tests_count"`
	EventsCount   int64  `json:"events_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var eventCount int64
	if s.events != nil {
		// Best-effort; health stays ok if the count fails
		if n, err := s.events.Count(context.Background()); err == nil {
			eventCount = n
		}
	}

	response := HealthResponse{
		Status:        "ok",
		TestsCount:    len(s.reg.Tests()),
		EventsCount:   eventCount,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ResolveResponse is what presentational callers get back: the variant id
// and its opaque configuration payload.
type ResolveResponse struct {
	TestID    string         `json:"test_id"`
	VariantID string         `json:"variant_id"`
	Config    map[string]any `json:"config"`
}

// handleResolve assigns or recalls the visitor's variant for one test and
// mirrors the assignment into the response cookies.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	testID := r.URL.Query().Get("t")
	if testID == "" {
		http.Error(w, "t parameter required", http.StatusBadRequest)
		return
	}

	vid := s.visitorID(w, r)
	sess := s.session(w, r, vid)

	bound, ok := sess.VariantFor(testID)
	if !ok {
		http.Error(w, "Test not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ResolveResponse{
		TestID:    testID,
		VariantID: bound.Variant.ID,
		Config:    bound.Variant.Config,
	})
}

// BeaconRequest is an incoming interaction or conversion beacon.
type BeaconRequest struct {
	TestID    string            `json:"t"`
	EventType string            `json:"e"`
	Kind      string            `json:"type"`
	VisitorID string            `json:"vid"`
	Metadata  map[string]string `json:"meta"`
}

func (s *Server) handleBeacon(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BeaconRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.TestID == "" || req.VisitorID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	sess := s.session(w, r, req.VisitorID)

	switch req.EventType {
	case "conversion":
		sess.TrackConversion(req.TestID, req.Kind, req.Metadata)
	case "interaction":
		if req.Kind == "" {
			http.Error(w, "type required for interaction", http.StatusBadRequest)
			return
		}
		sess.TrackInteraction(req.TestID, req.Kind, req.Metadata)
	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
		return
	}

	// Fire-and-forget: accepted beacons always succeed, even when gating
	// dropped the event.
	w.WriteHeader(http.StatusNoContent)
}

// handleTestsAPI returns the registry for external consumers. Variant
// configuration is included; the registry is externally authored static
// data, not a secret.
func (s *Server) handleTestsAPI(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tests := s.reg.Tests()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tests)
}

func setCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
