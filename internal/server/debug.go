package server

import (
	"encoding/json"
	"net/http"
)

// The debug console mirrors the engine's introspection and override surface
// over HTTP. It is only routed when debug mode is on, and sits behind the
// token middleware like any other operator endpoint.

func (s *Server) handleDebugInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vid := s.visitorID(w, r)
	sess := s.session(w, r, vid)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"visitor_id": vid,
		"tests":      sess.DebugInfo(),
	})
}

func (s *Server) handleDebugVariant(w http.ResponseWriter, r *http.Request) {
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

type debugForceRequest struct {
	TestID    string `json:"t"`
	VariantID string `json:"v"`
	VisitorID string `json:"vid"`
}

func (s *Server) handleDebugForce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req debugForceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.TestID == "" || req.VariantID == "" || req.VisitorID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	sess := s.session(w, r, req.VisitorID)
	sess.Force(req.TestID, req.VariantID)

	w.WriteHeader(http.StatusNoContent)
}

type debugTrackRequest struct {
	TestID    string            `json:"t"`
	Kind      string            `json:"type"`
	VisitorID string            `json:"vid"`
	Metadata  map[string]string `json:"meta"`
}

func (s *Server) handleDebugConvert(w http.ResponseWriter, r *http.Request) {
	s.handleDebugTrack(w, r, "conversion")
}

func (s *Server) handleDebugInteract(w http.ResponseWriter, r *http.Request) {
	s.handleDebugTrack(w, r, "interaction")
}

func (s *Server) handleDebugTrack(w http.ResponseWriter, r *http.Request, eventType string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req debugTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.TestID == "" || req.VisitorID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	sess := s.session(w, r, req.VisitorID)
	if eventType == "conversion" {
		sess.TrackConversion(req.TestID, req.Kind, req.Metadata)
	} else {
		if req.Kind == "" {
			http.Error(w, "type required for interaction", http.StatusBadRequest)
			return
		}
		sess.TrackInteraction(req.TestID, req.Kind, req.Metadata)
	}

	w.WriteHeader(http.StatusNoContent)
}
