package binding

import (
	"github.com/gkobilansky/variant-goat/internal/analytics"
	"github.com/gkobilansky/variant-goat/internal/assign"
	"github.com/gkobilansky/variant-goat/internal/registry"
)

// Session binds one visitor context to the engine so presentational callers
// can consume variant configuration without knowing selection mechanics.
type Session struct {
	reg       *registry.Registry
	engine    *assign.Engine
	emitter   *analytics.Emitter
	visitorID string
}

func New(reg *registry.Registry, engine *assign.Engine, emitter *analytics.Emitter, visitorID string) *Session {
	return &Session{reg: reg, engine: engine, emitter: emitter, visitorID: visitorID}
}

// ConfigFor resolves a test and returns only the variant's opaque
// configuration payload, or nil when nothing resolves.
func (s *Session) ConfigFor(testID string) map[string]any {
	v, ok := s.engine.Resolve(testID, s.visitorID)
	if !ok {
		return nil
	}
	return v.Config
}

// Bound couples a resolved variant with trackers pre-filled with the test
// id, so callers never thread it manually.
type Bound struct {
	Variant          *registry.Variant
	TrackConversion  func(conversionType string, metadata map[string]string)
	TrackInteraction func(interactionType string, metadata map[string]string)
}

// VariantFor resolves a test and returns the full variant plus bound
// tracking callables.
func (s *Session) VariantFor(testID string) (*Bound, bool) {
	v, ok := s.engine.Resolve(testID, s.visitorID)
	if !ok {
		return nil, false
	}
	return &Bound{
		Variant: v,
		TrackConversion: func(conversionType string, metadata map[string]string) {
			s.emitter.TrackConversion(testID, conversionType, metadata)
		},
		TrackInteraction: func(interactionType string, metadata map[string]string) {
			s.emitter.TrackInteraction(testID, interactionType, metadata)
		},
	}, true
}

// TrackConversion records a conversion without resolving (and therefore
// without ever assigning). Unassigned visitors produce no event.
func (s *Session) TrackConversion(testID, conversionType string, metadata map[string]string) {
	s.emitter.TrackConversion(testID, conversionType, metadata)
}

// TrackInteraction mirrors TrackConversion for interactions.
func (s *Session) TrackInteraction(testID, interactionType string, metadata map[string]string) {
	s.emitter.TrackInteraction(testID, interactionType, metadata)
}

// Force pins a test to a variant through the engine's debug override.
func (s *Session) Force(testID, variantID string) {
	s.engine.ForceVariant(testID, variantID)
}

// DebugEntry is one test's resolved state, for inspection.
type DebugEntry struct {
	TestID    string         `json:"test_id"`
	TestName  string         `json:"test_name"`
	Enabled   bool           `json:"enabled"`
	VariantID string         `json:"variant_id,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
}

// DebugInfo reconstructs the currently resolved variant and configuration
// for every test in the registry.
func (s *Session) DebugInfo() []DebugEntry {
	tests := s.reg.Tests()
	out := make([]DebugEntry, 0, len(tests))
	for _, t := range tests {
		entry := DebugEntry{TestID: t.ID, TestName: t.Name, Enabled: t.Enabled}
		if v, ok := s.engine.Resolve(t.ID, s.visitorID); ok {
			entry.VariantID = v.ID
			entry.Config = v.Config
		}
		out = append(out, entry)
	}
	return out
}
