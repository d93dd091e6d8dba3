package analytics

import (
	"time"

	"go.uber.org/zap"

	"github.com/gkobilansky/variant-goat/internal/config"
	"github.com/gkobilansky/variant-goat/internal/storage"
)

type EventType string

const (
	EventAssigned    EventType = "assigned"
	EventViewed      EventType = "viewed"
	EventInteraction EventType = "interaction"
	EventConversion  EventType = "conversion"
)

// Event is one analytics datapoint. Immutable once constructed; the engine
// never tracks whether it was delivered.
type Event struct {
	Type      EventType
	TestID    string
	VariantID string
	Timestamp time.Time
	Metadata  map[string]string
}

// Sink receives dispatched events. The payload always carries test_id and
// variant_id; the rest is event metadata. A nil sink drops everything.
type Sink func(eventName string, payload map[string]string)

// Emitter converts lifecycle moments into events and forwards them to the
// sink. Emission is best-effort and never raises to the caller.
type Emitter struct {
	cfg   *config.Config
	store storage.Store
	sink  Sink
	log   *zap.Logger
}

func NewEmitter(cfg *config.Config, store storage.Store, sink Sink, log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{cfg: cfg, store: store, sink: sink, log: log}
}

// Emit builds and dispatches an event. No-op when analytics is off. In debug
// mode the event is surfaced on the diagnostic log before dispatch.
func (m *Emitter) Emit(typ EventType, testID, variantID string, metadata map[string]string) {
	if !m.cfg.Analytics {
		return
	}

	ev := Event{
		Type:      typ,
		TestID:    testID,
		VariantID: variantID,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}

	if m.cfg.Debug {
		m.log.Debug("analytics event",
			zap.String("type", string(ev.Type)),
			zap.String("test_id", ev.TestID),
			zap.String("variant_id", ev.VariantID),
			zap.Any("metadata", ev.Metadata))
	}

	if m.sink == nil {
		return
	}

	payload := make(map[string]string, len(ev.Metadata)+2)
	for k, v := range ev.Metadata {
		payload[k] = v
	}
	payload["test_id"] = ev.TestID
	payload["variant_id"] = ev.VariantID
	m.sink(string(ev.Type), payload)
}

// TrackConversion records a goal completion attributable to a variant.
// Visitors without a stored assignment for the test produce no event.
func (m *Emitter) TrackConversion(testID, conversionType string, metadata map[string]string) {
	variantID, ok := m.store.GetVariant(testID)
	if !ok {
		return
	}
	if conversionType == "" {
		conversionType = "default"
	}
	m.Emit(EventConversion, testID, variantID, merged(metadata, "conversion_type", conversionType))
}

// TrackInteraction records a variant-attributable interaction, gated the
// same way as conversions.
func (m *Emitter) TrackInteraction(testID, interactionType string, metadata map[string]string) {
	variantID, ok := m.store.GetVariant(testID)
	if !ok {
		return
	}
	m.Emit(EventInteraction, testID, variantID, merged(metadata, "interaction_type", interactionType))
}

func merged(md map[string]string, key, val string) map[string]string {
	out := make(map[string]string, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	out[key] = val
	return out
}
