package storage

import (
	"encoding/base64"
	"encoding/json"
)

// Store is the assignment persistence contract the engine talks to.
// Implementations never return errors: a failed read is a miss and a failed
// write is silently dropped, so resolution always proceeds.
type Store interface {
	// GetVariant returns the stored variant id for a test, if any.
	GetVariant(testID string) (string, bool)
	// SetVariant records an assignment.
	SetVariant(testID, variantID string)
}

// Tier is one backing store. Implementations swallow their own failures.
type Tier interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Dual layers two tiers behind the Store contract. Reads prefer the primary
// tier (one entry per test, keyed by prefix+testID) and fall back to the
// mirror (a single entry holding a serialized map of all assignments).
// Writes go to both unconditionally; the mirror write is read-modify-write.
type Dual struct {
	primary   Tier
	mirror    Tier
	prefix    string
	mirrorKey string
}

// NewDual wires two tiers together. A nil tier degrades to Null, so an
// environment without one of the stores still resolves correctly.
func NewDual(primary, mirror Tier, prefix, mirrorKey string) *Dual {
	if primary == nil {
		primary = Null{}
	}
	if mirror == nil {
		mirror = Null{}
	}
	return &Dual{primary: primary, mirror: mirror, prefix: prefix, mirrorKey: mirrorKey}
}

func (d *Dual) GetVariant(testID string) (string, bool) {
	if v, ok := d.primary.Get(d.prefix + testID); ok && v != "" {
		return v, true
	}
	v, ok := d.mirrorMap()[testID]
	return v, ok && v != ""
}

func (d *Dual) SetVariant(testID, variantID string) {
	d.primary.Set(d.prefix+testID, variantID)

	m := d.mirrorMap()
	m[testID] = variantID
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	d.mirror.Set(d.mirrorKey, base64.RawURLEncoding.EncodeToString(raw))
}

// mirrorMap decodes the mirror entry. Any malformed payload reads as empty;
// corruption must never surface past this layer.
func (d *Dual) mirrorMap() map[string]string {
	raw, ok := d.mirror.Get(d.mirrorKey)
	if !ok || raw == "" {
		return map[string]string{}
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return map[string]string{}
	}
	m := map[string]string{}
	if err := json.Unmarshal(decoded, &m); err != nil {
		return map[string]string{}
	}
	return m
}

// Null is the tier used when the environment has no storage at all:
// every read misses and every write is a no-op.
type Null struct{}

func (Null) Get(string) (string, bool) { return "", false }
func (Null) Set(string, string)        {}

// Memory is a map-backed tier for tests and one-shot CLI runs.
type Memory struct {
	m map[string]string
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (t *Memory) Get(key string) (string, bool) {
	v, ok := t.m[key]
	return v, ok
}

func (t *Memory) Set(key, value string) {
	t.m[key] = value
}
