package assign

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/gkobilansky/variant-goat/internal/analytics"
	"github.com/gkobilansky/variant-goat/internal/config"
	"github.com/gkobilansky/variant-goat/internal/registry"
	"github.com/gkobilansky/variant-goat/internal/storage"
)

// Engine resolves visitors to variants. Each (visitor, test) pair moves from
// unassigned to assigned exactly once; the stored assignment wins on every
// later resolution as long as its variant still exists on the test.
type Engine struct {
	cfg    *config.Config
	reg    *registry.Registry
	store  storage.Store
	events *analytics.Emitter
	rand   func() float64
	now    func() time.Time
	log    *zap.Logger
}

type Option func(*Engine)

// WithRand substitutes the randomness source used for anonymous visitors.
func WithRand(fn func() float64) Option {
	return func(e *Engine) { e.rand = fn }
}

// WithClock substitutes the clock used for activation windows.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

func New(cfg *config.Config, reg *registry.Registry, store storage.Store, events *analytics.Emitter, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		cfg:    cfg,
		reg:    reg,
		store:  store,
		events: events,
		rand:   rand.Float64,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve returns the variant the visitor sees for a test. The second
// return is false only when no variant is available at all (unknown test,
// or a default variant id that matches nothing).
//
// Disabled tests resolve to their default variant regardless of stored
// state. An empty visitorID selects randomly; a non-empty one buckets
// deterministically, so the same visitor lands in the same variant across
// devices without reading storage.
func (e *Engine) Resolve(testID, visitorID string) (*registry.Variant, bool) {
	test, ok := e.reg.Lookup(testID)
	if !ok {
		return nil, false
	}

	if !e.cfg.Enabled || !test.Enabled || !test.ActiveAt(e.now()) {
		return test.Default()
	}

	if stored, ok := e.store.GetVariant(testID); ok {
		if v, ok := test.Variant(stored); ok {
			e.events.Emit(analytics.EventViewed, testID, v.ID, nil)
			return v, true
		}
		// Stored id no longer exists on the test: reassign below.
	}

	v, ok := e.pick(test, visitorID)
	if !ok {
		return test.Default()
	}

	e.store.SetVariant(testID, v.ID)
	e.events.Emit(analytics.EventAssigned, testID, v.ID, nil)
	return v, true
}

// pick runs weighted selection over the variants with weight > 0.
func (e *Engine) pick(test *registry.Test, visitorID string) (*registry.Variant, bool) {
	var candidates []*registry.Variant
	for i := range test.Variants {
		if test.Variants[i].Weight > 0 {
			candidates = append(candidates, &test.Variants[i])
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	var scalar float64
	if visitorID != "" {
		scalar = bucketScalar(visitorID + test.ID)
	} else {
		scalar = e.rand()
	}

	target := scalar * 100
	cumulative := 0
	for _, v := range candidates {
		cumulative += v.Weight
		if float64(cumulative) >= target {
			return v, true
		}
	}

	// Weights sum below 100 and the scalar landed in the unallocated gap:
	// unallocated traffic falls through to the first qualifying variant.
	return candidates[0], true
}

// ForceVariant pins a test to a variant, bypassing selection. Only honored
// in debug mode. The variant id is written as given, without checking it
// exists on the test; override callers own that correctness.
func (e *Engine) ForceVariant(testID, variantID string) {
	if !e.cfg.Debug {
		e.log.Warn("force variant ignored outside debug mode",
			zap.String("test_id", testID),
			zap.String("variant_id", variantID))
		return
	}
	e.store.SetVariant(testID, variantID)
	e.log.Debug("variant forced",
		zap.String("test_id", testID),
		zap.String("variant_id", variantID))
}
