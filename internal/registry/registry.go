package registry

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Variant is one candidate configuration within a test. Config is an opaque
// payload owned by the presentational caller; the engine never looks inside.
type Variant struct {
	ID     string         `yaml:"id" json:"id"`
	Name   string         `yaml:"name" json:"name"`
	Weight int            `yaml:"weight" json:"weight"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Test is a named experiment. Variant order matters: weighted selection
// walks variants in declaration order.
type Test struct {
	ID             string     `yaml:"-" json:"id"`
	Name           string     `yaml:"name" json:"name"`
	Description    string     `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled        bool       `yaml:"enabled" json:"enabled"`
	Variants       []Variant  `yaml:"variants" json:"variants"`
	DefaultVariant string     `yaml:"default_variant" json:"default_variant"`
	StartsAt       *time.Time `yaml:"starts_at,omitempty" json:"starts_at,omitempty"`
	EndsAt         *time.Time `yaml:"ends_at,omitempty" json:"ends_at,omitempty"`
}

// Segment is a declared audience rule. Segments are carried in the registry
// file but not enforced anywhere yet; every test applies to all visitors.
type Segment struct {
	Name string `yaml:"name" json:"name"`
	Rule string `yaml:"rule" json:"rule"`
}

// Registry is the static set of tests, keyed by section (e.g. "hero").
// Read-only after Load; there is no runtime mutation.
type Registry struct {
	tests    map[string]*Test
	segments []Segment
}

type file struct {
	Tests    map[string]*Test `yaml:"tests"`
	Segments []Segment        `yaml:"segments"`
}

// Load reads and validates a registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML registry document and validates every test.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if len(f.Tests) == 0 {
		return nil, fmt.Errorf("registry has no tests")
	}

	for key, test := range f.Tests {
		if test == nil {
			return nil, fmt.Errorf("test %q: empty definition", key)
		}
		test.ID = key
		if err := validate(test); err != nil {
			return nil, fmt.Errorf("test %q: %w", key, err)
		}
	}

	return &Registry{tests: f.Tests, segments: f.Segments}, nil
}

// New builds a registry from already-constructed tests, keyed by test ID.
func New(tests ...*Test) *Registry {
	m := make(map[string]*Test, len(tests))
	for _, t := range tests {
		m[t.ID] = t
	}
	return &Registry{tests: m}
}

func validate(t *Test) error {
	if len(t.Variants) == 0 {
		return fmt.Errorf("no variants")
	}

	seen := make(map[string]bool, len(t.Variants))
	for _, v := range t.Variants {
		if v.ID == "" {
			return fmt.Errorf("variant with empty id")
		}
		if seen[v.ID] {
			return fmt.Errorf("duplicate variant %q", v.ID)
		}
		seen[v.ID] = true
		if v.Weight < 0 || v.Weight > 100 {
			return fmt.Errorf("variant %q: weight %d out of range [0,100]", v.ID, v.Weight)
		}
	}

	if t.DefaultVariant == "" {
		return fmt.Errorf("no default variant")
	}
	if !seen[t.DefaultVariant] {
		return fmt.Errorf("default variant %q not in variants", t.DefaultVariant)
	}

	return nil
}

// Lookup finds a test by id.
func (r *Registry) Lookup(testID string) (*Test, bool) {
	t, ok := r.tests[testID]
	return t, ok
}

// Tests returns every test, sorted by id for stable listings.
func (r *Registry) Tests() []*Test {
	out := make([]*Test, 0, len(r.tests))
	for _, t := range r.tests {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Segments returns the declared (unenforced) audience rules.
func (r *Registry) Segments() []Segment {
	return r.segments
}

// Variant finds a variant on the test by id.
func (t *Test) Variant(id string) (*Variant, bool) {
	for i := range t.Variants {
		if t.Variants[i].ID == id {
			return &t.Variants[i], true
		}
	}
	return nil, false
}

// Default returns the test's default variant. The second return is false
// when the default id does not match any variant; callers treat that as
// "no variant available".
func (t *Test) Default() (*Variant, bool) {
	return t.Variant(t.DefaultVariant)
}

// ActiveAt reports whether the test's activation window covers now.
// Tests without a window are always active.
func (t *Test) ActiveAt(now time.Time) bool {
	if t.StartsAt != nil && now.Before(*t.StartsAt) {
		return false
	}
	if t.EndsAt != nil && now.After(*t.EndsAt) {
		return false
	}
	return true
}
