package registry_test

import (
	"strings"
	"testing"
	"time"

	"github.com/gkobilansky/variant-goat/internal/registry"
)

const validYAML = `
tests:
  hero:
    name: Hero Headline
    description: Which headline converts better
    enabled: true
    default_variant: control
    variants:
      - id: control
        name: Ship Faster
        weight: 60
        config:
          headline: Ship Faster
      - id: challenger
        name: Build Better
        weight: 40
        config:
          headline: Build Better
segments:
  - name: everyone
    rule: all
`

func TestParse_Valid(t *testing.T) {
	reg, err := registry.Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	test, ok := reg.Lookup("hero")
	if !ok {
		t.Fatal("expected to find test 'hero'")
	}
	if test.ID != "hero" {
		t.Errorf("ID = %q, want hero", test.ID)
	}
	if len(test.Variants) != 2 {
		t.Fatalf("len(Variants) = %d, want 2", len(test.Variants))
	}
	if test.Variants[0].ID != "control" || test.Variants[0].Weight != 60 {
		t.Errorf("first variant = %+v, want control/60", test.Variants[0])
	}
	if test.Variants[0].Config["headline"] != "Ship Faster" {
		t.Errorf("config headline = %v", test.Variants[0].Config["headline"])
	}

	if len(reg.Segments()) != 1 {
		t.Errorf("len(Segments) = %d, want 1", len(reg.Segments()))
	}
}

func TestParse_DefaultVariantMissing(t *testing.T) {
	doc := strings.Replace(validYAML, "default_variant: control", "default_variant: nope", 1)

	_, err := registry.Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected error for missing default variant")
	}
	if !strings.Contains(err.Error(), "default variant") {
		t.Errorf("error = %v, want mention of default variant", err)
	}
}

func TestParse_DuplicateVariant(t *testing.T) {
	doc := strings.Replace(validYAML, "id: challenger", "id: control", 1)

	_, err := registry.Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected error for duplicate variant id")
	}
}

func TestParse_WeightOutOfRange(t *testing.T) {
	doc := strings.Replace(validYAML, "weight: 60", "weight: 101", 1)

	_, err := registry.Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected error for weight out of range")
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := registry.Parse([]byte("tests: {}"))
	if err == nil {
		t.Fatal("expected error for empty registry")
	}
}

func TestParse_EmptyTestBody(t *testing.T) {
	// A key with no body decodes to a nil test; that is a load-time error,
	// not a crash.
	_, err := registry.Parse([]byte("tests:\n  hero:\n"))
	if err == nil {
		t.Fatal("expected error for empty test definition")
	}
	if !strings.Contains(err.Error(), "empty definition") {
		t.Errorf("error = %v, want mention of empty definition", err)
	}
}

func TestLookup_Unknown(t *testing.T) {
	reg, err := registry.Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, ok := reg.Lookup("nope"); ok {
		t.Error("expected lookup miss for unknown test")
	}
}

func TestTests_SortedByID(t *testing.T) {
	reg := registry.New(
		&registry.Test{ID: "zeta"},
		&registry.Test{ID: "alpha"},
		&registry.Test{ID: "mid"},
	)

	tests := reg.Tests()
	if len(tests) != 3 {
		t.Fatalf("len(Tests) = %d, want 3", len(tests))
	}
	if tests[0].ID != "alpha" || tests[1].ID != "mid" || tests[2].ID != "zeta" {
		t.Errorf("order = %s, %s, %s", tests[0].ID, tests[1].ID, tests[2].ID)
	}
}

func TestDefault_Guarded(t *testing.T) {
	// Constructed directly, bypassing Parse validation: the default id does
	// not exist, and Default must report that instead of panicking.
	test := &registry.Test{
		ID:             "broken",
		Variants:       []registry.Variant{{ID: "a", Weight: 100}},
		DefaultVariant: "missing",
	}

	if _, ok := test.Default(); ok {
		t.Error("expected Default to miss when id matches no variant")
	}
}

func TestActiveAt(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	before := now.Add(-24 * time.Hour)
	after := now.Add(24 * time.Hour)

	cases := []struct {
		name   string
		starts *time.Time
		ends   *time.Time
		want   bool
	}{
		{"no window", nil, nil, true},
		{"inside window", &before, &after, true},
		{"not started", &after, nil, false},
		{"already ended", nil, &before, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			test := &registry.Test{StartsAt: tc.starts, EndsAt: tc.ends}
			if got := test.ActiveAt(now); got != tc.want {
				t.Errorf("ActiveAt = %v, want %v", got, tc.want)
			}
		})
	}
}
