package digest_test

import (
	"regexp"
	"testing"

	"dungeoncrawler/internal/digest"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)

// TestDigest_SameValue_SameHash verifies digest stability (spec §8 scenario
// 2): repeated calls on an equal value must agree, independent of map
// iteration order.
func TestDigest_SameValue_SameHash(t *testing.T) {
	a := digest.Digest(map[string]any{"a": 1})
	b := digest.Digest(map[string]any{"a": 1})
	if a != b {
		t.Fatalf("digest differs for equal input: %s vs %s", a, b)
	}
	if !hexPattern.MatchString(a) {
		t.Fatalf("digest %q does not match ^[0-9a-f]{8}$", a)
	}
}

// TestDigest_KeyOrderIndependent verifies that map key insertion order does
// not affect the digest, since keys are serialized in sorted order.
func TestDigest_KeyOrderIndependent(t *testing.T) {
	a := digest.Digest(map[string]any{"a": 1, "b": 2})
	b := digest.Digest(map[string]any{"b": 2, "a": 1})
	if a != b {
		t.Fatalf("digest depends on map iteration order: %s vs %s", a, b)
	}
}

// TestDigest_DifferentValues_DifferentHash is a smoke test that distinct
// inputs produce distinct digests (not a formal guarantee, just a spot
// check per the non-cryptographic nature of the hash).
func TestDigest_DifferentValues_DifferentHash(t *testing.T) {
	a := digest.Digest(map[string]any{"a": 1})
	b := digest.Digest(map[string]any{"a": 2})
	if a == b {
		t.Fatalf("distinct inputs produced the same digest: %s", a)
	}
}

// TestDigest_NestedStructures exercises slices and nested maps.
func TestDigest_NestedStructures(t *testing.T) {
	value := map[string]any{
		"you": map[string]any{"x": 1, "y": 2, "face": "N"},
		"visible": []any{
			map[string]any{"x": 1, "y": 2},
			map[string]any{"x": 1, "y": 3},
		},
	}
	a := digest.Digest(value)
	b := digest.Digest(value)
	if a != b {
		t.Fatalf("digest not stable for nested structure: %s vs %s", a, b)
	}
}
