package verity_test

import (
	"testing"

	verity "github.com/verityhq/verity"
)

// TestNewRequirementClassification checks the literal classifier by
// behavior: scalars apply per element, slices demand order, sets ignore
// it, maps resolve per key.
func TestNewRequirementClassification(t *testing.T) {
	if err := verity.Validate([]any{1, 1, 1}, 1); err != nil {
		t.Fatalf("expected a scalar spec to hold per element, got: %v", err)
	}
	if err := verity.Validate([]any{"B", "A"}, verity.NewSet("A", "B")); err != nil {
		t.Fatalf("expected set membership to ignore order, got: %v", err)
	}
	if err := verity.Validate([]any{"B", "A"}, []any{"A", "B"}); err == nil {
		t.Fatalf("expected a slice spec to demand order")
	}
	if err := verity.Validate(map[string]any{"x": 1}, map[string]any{"x": 1}); err != nil {
		t.Fatalf("expected per-key resolution to pass, got: %v", err)
	}
	rows := []any{verity.Tuple{1, "a"}, verity.Tuple{2, "b"}}
	if err := verity.Validate(rows, verity.Tuple{verity.Wildcard, verity.NewSet("a", "b")}); err != nil {
		t.Fatalf("expected tuple spec to match row-wise, got: %v", err)
	}
}

// TestCheckIsIdempotent re-runs one check and expects identical results;
// requirements carry no per-call state.
func TestCheckIsIdempotent(t *testing.T) {
	req := verity.NewRequirement(verity.NewSet(1, 2, 3, 4))
	data := []any{1, 2, 3, 5}
	first, err := req.Check(data)
	if err != nil || first == nil {
		t.Fatalf("expected differences, got: %v, %v", first, err)
	}
	second, err := req.Check(data)
	if err != nil || second == nil {
		t.Fatalf("expected differences again, got: %v, %v", second, err)
	}
	if !first.Differences.Equal(second.Differences) {
		t.Fatalf("expected repeated checks to agree, got: %v then %v", first.Differences, second.Differences)
	}
}

// TestIntervalOverMapping mirrors the bounds 5..9 example: out-of-range
// values deviate against the nearer bound, scalar results stay unwrapped
// and clean keys stay silent.
func TestIntervalOverMapping(t *testing.T) {
	req := verity.RequiredInterval(5, 9)
	data := map[string]any{
		"a": 3,
		"b": 6,
		"c": []any{6, 7},
		"d": []any{9, 10},
	}
	res, err := req.Check(data)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if res == nil {
		t.Fatalf("expected differences, got none")
	}
	got := res.Differences.Mapping()
	if len(got) != 2 {
		t.Fatalf("expected keys a and d only, got: %v", got)
	}
	a, ok := got["a"].(verity.Deviation)
	if !ok {
		t.Fatalf("expected a bare Deviation for key a, got: %#v", got["a"])
	}
	if !a.Equal(verity.MustDeviation(-2, 5)) {
		t.Fatalf("expected Deviation(-2, 5), got: %v", a)
	}
	d, ok := got["d"].([]verity.Difference)
	if !ok || len(d) != 1 {
		t.Fatalf("expected a one-element list for key d, got: %#v", got["d"])
	}
	if !d[0].Equal(verity.MustDeviation(1, 9)) {
		t.Fatalf("expected Deviation(+1, 9), got: %v", d[0])
	}
}

// TestCallableDifferencePassesThrough checks that a Difference returned
// by a caller-supplied function is reported verbatim, not rewrapped.
func TestCallableDifferencePassesThrough(t *testing.T) {
	marker := verity.NewInvalid("custom", "detail")
	req := verity.NewRequirement(func(v any) verity.Difference {
		if v == "bad" {
			return marker
		}
		return nil
	})
	res, err := req.Check([]any{"good", "bad"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if res == nil {
		t.Fatalf("expected the marker difference, got none")
	}
	list := res.Differences.List()
	if len(list) != 1 || !list[0].Equal(marker) {
		t.Fatalf("expected the returned difference verbatim, got: %v", list)
	}
}

// TestScalarDataScalarSpec exercises the one-element group wrap at the
// top level.
func TestScalarDataScalarSpec(t *testing.T) {
	if err := verity.Validate(5, 5); err != nil {
		t.Fatalf("expected 5 to satisfy 5, got: %v", err)
	}
	err := verity.Validate(6, 5)
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected a validation error, got: %v", err)
	}
	list := ve.Differences().List()
	if len(list) != 1 || !list[0].Equal(verity.MustDeviation(1, 5)) {
		t.Fatalf("expected Deviation(+1, 5), got: %v", list)
	}
}
