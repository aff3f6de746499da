package verity_test

import (
	"testing"

	verity "github.com/verityhq/verity"
)

// TestRequiredSetPartition mirrors the membership example: data
// [1,2,3,5] against {1,2,3,4} leaves Missing(4) and Extra(5), order
// unspecified.
func TestRequiredSetPartition(t *testing.T) {
	res, err := verity.CheckRequirement([]any{1, 2, 3, 5}, verity.NewSet(1, 2, 3, 4))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if res == nil {
		t.Fatalf("expected differences, got none")
	}
	list := res.Differences.List()
	if len(list) != 2 {
		t.Fatalf("expected two differences, got: %v", list)
	}
	var sawMissing, sawExtra bool
	for _, d := range list {
		switch {
		case d.Equal(verity.NewMissing(4)):
			sawMissing = true
		case d.Equal(verity.NewExtra(5)):
			sawExtra = true
		}
	}
	if !sawMissing || !sawExtra {
		t.Fatalf("expected Missing(4) and Extra(5), got: %v", list)
	}
}

// TestRequiredSetDeduplicatesExtras reports one Extra per distinct
// unmatched value, however often it repeats in the group.
func TestRequiredSetDeduplicatesExtras(t *testing.T) {
	res, err := verity.CheckRequirement([]any{1, 9, 9, 9}, verity.RequiredSet(verity.NewSet(1)))
	if err != nil || res == nil {
		t.Fatalf("expected differences, got: %v, %v", res, err)
	}
	list := res.Differences.List()
	if len(list) != 1 || !list[0].Equal(verity.NewExtra(9)) {
		t.Fatalf("expected a single Extra(9), got: %v", list)
	}
}

// TestRequiredSetMissingOrder reports missing members in the
// requirement's insertion order.
func TestRequiredSetMissingOrder(t *testing.T) {
	res, err := verity.CheckRequirement([]any{}, verity.NewSet("b", "a"))
	if err != nil || res == nil {
		t.Fatalf("expected differences, got: %v, %v", res, err)
	}
	list := res.Differences.List()
	want := []verity.Difference{verity.NewMissing("b"), verity.NewMissing("a")}
	if len(list) != len(want) {
		t.Fatalf("expected %v, got: %v", want, list)
	}
	for i := range want {
		if !list[i].Equal(want[i]) {
			t.Fatalf("expected %v at %d, got: %v", want[i], i, list[i])
		}
	}
}

func TestRequiredSubset(t *testing.T) {
	req := verity.RequiredSubset(verity.NewSet(1, 2))
	if err := verity.Validate([]any{1, 2, 3}, req); err != nil {
		t.Fatalf("expected surplus group members to pass, got: %v", err)
	}
	res, err := verity.CheckRequirement([]any{1, 3}, req)
	if err != nil || res == nil {
		t.Fatalf("expected differences, got: %v, %v", res, err)
	}
	list := res.Differences.List()
	if len(list) != 1 || !list[0].Equal(verity.NewMissing(2)) {
		t.Fatalf("expected Missing(2) only, got: %v", list)
	}
}

func TestRequiredSuperset(t *testing.T) {
	req := verity.RequiredSuperset(verity.NewSet(1, 2, 3))
	if err := verity.Validate([]any{1, 2}, req); err != nil {
		t.Fatalf("expected a covered group to pass, got: %v", err)
	}
	res, err := verity.CheckRequirement([]any{1, 4}, req)
	if err != nil || res == nil {
		t.Fatalf("expected differences, got: %v, %v", res, err)
	}
	list := res.Differences.List()
	if len(list) != 1 || !list[0].Equal(verity.NewExtra(4)) {
		t.Fatalf("expected Extra(4) only, got: %v", list)
	}
}

// TestRequiredUnique flags each repeat occurrence, with repeats matched
// across numeric widths.
func TestRequiredUnique(t *testing.T) {
	if err := verity.Validate([]any{1, 2, 3}, verity.RequiredUnique()); err != nil {
		t.Fatalf("expected distinct values to pass, got: %v", err)
	}
	res, err := verity.CheckRequirement([]any{1, 2, 1, 2.0, 3}, verity.RequiredUnique())
	if err != nil || res == nil {
		t.Fatalf("expected differences, got: %v, %v", res, err)
	}
	list := res.Differences.List()
	if len(list) != 2 {
		t.Fatalf("expected two repeats, got: %v", list)
	}
	if !list[0].Equal(verity.NewExtra(1)) || !list[1].Equal(verity.NewExtra(2)) {
		t.Fatalf("expected Extra(1) then Extra(2), got: %v", list)
	}
}

// TestRequiredUniqueAcrossMapping shares one seen-set across every key,
// so a value reappearing under a later key is a repeat.
func TestRequiredUniqueAcrossMapping(t *testing.T) {
	data := map[string]any{"x": []any{1, 2}, "y": []any{2, 3}}
	res, err := verity.CheckRequirement(data, verity.RequiredUnique())
	if err != nil || res == nil {
		t.Fatalf("expected differences, got: %v, %v", res, err)
	}
	got := res.Differences.Mapping()
	if len(got) != 1 {
		t.Fatalf("expected only key y to fail, got: %v", got)
	}
	d, ok := got["y"].([]verity.Difference)
	if !ok || len(d) != 1 || !d[0].Equal(verity.NewExtra(2)) {
		t.Fatalf("expected [Extra(2)] under y, got: %#v", got["y"])
	}
}
