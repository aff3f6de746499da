package verity_test

import (
	"iter"
	"reflect"
	"testing"

	verity "github.com/verityhq/verity"
)

// TestCollect materializes a value sequence into a checkable group.
func TestCollect(t *testing.T) {
	var seq iter.Seq[string] = func(yield func(string) bool) {
		for _, s := range []string{"a", "b"} {
			if !yield(s) {
				return
			}
		}
	}
	got := verity.Collect(seq)
	if want := []any{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got: %v", want, got)
	}
	if err := verity.Validate(got, verity.NewSet("a", "b")); err != nil {
		t.Fatalf("expected collected group to validate, got: %v", err)
	}
}

// TestCollectItems materializes a key/value sequence into mapping data.
func TestCollectItems(t *testing.T) {
	var seq iter.Seq2[string, any] = func(yield func(string, any) bool) {
		if !yield("a", 1) {
			return
		}
		yield("b", 2)
	}
	items := verity.CollectItems(seq)
	want := []verity.Item{{Key: "a", Value: 1}, {Key: "b", Value: 2}}
	if !reflect.DeepEqual(items, want) {
		t.Fatalf("expected %v, got: %v", want, items)
	}
	if err := verity.Validate(items, map[string]any{"a": 1, "b": 2}); err != nil {
		t.Fatalf("expected collected items to validate, got: %v", err)
	}
}
