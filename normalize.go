package verity

import (
	"iter"
	"reflect"
	"sort"
)

// Data enters the engine as a scalar, an ordered sequence, a Set or a
// mapping. Any slice or array counts as a sequence (strings do not), any
// Go map or []Item counts as a mapping, and streams are materialized
// through Collect and CollectItems before checking.

// Collect materializes a value stream into a group.
func Collect[T any](seq iter.Seq[T]) []any {
	var out []any
	for v := range seq {
		out = append(out, v)
	}
	return out
}

// CollectItems materializes a key/value stream into mapping items,
// preserving stream order.
func CollectItems[K comparable, V any](seq iter.Seq2[K, V]) []Item {
	var out []Item
	for k, v := range seq {
		out = append(out, Item{Key: k, Value: v})
	}
	return out
}

// asGroup materializes a sequence-classified value.
func asGroup(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case Tuple:
		return []any(x)
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// asItems returns the key/value items of a mapping-classified value.
// []Item keeps its own order; Go maps iterate in no order, so their items
// are sorted by the key total order to keep results deterministic.
func asItems(v any) []Item {
	if items, ok := v.([]Item); ok {
		return items
	}
	rv := reflect.ValueOf(v)
	items := make([]Item, 0, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		items = append(items, Item{Key: it.Key().Interface(), Value: it.Value().Interface()})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return compareValues(items[i].Key, items[j].Key) < 0
	})
	return items
}
