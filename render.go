package verity

import (
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/verityhq/verity/internal/fingerprint"
)

// repr renders a value the way differences and descriptions display it.
// Strings are quoted, containers render recursively, callables render by
// name.
func repr(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case notFound:
		return x.String()
	case wildcard:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case string:
		return strconv.Quote(x)
	case []byte:
		return strconv.Quote(string(x))
	case Tuple:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = repr(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case Set:
		return x.String()
	case *regexp.Regexp:
		return "/" + x.String() + "/"
	case reflect.Type:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = repr(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Map:
		keys := make([]any, 0, rv.Len())
		iter := rv.MapRange()
		vals := make(map[any]string, rv.Len())
		for iter.Next() {
			k := iter.Key().Interface()
			keys = append(keys, k)
			vals[k] = repr(iter.Value().Interface())
		}
		sortValues(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = repr(k) + ": " + vals[k]
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case reflect.Func:
		return funcName(v)
	}
	return fmt.Sprintf("%v", v)
}

// jsonValue projects a value onto plain JSON-encodable shapes. Sentinels
// and callables render as their display strings, sets as sorted arrays.
func jsonValue(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case notFound:
		return x.String()
	case wildcard:
		return x.String()
	case Tuple:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(e)
		}
		return out
	case Set:
		vals := x.Values()
		sortValues(vals)
		out := make([]any, len(vals))
		for i, e := range vals {
			out[i] = jsonValue(e)
		}
		return out
	case Difference:
		return map[string]any{"type": x.Code(), "args": jsonValue(x.Args())}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = jsonValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[keyString(iter.Key().Interface())] = jsonValue(iter.Value().Interface())
		}
		return out
	case reflect.Func:
		return funcName(v)
	}
	return repr(v)
}

// keyString renders a mapping key for JSON output. String keys pass
// through unquoted.
func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return repr(k)
}

func funcName(v any) string {
	f := runtime.FuncForPC(reflect.ValueOf(v).Pointer())
	if f == nil {
		return "<callable>"
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if name == "" || strings.HasPrefix(name, "func") {
		return "<callable>"
	}
	return name
}

// Rendering sorts heterogeneous keys and arguments by one total order:
// absent values, then booleans and numbers together, then strings, then
// nested containers element-wise, then everything else by canonical key.

func orderRank(v any) int {
	switch v.(type) {
	case nil, notFound:
		return 0
	case bool:
		return 1
	case string, []byte:
		return 2
	case Tuple, Set:
		return 3
	}
	if _, ok := numericValue(v); ok {
		return 1
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return 3
	}
	return 4
}

func compareValues(a, b any) int {
	ra, rb := orderRank(a), orderRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		return compareInt(absentRank(a), absentRank(b))
	case 1:
		return compareFloat(numericRankValue(a), numericRankValue(b))
	case 2:
		return strings.Compare(stringOf(a), stringOf(b))
	case 3:
		return compareContainers(a, b)
	default:
		return strings.Compare(canonOf(a), canonOf(b))
	}
}

func absentRank(v any) int {
	if v == nil {
		return 0
	}
	return 1
}

// numericRankValue folds booleans in with numbers and pushes NaN past
// every finite value so the order stays total.
func numericRankValue(v any) float64 {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	f, _ := numericValue(v)
	return f
}

func compareFloat(a, b float64) int {
	an, bn := isNaN(a), isNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isNaN(f float64) bool { return f != f }

func stringOf(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v.(string)
}

func containerSubRank(v any) int {
	switch v.(type) {
	case Tuple:
		return 1
	case Set:
		return 2
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map:
		return 3
	}
	return 0
}

func compareContainers(a, b any) int {
	la, lb := containerElements(a), containerElements(b)
	for i := 0; i < len(la) && i < len(lb); i++ {
		if c := compareValues(la[i], lb[i]); c != 0 {
			return c
		}
	}
	if c := compareInt(len(la), len(lb)); c != 0 {
		return c
	}
	return compareInt(containerSubRank(a), containerSubRank(b))
}

// containerElements flattens any container into an ordered element list:
// sequences as-is, sets sorted, maps as sorted alternating key/value runs.
func containerElements(v any) []any {
	switch x := v.(type) {
	case Tuple:
		return []any(x)
	case Set:
		vals := x.Values()
		sortValues(vals)
		return vals
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	case reflect.Map:
		keys := make([]any, 0, rv.Len())
		iter := rv.MapRange()
		byKey := make(map[any]any, rv.Len())
		for iter.Next() {
			k := iter.Key().Interface()
			keys = append(keys, k)
			byKey[k] = iter.Value().Interface()
		}
		sortValues(keys)
		out := make([]any, 0, 2*len(keys))
		for _, k := range keys {
			out = append(out, k, byKey[k])
		}
		return out
	}
	return nil
}

func canonOf(v any) string {
	return fingerprint.Canonical(v)
}

// sortValues orders values in place by the total order. The sort is
// stable so equal-ranked values keep their incoming order.
func sortValues(vals []any) {
	sort.SliceStable(vals, func(i, j int) bool {
		return compareValues(vals[i], vals[j]) < 0
	})
}

// truncateBudget trims a rendered listing to a line and character budget.
// Zero budgets mean unlimited. The second result reports whether anything
// was cut.
func truncateBudget(s string, maxLines, maxChars int) (string, bool) {
	out := s
	cut := false
	if maxLines > 0 {
		lines := strings.Split(out, "\n")
		if len(lines) > maxLines {
			out = strings.Join(lines[:maxLines], "\n")
			cut = true
		}
	}
	if maxChars > 0 && len(out) > maxChars {
		out = out[:maxChars]
		cut = true
	}
	return out, cut
}
