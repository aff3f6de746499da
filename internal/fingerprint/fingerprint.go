// Package fingerprint derives stable canonical keys and 64-bit digests for
// arbitrary values, including containers that Go cannot use as map keys.
// Two values receive the same canonical key exactly when the validation
// engine considers them the same value: numeric widths are unified, every
// IEEE-754 NaN collapses to one shared placeholder, and containers encode
// their elements recursively.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Keyer lets a type supply its own canonical key. Container types whose
// identity is not reflect-derivable implement this.
type Keyer interface {
	CanonicalKey() string
}

// NaNKey is the shared placeholder emitted for every IEEE-754 NaN.
const NaNKey = "nan;"

// Canonical returns the canonical key for v.
func Canonical(v any) string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

// Key returns the xxhash64 digest of the canonical key for v.
func Key(v any) uint64 {
	return xxhash.Sum64String(Canonical(v))
}

// KeyOfAll digests a sequence of values as one compound key.
func KeyOfAll(vs ...any) uint64 {
	d := xxhash.New()
	for _, v := range vs {
		_, _ = d.WriteString(Canonical(v))
	}
	return d.Sum64()
}

func writeValue(sb *strings.Builder, v any) {
	if v == nil {
		sb.WriteString("z;")
		return
	}
	if k, ok := v.(Keyer); ok {
		sb.WriteString(k.CanonicalKey())
		return
	}
	switch x := v.(type) {
	case bool:
		if x {
			sb.WriteString("b1;")
		} else {
			sb.WriteString("b0;")
		}
	case string:
		writeString(sb, 's', x)
	case []byte:
		writeString(sb, 'y', string(x))
	case int:
		writeInt(sb, int64(x))
	case int8:
		writeInt(sb, int64(x))
	case int16:
		writeInt(sb, int64(x))
	case int32:
		writeInt(sb, int64(x))
	case int64:
		writeInt(sb, x)
	case uint:
		writeUint(sb, uint64(x))
	case uint8:
		writeUint(sb, uint64(x))
	case uint16:
		writeUint(sb, uint64(x))
	case uint32:
		writeUint(sb, uint64(x))
	case uint64:
		writeUint(sb, x)
	case uintptr:
		writeUint(sb, uint64(x))
	case float32:
		writeFloat(sb, float64(x))
	case float64:
		writeFloat(sb, x)
	case json.Number:
		writeNumber(sb, x)
	case reflect.Type:
		sb.WriteString("T")
		sb.WriteString(x.String())
		sb.WriteString(";")
	case *regexp.Regexp:
		writeString(sb, 'r', x.String())
	default:
		writeReflected(sb, reflect.ValueOf(v))
	}
}

func writeString(sb *strings.Builder, tag byte, s string) {
	sb.WriteByte(tag)
	sb.WriteString(strconv.Itoa(len(s)))
	sb.WriteString(":")
	sb.WriteString(s)
	sb.WriteString(";")
}

func writeInt(sb *strings.Builder, i int64) {
	sb.WriteString("i")
	sb.WriteString(strconv.FormatInt(i, 10))
	sb.WriteString(";")
}

func writeUint(sb *strings.Builder, u uint64) {
	sb.WriteString("i")
	sb.WriteString(strconv.FormatUint(u, 10))
	sb.WriteString(";")
}

// writeFloat folds integral floats onto the integer encoding so that 5,
// 5.0 and float32(5) all share one key. 2^53 bounds the range where
// float64 can represent integers exactly.
func writeFloat(sb *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		sb.WriteString(NaNKey)
	case math.IsInf(f, 1):
		sb.WriteString("f+inf;")
	case math.IsInf(f, -1):
		sb.WriteString("f-inf;")
	case f == math.Trunc(f) && math.Abs(f) <= 1<<53:
		writeInt(sb, int64(f))
	default:
		sb.WriteString("f")
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		sb.WriteString(";")
	}
}

func writeNumber(sb *strings.Builder, n json.Number) {
	if i, err := n.Int64(); err == nil {
		writeInt(sb, i)
		return
	}
	if f, err := n.Float64(); err == nil {
		writeFloat(sb, f)
		return
	}
	writeString(sb, 's', n.String())
}

func writeReflected(sb *strings.Builder, rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		sb.WriteString("l")
		sb.WriteString(strconv.Itoa(n))
		sb.WriteString(":[")
		for i := 0; i < n; i++ {
			writeValue(sb, rv.Index(i).Interface())
		}
		sb.WriteString("];")
	case reflect.Map:
		entries := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			var esb strings.Builder
			writeValue(&esb, iter.Key().Interface())
			esb.WriteString("=")
			writeValue(&esb, iter.Value().Interface())
			entries = append(entries, esb.String())
		}
		sort.Strings(entries)
		sb.WriteString("m")
		sb.WriteString(strconv.Itoa(len(entries)))
		sb.WriteString(":{")
		for _, e := range entries {
			sb.WriteString(e)
		}
		sb.WriteString("};")
	case reflect.Pointer:
		if rv.IsNil() {
			sb.WriteString("z;")
			return
		}
		writeValue(sb, rv.Elem().Interface())
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// Identity only: two distinct closures never share a key.
		fmt.Fprintf(sb, "p%x;", rv.Pointer())
	default:
		fmt.Fprintf(sb, "o%s:%#v;", rv.Type().String(), rv.Interface())
	}
}
