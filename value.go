package verity

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/verityhq/verity/internal/fingerprint"
)

// NotFound marks a value absent from one side of a comparison. Sequence
// checks pad the shorter side with it and mapping resolution substitutes it
// for keys missing from data or requirement.
var NotFound = notFound{}

type notFound struct{}

func (notFound) String() string       { return "<not found>" }
func (notFound) CanonicalKey() string { return "nf;" }

// Wildcard matches any value when used as a predicate spec, including
// NotFound. Use it inside a Tuple to ignore one position.
var Wildcard = wildcard{}

type wildcard struct{}

func (wildcard) String() string       { return "..." }
func (wildcard) CanonicalKey() string { return "any;" }

// Tuple is a positional literal. As a predicate spec, element i of the
// tuple must match element i of the value. As data it behaves like a row.
type Tuple []any

func (t Tuple) CanonicalKey() string {
	var sb strings.Builder
	sb.WriteString("t")
	sb.WriteString(strconv.Itoa(len(t)))
	sb.WriteString(":[")
	for _, v := range t {
		sb.WriteString(fingerprint.Canonical(v))
	}
	sb.WriteString("];")
	return sb.String()
}

// Item is one key/value pair of a mapping presented in stream form. A
// []Item is accepted anywhere a mapping is.
type Item struct {
	Key   any
	Value any
}

// valueKind is the capability tag behind requirement dispatch and data
// normalization. Classification happens once; every component switches on
// the resulting tag rather than re-probing values.
type valueKind int

const (
	kindScalar valueKind = iota
	kindSequence
	kindSet
	kindMapping
	kindItems
)

// classifyValue returns the capability tag for v. Strings and byte slices
// count as scalars, never as sequences of characters.
func classifyValue(v any) valueKind {
	switch v.(type) {
	case nil, string, []byte, notFound, wildcard:
		return kindScalar
	case Set:
		return kindSet
	case Tuple:
		return kindSequence
	case Item:
		return kindScalar
	case []Item:
		return kindItems
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return kindSequence
	case reflect.Map:
		return kindMapping
	}
	return kindScalar
}

// numericValue reports v as a float64 when v is a number. NaN counts as
// numeric; booleans do not.
func numericValue(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// intValue reports v as an int64 when v carries an integer type or an
// integral json.Number. Floats never qualify, even integral ones.
func intValue(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	case json.Number:
		i, err := x.Int64()
		return i, err == nil
	}
	return 0, false
}

// isEmptyValue reports the empty markers difference synthesis recognizes:
// nil and the empty string. NotFound is absent, not empty.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// isTruthy reports whether v counts as truthy for bool predicate specs.
// nil, false, zero numbers, empty strings and empty containers are falsy;
// everything else, NaN included, is truthy.
func isTruthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case notFound:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []byte:
		return len(x) > 0
	case Set:
		return x.Len() > 0
	}
	if f, ok := numericValue(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

// matchEqual is the equality used when a spec matches by value. Numeric
// widths are unified and NaN never equals NaN. Containers compare
// element-wise through their canonical keys.
func matchEqual(a, b any) bool {
	if af, aok := numericValue(a); aok {
		bf, bok := numericValue(b)
		return bok && af == bf
	}
	if _, bok := numericValue(b); bok {
		return false
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fingerprint.Canonical(a) == fingerprint.Canonical(b)
}
