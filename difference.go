package verity

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/verityhq/verity/internal/fingerprint"
)

// Difference codes, one per variant.
const (
	CodeMissing   = "missing"
	CodeExtra     = "extra"
	CodeInvalid   = "invalid"
	CodeDeviation = "deviation"
)

// Difference is one unit of divergence between data and requirement.
// Variants are immutable values; equality is variant-typed over the
// argument tuple with every NaN folded onto one shared placeholder, so
// NaN-valued differences compare equal to each other.
type Difference interface {
	// Code identifies the variant.
	Code() string
	// Args returns the constructor arguments in display order.
	Args() []any
	// Equal reports variant-typed equality with other.
	Equal(other Difference) bool

	fmt.Stringer
	sealedDifference()
}

func sameDifference(a, b Difference) bool {
	if b == nil {
		return false
	}
	if a.Code() != b.Code() {
		return false
	}
	aa, ba := a.Args(), b.Args()
	if len(aa) != len(ba) {
		return false
	}
	for i := range aa {
		if fingerprint.Canonical(aa[i]) != fingerprint.Canonical(ba[i]) {
			return false
		}
	}
	return true
}

func differenceKey(d Difference) string {
	var sb strings.Builder
	sb.WriteString("D")
	sb.WriteString(d.Code())
	sb.WriteString(":[")
	for _, a := range d.Args() {
		sb.WriteString(fingerprint.Canonical(a))
	}
	sb.WriteString("];")
	return sb.String()
}

func formatDifference(name string, args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = repr(a)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func marshalDifference(d Difference) ([]byte, error) {
	raw := d.Args()
	args := make([]any, len(raw))
	for i, a := range raw {
		args[i] = jsonValue(a)
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Args []any  `json:"args"`
	}{Type: d.Code(), Args: args})
}

// ---- Missing ----

// Missing reports a value required but absent from the data.
type Missing struct {
	value any
}

// NewMissing returns a Missing difference for value.
func NewMissing(value any) Missing { return Missing{value: value} }

// Value returns the absent value.
func (m Missing) Value() any { return m.value }

func (m Missing) Code() string { return CodeMissing }

func (m Missing) Args() []any { return []any{m.value} }

func (m Missing) Equal(other Difference) bool { return sameDifference(m, other) }

func (m Missing) String() string { return formatDifference("Missing", m.Args()) }

func (m Missing) CanonicalKey() string { return differenceKey(m) }

func (m Missing) MarshalJSON() ([]byte, error) { return marshalDifference(m) }

func (Missing) sealedDifference() {}

// ---- Extra ----

// Extra reports a value present in the data but unaccounted for by the
// requirement.
type Extra struct {
	value any
}

// NewExtra returns an Extra difference for value.
func NewExtra(value any) Extra { return Extra{value: value} }

// Value returns the surplus value.
func (e Extra) Value() any { return e.value }

func (e Extra) Code() string { return CodeExtra }

func (e Extra) Args() []any { return []any{e.value} }

func (e Extra) Equal(other Difference) bool { return sameDifference(e, other) }

func (e Extra) String() string { return formatDifference("Extra", e.Args()) }

func (e Extra) CanonicalKey() string { return differenceKey(e) }

func (e Extra) MarshalJSON() ([]byte, error) { return marshalDifference(e) }

func (Extra) sealedDifference() {}

// ---- Invalid ----

// Invalid reports a value that fails its requirement, optionally carrying
// the expected counterpart.
type Invalid struct {
	actual      any
	expected    any
	hasExpected bool
}

// NewInvalid returns an Invalid difference for actual. At most one
// expected counterpart may be supplied.
func NewInvalid(actual any, expected ...any) Invalid {
	switch len(expected) {
	case 0:
		return Invalid{actual: actual}
	case 1:
		return Invalid{actual: actual, expected: expected[0], hasExpected: true}
	}
	panic("verity: NewInvalid accepts at most one expected value")
}

// Actual returns the failing value.
func (iv Invalid) Actual() any { return iv.actual }

// Expected returns the expected counterpart and whether one was supplied.
func (iv Invalid) Expected() (any, bool) { return iv.expected, iv.hasExpected }

func (iv Invalid) Code() string { return CodeInvalid }

func (iv Invalid) Args() []any {
	if iv.hasExpected {
		return []any{iv.actual, iv.expected}
	}
	return []any{iv.actual}
}

func (iv Invalid) Equal(other Difference) bool { return sameDifference(iv, other) }

func (iv Invalid) String() string {
	if iv.hasExpected {
		return "Invalid(" + repr(iv.actual) + ", expected=" + repr(iv.expected) + ")"
	}
	return formatDifference("Invalid", iv.Args())
}

func (iv Invalid) CanonicalKey() string { return differenceKey(iv) }

func (iv Invalid) MarshalJSON() ([]byte, error) { return marshalDifference(iv) }

func (Invalid) sealedDifference() {}

// ---- Deviation ----

// Deviation reports a numeric mismatch as a delta against a reference.
// Construction fails when delta is zero or absent while the reference is
// non-zero and present, or when the pair is trivial; a Deviation always
// records a genuine numeric divergence.
type Deviation struct {
	delta     any
	reference any
}

// NewDeviation returns a Deviation of delta against reference. delta must
// be numeric (NaN allowed); reference must be numeric, nil or empty.
func NewDeviation(delta, reference any) (Deviation, error) {
	df, ok := numericValue(delta)
	if !ok {
		return Deviation{}, fmt.Errorf("verity: deviation delta must be numeric, got %s", repr(delta))
	}
	refEmpty := isEmptyValue(reference)
	if !refEmpty {
		if _, ok := numericValue(reference); !ok {
			return Deviation{}, fmt.Errorf("verity: deviation reference must be numeric or empty, got %s", repr(reference))
		}
	}
	if df == 0 && !refEmpty {
		return Deviation{}, fmt.Errorf("verity: deviation of zero against reference %s is not a difference", repr(reference))
	}
	return Deviation{delta: normalizeNumeric(delta), reference: reference}, nil
}

// MustDeviation is NewDeviation panicking on invalid arguments.
func MustDeviation(delta, reference any) Deviation {
	d, err := NewDeviation(delta, reference)
	if err != nil {
		panic(err)
	}
	return d
}

// Delta returns the signed divergence.
func (d Deviation) Delta() any { return d.delta }

// Reference returns the value the delta is measured against.
func (d Deviation) Reference() any { return d.reference }

func (d Deviation) Code() string { return CodeDeviation }

func (d Deviation) Args() []any { return []any{d.delta, d.reference} }

func (d Deviation) Equal(other Difference) bool { return sameDifference(d, other) }

func (d Deviation) String() string {
	return "Deviation(" + formatSignedDelta(d.delta) + ", " + repr(d.reference) + ")"
}

func (d Deviation) CanonicalKey() string { return differenceKey(d) }

func (d Deviation) MarshalJSON() ([]byte, error) { return marshalDifference(d) }

func (Deviation) sealedDifference() {}

func formatSignedDelta(delta any) string {
	if i, ok := intValue(delta); ok {
		return fmt.Sprintf("%+d", i)
	}
	f, _ := numericValue(delta)
	if math.IsNaN(f) {
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if s[0] != '+' && s[0] != '-' {
		s = "+" + s
	}
	return s
}

// ---- synthesis ----

// NewDifference synthesizes the appropriate difference for a known-unequal
// actual/expected pair. Numeric pairs become Deviations; pairs touching
// the NotFound sentinel become Missing or Extra; everything else becomes
// Invalid, carrying the expected value only when showExpected is set.
func NewDifference(actual, expected any, showExpected bool) Difference {
	if d, ok := synthesizeDeviation(actual, expected); ok {
		return d
	}
	if _, ok := expected.(notFound); ok {
		return NewExtra(actual)
	}
	if _, ok := actual.(notFound); ok {
		return NewMissing(expected)
	}
	if showExpected {
		return NewInvalid(actual, expected)
	}
	return NewInvalid(actual)
}

// synthesizeDeviation covers the numeric corners of synthesis. A nil
// actual against a numeric expectation yields 0-expected while a numeric
// actual against an empty expectation keeps actual-0 and drops the
// reference; callers rely on the asymmetry.
func synthesizeDeviation(actual, expected any) (Deviation, bool) {
	aNum := isPlainNumber(actual)
	eNum := isPlainNumber(expected)

	var delta, reference any
	switch {
	case aNum && eNum:
		delta = subtractNumeric(actual, expected)
		reference = expected
	case aNum && isEmptyValue(expected):
		delta = actual
		reference = nil
	case isEmptyValue(actual) && eNum:
		if actual == nil {
			delta = negateNumeric(expected)
		} else {
			delta = actual
		}
		reference = expected
	default:
		return Deviation{}, false
	}

	d, err := NewDeviation(delta, reference)
	if err != nil {
		return Deviation{}, false
	}
	return d, true
}

// isPlainNumber reports a non-NaN numeric value. NaN pairs synthesize
// Invalid, never Deviation.
func isPlainNumber(v any) bool {
	f, ok := numericValue(v)
	return ok && !math.IsNaN(f)
}

func normalizeNumeric(v any) any {
	if i, ok := intValue(v); ok {
		return i
	}
	f, _ := numericValue(v)
	return f
}

func subtractNumeric(a, b any) any {
	ai, aok := intValue(a)
	bi, bok := intValue(b)
	if aok && bok {
		return ai - bi
	}
	af, _ := numericValue(a)
	bf, _ := numericValue(b)
	return af - bf
}

func negateNumeric(v any) any {
	if i, ok := intValue(v); ok {
		return -i
	}
	f, _ := numericValue(v)
	return -f
}
