package verity

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/verityhq/verity/internal/fingerprint"
)

// Differences is the collection a failed check reports: either a flat
// group of differences or a mapping from key to one Difference or a
// []Difference. The shape is part of the contract; allowance filters must
// preserve it.
type Differences struct {
	flat   []Difference
	keyed  []keyedDifferences
	mapped bool
}

type keyedDifferences struct {
	key    any
	diffs  []Difference
	scalar bool
}

// NewDifferences builds a flat collection.
func NewDifferences(ds ...Difference) Differences {
	return Differences{flat: ds}
}

func newMappedDifferences() Differences {
	return Differences{mapped: true}
}

func (ds *Differences) appendFlat(d Difference) {
	ds.flat = append(ds.flat, d)
}

// appendKey records the result of one key. scalar marks a lone-scalar
// datum whose singleton difference stays unwrapped in every view.
func (ds *Differences) appendKey(key any, diffs []Difference, scalar bool) {
	if len(diffs) == 0 {
		return
	}
	ds.keyed = append(ds.keyed, keyedDifferences{key: key, diffs: diffs, scalar: scalar})
}

// IsMapping reports whether the collection is mapping-shaped.
func (ds Differences) IsMapping() bool { return ds.mapped }

// Empty reports whether no differences are present.
func (ds Differences) Empty() bool { return ds.Len() == 0 }

// Len counts difference occurrences across the whole collection.
func (ds Differences) Len() int {
	if !ds.mapped {
		return len(ds.flat)
	}
	n := 0
	for _, e := range ds.keyed {
		n += len(e.diffs)
	}
	return n
}

// List returns the flat differences. It is empty for mapping-shaped
// collections; use Mapping for those.
func (ds Differences) List() []Difference {
	out := make([]Difference, len(ds.flat))
	copy(out, ds.flat)
	return out
}

// Keys returns the mapping keys in result order.
func (ds Differences) Keys() []any {
	out := make([]any, len(ds.keyed))
	for i, e := range ds.keyed {
		out[i] = e.key
	}
	return out
}

// Get returns the differences recorded under key.
func (ds Differences) Get(key any) ([]Difference, bool) {
	for _, e := range ds.keyed {
		if matchEqual(e.key, key) {
			out := make([]Difference, len(e.diffs))
			copy(out, e.diffs)
			return out, true
		}
	}
	return nil, false
}

// Mapping returns the keyed view. Values are a bare Difference for
// lone-scalar data and a []Difference for group data.
func (ds Differences) Mapping() map[any]any {
	out := make(map[any]any, len(ds.keyed))
	for _, e := range ds.keyed {
		if e.scalar && len(e.diffs) == 1 {
			out[e.key] = e.diffs[0]
			continue
		}
		diffs := make([]Difference, len(e.diffs))
		copy(diffs, e.diffs)
		out[e.key] = diffs
	}
	return out
}

// All iterates every difference occurrence. Mapping-shaped collections
// yield their key, flat ones yield nil.
func (ds Differences) All() iter.Seq2[any, Difference] {
	return func(yield func(any, Difference) bool) {
		if !ds.mapped {
			for _, d := range ds.flat {
				if !yield(nil, d) {
					return
				}
			}
			return
		}
		for _, e := range ds.keyed {
			for _, d := range e.diffs {
				if !yield(e.key, d) {
					return
				}
			}
		}
	}
}

// Equal reports shape- and order-sensitive equality.
func (ds Differences) Equal(other Differences) bool {
	if ds.mapped != other.mapped || ds.Len() != other.Len() {
		return false
	}
	if !ds.mapped {
		for i := range ds.flat {
			if !ds.flat[i].Equal(other.flat[i]) {
				return false
			}
		}
		return true
	}
	if len(ds.keyed) != len(other.keyed) {
		return false
	}
	for i, e := range ds.keyed {
		o := other.keyed[i]
		if !matchEqual(e.key, o.key) || e.scalar != o.scalar || len(e.diffs) != len(o.diffs) {
			return false
		}
		for j := range e.diffs {
			if !e.diffs[j].Equal(o.diffs[j]) {
				return false
			}
		}
	}
	return true
}

// pairs flattens the collection for filtering; rebuildDifferences is its
// inverse, regrouping by key in first-seen order.
type diffPair struct {
	key    any
	scalar bool
	diff   Difference
}

func (ds Differences) pairs() []diffPair {
	if !ds.mapped {
		out := make([]diffPair, len(ds.flat))
		for i, d := range ds.flat {
			out[i] = diffPair{diff: d}
		}
		return out
	}
	var out []diffPair
	for _, e := range ds.keyed {
		for _, d := range e.diffs {
			out = append(out, diffPair{key: e.key, scalar: e.scalar, diff: d})
		}
	}
	return out
}

func keyCanon(k any) string { return fingerprint.Canonical(k) }

func rebuildDifferences(pairs []diffPair, mapped bool) Differences {
	if !mapped {
		ds := Differences{}
		for _, p := range pairs {
			ds.appendFlat(p.diff)
		}
		return ds
	}
	ds := newMappedDifferences()
	order := make([]string, 0, len(pairs))
	grouped := make(map[string]*keyedDifferences)
	for _, p := range pairs {
		ck := keyCanon(p.key)
		g, ok := grouped[ck]
		if !ok {
			g = &keyedDifferences{key: p.key, scalar: p.scalar}
			grouped[ck] = g
			order = append(order, ck)
		}
		g.diffs = append(g.diffs, p.diff)
	}
	for _, ck := range order {
		g := grouped[ck]
		ds.appendKey(g.key, g.diffs, g.scalar && len(g.diffs) == 1)
	}
	return ds
}

// ---- ValidationError ----

// ValidationError reports a failed validation as an error. It always
// carries at least one difference; an empty collection is a configuration
// error, not a passing result. It is the only error kind allowances
// intercept.
type ValidationError struct {
	description string
	diffs       Differences
	maxLines    int
	maxChars    int
	notice      string
}

// NewValidationError builds a ValidationError from a description and a
// difference collection: a Differences value, a single Difference, a
// []Difference, or a map from key to Difference or []Difference.
func NewValidationError(description string, differences any) (*ValidationError, error) {
	ds, err := differencesFrom(differences)
	if err != nil {
		return nil, err
	}
	if ds.Empty() {
		return nil, errors.New("verity: a validation error requires at least one difference")
	}
	return &ValidationError{description: description, diffs: ds}, nil
}

func newValidationError(description string, ds Differences) *ValidationError {
	return &ValidationError{description: description, diffs: ds}
}

func differencesFrom(v any) (Differences, error) {
	switch x := v.(type) {
	case Differences:
		return x, nil
	case Difference:
		return NewDifferences(x), nil
	case []Difference:
		return NewDifferences(x...), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return Differences{}, fmt.Errorf("verity: cannot build differences from %T", v)
	}
	ds := newMappedDifferences()
	for _, item := range asItems(v) {
		switch dv := item.Value.(type) {
		case Difference:
			ds.appendKey(item.Key, []Difference{dv}, true)
		case []Difference:
			ds.appendKey(item.Key, dv, false)
		default:
			return Differences{}, fmt.Errorf("verity: mapping value under key %s must be a Difference or []Difference, got %T", repr(item.Key), item.Value)
		}
	}
	return ds, nil
}

// Description returns the requirement description the failure carries.
func (e *ValidationError) Description() string { return e.description }

// Differences returns the difference collection.
func (e *ValidationError) Differences() Differences { return e.diffs }

// SetTruncation installs a line and character budget applied when the
// error renders. Zero disables the respective budget.
func (e *ValidationError) SetTruncation(maxLines, maxChars int) {
	e.maxLines, e.maxChars = maxLines, maxChars
}

// SetNotice appends a trailing notice line when the rendering truncates.
func (e *ValidationError) SetNotice(notice string) { e.notice = notice }

func (e *ValidationError) Error() string {
	desc := e.description
	if desc == "" {
		desc = "does not satisfy requirement"
	}
	header := fmt.Sprintf("%s (%d difference%s): ", desc, e.diffs.Len(), plural(e.diffs.Len()))

	opening, closing := "[", "]"
	var lines []string
	if e.diffs.mapped {
		opening, closing = "{", "}"
		entries := append([]keyedDifferences(nil), e.diffs.keyed...)
		sort.SliceStable(entries, func(i, j int) bool {
			return compareValues(entries[i].key, entries[j].key) < 0
		})
		for _, kd := range entries {
			lines = append(lines, "    "+repr(kd.key)+": "+renderKeyed(kd)+",")
		}
	} else {
		ds := append([]Difference(nil), e.diffs.flat...)
		sort.SliceStable(ds, func(i, j int) bool { return compareDifferences(ds[i], ds[j]) < 0 })
		for _, d := range ds {
			lines = append(lines, "    "+d.String()+",")
		}
	}

	listing, cut := truncateBudget(strings.Join(lines, "\n"), e.maxLines, e.maxChars)
	if cut {
		listing += "\n    ..."
	}
	out := header + opening + "\n" + listing + "\n" + closing
	if cut && e.notice != "" {
		out += "\n" + e.notice
	}
	return out
}

func renderKeyed(kd keyedDifferences) string {
	if kd.scalar && len(kd.diffs) == 1 {
		return kd.diffs[0].String()
	}
	parts := make([]string, len(kd.diffs))
	for i, d := range kd.diffs {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func compareDifferences(a, b Difference) int {
	if c := compareValues(Tuple(a.Args()), Tuple(b.Args())); c != 0 {
		return c
	}
	return strings.Compare(a.Code(), b.Code())
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// MarshalJSON projects the failure for tooling: description plus the
// difference collection in its natural shape.
func (e *ValidationError) MarshalJSON() ([]byte, error) {
	var diffs any
	if e.diffs.mapped {
		m := make(map[string]any, len(e.diffs.keyed))
		for _, kd := range e.diffs.keyed {
			if kd.scalar && len(kd.diffs) == 1 {
				m[keyString(kd.key)] = jsonValue(kd.diffs[0])
				continue
			}
			arr := make([]any, len(kd.diffs))
			for i, d := range kd.diffs {
				arr[i] = jsonValue(d)
			}
			m[keyString(kd.key)] = arr
		}
		diffs = m
	} else {
		arr := make([]any, len(e.diffs.flat))
		for i, d := range e.diffs.flat {
			arr[i] = jsonValue(d)
		}
		diffs = arr
	}
	return json.Marshal(struct {
		Description string `json:"description"`
		Differences any    `json:"differences"`
	}{Description: e.description, Differences: diffs})
}

// AsValidationError unwraps err into a *ValidationError when one is in
// the chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
