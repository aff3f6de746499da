package verity

import (
	"math"
	"regexp"
	"strconv"

	"github.com/pmezard/go-difflib/difflib"
)

// Element-wise requirement kinds: every member of a group is checked
// against one predicate spec. Approximate, fuzzy and pattern kinds are
// spec transformations feeding the same predicate machinery.

// DefaultApproxPlaces is the decimal precision RequiredApprox applies
// when none is given.
const DefaultApproxPlaces = 7

// DefaultFuzzyCutoff is the similarity ratio RequiredFuzzy applies when
// none is given.
const DefaultFuzzyCutoff = 0.6

type predicateChecker struct {
	pred         Predicate
	showExpected bool
	descCode     string
	descData     map[string]string
}

func newPredicateChecker(p Predicate, showExpected bool) predicateChecker {
	return predicateChecker{pred: p, showExpected: showExpected}
}

func (c predicateChecker) checkGroup(group []any) ([]Difference, error) {
	var diffs []Difference
	for _, v := range group {
		ok, d, err := c.pred.eval(v)
		if err != nil {
			return nil, err
		}
		if ok {
			continue
		}
		if d != nil {
			diffs = append(diffs, d)
			continue
		}
		diffs = append(diffs, c.pred.differenceFor(v, c.showExpected))
	}
	return diffs, nil
}

func (c predicateChecker) description() string {
	if c.descCode != "" {
		return describe(c.descCode, c.descData)
	}
	return describe(descDoesNotSatisfy, map[string]string{"spec": c.pred.String()})
}

// RequiredPredicate checks every element of a group against spec,
// classified by the predicate shape table.
func RequiredPredicate(spec any) Requirement {
	return groupRequirement{checker: newPredicateChecker(NewPredicate(spec), false)}
}

// RequiredRegex compiles every string leaf of spec, tuples included, and
// checks elements against the resulting patterns. An invalid pattern
// panics.
func RequiredRegex(spec any) Requirement {
	return groupRequirement{checker: newPredicateChecker(NewPredicate(compilePatterns(spec)), false)}
}

func compilePatterns(spec any) any {
	switch s := spec.(type) {
	case string:
		return regexp.MustCompile(s)
	case Tuple:
		out := make(Tuple, len(s))
		for i, e := range s {
			out[i] = compilePatterns(e)
		}
		return out
	}
	return spec
}

// ---- approx ----

// RequiredApprox checks numeric elements approximately equal to the
// numeric leaves of spec, comparing |actual-expected| rounded half-even
// to places decimal places. spec may be a scalar, a Tuple or a mapping.
func RequiredApprox(spec any, places ...int) Requirement {
	p := DefaultApproxPlaces
	if len(places) > 0 {
		p = places[0]
	}
	wrap := func(leaf any) any { return approxLeaf(leaf, p) }
	return leafRequirement(spec, wrap, "approx", descApproxPlaces, map[string]string{
		"spec":   repr(spec),
		"places": strconv.Itoa(p),
	})
}

// RequiredApproxDelta is RequiredApprox with an absolute tolerance
// instead of decimal places.
func RequiredApproxDelta(spec any, delta float64) Requirement {
	if delta < 0 || math.IsNaN(delta) {
		panic("verity: approx delta must be non-negative")
	}
	wrap := func(leaf any) any { return approxDeltaLeaf(leaf, delta) }
	return leafRequirement(spec, wrap, "approx", descApproxDelta, map[string]string{
		"spec":  repr(spec),
		"delta": strconv.FormatFloat(delta, 'g', -1, 64),
	})
}

func approxLeaf(target any, places int) any {
	tf, ok := numericValue(target)
	if !ok || math.IsNaN(tf) {
		return target
	}
	return Predicate{
		match: func(v any) (bool, Difference, error) {
			vf, vok := numericValue(v)
			if !vok || math.IsNaN(vf) {
				return false, nil, nil
			}
			return roundHalfEven(math.Abs(vf-tf), places) == 0, nil, nil
		},
		spec:    target,
		display: "approx(" + repr(target) + ")",
	}
}

func approxDeltaLeaf(target any, delta float64) any {
	tf, ok := numericValue(target)
	if !ok || math.IsNaN(tf) {
		return target
	}
	return Predicate{
		match: func(v any) (bool, Difference, error) {
			vf, vok := numericValue(v)
			if !vok || math.IsNaN(vf) {
				return false, nil, nil
			}
			return math.Abs(vf-tf) <= delta, nil, nil
		},
		spec:    target,
		display: "approx(" + repr(target) + ")",
	}
}

func roundHalfEven(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(x*scale) / scale
}

// ---- fuzzy ----

// RequiredFuzzy checks string elements against the string leaves of spec
// by similarity ratio: a value matches when its ratio against the leaf
// reaches the cutoff. Non-string values fall back to plain equality.
func RequiredFuzzy(spec any, cutoff ...float64) Requirement {
	c := DefaultFuzzyCutoff
	if len(cutoff) > 0 {
		c = cutoff[0]
	}
	if c < 0 || c > 1 || math.IsNaN(c) {
		panic("verity: fuzzy cutoff must be between 0 and 1")
	}
	wrap := func(leaf any) any { return fuzzyLeaf(leaf, c) }
	return leafRequirement(spec, wrap, "fuzzy", descFuzzy, map[string]string{
		"spec":   repr(spec),
		"cutoff": strconv.FormatFloat(c, 'g', -1, 64),
	})
}

func fuzzyLeaf(target any, cutoff float64) any {
	ts, ok := target.(string)
	if !ok {
		return target
	}
	return Predicate{
		match: func(v any) (bool, Difference, error) {
			s, sok := v.(string)
			if !sok {
				return matchEqual(v, ts), nil, nil
			}
			return fuzzyRatio(s, ts) >= cutoff, nil, nil
		},
		spec:    target,
		display: "fuzzy(" + repr(target) + ")",
	}
}

// fuzzyRatio measures similarity of two strings rune-wise through the
// difflib sequence matcher.
func fuzzyRatio(a, b string) float64 {
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return m.Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// leafRequirement routes a leaf-wrapped spec to its requirement: scalars
// and tuples run element-wise, mappings lift per key. Sequence and set
// specs have no leaf interpretation here.
func leafRequirement(spec any, wrap func(any) any, kindName, descCode string, descData map[string]string) Requirement {
	switch classifyValue(spec) {
	case kindMapping, kindItems:
		items := asItems(spec)
		wrapped := make([]Item, len(items))
		for i, it := range items {
			wrapped[i] = Item{Key: it.Key, Value: wrapLeaf(it.Value, wrap)}
		}
		return RequiredMapping(wrapped)
	case kindSequence:
		if t, ok := spec.(Tuple); ok {
			c := newPredicateChecker(NewPredicate(wrapLeaf(t, wrap)), false)
			c.descCode, c.descData = descCode, descData
			return groupRequirement{checker: c}
		}
		panic("verity: " + kindName + " requires a scalar, tuple or mapping spec")
	case kindSet:
		panic("verity: " + kindName + " requires a scalar, tuple or mapping spec")
	default:
		c := newPredicateChecker(NewPredicate(wrap(spec)), false)
		c.descCode, c.descData = descCode, descData
		return groupRequirement{checker: c}
	}
}

func wrapLeaf(v any, wrap func(any) any) any {
	if t, ok := v.(Tuple); ok {
		out := make(Tuple, len(t))
		for i, e := range t {
			out[i] = wrapLeaf(e, wrap)
		}
		return out
	}
	return wrap(v)
}

// ---- interval ----

// RequiredInterval checks every element against the closed bounds lower
// and upper; nil opens a side. Numeric out-of-bounds values report a
// Deviation against the violated bound, incomparable values report
// Invalid.
func RequiredInterval(lower, upper any) Requirement {
	if lower == nil && upper == nil {
		panic("verity: interval requires at least one bound")
	}
	c := intervalChecker{lower: lower, upper: upper}
	if lower != nil {
		f, ok := numericValue(lower)
		c.lowerNum, c.lowerIsNum = f, ok
		if ok && math.IsNaN(f) {
			panic("verity: interval bound must not be NaN")
		}
	}
	if upper != nil {
		f, ok := numericValue(upper)
		c.upperNum, c.upperIsNum = f, ok
		if ok && math.IsNaN(f) {
			panic("verity: interval bound must not be NaN")
		}
	}
	if lower != nil && upper != nil {
		if c.lowerIsNum != c.upperIsNum {
			panic("verity: interval bounds must both be numeric or both be ordered values")
		}
		if compareValues(lower, upper) > 0 {
			panic("verity: interval lower bound exceeds upper bound")
		}
	}
	return groupRequirement{checker: c}
}

type intervalChecker struct {
	lower, upper           any
	lowerNum, upperNum     float64
	lowerIsNum, upperIsNum bool
}

func (c intervalChecker) checkGroup(group []any) ([]Difference, error) {
	var diffs []Difference
	for _, v := range group {
		if d := c.checkElement(v); d != nil {
			diffs = append(diffs, d)
		}
	}
	return diffs, nil
}

func (c intervalChecker) checkElement(v any) Difference {
	if c.lowerIsNum || c.upperIsNum {
		vf, ok := numericValue(v)
		if !ok || math.IsNaN(vf) {
			return NewInvalid(v)
		}
		if c.lower != nil && vf < c.lowerNum {
			return MustDeviation(subtractNumeric(v, c.lower), c.lower)
		}
		if c.upper != nil && vf > c.upperNum {
			return MustDeviation(subtractNumeric(v, c.upper), c.upper)
		}
		return nil
	}
	// Non-numeric bounds order by the value total order within one rank.
	if c.lower != nil && orderRank(v) != orderRank(c.lower) {
		return NewInvalid(v)
	}
	if c.upper != nil && orderRank(v) != orderRank(c.upper) {
		return NewInvalid(v)
	}
	if c.lower != nil && compareValues(v, c.lower) < 0 {
		return NewInvalid(v)
	}
	if c.upper != nil && compareValues(v, c.upper) > 0 {
		return NewInvalid(v)
	}
	return nil
}

func (c intervalChecker) description() string {
	switch {
	case c.lower != nil && c.upper != nil:
		return describe(descIntervalBetween, map[string]string{"lower": repr(c.lower), "upper": repr(c.upper)})
	case c.lower != nil:
		return describe(descIntervalMin, map[string]string{"lower": repr(c.lower)})
	default:
		return describe(descIntervalMax, map[string]string{"upper": repr(c.upper)})
	}
}
