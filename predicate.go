package verity

import (
	"reflect"
	"regexp"
)

// matcherFunc evaluates one value. A non-nil Difference from a callable
// spec is forwarded verbatim in place of a synthesized one.
type matcherFunc func(v any) (bool, Difference, error)

// Predicate wraps a matcher spec classified once at construction. Specs
// follow one shape table: types match instances, callables match by
// truthy result or identity, Wildcard matches anything, booleans match
// truthiness, compiled patterns match searchable text, sets match members,
// tuples match element-wise and every other value matches by equality.
// Predicates are immutable; Invert and Intersect return new values.
type Predicate struct {
	match     matcherFunc
	spec      any
	display   string
	inverted  bool
	composite bool
}

// NewPredicate classifies spec and returns its predicate. A Predicate
// given as spec is returned unchanged.
func NewPredicate(spec any) Predicate {
	if p, ok := spec.(Predicate); ok {
		return p
	}
	return Predicate{match: classifyMatcher(spec), spec: spec}
}

// Match reports whether v satisfies the predicate. An error returned by a
// callable spec aborts the match and is reported unmodified.
func (p Predicate) Match(v any) (bool, error) {
	ok, _, err := p.eval(v)
	return ok, err
}

// Invert returns the logical negation of p.
func (p Predicate) Invert() Predicate {
	q := p
	q.inverted = !p.inverted
	return q
}

// Intersect returns a predicate satisfied only when both p and other are.
func (p Predicate) Intersect(other Predicate) Predicate {
	left, right := p, other
	return Predicate{
		match: func(v any) (bool, Difference, error) {
			ok, _, err := left.eval(v)
			if err != nil || !ok {
				return false, nil, err
			}
			ok, _, err = right.eval(v)
			return ok, nil, err
		},
		display:   left.String() + " & " + right.String(),
		composite: true,
	}
}

func (p Predicate) String() string {
	s := p.display
	if s == "" {
		s = repr(p.spec)
	}
	if p.inverted {
		return "~" + s
	}
	return s
}

// eval applies the matcher with inversion. A Difference propagated by a
// callable counts as a non-match and is dropped under inversion.
func (p Predicate) eval(v any) (bool, Difference, error) {
	ok, d, err := p.match(v)
	if err != nil {
		return false, nil, err
	}
	if p.inverted {
		return !ok, nil, nil
	}
	return ok, d, nil
}

// differenceFor synthesizes the difference for a non-matching value. The
// original spec serves as the expected side unless inversion or
// composition has detached the predicate from a literal target.
func (p Predicate) differenceFor(v any, showExpected bool) Difference {
	if p.inverted || p.composite {
		return NewInvalid(v)
	}
	return NewDifference(v, p.spec, showExpected)
}

func classifyMatcher(spec any) matcherFunc {
	switch s := spec.(type) {
	case Predicate:
		return s.eval
	case wildcard:
		return func(any) (bool, Difference, error) { return true, nil, nil }
	case bool:
		return truthMatcher(s)
	case reflect.Type:
		return typeMatcher(s)
	case func(any) bool:
		return callableMatcher(s, func(v any) (any, error) { return s(v), nil })
	case func(any) (bool, error):
		return callableMatcher(s, func(v any) (any, error) { return s(v) })
	case func(any) Difference:
		return callableMatcher(s, func(v any) (any, error) {
			if d := s(v); d != nil {
				return d, nil
			}
			return true, nil
		})
	case *regexp.Regexp:
		return patternMatcher(s)
	case Set:
		return membershipMatcher(s)
	case Tuple:
		return tupleMatcher(s)
	default:
		return func(v any) (bool, Difference, error) { return matchEqual(v, spec), nil, nil }
	}
}

func truthMatcher(want bool) matcherFunc {
	return func(v any) (bool, Difference, error) {
		return isTruthy(v) == want, nil, nil
	}
}

func typeMatcher(rt reflect.Type) matcherFunc {
	return func(v any) (bool, Difference, error) {
		if t, ok := v.(reflect.Type); ok {
			return t == rt, nil, nil
		}
		if v == nil {
			return false, nil, nil
		}
		return reflect.TypeOf(v).AssignableTo(rt), nil, nil
	}
}

// callableMatcher evaluates the spec function, interpreting a returned
// Difference as a non-match carrying its own report. A value identical to
// the callable itself matches, mirroring the identity fallback of the
// other spec kinds.
func callableMatcher(spec any, call func(v any) (any, error)) matcherFunc {
	ptr := reflect.ValueOf(spec).Pointer()
	return func(v any) (bool, Difference, error) {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Func && rv.Pointer() == ptr {
			return true, nil, nil
		}
		res, err := call(v)
		if err != nil {
			return false, nil, err
		}
		switch r := res.(type) {
		case bool:
			return r, nil, nil
		case Difference:
			return false, r, nil
		}
		return isTruthy(res), nil, nil
	}
}

func patternMatcher(rx *regexp.Regexp) matcherFunc {
	return func(v any) (bool, Difference, error) {
		switch x := v.(type) {
		case string:
			return rx.MatchString(x), nil, nil
		case []byte:
			return rx.Match(x), nil, nil
		case *regexp.Regexp:
			return x == rx, nil, nil
		}
		return false, nil, nil
	}
}

func membershipMatcher(s Set) matcherFunc {
	key := s.CanonicalKey()
	return func(v any) (bool, Difference, error) {
		if sv, ok := v.(Set); ok && sv.CanonicalKey() == key {
			return true, nil, nil
		}
		return s.Has(v), nil, nil
	}
}

func tupleMatcher(t Tuple) matcherFunc {
	subs := make([]matcherFunc, len(t))
	for i, s := range t {
		subs[i] = classifyMatcher(s)
	}
	return func(v any) (bool, Difference, error) {
		row, ok := asRow(v)
		if !ok || len(row) != len(subs) {
			return false, nil, nil
		}
		for i, sub := range subs {
			ok, _, err := sub(row[i])
			if err != nil {
				return false, nil, err
			}
			if !ok {
				return false, nil, nil
			}
		}
		return true, nil, nil
	}
}

func asRow(v any) ([]any, bool) {
	if t, ok := v.(Tuple); ok {
		return []any(t), true
	}
	if classifyValue(v) == kindSequence {
		return asGroup(v), true
	}
	return nil, false
}
