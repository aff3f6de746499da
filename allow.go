package verity

import (
	"fmt"
	"math"
)

// ---- allowance core ----

// Allowance filters the differences of an intercepted ValidationError,
// swallowing the failure when everything is allowed or replacing it with
// one carrying only the remainder. Values are immutable and reusable
// across checks; And and Or return new compositions.
type Allowance struct {
	f   filterer
	msg string
}

// filterer consumes flattened (key, difference) occurrences and returns
// the ones still disallowed, in input order.
type filterer interface {
	filterPairs(pairs []diffPair, mapped bool) ([]diffPair, error)
}

// Message reports the announcement prefixed to a surviving failure.
func (a Allowance) Message() string { return a.msg }

// WithMessage returns a copy whose message prefixes surviving failures.
func (a Allowance) WithMessage(msg string) Allowance {
	a.msg = msg
	return a
}

// Apply filters err. A nil error stays nil and non-validation errors
// pass through unchanged. A ValidationError is swallowed when every
// difference is allowed, otherwise replaced with the remainder and the
// allowance message prefixed to its description.
func (a Allowance) Apply(err error) error {
	if err == nil || a.f == nil {
		return err
	}
	ve, ok := AsValidationError(err)
	if !ok {
		return err
	}
	mapped := ve.diffs.IsMapping()
	out, ferr := a.f.filterPairs(ve.diffs.pairs(), mapped)
	if ferr != nil {
		return ferr
	}
	if len(out) == 0 {
		return nil
	}
	desc := ve.description
	switch {
	case a.msg != "" && desc != "":
		desc = a.msg + ": " + desc
	case a.msg != "":
		desc = a.msg
	}
	repl := newValidationError(desc, rebuildDifferences(out, mapped))
	repl.maxLines, repl.maxChars, repl.notice = ve.maxLines, ve.maxChars, ve.notice
	return repl
}

// Guard runs fn and applies the allowance to its error.
func (a Allowance) Guard(fn func() error) error { return a.Apply(fn()) }

// And returns an allowance accepting only what both sides accept.
func (a Allowance) And(other Allowance) Allowance {
	return Allowance{
		f:   combineFilters(a.f, other.f, false),
		msg: joinMessages(a.msg, other.msg, " and "),
	}
}

// Or returns an allowance accepting what either side accepts.
func (a Allowance) Or(other Allowance) Allowance {
	return Allowance{
		f:   combineFilters(a.f, other.f, true),
		msg: joinMessages(a.msg, other.msg, " or "),
	}
}

func joinMessages(a, b, sep string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + sep + b
}

// combineFilters picks the composition strategy from the operand kinds:
// element-wise pairs fuse their predicates, specific pairs merge their
// multisets, everything else composes generically.
func combineFilters(left, right filterer, union bool) filterer {
	if le, ok := left.(*elementFilter); ok {
		if re, ok := right.(*elementFilter); ok {
			return mergeElementFilters(le, re, union)
		}
	}
	if ls, ok := left.(*specificFilter); ok {
		if rs, ok := right.(*specificFilter); ok {
			return mergeSpecificFilters(ls, rs, union)
		}
	}
	return &composedFilter{left: left, right: right, union: union}
}

// composedFilter materializes both sides over buffered occurrences, which
// keeps order-sensitive operands such as limits well defined. Or filters
// sequentially, left then right. And keeps an occurrence when either side
// rejected it, intersecting the accepted occurrences per canonical key.
type composedFilter struct {
	left, right filterer
	union       bool
}

func (f *composedFilter) filterPairs(pairs []diffPair, mapped bool) ([]diffPair, error) {
	if f.union {
		out, err := f.left.filterPairs(pairs, mapped)
		if err != nil {
			return nil, err
		}
		return f.right.filterPairs(out, mapped)
	}
	leftAccepted, err := acceptedCounts(f.left, pairs, mapped)
	if err != nil {
		return nil, err
	}
	rightAccepted, err := acceptedCounts(f.right, pairs, mapped)
	if err != nil {
		return nil, err
	}
	var out []diffPair
	for _, p := range pairs {
		ck := occurrenceKey(p)
		if leftAccepted[ck] > 0 && rightAccepted[ck] > 0 {
			leftAccepted[ck]--
			rightAccepted[ck]--
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// acceptedCounts runs one side over the full input and tallies, per
// canonical occurrence key, how many occurrences it accepted.
func acceptedCounts(f filterer, pairs []diffPair, mapped bool) (map[string]int, error) {
	out, err := f.filterPairs(pairs, mapped)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, p := range pairs {
		counts[occurrenceKey(p)]++
	}
	for _, p := range out {
		counts[occurrenceKey(p)]--
	}
	return counts, nil
}

func occurrenceKey(p diffPair) string {
	if p.key == nil {
		return differenceKey(p.diff)
	}
	return keyCanon(p.key) + "|" + differenceKey(p.diff)
}

// ---- element-wise allowances ----

type elementFilter struct {
	accept func(key any, d Difference) (bool, error)
}

func (f *elementFilter) filterPairs(pairs []diffPair, _ bool) ([]diffPair, error) {
	var out []diffPair
	for _, p := range pairs {
		ok, err := f.accept(p.key, p.diff)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func mergeElementFilters(l, r *elementFilter, union bool) *elementFilter {
	la, ra := l.accept, r.accept
	if union {
		return &elementFilter{accept: func(key any, d Difference) (bool, error) {
			ok, err := la(key, d)
			if err != nil || ok {
				return ok, err
			}
			return ra(key, d)
		}}
	}
	return &elementFilter{accept: func(key any, d Difference) (bool, error) {
		ok, err := la(key, d)
		if err != nil || !ok {
			return ok, err
		}
		return ra(key, d)
	}}
}

func elementAllowance(accept func(key any, d Difference) bool) Allowance {
	return Allowance{f: &elementFilter{accept: func(key any, d Difference) (bool, error) {
		return accept(key, d), nil
	}}}
}

// AllowMissing accepts every Missing difference.
func AllowMissing() Allowance {
	return elementAllowance(func(_ any, d Difference) bool {
		_, ok := d.(Missing)
		return ok
	})
}

// AllowExtra accepts every Extra difference.
func AllowExtra() Allowance {
	return elementAllowance(func(_ any, d Difference) bool {
		_, ok := d.(Extra)
		return ok
	})
}

// AllowInvalid accepts every Invalid difference.
func AllowInvalid() Allowance {
	return elementAllowance(func(_ any, d Difference) bool {
		_, ok := d.(Invalid)
		return ok
	})
}

// AllowDeviation accepts Deviation differences whose delta lies in the
// closed window lower..upper. Bounds must be numeric; a reversed or NaN
// window panics.
func AllowDeviation(lower, upper any) Allowance {
	lo, ok := numericValue(lower)
	if !ok {
		panic("verity: deviation allowance bounds must be numeric")
	}
	hi, ok := numericValue(upper)
	if !ok {
		panic("verity: deviation allowance bounds must be numeric")
	}
	if math.IsNaN(lo) || math.IsNaN(hi) {
		panic("verity: deviation allowance bounds must not be NaN")
	}
	if lo > hi {
		panic(fmt.Sprintf("verity: deviation allowance window is reversed (%v > %v)", lower, upper))
	}
	return elementAllowance(func(_ any, d Difference) bool {
		dev, ok := d.(Deviation)
		if !ok {
			return false
		}
		delta, _ := numericValue(dev.Delta())
		return lo <= delta && delta <= hi
	})
}

// AllowTolerance accepts Deviation differences whose delta magnitude is
// at most tolerance.
func AllowTolerance(tolerance any) Allowance {
	t, ok := numericValue(tolerance)
	if !ok {
		panic("verity: tolerance must be numeric")
	}
	if math.IsNaN(t) || t < 0 {
		panic("verity: tolerance must not be negative")
	}
	return AllowDeviation(-t, t)
}

// AllowPercent accepts Deviation differences whose delta is within
// tolerance as a fraction of the reference. An empty or zero reference
// accepts only a zero delta.
func AllowPercent(tolerance any) Allowance {
	t, ok := numericValue(tolerance)
	if !ok {
		panic("verity: percent tolerance must be numeric")
	}
	if math.IsNaN(t) || t < 0 {
		panic("verity: percent tolerance must not be negative")
	}
	return elementAllowance(func(_ any, d Difference) bool {
		dev, ok := d.(Deviation)
		if !ok {
			return false
		}
		delta, _ := numericValue(dev.Delta())
		ref, refNum := numericValue(dev.Reference())
		if !refNum || ref == 0 {
			return delta == 0
		}
		return math.Abs(delta/ref) <= t
	})
}

// AllowKeys accepts differences whose key matches the given predicate
// spec. Flat failures carry a nil key.
func AllowKeys(spec any) Allowance {
	p := NewPredicate(spec)
	return Allowance{f: &elementFilter{accept: func(key any, _ Difference) (bool, error) {
		return p.Match(key)
	}}}
}

// AllowArgs accepts differences whose argument matches the given
// predicate spec. A single argument is matched bare, multiple arguments
// as a Tuple.
func AllowArgs(spec any) Allowance {
	p := NewPredicate(spec)
	return Allowance{f: &elementFilter{accept: func(_ any, d Difference) (bool, error) {
		args := d.Args()
		if len(args) == 1 {
			return p.Match(args[0])
		}
		return p.Match(Tuple(args))
	}}}
}

// AllowWhere accepts differences the given function reports as allowed.
func AllowWhere(fn func(key any, d Difference) bool, msg string) Allowance {
	return elementAllowance(fn).WithMessage(msg)
}

// ---- collection-level allowance ----

type funcFilter struct {
	fn func(Differences) Differences
}

func (f *funcFilter) filterPairs(pairs []diffPair, mapped bool) ([]diffPair, error) {
	out := f.fn(rebuildDifferences(pairs, mapped))
	if out.Empty() {
		return nil, nil
	}
	if out.IsMapping() != mapped {
		return nil, fmt.Errorf("verity: allowance filter changed the container kind (%s in, %s out)",
			containerKindName(mapped), containerKindName(out.IsMapping()))
	}
	return out.pairs(), nil
}

func containerKindName(mapped bool) string {
	if mapped {
		return "mapping"
	}
	return "list"
}

// AllowFilter accepts whatever the given collection-level filter removes.
// The filter receives the full difference collection and returns the
// occurrences still disallowed; it must preserve the container kind.
func AllowFilter(fn func(Differences) Differences, msg string) Allowance {
	return Allowance{f: &funcFilter{fn: fn}, msg: msg}
}
