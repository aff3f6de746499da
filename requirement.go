package verity

import (
	"github.com/verityhq/verity/i18n"
)

// Description catalog codes resolved through the i18n translator.
const (
	descDoesNotSatisfy  = "does_not_satisfy"
	descApproxPlaces    = "approx_places"
	descApproxDelta     = "approx_delta"
	descFuzzy           = "fuzzy_match"
	descIntervalBetween = "interval_between"
	descIntervalMin     = "interval_min"
	descIntervalMax     = "interval_max"
	descSet             = "set_membership"
	descSubset          = "subset_membership"
	descSuperset        = "superset_membership"
	descUnique          = "unique_elements"
	descOrder           = "required_order"
	descSequence        = "required_sequence"
	descMapping         = "mapping_requirement"
)

func describe(code string, data map[string]string) string {
	return i18n.T(code, data)
}

// Result carries the differences and description of a failed check.
type Result struct {
	Differences Differences
	Description string
}

// Requirement checks data and reports how it diverges. A nil Result means
// the data satisfies the requirement. The error return is reserved for
// configuration mistakes and for failures raised by caller-supplied
// callables; it never stands in for "did not match".
type Requirement interface {
	Check(data any) (*Result, error)
}

// NewRequirement classifies an expected literal into its requirement
// kind: a Requirement passes through, mappings compare per key, a Set
// requires membership, slices and arrays require order, and any other
// value (Tuple included) becomes an element-wise predicate.
func NewRequirement(expected any) Requirement {
	if r, ok := expected.(Requirement); ok {
		return r
	}
	switch classifyValue(expected) {
	case kindMapping, kindItems:
		return RequiredMapping(expected)
	case kindSet:
		return RequiredSet(expected.(Set))
	case kindSequence:
		if t, ok := expected.(Tuple); ok {
			return RequiredPredicate(t)
		}
		return RequiredOrder(expected)
	default:
		return RequiredPredicate(expected)
	}
}

// groupChecker is the contract of the group requirement kinds: one flat
// check over a group of elements plus a description. The mapping lift in
// checkWithLift runs the same checker over every keyed group.
type groupChecker interface {
	checkGroup(group []any) ([]Difference, error)
	description() string
}

// groupRequirement lifts a groupChecker into a full Requirement.
type groupRequirement struct {
	checker groupChecker
}

func (g groupRequirement) Check(data any) (*Result, error) {
	return checkWithLift(g.checker, data)
}

func checkWithLift(c groupChecker, data any) (*Result, error) {
	switch classifyValue(data) {
	case kindMapping, kindItems:
		return liftOverMapping(c, asItems(data))
	}
	group, _ := groupOf(data)
	diffs, err := c.checkGroup(group)
	if err != nil {
		return nil, err
	}
	if len(diffs) == 0 {
		return nil, nil
	}
	return &Result{Differences: NewDifferences(diffs...), Description: c.description()}, nil
}

// liftOverMapping checks each keyed group independently. A key stays out
// of the result when its group produces no difference, so clean groups
// cost exactly one scan.
func liftOverMapping(c groupChecker, items []Item) (*Result, error) {
	ds := newMappedDifferences()
	for _, it := range items {
		group, scalar := groupOf(it.Value)
		diffs, err := c.checkGroup(group)
		if err != nil {
			return nil, err
		}
		ds.appendKey(it.Key, diffs, scalar && len(diffs) == 1)
	}
	if ds.Empty() {
		return nil, nil
	}
	return &Result{Differences: ds, Description: c.description()}, nil
}

// groupOf adapts one datum to a group. Sequences and sets spread into
// their elements; everything else, nested mappings included, is a lone
// scalar wrapped as a one-element group.
func groupOf(v any) (group []any, scalar bool) {
	switch classifyValue(v) {
	case kindSequence:
		return asGroup(v), false
	case kindSet:
		return v.(Set).Values(), false
	default:
		return []any{v}, true
	}
}
