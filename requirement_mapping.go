package verity

import (
	"fmt"
)

// RequiredMapping checks data against a requirement mapping key by key.
// Each requirement value is classified on the fly: group shapes (sets,
// sequences) run their group check over the keyed data, everything else
// runs as an element-wise predicate carrying its expected value. Lone
// scalar data values are wrapped as one-element groups and a singleton
// result stays unwrapped.
func RequiredMapping(m any) Requirement {
	switch classifyValue(m) {
	case kindMapping, kindItems:
	default:
		panic("verity: mapping requirement needs a mapping or key/value items")
	}
	return &mappingRequirement{items: asItems(m)}
}

type mappingRequirement struct {
	items []Item
}

func (r *mappingRequirement) Check(data any) (*Result, error) {
	switch classifyValue(data) {
	case kindMapping, kindItems:
	default:
		return nil, fmt.Errorf("verity: mapping requirement cannot check %T data; pass a mapping or key/value items", data)
	}

	specs := make(map[string]Item, len(r.items))
	for _, it := range r.items {
		specs[keyCanon(it.Key)] = it
	}

	ds := newMappedDifferences()
	var descs []string
	seen := make(map[string]struct{})

	for _, it := range asItems(data) {
		ck := keyCanon(it.Key)
		seen[ck] = struct{}{}
		var spec any = NotFound
		if rit, ok := specs[ck]; ok {
			spec = rit.Value
		}
		diffs, desc, err := checkKeyedValue(spec, it.Value)
		if err != nil {
			return nil, err
		}
		if len(diffs) == 0 {
			continue
		}
		_, scalar := groupOf(it.Value)
		ds.appendKey(it.Key, diffs, scalar && len(diffs) == 1)
		descs = append(descs, desc)
	}

	// Requirement keys the data never presented: run the same check over
	// an empty group, and when that stays clean report the expectation
	// itself as missing.
	for _, rit := range r.items {
		if _, ok := seen[keyCanon(rit.Key)]; ok {
			continue
		}
		diffs, desc, err := checkAbsentKey(rit.Value)
		if err != nil {
			return nil, err
		}
		ds.appendKey(rit.Key, diffs, len(diffs) == 1)
		descs = append(descs, desc)
	}

	if ds.Empty() {
		return nil, nil
	}
	return &Result{Differences: ds, Description: consistentDescription(descs)}, nil
}

// consistentDescription keeps a single per-key description only when
// every key produced the same one.
func consistentDescription(descs []string) string {
	if len(descs) == 0 {
		return describe(descMapping, nil)
	}
	first := descs[0]
	for _, d := range descs[1:] {
		if d != first {
			return describe(descMapping, nil)
		}
	}
	return first
}

func checkKeyedValue(spec, value any) ([]Difference, string, error) {
	if req, ok := spec.(Requirement); ok {
		res, err := req.Check(value)
		if err != nil {
			return nil, "", err
		}
		if res == nil {
			return nil, "", nil
		}
		if res.Differences.IsMapping() {
			return nil, "", fmt.Errorf("verity: nested mapping requirements cannot report under a single key")
		}
		return res.Differences.List(), res.Description, nil
	}
	c := checkerForValue(spec)
	group, _ := groupOf(value)
	diffs, err := c.checkGroup(group)
	if err != nil {
		return nil, "", err
	}
	return diffs, c.description(), nil
}

func checkAbsentKey(spec any) ([]Difference, string, error) {
	if req, ok := spec.(Requirement); ok {
		res, err := req.Check([]any{})
		if err != nil {
			return nil, "", err
		}
		if res != nil && !res.Differences.IsMapping() && !res.Differences.Empty() {
			return res.Differences.List(), res.Description, nil
		}
		return []Difference{NewMissing(missingSpecValue(spec))}, describe(descMapping, nil), nil
	}
	c := checkerForValue(spec)
	diffs, err := c.checkGroup(nil)
	if err != nil {
		return nil, "", err
	}
	if len(diffs) == 0 {
		diffs = []Difference{NewMissing(missingSpecValue(spec))}
	}
	return diffs, c.description(), nil
}

// checkerForValue classifies one requirement value. Nested mappings have
// no keyed sub-report, so they compare as whole values.
func checkerForValue(spec any) groupChecker {
	switch classifyValue(spec) {
	case kindSet:
		return setChecker{set: spec.(Set), missing: true, extra: true, descCode: descSet}
	case kindSequence:
		if t, ok := spec.(Tuple); ok {
			return newPredicateChecker(NewPredicate(t), true)
		}
		return orderChecker{want: asGroup(spec)}
	default:
		return newPredicateChecker(NewPredicate(spec), true)
	}
}

// missingSpecValue reports the value a Missing difference should carry
// for an absent key, unwrapping predicate wrappers to their targets.
func missingSpecValue(spec any) any {
	if p, ok := spec.(Predicate); ok && p.spec != nil {
		return p.spec
	}
	return spec
}
