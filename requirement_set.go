package verity

import (
	"github.com/verityhq/verity/internal/fingerprint"
)

// Membership requirement kinds. A group is partitioned into members that
// match the requirement set and members that do not; which side gets
// reported depends on the kind.

// RequiredSet checks that a group carries exactly the members of s:
// requirement members never matched report Missing, group members outside
// the set report Extra, deduplicated.
func RequiredSet(s Set) Requirement {
	return groupRequirement{checker: setChecker{set: s, missing: true, extra: true, descCode: descSet}}
}

// RequiredSubset checks that every member of s appears in the group.
// Surplus group members are fine; absent requirement members report
// Missing.
func RequiredSubset(s Set) Requirement {
	return groupRequirement{checker: setChecker{set: s, missing: true, descCode: descSubset}}
}

// RequiredSuperset checks that the group stays within the members of s.
// Absent members are fine; group members outside the set report Extra,
// deduplicated.
func RequiredSuperset(s Set) Requirement {
	return groupRequirement{checker: setChecker{set: s, extra: true, descCode: descSuperset}}
}

type setChecker struct {
	set      Set
	missing  bool
	extra    bool
	descCode string
}

func (c setChecker) checkGroup(group []any) ([]Difference, error) {
	matched := make(map[string]struct{})
	extraSeen := make(map[string]struct{})
	var extras []Difference
	for _, v := range group {
		canon := fingerprint.Canonical(v)
		if c.set.lookup(fingerprint.Key(v), canon) >= 0 {
			matched[canon] = struct{}{}
			continue
		}
		if !c.extra {
			continue
		}
		if _, dup := extraSeen[canon]; dup {
			continue
		}
		extraSeen[canon] = struct{}{}
		extras = append(extras, NewExtra(v))
	}
	var diffs []Difference
	if c.missing {
		for _, e := range c.set.items {
			if _, ok := matched[e.canon]; !ok {
				diffs = append(diffs, NewMissing(e.value))
			}
		}
	}
	return append(diffs, extras...), nil
}

func (c setChecker) description() string { return describe(c.descCode, nil) }

// RequiredUnique checks that elements appear only once. Applied to a
// mapping it keeps one seen-set across every keyed group, so a repeat in
// a later group is caught even when its first occurrence lives under
// another key.
func RequiredUnique() Requirement { return uniqueRequirement{} }

type uniqueRequirement struct{}

func (uniqueRequirement) Check(data any) (*Result, error) {
	seen := make(map[string]struct{})
	inspect := func(group []any) []Difference {
		var diffs []Difference
		for _, v := range group {
			canon := fingerprint.Canonical(v)
			if _, dup := seen[canon]; dup {
				diffs = append(diffs, NewExtra(v))
				continue
			}
			seen[canon] = struct{}{}
		}
		return diffs
	}

	switch classifyValue(data) {
	case kindMapping, kindItems:
		ds := newMappedDifferences()
		for _, it := range asItems(data) {
			group, scalar := groupOf(it.Value)
			diffs := inspect(group)
			ds.appendKey(it.Key, diffs, scalar && len(diffs) == 1)
		}
		if ds.Empty() {
			return nil, nil
		}
		return &Result{Differences: ds, Description: describe(descUnique, nil)}, nil
	default:
		group, _ := groupOf(data)
		diffs := inspect(group)
		if len(diffs) == 0 {
			return nil, nil
		}
		return &Result{Differences: NewDifferences(diffs...), Description: describe(descUnique, nil)}, nil
	}
}
