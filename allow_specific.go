package verity

import (
	"fmt"
	"strings"
)

// ---- specific allowance ----

// AllowSpecific accepts a literal multiset of expected differences: a
// Difference, a []Difference, a Differences value, or a map from key to
// Difference or []Difference for mapping-shaped failures. Each entry
// consumes at most one matching occurrence; an entry that never matches
// turns the check into an error. Anything else panics.
func AllowSpecific(expected any) Allowance {
	ds, err := differencesFrom(expected)
	if err != nil {
		panic("verity: specific allowance needs differences or a keyed mapping of differences")
	}
	if ds.Empty() {
		panic("verity: specific allowance needs at least one difference")
	}
	pairs := ds.pairs()
	entries := make([]specificEntry, len(pairs))
	for i, p := range pairs {
		entries[i] = specificEntry{key: p.key, diff: p.diff, ck: occurrenceKey(p)}
	}
	return Allowance{f: &specificFilter{keyed: ds.IsMapping(), entries: entries}}
}

type specificFilter struct {
	keyed   bool
	entries []specificEntry
}

type specificEntry struct {
	key  any
	diff Difference
	ck   string
}

func (f *specificFilter) filterPairs(pairs []diffPair, _ bool) ([]diffPair, error) {
	remaining := make(map[string]int, len(f.entries))
	for _, e := range f.entries {
		remaining[e.ck]++
	}
	var out []diffPair
	for _, p := range pairs {
		ck := occurrenceKey(p)
		if remaining[ck] > 0 {
			remaining[ck]--
			continue
		}
		out = append(out, p)
	}
	var unmatched []string
	for _, e := range f.entries {
		if remaining[e.ck] > 0 {
			remaining[e.ck]--
			if f.keyed {
				unmatched = append(unmatched, fmt.Sprintf("%s: %s", repr(e.key), e.diff))
			} else {
				unmatched = append(unmatched, e.diff.String())
			}
		}
	}
	if len(unmatched) > 0 {
		return nil, fmt.Errorf("verity: allowed differences not found: [%s]", strings.Join(unmatched, ", "))
	}
	return out, nil
}

// mergeSpecificFilters combines two specific multisets, taking the
// per-value maximum for Or and the minimum for And. Mixing keyed and
// flat multisets has no meaningful result and panics.
func mergeSpecificFilters(l, r *specificFilter, union bool) *specificFilter {
	if l.keyed != r.keyed {
		panic("verity: cannot combine keyed and flat specific allowances")
	}
	counts := func(es []specificEntry) map[string]int {
		m := make(map[string]int, len(es))
		for _, e := range es {
			m[e.ck]++
		}
		return m
	}
	lc, rc := counts(l.entries), counts(r.entries)
	var order []string
	sample := make(map[string]specificEntry)
	for _, e := range l.entries {
		if _, ok := sample[e.ck]; !ok {
			sample[e.ck] = e
			order = append(order, e.ck)
		}
	}
	for _, e := range r.entries {
		if _, ok := sample[e.ck]; !ok {
			sample[e.ck] = e
			order = append(order, e.ck)
		}
	}
	var entries []specificEntry
	for _, ck := range order {
		n := min(lc[ck], rc[ck])
		if union {
			n = max(lc[ck], rc[ck])
		}
		for i := 0; i < n; i++ {
			entries = append(entries, sample[ck])
		}
	}
	return &specificFilter{keyed: l.keyed, entries: entries}
}

// ---- limit allowance ----

// AllowLimit accepts up to n differences in occurrence order; once the
// threshold is exceeded every further difference passes through.
// Combining a limit with other allowances is order-significant: the
// limit counts exactly the occurrences its position in the composition
// lets it see.
func AllowLimit(n int) Allowance {
	if n < 0 {
		panic("verity: allowance limit must not be negative")
	}
	return Allowance{f: &limitFilter{n: n}}
}

type limitFilter struct {
	n int
}

func (f *limitFilter) filterPairs(pairs []diffPair, _ bool) ([]diffPair, error) {
	if len(pairs) <= f.n {
		return nil, nil
	}
	out := make([]diffPair, len(pairs)-f.n)
	copy(out, pairs[f.n:])
	return out, nil
}
