package verity

import (
	"sort"
	"strconv"
	"strings"

	"github.com/verityhq/verity/internal/fingerprint"
)

// Set is an unordered collection of distinct values, including values Go
// cannot use as map keys. Membership follows the engine's value equality,
// so 5 and 5.0 are one member. A Set is immutable once built.
type Set struct {
	index map[uint64][]int
	items []setEntry
}

type setEntry struct {
	canon string
	value any
}

// NewSet builds a Set from items, dropping duplicates.
func NewSet(items ...any) Set {
	s := Set{index: make(map[uint64][]int, len(items))}
	for _, v := range items {
		canon := fingerprint.Canonical(v)
		key := fingerprint.Key(v)
		if s.lookup(key, canon) >= 0 {
			continue
		}
		s.index[key] = append(s.index[key], len(s.items))
		s.items = append(s.items, setEntry{canon: canon, value: v})
	}
	return s
}

// NewSetFrom builds a Set from any value that classifies as a sequence,
// set or scalar. Scalars become one-member sets.
func NewSetFrom(v any) Set {
	switch classifyValue(v) {
	case kindSet:
		return v.(Set)
	case kindSequence:
		return NewSet(asGroup(v)...)
	default:
		return NewSet(v)
	}
}

// Has reports whether v is a member.
func (s Set) Has(v any) bool {
	if len(s.items) == 0 {
		return false
	}
	return s.lookup(fingerprint.Key(v), fingerprint.Canonical(v)) >= 0
}

// Len returns the number of members.
func (s Set) Len() int { return len(s.items) }

// Values returns the members in insertion order.
func (s Set) Values() []any {
	out := make([]any, len(s.items))
	for i, e := range s.items {
		out[i] = e.value
	}
	return out
}

func (s Set) lookup(key uint64, canon string) int {
	for _, idx := range s.index[key] {
		if s.items[idx].canon == canon {
			return idx
		}
	}
	return -1
}

// CanonicalKey encodes the membership independent of insertion order.
func (s Set) CanonicalKey() string {
	canons := make([]string, len(s.items))
	for i, e := range s.items {
		canons[i] = e.canon
	}
	sort.Strings(canons)
	var sb strings.Builder
	sb.WriteString("S")
	sb.WriteString(strconv.Itoa(len(canons)))
	sb.WriteString(":{")
	for _, c := range canons {
		sb.WriteString(c)
	}
	sb.WriteString("};")
	return sb.String()
}

func (s Set) String() string {
	vals := make([]any, len(s.items))
	for i, e := range s.items {
		vals[i] = e.value
	}
	sortValues(vals)
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = repr(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
