package verity

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/verityhq/verity/internal/fingerprint"
)

// RequiredOrder checks that a group reproduces seq element for element in
// sequence. The comparison aligns both sides by their longest common
// subsequence; requirement elements the data lacks report
// Missing((index, value)) and data elements the requirement lacks report
// Extra((index, value)), with indexes counting positions in the data.
func RequiredOrder(seq any) Requirement {
	if classifyValue(seq) != kindSequence {
		panic("verity: order requires a sequence spec")
	}
	return groupRequirement{checker: orderChecker{want: asGroup(seq)}}
}

type orderChecker struct {
	want []any
}

func (c orderChecker) checkGroup(group []any) ([]Difference, error) {
	m := difflib.NewMatcher(canonKeys(group), canonKeys(c.want))
	var diffs []Difference
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				diffs = append(diffs, NewMissing(Tuple{op.I1, c.want[j]}))
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				diffs = append(diffs, NewExtra(Tuple{i, group[i]}))
			}
		case 'r':
			// Pairs positionally, trailing surplus on either side keeps
			// advancing the data-side index.
			n := max(op.I2-op.I1, op.J2-op.J1)
			for k := 0; k < n; k++ {
				idx := op.I1 + k
				if op.J1+k < op.J2 {
					diffs = append(diffs, NewMissing(Tuple{idx, c.want[op.J1+k]}))
				}
				if op.I1+k < op.I2 {
					diffs = append(diffs, NewExtra(Tuple{idx, group[op.I1+k]}))
				}
			}
		}
	}
	return diffs, nil
}

func (orderChecker) description() string { return describe(descOrder, nil) }

// canonKeys projects elements onto their canonical fingerprints so the
// matcher can align values Go cannot compare directly.
func canonKeys(vs []any) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = fingerprint.Canonical(v)
	}
	return out
}

// RequiredSequence checks elements positionally against seq: element i
// must satisfy spec i, with the shorter side padded by NotFound so length
// mismatches surface at the tail as Missing or Extra.
func RequiredSequence(seq any) Requirement {
	if classifyValue(seq) != kindSequence {
		panic("verity: sequence requires a sequence spec")
	}
	specs := asGroup(seq)
	preds := make([]Predicate, len(specs))
	for i, s := range specs {
		preds[i] = NewPredicate(s)
	}
	return groupRequirement{checker: sequenceChecker{preds: preds}}
}

type sequenceChecker struct {
	preds []Predicate
}

func (c sequenceChecker) checkGroup(group []any) ([]Difference, error) {
	var diffs []Difference
	n := max(len(group), len(c.preds))
	for i := 0; i < n; i++ {
		var v any = NotFound
		if i < len(group) {
			v = group[i]
		}
		if i >= len(c.preds) {
			diffs = append(diffs, NewExtra(v))
			continue
		}
		ok, d, err := c.preds[i].eval(v)
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
		diffs = append(diffs, c.preds[i].differenceFor(v, true))
	}
	return diffs, nil
}

func (sequenceChecker) description() string { return describe(descSequence, nil) }
