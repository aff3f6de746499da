package verity_test

import (
	"errors"
	"strings"
	"testing"

	verity "github.com/verityhq/verity"
)

func mustFailure(t *testing.T, desc string, differences any) error {
	t.Helper()
	ve, err := verity.NewValidationError(desc, differences)
	if err != nil {
		t.Fatalf("expected failure construction to succeed, got: %v", err)
	}
	return ve
}

// TestAllowSpecificConsumesPerMatch: each expected entry consumes at
// most one occurrence, so allowing one Extra("x") of three leaves two.
func TestAllowSpecificConsumesPerMatch(t *testing.T) {
	fail := mustFailure(t, "", []verity.Difference{
		verity.NewExtra("x"), verity.NewExtra("x"), verity.NewExtra("x"),
	})
	err := verity.AllowSpecific(verity.NewExtra("x")).Apply(fail)
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected a reduced validation error, got: %v", err)
	}
	list := ve.Differences().List()
	if len(list) != 2 {
		t.Fatalf("expected two occurrences to remain, got: %v", list)
	}
	for _, d := range list {
		if !d.Equal(verity.NewExtra("x")) {
			t.Fatalf("expected Extra(\"x\") survivors, got: %v", d)
		}
	}
}

// TestAllowApplyPassThrough: nil stays nil and non-validation errors are
// untouched, so re-applying to an already-clean check is a no-op.
func TestAllowApplyPassThrough(t *testing.T) {
	a := verity.AllowExtra()
	if got := a.Apply(nil); got != nil {
		t.Fatalf("expected nil to stay nil, got: %v", got)
	}
	plain := errors.New("io failure")
	if got := a.Apply(plain); !errors.Is(got, plain) {
		t.Fatalf("expected the plain error unchanged, got: %v", got)
	}
}

// TestAllowGuardSwallows runs the guarded check and swallows a fully
// allowed failure.
func TestAllowGuardSwallows(t *testing.T) {
	err := verity.AllowExtra().Guard(func() error {
		return verity.Validate([]any{1, 9}, verity.RequiredSuperset(verity.NewSet(1)))
	})
	if err != nil {
		t.Fatalf("expected the failure to be swallowed, got: %v", err)
	}
}

// TestAllowVariantKinds filters by difference variant.
func TestAllowVariantKinds(t *testing.T) {
	mixed := func() error {
		return mustFailure(t, "", []verity.Difference{
			verity.NewMissing(1), verity.NewExtra(2), verity.NewInvalid(3),
		})
	}
	cases := []struct {
		name  string
		allow verity.Allowance
		want  string
	}{
		{"missing", verity.AllowMissing(), verity.CodeMissing},
		{"extra", verity.AllowExtra(), verity.CodeExtra},
		{"invalid", verity.AllowInvalid(), verity.CodeInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.allow.Apply(mixed())
			ve, ok := verity.AsValidationError(err)
			if !ok {
				t.Fatalf("expected survivors, got: %v", err)
			}
			for _, d := range ve.Differences().List() {
				if d.Code() == tc.want {
					t.Fatalf("expected no %s to survive, got: %v", tc.want, d)
				}
			}
			if got := ve.Differences().Len(); got != 2 {
				t.Fatalf("expected 2 survivors, got: %d", got)
			}
		})
	}
}

// TestAllowDeviationWindow accepts deviations inside the closed window
// and nothing else.
func TestAllowDeviationWindow(t *testing.T) {
	fail := func() error {
		return mustFailure(t, "", []verity.Difference{
			verity.MustDeviation(3, 10),
			verity.MustDeviation(-1, 10),
			verity.NewMissing(5),
		})
	}
	err := verity.AllowDeviation(-2, 2).Apply(fail())
	ve, ok := verity.AsValidationError(err)
	if !ok || ve.Differences().Len() != 2 {
		t.Fatalf("expected the out-of-window deviation and the missing to survive, got: %v", err)
	}
	err = verity.AllowTolerance(3).Apply(fail())
	ve, ok = verity.AsValidationError(err)
	if !ok || ve.Differences().Len() != 1 {
		t.Fatalf("expected only the missing to survive, got: %v", err)
	}
	expectPanic(t, func() { verity.AllowTolerance(-1) })
	expectPanic(t, func() { verity.AllowDeviation(2, -2) })
	expectPanic(t, func() { verity.AllowDeviation("a", 2) })
}

// TestAllowPercent measures the delta against the reference; an empty
// reference accepts only a zero delta.
func TestAllowPercent(t *testing.T) {
	fail := mustFailure(t, "", []verity.Difference{
		verity.MustDeviation(2, 100),
		verity.MustDeviation(8, 100),
		verity.MustDeviation(5, nil),
		verity.MustDeviation(0, nil),
	})
	err := verity.AllowPercent(0.05).Apply(fail)
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	list := ve.Differences().List()
	if len(list) != 2 {
		t.Fatalf("expected two survivors, got: %v", list)
	}
	if !list[0].Equal(verity.MustDeviation(8, 100)) || !list[1].Equal(verity.MustDeviation(5, nil)) {
		t.Fatalf("expected Deviation(+8, 100) and Deviation(+5, nil), got: %v", list)
	}
}

// TestAllowKeys filters keyed failures by key predicate.
func TestAllowKeys(t *testing.T) {
	fail := func() error {
		return mustFailure(t, "", map[string]any{
			"x": verity.NewMissing(1),
			"y": verity.NewMissing(2),
		})
	}
	err := verity.AllowKeys("x").Apply(fail())
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	keys := ve.Differences().Keys()
	if len(keys) != 1 || keys[0] != "y" {
		t.Fatalf("expected only key y to survive, got: %v", keys)
	}

	err = verity.AllowKeys(func(v any) bool { return v == "y" }).Apply(fail())
	ve, ok = verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	keys = ve.Differences().Keys()
	if len(keys) != 1 || keys[0] != "x" {
		t.Fatalf("expected only key x to survive, got: %v", keys)
	}
}

// TestAllowArgs matches one argument bare and several as a tuple.
func TestAllowArgs(t *testing.T) {
	fail := mustFailure(t, "", []verity.Difference{
		verity.NewMissing(1),
		verity.NewMissing(2),
		verity.NewInvalid("a", "b"),
	})
	err := verity.AllowArgs(1).Or(verity.AllowArgs(verity.Tuple{"a", "b"})).Apply(fail)
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	list := ve.Differences().List()
	if len(list) != 1 || !list[0].Equal(verity.NewMissing(2)) {
		t.Fatalf("expected only Missing(2) to survive, got: %v", list)
	}
}

// TestAllowWhereMessagePrefix prefixes the allowance message to the
// surviving description.
func TestAllowWhereMessagePrefix(t *testing.T) {
	allow := verity.AllowWhere(func(_ any, d verity.Difference) bool {
		_, ok := d.(verity.Missing)
		return ok
	}, "known gaps")
	err := allow.Apply(mustFailure(t, "baseline drift", []verity.Difference{
		verity.NewMissing(1), verity.NewExtra(2),
	}))
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	if got := ve.Description(); got != "known gaps: baseline drift" {
		t.Fatalf("expected the prefixed description, got: %s", got)
	}
}

// TestAllowSpecificUnconsumed: an expected entry that never matches is a
// configuration error, not a validation failure.
func TestAllowSpecificUnconsumed(t *testing.T) {
	err := verity.AllowSpecific([]verity.Difference{verity.NewMissing(9)}).
		Apply(mustFailure(t, "", []verity.Difference{verity.NewExtra(1)}))
	if err == nil {
		t.Fatalf("expected an error for the unconsumed entry")
	}
	if _, ok := verity.AsValidationError(err); ok {
		t.Fatalf("expected a plain error, got a validation error: %v", err)
	}
	if !strings.Contains(err.Error(), "Missing(9)") {
		t.Fatalf("expected the unmatched entry in the message, got: %v", err)
	}
}

// TestAllowSpecificKeyed consumes per key in mapping-shaped failures.
func TestAllowSpecificKeyed(t *testing.T) {
	fail := mustFailure(t, "", map[string]any{
		"x": []verity.Difference{verity.NewExtra(1), verity.NewExtra(1)},
	})
	err := verity.AllowSpecific(map[string]any{"x": verity.NewExtra(1)}).Apply(fail)
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	got, ok := ve.Differences().Get("x")
	if !ok || len(got) != 1 || !got[0].Equal(verity.NewExtra(1)) {
		t.Fatalf("expected one Extra(1) left under x, got: %v", got)
	}

	// The same keyed allowance never matches a flat failure.
	err = verity.AllowSpecific(map[string]any{"x": verity.NewExtra(1)}).
		Apply(mustFailure(t, "", []verity.Difference{verity.NewExtra(1)}))
	if err == nil || strings.Contains(err.Error(), "difference): [") {
		t.Fatalf("expected an unconsumed-entry error, got: %v", err)
	}
}

// TestAllowLimit accepts occurrences up to the threshold and passes the
// rest through.
func TestAllowLimit(t *testing.T) {
	fail := func() error {
		return mustFailure(t, "", []verity.Difference{
			verity.NewInvalid(1), verity.NewInvalid(2), verity.NewInvalid(3),
		})
	}
	if err := verity.AllowLimit(3).Apply(fail()); err != nil {
		t.Fatalf("expected the whole failure within the limit, got: %v", err)
	}
	err := verity.AllowLimit(2).Apply(fail())
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	list := ve.Differences().List()
	if len(list) != 1 || !list[0].Equal(verity.NewInvalid(3)) {
		t.Fatalf("expected the tail occurrence to survive, got: %v", list)
	}
	expectPanic(t, func() { verity.AllowLimit(-1) })
}

// TestAllowCompositionElement fuses element-wise predicates.
func TestAllowCompositionElement(t *testing.T) {
	err := verity.AllowMissing().Or(verity.AllowExtra()).Apply(mustFailure(t, "", []verity.Difference{
		verity.NewMissing(1), verity.NewExtra(2), verity.NewInvalid(3),
	}))
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	list := ve.Differences().List()
	if len(list) != 1 || !list[0].Equal(verity.NewInvalid(3)) {
		t.Fatalf("expected only Invalid(3) to survive, got: %v", list)
	}

	err = verity.AllowDeviation(-5, 5).And(verity.AllowKeys("x")).Apply(mustFailure(t, "", map[string]any{
		"x": verity.MustDeviation(2, 10),
		"y": verity.MustDeviation(2, 10),
	}))
	ve, ok = verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	keys := ve.Differences().Keys()
	if len(keys) != 1 || keys[0] != "y" {
		t.Fatalf("expected only key y to survive the conjunction, got: %v", keys)
	}
}

// TestAllowCompositionSpecificMerge merges specific multisets: Or takes
// the per-value maximum, And the minimum.
func TestAllowCompositionSpecificMerge(t *testing.T) {
	three := func() error {
		return mustFailure(t, "", []verity.Difference{
			verity.NewExtra("x"), verity.NewExtra("x"), verity.NewExtra("x"),
		})
	}
	one := verity.AllowSpecific(verity.NewExtra("x"))
	two := verity.AllowSpecific([]verity.Difference{verity.NewExtra("x"), verity.NewExtra("x")})

	err := one.Or(two).Apply(three())
	ve, ok := verity.AsValidationError(err)
	if !ok || ve.Differences().Len() != 1 {
		t.Fatalf("expected the max multiset to leave one, got: %v", err)
	}
	err = one.And(two).Apply(three())
	ve, ok = verity.AsValidationError(err)
	if !ok || ve.Differences().Len() != 2 {
		t.Fatalf("expected the min multiset to leave two, got: %v", err)
	}
}

// TestAllowCompositionShapePanic rejects mixing keyed and flat specific
// allowances.
func TestAllowCompositionShapePanic(t *testing.T) {
	expectPanic(t, func() {
		verity.AllowSpecific(verity.NewExtra(1)).
			Or(verity.AllowSpecific(map[string]any{"x": verity.NewExtra(1)}))
	})
}

// TestAllowLimitOrderSignificance: the limit counts exactly what its
// position in the composition lets it see.
func TestAllowLimitOrderSignificance(t *testing.T) {
	fail := func() error {
		return mustFailure(t, "", []verity.Difference{
			verity.NewExtra(1), verity.NewMissing(2),
		})
	}
	if err := verity.AllowExtra().Or(verity.AllowLimit(1)).Apply(fail()); err != nil {
		t.Fatalf("expected extras filtered first and the limit to absorb the rest, got: %v", err)
	}
	err := verity.AllowLimit(1).Or(verity.AllowExtra()).Apply(fail())
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected a survivor, got: %v", err)
	}
	list := ve.Differences().List()
	if len(list) != 1 || !list[0].Equal(verity.NewMissing(2)) {
		t.Fatalf("expected Missing(2) to survive, got: %v", list)
	}
}

// TestAllowGenericAnd intersects the accepted occurrences when one side
// is not element-wise.
func TestAllowGenericAnd(t *testing.T) {
	err := verity.AllowLimit(1).And(verity.AllowExtra()).Apply(mustFailure(t, "", []verity.Difference{
		verity.NewExtra("a"), verity.NewExtra("b"), verity.NewMissing("c"),
	}))
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	list := ve.Differences().List()
	if len(list) != 2 || !list[0].Equal(verity.NewExtra("b")) || !list[1].Equal(verity.NewMissing("c")) {
		t.Fatalf("expected Extra(\"b\") and Missing(\"c\") to survive, got: %v", list)
	}
}

// TestAllowCompositionMessages joins the operand messages.
func TestAllowCompositionMessages(t *testing.T) {
	a := verity.AllowMissing().WithMessage("known gaps")
	b := verity.AllowExtra().WithMessage("legacy rows")
	if got := a.Or(b).Message(); got != "known gaps or legacy rows" {
		t.Fatalf("expected joined message, got: %s", got)
	}
	if got := a.And(b).Message(); got != "known gaps and legacy rows" {
		t.Fatalf("expected joined message, got: %s", got)
	}
	if got := a.Or(verity.AllowExtra()).Message(); got != "known gaps" {
		t.Fatalf("expected the lone message, got: %s", got)
	}
}

// TestAllowFilterFidelity: a collection filter must preserve the
// container kind.
func TestAllowFilterFidelity(t *testing.T) {
	drop := verity.AllowFilter(func(ds verity.Differences) verity.Differences {
		var keep []verity.Difference
		for _, d := range ds.List() {
			if _, ok := d.(verity.Extra); !ok {
				keep = append(keep, d)
			}
		}
		return verity.NewDifferences(keep...)
	}, "scripted filter")
	err := drop.Apply(mustFailure(t, "drift", []verity.Difference{
		verity.NewMissing(1), verity.NewExtra(2),
	}))
	ve, ok := verity.AsValidationError(err)
	if !ok {
		t.Fatalf("expected survivors, got: %v", err)
	}
	if got := ve.Description(); got != "scripted filter: drift" {
		t.Fatalf("expected the filter message prefixed, got: %s", got)
	}
	list := ve.Differences().List()
	if len(list) != 1 || !list[0].Equal(verity.NewMissing(1)) {
		t.Fatalf("expected Missing(1) to survive, got: %v", list)
	}

	bad := verity.AllowFilter(func(verity.Differences) verity.Differences {
		return verity.NewDifferences(verity.NewMissing(1))
	}, "")
	err = bad.Apply(mustFailure(t, "", map[string]any{"x": verity.NewExtra(1)}))
	if err == nil || !strings.Contains(err.Error(), "container kind") {
		t.Fatalf("expected a container-kind error, got: %v", err)
	}
	if _, ok := verity.AsValidationError(err); ok {
		t.Fatalf("expected a plain error, got a validation error")
	}
}
