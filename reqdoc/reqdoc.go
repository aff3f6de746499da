// Package reqdoc parses declarative requirement documents into verity
// requirements. A document is a mapping with a kind field naming the
// requirement and kind-specific fields alongside it:
//
//	kind: mapping
//	keys:
//	  name: {kind: regex, pattern: "^[a-z]+$"}
//	  count: {kind: interval, lower: 1, upper: 100}
//	  tags: {kind: subset, members: [a, b, c]}
//
// Documents cover the declarative subset of the engine. Matchers that
// need Go values (callables, types, tuples, wildcards) stay programmatic.
package reqdoc

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	gojson "github.com/goccy/go-json"
	verity "github.com/verityhq/verity"
)

// Parse builds a Requirement from a decoded document. The document root
// must be a mapping with string fields.
func Parse(doc any) (verity.Requirement, error) {
	return parseDoc(doc, "")
}

// ParseJSON decodes data as JSON and parses the resulting document.
func ParseJSON(data []byte) (verity.Requirement, error) {
	var doc any
	if err := gojson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("reqdoc: invalid JSON: %w", err)
	}
	return Parse(doc)
}

func parseDoc(doc any, path string) (verity.Requirement, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, docErrorf(path, "requirement document must be a mapping with string fields, got %T", doc)
	}
	kind, _ := m["kind"].(string)
	if kind == "" {
		return nil, docErrorf(path, "document needs a kind field")
	}
	switch kind {
	case "value":
		v, err := needField(m, path, kind, "value")
		if err != nil {
			return nil, err
		}
		return capture(path, func() verity.Requirement { return verity.NewRequirement(v) })
	case "regex":
		pat, err := needString(m, path, kind, "pattern")
		if err != nil {
			return nil, err
		}
		return capture(path, func() verity.Requirement { return verity.RequiredRegex(pat) })
	case "approx":
		return parseApprox(m, path)
	case "fuzzy":
		return parseFuzzy(m, path)
	case "interval":
		if _, ok := m["lower"]; !ok {
			if _, ok := m["upper"]; !ok {
				return nil, docErrorf(path, "interval document needs a lower or upper field")
			}
		}
		lower, upper := m["lower"], m["upper"]
		return capture(path, func() verity.Requirement { return verity.RequiredInterval(lower, upper) })
	case "set", "subset", "superset":
		members, err := needList(m, path, kind, "members")
		if err != nil {
			return nil, err
		}
		s := verity.NewSet(members...)
		switch kind {
		case "subset":
			return verity.RequiredSubset(s), nil
		case "superset":
			return verity.RequiredSuperset(s), nil
		}
		return verity.RequiredSet(s), nil
	case "unique":
		return verity.RequiredUnique(), nil
	case "order":
		vals, err := needList(m, path, kind, "values")
		if err != nil {
			return nil, err
		}
		return capture(path, func() verity.Requirement { return verity.RequiredOrder(vals) })
	case "sequence":
		vals, err := needList(m, path, kind, "values")
		if err != nil {
			return nil, err
		}
		return capture(path, func() verity.Requirement { return verity.RequiredSequence(vals) })
	case "mapping":
		return parseMapping(m, path)
	}
	return nil, docErrorf(path, "unknown requirement kind %q", kind)
}

func parseApprox(m map[string]any, path string) (verity.Requirement, error) {
	v, err := needField(m, path, "approx", "value")
	if err != nil {
		return nil, err
	}
	if d, ok := m["delta"]; ok {
		if _, both := m["places"]; both {
			return nil, docErrorf(path, "approx document takes places or delta, not both")
		}
		f, ok := docFloat(d)
		if !ok {
			return nil, docErrorf(path, "approx delta must be numeric, got %v", d)
		}
		return capture(path, func() verity.Requirement { return verity.RequiredApproxDelta(v, f) })
	}
	if p, ok := m["places"]; ok {
		n, ok := docInt(p)
		if !ok {
			return nil, docErrorf(path, "approx places must be an integer, got %v", p)
		}
		return capture(path, func() verity.Requirement { return verity.RequiredApprox(v, n) })
	}
	return capture(path, func() verity.Requirement { return verity.RequiredApprox(v) })
}

func parseFuzzy(m map[string]any, path string) (verity.Requirement, error) {
	v, err := needField(m, path, "fuzzy", "value")
	if err != nil {
		return nil, err
	}
	if c, ok := m["cutoff"]; ok {
		f, ok := docFloat(c)
		if !ok {
			return nil, docErrorf(path, "fuzzy cutoff must be numeric, got %v", c)
		}
		return capture(path, func() verity.Requirement { return verity.RequiredFuzzy(v, f) })
	}
	return capture(path, func() verity.Requirement { return verity.RequiredFuzzy(v) })
}

func parseMapping(m map[string]any, path string) (verity.Requirement, error) {
	raw, err := needField(m, path, "mapping", "keys")
	if err != nil {
		return nil, err
	}
	keys, ok := raw.(map[string]any)
	if !ok {
		return nil, docErrorf(path, "mapping keys must be a mapping of key to sub-document, got %T", raw)
	}
	if len(keys) == 0 {
		return nil, docErrorf(path, "mapping document needs at least one key")
	}
	reqs := make(map[string]any, len(keys))
	for k, sub := range keys {
		r, err := parseDoc(sub, joinPath(path, "keys."+k))
		if err != nil {
			return nil, err
		}
		reqs[k] = r
	}
	return verity.RequiredMapping(reqs), nil
}

// capture runs build and converts a construction panic into an error.
// Document input is external, so misconfiguration surfaces as an error.
func capture(path string, build func() verity.Requirement) (req verity.Requirement, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = docErrorf(path, "%s", strings.TrimPrefix(fmt.Sprint(r), "verity: "))
		}
	}()
	return build(), nil
}

func docErrorf(path, format string, a ...any) error {
	if path == "" {
		return fmt.Errorf("reqdoc: "+format, a...)
	}
	return fmt.Errorf("reqdoc: %s: "+format, append([]any{path}, a...)...)
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func needField(m map[string]any, path, kind, field string) (any, error) {
	v, ok := m[field]
	if !ok {
		return nil, docErrorf(path, "%s document needs a %s field", kind, field)
	}
	return v, nil
}

func needString(m map[string]any, path, kind, field string) (string, error) {
	v, err := needField(m, path, kind, field)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", docErrorf(path, "%s %s must be a string, got %T", kind, field, v)
	}
	return s, nil
}

func needList(m map[string]any, path, kind, field string) ([]any, error) {
	v, err := needField(m, path, kind, field)
	if err != nil {
		return nil, err
	}
	l, ok := v.([]any)
	if !ok {
		return nil, docErrorf(path, "%s %s must be a list, got %T", kind, field, v)
	}
	return l, nil
}

func docFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func docInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x == math.Trunc(x) {
			return int(x), true
		}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}
