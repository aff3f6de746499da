package reqdoc

import (
	"fmt"

	verity "github.com/verityhq/verity"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes data as a single YAML document and parses it.
func ParseYAML(data []byte) (verity.Requirement, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("reqdoc: invalid YAML: %w", err)
	}
	return Parse(yamlNormalize(doc))
}

// yamlNormalize rewrites YAML-decoded values (which may contain
// map[any]any) into JSON-like map[string]any recursively. Mappings with
// non-string keys stay as they are; document payloads may carry them,
// document structure may not.
func yamlNormalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = yamlNormalize(vv)
		}
		return out
	case map[any]any:
		for k := range t {
			if _, ok := k.(string); !ok {
				out := make(map[any]any, len(t))
				for kk, vv := range t {
					out[kk] = yamlNormalize(vv)
				}
				return out
			}
		}
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k.(string)] = yamlNormalize(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = yamlNormalize(t[i])
		}
		return arr
	default:
		return v
	}
}
