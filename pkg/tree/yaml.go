package tree

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAML reads YAML documents. Decoded documents share the generic tree shape
// with JSON, so the same path expressions resolve over both formats.
var YAML Format = yamlFormat{}

type yamlFormat struct{}

func (yamlFormat) Name() string { return "yaml" }

func (f yamlFormat) Parse(content []byte, rootPath string) (Value, error) {
	var data any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return rootAt(f.Name(), normalizeYAML(data), rootPath)
}

func (yamlFormat) CheckPath(path string) error {
	return checkJSONPath(path)
}

// normalizeYAML rewrites any-keyed maps to string-keyed ones. yaml.v3
// decodes string keys as map[string]any already, but non-scalar or merged
// keys can still surface as map[any]any deeper in the tree.
func normalizeYAML(node any) any {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			n[k] = normalizeYAML(v)
		}
		return n
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return out
	case []any:
		for i, v := range n {
			n[i] = normalizeYAML(v)
		}
		return n
	default:
		return n
	}
}
