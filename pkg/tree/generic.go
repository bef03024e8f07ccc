package tree

import (
	"fmt"
	"sort"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// anyValue wraps one node of a decoded generic tree (map[string]any,
// []any, or a scalar). JSON and YAML both decode to this shape; only the
// decoder differs, so they share one Value implementation. The format name
// is retained for capability error messages.
type anyValue struct {
	format string
	node   any
}

func (v anyValue) Exists() bool {
	return v.node != nil
}

// Scalar returns the node itself for leaves and a compact JSON summary for
// compound nodes; structured access goes through Child/Children.
func (v anyValue) Scalar() any {
	switch v.node.(type) {
	case map[string]any, []any:
		return oj.JSON(v.node)
	default:
		return v.node
	}
}

// Children returns the node's child keys, sorted for determinism since the
// decoded map carries no ordering.
func (v anyValue) Children() []string {
	m, ok := v.node.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v anyValue) Child(name string) []Value {
	switch n := v.node.(type) {
	case map[string]any:
		c, ok := n[name]
		if !ok {
			return nil
		}
		return v.wrapChild(c)
	case []any:
		// Repeated elements can arrive wrapped in an extra array; one
		// flatten pass restores the element list before resolution.
		var out []Value
		for _, el := range flattenOnce(n) {
			m, ok := el.(map[string]any)
			if !ok {
				continue
			}
			if c, ok := m[name]; ok {
				out = append(out, v.wrapChild(c)...)
			}
		}
		return out
	default:
		return nil
	}
}

// wrapChild normalizes one resolved child node: lists expand to one Value
// per element, nulls are dropped, anything else wraps as a single Value.
func (v anyValue) wrapChild(node any) []Value {
	if list, ok := node.([]any); ok {
		return wrapNodes(list, v.wrap)
	}
	return wrapNodes([]any{node}, v.wrap)
}

func (v anyValue) wrap(node any) Value {
	return anyValue{format: v.format, node: node}
}

func (v anyValue) Find(path string) ([]Value, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBadPath, path, err)
	}
	matches := expr.Get(v.node)
	return wrapNodes(matches, v.wrap), nil
}

func (v anyValue) Attributes() (map[string]string, error) {
	return nil, errNoAttributes(v.format)
}

func (v anyValue) Attribute(string) (string, error) {
	return "", errNoAttributes(v.format)
}

// checkJSONPath validates a JSONPath expression for definition-time checks.
func checkJSONPath(path string) error {
	if _, err := jp.ParseString(path); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrBadPath, path, err)
	}
	return nil
}
