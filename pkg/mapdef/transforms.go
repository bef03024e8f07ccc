package mapdef

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sblinch/kdl-go/document"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ndisidore/crosswalk/pkg/mapping"
)

// constructor builds a transform from the declaring node's properties, so
// parameterized transforms (join sep=", ") can read their arguments.
type constructor func(node *document.Node) (mapping.Transform, error)

var _transforms = map[string]constructor{
	"trim":      fixed(perString(strings.TrimSpace)),
	"upcase":    fixed(perString(strings.ToUpper)),
	"downcase":  fixed(perString(strings.ToLower)),
	"titlecase": fixed(perString(cases.Title(language.Und).String)),
	"first":     fixed(firstValue),
	"compact":   fixed(compactValue),
	"int":       fixed(intValue),
	"join":      joinTransform,
}

// Transforms returns the available named transforms, sorted.
func Transforms() []string {
	names := make([]string, 0, len(_transforms))
	for name := range _transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// propertyTransforms resolves the optional transform= property of a node
// into builder transforms.
func propertyTransforms(node *document.Node) ([]mapping.Transform, error) {
	name, err := stringProp(node, "transform")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	build, ok := _transforms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownTransform, name, strings.Join(Transforms(), ", "))
	}
	t, err := build(node)
	if err != nil {
		return nil, fmt.Errorf("transform %q: %w", name, err)
	}
	return []mapping.Transform{t}, nil
}

// fixed adapts a parameterless transform into a constructor.
func fixed(t mapping.Transform) constructor {
	return func(*document.Node) (mapping.Transform, error) { return t, nil }
}

// perString applies fn to a string value, or to each string element of a
// slice value. Non-string values pass through unchanged so mixed-type
// collections survive string transforms.
func perString(fn func(string) string) mapping.Transform {
	return func(v any) (any, error) {
		switch val := v.(type) {
		case string:
			return fn(val), nil
		case []any:
			out := make([]any, len(val))
			for i, el := range val {
				if s, ok := el.(string); ok {
					out[i] = fn(s)
				} else {
					out[i] = el
				}
			}
			return out, nil
		default:
			return v, nil
		}
	}
}

// firstValue keeps only the first element of a multi-valued result.
func firstValue(v any) (any, error) {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, nil
		}
		return list[0], nil
	}
	return v, nil
}

// compactValue drops nils and empty strings from a multi-valued result.
func compactValue(v any) (any, error) {
	list, ok := v.([]any)
	if !ok {
		return v, nil
	}
	out := make([]any, 0, len(list))
	for _, el := range list {
		if el == nil {
			continue
		}
		if s, ok := el.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, el)
	}
	return out, nil
}

// intValue coerces a scalar to int64. Numeric JSON values arrive as
// float64; strings are parsed.
func intValue(v any) (any, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q as int: %w", val, err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to int: %w", v, ErrTypeMismatch)
	}
}

// joinTransform concatenates a multi-valued result into one string using
// the node's sep= property (", " when absent).
func joinTransform(node *document.Node) (mapping.Transform, error) {
	sep, err := stringProp(node, "sep")
	if err != nil {
		return nil, err
	}
	if _, ok := node.Properties["sep"]; !ok {
		sep = ", "
	}
	return func(v any) (any, error) {
		list, ok := v.([]any)
		if !ok {
			return v, nil
		}
		parts := make([]string, len(list))
		for i, el := range list {
			parts[i] = fmt.Sprint(el)
		}
		return strings.Join(parts, sep), nil
	}, nil
}
