// Package tree provides format-agnostic access to the content of a parsed
// record. Each supported serialization format implements Format and Value;
// the mapping layer only ever sees the Value capability set.
package tree

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Sentinel errors for tree resolution failures.
var (
	ErrDecode      = errors.New("decoding record content")
	ErrBadPath     = errors.New("invalid path expression")
	ErrEmptyRecord = errors.New("record has no content")
)

// Value wraps one node of a parsed document. Implementations are immutable
// views: they never mutate the underlying node and never expose its native
// type to callers.
type Value interface {
	// Exists reports whether the underlying node is present.
	Exists() bool

	// Scalar returns the node's scalar representation when it is a leaf,
	// or a string summary when it wraps a compound structure. Callers that
	// need structured children must use Children or Child instead.
	Scalar() any

	// Children returns the ordered set of child keys when the node is a
	// compound structure, else nil.
	Children() []string

	// Child resolves a named child to zero or more Values, preserving the
	// multiplicity of the underlying node.
	Child(name string) []Value

	// Find resolves a path expression relative to this node. The path
	// syntax is format-dependent (JSONPath for JSON and YAML, etree paths
	// for XML).
	Find(path string) ([]Value, error)

	// Attributes returns the node's attributes. Formats without an
	// attribute concept fail with an errdefs.IsNotImplemented error.
	Attributes() (map[string]string, error)

	// Attribute returns a single attribute by name.
	Attribute(name string) (string, error)
}

// Format parses raw record content and locates a root Value by path query.
type Format interface {
	// Name returns the identifier used to select this format in mapping
	// definitions ("json", "yaml", "xml").
	Name() string

	// Parse decodes content and resolves the root value at rootPath. An
	// empty rootPath selects the whole document. A rootPath that matches
	// no node yields a non-existing root rather than an error, so sparse
	// records map to empty objects instead of failures.
	Parse(content []byte, rootPath string) (Value, error)

	// CheckPath validates a path expression without resolving it, so
	// mapping definitions can be rejected at compile time.
	CheckPath(path string) error
}

// Lookup resolves a format by name. An empty name selects JSON.
func Lookup(name string) (Format, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "xml":
		return XML, nil
	default:
		return nil, fmt.Errorf("format %q: %w", name, errdefs.ErrNotFound)
	}
}

// errNoAttributes builds the capability error for formats without attributes.
func errNoAttributes(format string) error {
	return fmt.Errorf("attributes not supported for %s values: %w", format, errdefs.ErrNotImplemented)
}

// flattenOnce expands one level of nested slices. Some formats wrap repeated
// elements in an extra array; a single flatten pass undoes that ambiguity
// without collapsing genuinely nested data.
func flattenOnce(nodes []any) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		if inner, ok := n.([]any); ok {
			out = append(out, inner...)
			continue
		}
		out = append(out, n)
	}
	return out
}
