// Package mapping defines compiled record-to-object mappings: an immutable
// tree of property assignments built once through a Builder and executed
// record-at-a-time.
package mapping

import (
	"errors"
	"fmt"

	"github.com/ndisidore/crosswalk/pkg/tree"
)

// Sentinel errors for mapping construction.
var (
	ErrEmptyMapping      = errors.New("mapping has no assignments")
	ErrEmptyProperty     = errors.New("assignment missing property name")
	ErrDuplicateProperty = errors.New("duplicate property")
	ErrNilTransform      = errors.New("nil transform")
	ErrNoBlock           = errors.New("nested assignment missing definition block")
)

// Target is the domain object a mapping populates. The engine treats it as
// an opaque property bag; nesting works because sub-objects are themselves
// assigned as property values.
type Target interface {
	Set(property string, value any) error
}

// Factory allocates a fresh target for each processed record.
type Factory func() Target

// Transform rewrites a resolved value before assignment. It receives the
// fully resolved scalar or slice, never a tree.Value.
type Transform func(v any) (any, error)

type assignKind int

const (
	assignPath assignKind = iota
	assignConst
	assignNested
)

// assignment is one compiled property assignment. value semantics depend on
// kind: a path expression to resolve, a literal, or a nested sub-mapping.
type assignment struct {
	property  string
	kind      assignKind
	expr      string
	literal   any
	transform Transform
	nested    *Mapping
}

// Mapping is a compiled set of property assignments against one record
// format. It is immutable after New returns and safe for concurrent use:
// every ProcessRecord call allocates its own parser and target.
type Mapping struct {
	name     string
	factory  Factory
	format   tree.Format
	rootPath string
	assigns  []assignment
}

// Options configures a mapping definition. Zero values select the defaults:
// a Document target, the JSON format, and the whole document as root.
type Options struct {
	// Factory allocates target objects; defaults to NewDocument.
	Factory Factory
	// Format reads record content; defaults to tree.JSON.
	Format tree.Format
	// RootPath locates the mapping root within the record content.
	RootPath string
}

// New compiles a mapping by running the definition block against a fresh
// Builder, then validating the result.
func New(name string, opts Options, define func(*Builder)) (*Mapping, error) {
	m := &Mapping{
		name:     name,
		factory:  opts.Factory,
		format:   opts.Format,
		rootPath: opts.RootPath,
	}
	if m.factory == nil {
		m.factory = func() Target { return NewDocument() }
	}
	if m.format == nil {
		m.format = tree.JSON
	}

	b := &Builder{m: m}
	define(b)
	if b.err != nil {
		return nil, fmt.Errorf("defining mapping %q: %w", name, b.err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("mapping %q: %w", name, err)
	}
	return m, nil
}

// Name returns the symbolic name the mapping was defined under.
func (m *Mapping) Name() string { return m.name }

// Format returns the record format the mapping reads.
func (m *Mapping) Format() tree.Format { return m.format }

// Len returns the number of top-level assignments.
func (m *Mapping) Len() int { return len(m.assigns) }

// Properties returns the assigned property names in declaration order.
func (m *Mapping) Properties() []string {
	out := make([]string, len(m.assigns))
	for i := range m.assigns {
		out[i] = m.assigns[i].property
	}
	return out
}

// validate rejects structurally broken definitions: empty or duplicate
// property names, unparseable path expressions, empty mappings.
func (m *Mapping) validate() error {
	if len(m.assigns) == 0 {
		return ErrEmptyMapping
	}
	if m.rootPath != "" {
		if err := m.format.CheckPath(m.rootPath); err != nil {
			return fmt.Errorf("root path: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(m.assigns))
	for i := range m.assigns {
		a := &m.assigns[i]
		if a.property == "" {
			return ErrEmptyProperty
		}
		if _, ok := seen[a.property]; ok {
			return fmt.Errorf("property %q: %w", a.property, ErrDuplicateProperty)
		}
		seen[a.property] = struct{}{}

		switch a.kind {
		case assignPath, assignNested:
			if a.expr != "" {
				if err := m.format.CheckPath(a.expr); err != nil {
					return fmt.Errorf("property %q: %w", a.property, err)
				}
			}
		case assignConst:
		}
		if a.kind == assignNested {
			if err := a.nested.validate(); err != nil {
				return fmt.Errorf("property %q: %w", a.property, err)
			}
		}
	}
	return nil
}
