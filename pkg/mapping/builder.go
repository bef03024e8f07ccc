package mapping

import (
	"errors"
	"fmt"
)

// ErrMissingRoot indicates a nested assignment without a child resource path.
var ErrMissingRoot = errors.New("nested assignment missing root path")

// Builder is the definition surface handed to a mapping's defining block.
// Every call appends one assignment; declaration order is execution order.
// Errors are accumulated and surfaced once by New, so definition blocks can
// chain calls without per-call error handling.
type Builder struct {
	m   *Mapping
	err error
}

// Set assigns the values resolved by a path expression to a property. Any
// transforms run in order over the resolved value before assignment. A path
// that resolves to nothing leaves the property unset.
func (b *Builder) Set(property, expr string, transforms ...Transform) *Builder {
	t, err := chain(transforms)
	if err != nil {
		b.fail(fmt.Errorf("property %q: %w", property, err))
		return b
	}
	b.m.assigns = append(b.m.assigns, assignment{
		property:  property,
		kind:      assignPath,
		expr:      expr,
		transform: t,
	})
	return b
}

// Const assigns a literal value to a property on every record.
func (b *Builder) Const(property string, value any) *Builder {
	b.m.assigns = append(b.m.assigns, assignment{
		property: property,
		kind:     assignConst,
		literal:  value,
	})
	return b
}

// NestedOptions configures a nested assignment scope.
type NestedOptions struct {
	// Root is the path of the child resource relative to the enclosing
	// context. Required.
	Root string
	// Factory allocates the sub-objects; defaults to the parent's factory.
	Factory Factory
}

// Nested opens a child scope: the block defines a sub-mapping rooted at each
// node Root resolves to. One sub-object is produced per resolved node; a
// single node assigns the object itself, several assign a slice, zero leave
// the property unset. The enclosing scope is unaffected by the block.
func (b *Builder) Nested(property string, opts NestedOptions, define func(*Builder)) *Builder {
	if define == nil {
		b.fail(fmt.Errorf("property %q: %w", property, ErrNoBlock))
		return b
	}
	if opts.Root == "" {
		b.fail(fmt.Errorf("property %q: %w", property, ErrMissingRoot))
		return b
	}

	factory := opts.Factory
	if factory == nil {
		factory = b.m.factory
	}
	sub := &Mapping{
		name:    b.m.name + "." + property,
		factory: factory,
		format:  b.m.format,
	}
	nb := &Builder{m: sub}
	define(nb)
	if nb.err != nil {
		b.fail(fmt.Errorf("property %q: %w", property, nb.err))
		return b
	}

	b.m.assigns = append(b.m.assigns, assignment{
		property: property,
		kind:     assignNested,
		expr:     opts.Root,
		nested:   sub,
	})
	return b
}

// fail records the first definition error.
func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// chain folds transforms into a single Transform, rejecting nil entries.
func chain(transforms []Transform) (Transform, error) {
	for _, t := range transforms {
		if t == nil {
			return nil, ErrNilTransform
		}
	}
	switch len(transforms) {
	case 0:
		return nil, nil
	case 1:
		return transforms[0], nil
	}
	return func(v any) (any, error) {
		var err error
		for _, t := range transforms {
			if v, err = t(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}, nil
}
