package mapping

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ndisidore/crosswalk/pkg/harvest"
	"github.com/ndisidore/crosswalk/pkg/logctx"
	"github.com/ndisidore/crosswalk/pkg/tree"
)

// ProcessRecord maps one record into a freshly allocated target object. The
// record gets its own parser, so concurrent calls sharing one Mapping never
// share execution state.
func (m *Mapping) ProcessRecord(ctx context.Context, rec harvest.Record) (Target, error) {
	p, err := tree.NewParser(m.format, rec.Content, m.rootPath)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.Ref(), err)
	}

	target := m.factory()
	if err := m.apply(ctx, p, target); err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.Ref(), err)
	}
	return target, nil
}

// apply walks the assignment tree in declaration order against the given
// parser context. Unresolved paths skip their assignment; everything else
// fails the record.
func (m *Mapping) apply(ctx context.Context, p *tree.Parser, target Target) error {
	for i := range m.assigns {
		a := &m.assigns[i]

		switch a.kind {
		case assignConst:
			if err := target.Set(a.property, a.literal); err != nil {
				return fmt.Errorf("setting %q: %w", a.property, err)
			}

		case assignPath:
			set, err := p.Resolve(a.expr)
			if err != nil {
				return fmt.Errorf("property %q: %w", a.property, err)
			}
			if !set.HasValues() {
				// Optional field: leave the property unset.
				logctx.From(ctx).LogAttrs(ctx, slog.LevelDebug, "path resolved no value",
					slog.String("mapping", m.name),
					slog.String("property", a.property),
					slog.String("path", a.expr),
				)
				continue
			}
			v := set.Value()
			if a.transform != nil {
				if v, err = a.transform(v); err != nil {
					return fmt.Errorf("transforming %q: %w", a.property, err)
				}
			}
			if err := target.Set(a.property, v); err != nil {
				return fmt.Errorf("setting %q: %w", a.property, err)
			}

		case assignNested:
			if err := m.applyNested(ctx, p, target, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyNested maps each node the child path resolves to through the nested
// sub-mapping. Zero resolved nodes leave the property unset, consistent
// with missing optional fields.
func (m *Mapping) applyNested(ctx context.Context, p *tree.Parser, target Target, a *assignment) error {
	set, err := p.Resolve(a.expr)
	if err != nil {
		return fmt.Errorf("property %q: %w", a.property, err)
	}
	if !set.HasValues() {
		return nil
	}

	subs := make([]any, 0, len(set))
	for _, node := range set {
		sub := a.nested.factory()
		if err := a.nested.apply(ctx, p.At(node), sub); err != nil {
			return fmt.Errorf("property %q: %w", a.property, err)
		}
		subs = append(subs, sub)
	}

	var v any = subs
	if len(subs) == 1 {
		v = subs[0]
	}
	if err := target.Set(a.property, v); err != nil {
		return fmt.Errorf("setting %q: %w", a.property, err)
	}
	return nil
}
