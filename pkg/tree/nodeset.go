package tree

// NodeSet is an ordered collection of resolved Values. Resolution drops
// absent nodes before constructing a set, so every member Exists.
type NodeSet []Value

// HasValues reports whether the set contains at least one value. Optional
// and multi-valued fields are read through the same check.
func (s NodeSet) HasValues() bool {
	return len(s) > 0
}

// First returns the first value in the set, if any.
func (s NodeSet) First() (Value, bool) {
	if len(s) == 0 {
		return nil, false
	}
	return s[0], true
}

// Scalars returns the scalar representation of every value, in order.
func (s NodeSet) Scalars() []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v.Scalar()
	}
	return out
}

// Value collapses the set for assignment: nil when empty, the single scalar
// when one value resolved, a slice of scalars otherwise.
func (s NodeSet) Value() any {
	switch len(s) {
	case 0:
		return nil
	case 1:
		return s[0].Scalar()
	default:
		return s.Scalars()
	}
}

// wrapNodes converts resolved native nodes into a NodeSet using the given
// constructor, expanding native lists into one Value per element and
// dropping absent/null nodes so callers never see empty placeholders.
func wrapNodes(nodes []any, wrap func(any) Value) NodeSet {
	set := make(NodeSet, 0, len(nodes))
	for _, n := range flattenOnce(nodes) {
		if n == nil {
			continue
		}
		v := wrap(n)
		if !v.Exists() {
			continue
		}
		set = append(set, v)
	}
	return set
}
