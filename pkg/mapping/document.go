package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is the default aggregation target: an insertion-ordered property
// bag. It serializes to JSON with properties in assignment order, which
// keeps mapped output deterministic.
type Document struct {
	order []string
	props map[string]any
}

// Compile-time interface check.
var _ Target = (*Document)(nil)

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{props: make(map[string]any)}
}

// Set assigns a property, preserving first-assignment ordering.
func (d *Document) Set(property string, value any) error {
	if property == "" {
		return ErrEmptyProperty
	}
	if _, ok := d.props[property]; !ok {
		d.order = append(d.order, property)
	}
	d.props[property] = value
	return nil
}

// Get returns a property value and whether it was assigned.
func (d *Document) Get(property string) (any, bool) {
	v, ok := d.props[property]
	return v, ok
}

// Len returns the number of assigned properties.
func (d *Document) Len() int {
	return len(d.order)
}

// Properties returns the assigned property names in assignment order.
func (d *Document) Properties() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// MarshalJSON encodes the document as an object with properties in
// assignment order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("encoding property name %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(d.props[k])
		if err != nil {
			return nil, fmt.Errorf("encoding property %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
