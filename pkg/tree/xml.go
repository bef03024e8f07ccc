package tree

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/containerd/errdefs"
)

// XML reads XML documents. Unlike JSON and YAML, XML values carry real
// attributes, and path expressions use etree path syntax ("./a/b", "//b")
// instead of JSONPath.
var XML Format = xmlFormat{}

type xmlFormat struct{}

func (xmlFormat) Name() string { return "xml" }

func (xmlFormat) Parse(content []byte, rootPath string) (Value, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: document has no root element", ErrDecode)
	}
	if rootPath == "" || rootPath == "$" || rootPath == "." {
		return xmlValue{el: doc.Root()}, nil
	}
	p, err := etree.CompilePath(rootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBadPath, rootPath, err)
	}
	els := doc.FindElementsPath(p)
	if len(els) == 0 {
		return xmlValue{}, nil
	}
	return xmlValue{el: els[0]}, nil
}

func (xmlFormat) CheckPath(path string) error {
	if _, err := etree.CompilePath(path); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrBadPath, path, err)
	}
	return nil
}

type xmlValue struct {
	el *etree.Element
}

func (v xmlValue) Exists() bool {
	return v.el != nil
}

// Scalar returns the trimmed element text for leaves and the serialized
// subtree for elements with child elements.
func (v xmlValue) Scalar() any {
	if v.el == nil {
		return nil
	}
	if len(v.el.ChildElements()) == 0 {
		return strings.TrimSpace(v.el.Text())
	}
	d := etree.NewDocument()
	d.SetRoot(v.el.Copy())
	s, err := d.WriteToString()
	if err != nil {
		return strings.TrimSpace(v.el.Text())
	}
	return strings.TrimSpace(s)
}

// Children returns the distinct child element tags in document order.
func (v xmlValue) Children() []string {
	if v.el == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, c := range v.el.ChildElements() {
		if _, ok := seen[c.Tag]; ok {
			continue
		}
		seen[c.Tag] = struct{}{}
		tags = append(tags, c.Tag)
	}
	return tags
}

func (v xmlValue) Child(name string) []Value {
	if v.el == nil {
		return nil
	}
	els := v.el.SelectElements(name)
	out := make([]Value, 0, len(els))
	for _, el := range els {
		out = append(out, xmlValue{el: el})
	}
	return out
}

func (v xmlValue) Find(path string) ([]Value, error) {
	if v.el == nil {
		return nil, nil
	}
	p, err := etree.CompilePath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBadPath, path, err)
	}
	els := v.el.FindElementsPath(p)
	out := make([]Value, 0, len(els))
	for _, el := range els {
		out = append(out, xmlValue{el: el})
	}
	return out, nil
}

func (v xmlValue) Attributes() (map[string]string, error) {
	if v.el == nil {
		return nil, fmt.Errorf("attributes of absent element: %w", errdefs.ErrNotFound)
	}
	attrs := make(map[string]string, len(v.el.Attr))
	for _, a := range v.el.Attr {
		attrs[a.FullKey()] = a.Value
	}
	return attrs, nil
}

func (v xmlValue) Attribute(name string) (string, error) {
	if v.el == nil {
		return "", fmt.Errorf("attribute %q of absent element: %w", name, errdefs.ErrNotFound)
	}
	a := v.el.SelectAttr(name)
	if a == nil {
		return "", fmt.Errorf("attribute %q: %w", name, errdefs.ErrNotFound)
	}
	return a.Value, nil
}
