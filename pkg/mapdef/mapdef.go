// Package mapdef converts KDL mapping-definition files into compiled
// mappings. Files declare the same vocabulary the Builder API exposes:
//
//	mapping "articles" format="json" root="$" {
//	    property "title" path="$.headline" transform="trim"
//	    constant "source" "nytimes"
//	    nested "authors" root="$.byline.person" {
//	        property "name" path="$.name"
//	    }
//	}
package mapdef

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/ndisidore/crosswalk/pkg/mapping"
	"github.com/ndisidore/crosswalk/pkg/registry"
	"github.com/ndisidore/crosswalk/pkg/tree"
)

// Sentinel errors for definition-file parse failures.
var (
	ErrNoMappings       = errors.New("no mapping nodes found")
	ErrMissingName      = errors.New("mapping node missing name argument")
	ErrUnknownNode      = errors.New("unknown node type")
	ErrMissingField     = errors.New("missing required field")
	ErrExtraArgs        = errors.New("too many arguments")
	ErrTypeMismatch     = errors.New("argument type mismatch")
	ErrUnknownTransform = errors.New("unknown transform")
)

// ParseFile reads and parses a KDL mapping-definition file at the given path.
func ParseFile(path string) (ms []*mapping.Mapping, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	return Parse(f, path)
}

// Parse parses KDL content from the reader into compiled mappings, one per
// top-level mapping node.
func Parse(r io.Reader, filename string) ([]*mapping.Mapping, error) {
	doc, err := kdl.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	mappings := make([]*mapping.Mapping, 0, len(doc.Nodes))
	for _, node := range doc.Nodes {
		if name := node.Name.ValueString(); name != "mapping" {
			return nil, fmt.Errorf("%s: %w: %q (expected mapping)", filename, ErrUnknownNode, name)
		}
		m, err := parseMapping(node, filename)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	if len(mappings) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoMappings)
	}
	return mappings, nil
}

// ParseString parses KDL content from a string.
func ParseString(content string) ([]*mapping.Mapping, error) {
	return Parse(strings.NewReader(content), "<string>")
}

// Load parses a definition file and registers every mapping it declares.
func Load(path string, reg *registry.Registry) ([]*mapping.Mapping, error) {
	mappings, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	for _, m := range mappings {
		if err := reg.Register(m.Name(), m); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return mappings, nil
}

// Reload parses a definition file and registers its mappings, overwriting
// existing entries. Used by watch mode.
func Reload(path string, reg *registry.Registry) ([]*mapping.Mapping, error) {
	mappings, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	for _, m := range mappings {
		reg.Replace(m.Name(), m)
	}
	return mappings, nil
}

func parseMapping(node *document.Node, filename string) (*mapping.Mapping, error) {
	name, err := stringArg(node, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", filename, ErrMissingName, err)
	}

	formatName, err := stringProp(node, "format")
	if err != nil {
		return nil, fmt.Errorf("%s: mapping %q: %w", filename, name, err)
	}
	format, err := tree.Lookup(formatName)
	if err != nil {
		return nil, fmt.Errorf("%s: mapping %q: %w", filename, name, err)
	}
	root, err := stringProp(node, "root")
	if err != nil {
		return nil, fmt.Errorf("%s: mapping %q: %w", filename, name, err)
	}

	var parseErr error
	m, err := mapping.New(name, mapping.Options{Format: format, RootPath: root}, func(b *mapping.Builder) {
		parseErr = applyBlock(b, node.Children, filename, name)
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// applyBlock replays a node's children onto a builder. Nested blocks recurse
// with the nested builder, so file structure and assignment tree stay in
// lockstep.
func applyBlock(b *mapping.Builder, children []*document.Node, filename, mappingName string) error {
	for _, child := range children {
		switch childName := child.Name.ValueString(); childName {
		case "property":
			if err := applyProperty(b, child, filename, mappingName); err != nil {
				return err
			}
		case "constant":
			if err := applyConstant(b, child, filename, mappingName); err != nil {
				return err
			}
		case "nested":
			if err := applyNested(b, child, filename, mappingName); err != nil {
				return err
			}
		default:
			return fmt.Errorf(
				"%s: mapping %q: %w: %q", filename, mappingName, ErrUnknownNode, childName,
			)
		}
	}
	return nil
}

func applyProperty(b *mapping.Builder, node *document.Node, filename, mappingName string) error {
	prop, err := stringArg(node, 0)
	if err != nil {
		return fmt.Errorf("%s: mapping %q: property missing name: %w: %w", filename, mappingName, ErrMissingField, err)
	}
	path, err := stringProp(node, "path")
	if err != nil {
		return fmt.Errorf("%s: mapping %q: property %q: %w", filename, mappingName, prop, err)
	}
	if path == "" {
		return fmt.Errorf("%s: mapping %q: property %q: path: %w", filename, mappingName, prop, ErrMissingField)
	}

	transforms, err := propertyTransforms(node)
	if err != nil {
		return fmt.Errorf("%s: mapping %q: property %q: %w", filename, mappingName, prop, err)
	}

	b.Set(prop, path, transforms...)
	return nil
}

func applyConstant(b *mapping.Builder, node *document.Node, filename, mappingName string) error {
	prop, err := stringArg(node, 0)
	if err != nil {
		return fmt.Errorf("%s: mapping %q: constant missing name: %w: %w", filename, mappingName, ErrMissingField, err)
	}
	if len(node.Arguments) < 2 {
		return fmt.Errorf("%s: mapping %q: constant %q requires a value: %w", filename, mappingName, prop, ErrMissingField)
	}
	if len(node.Arguments) > 2 {
		return fmt.Errorf("%s: mapping %q: constant %q: %w", filename, mappingName, prop, ErrExtraArgs)
	}

	b.Const(prop, node.Arguments[1].ResolvedValue())
	return nil
}

func applyNested(b *mapping.Builder, node *document.Node, filename, mappingName string) error {
	prop, err := stringArg(node, 0)
	if err != nil {
		return fmt.Errorf("%s: mapping %q: nested missing name: %w: %w", filename, mappingName, ErrMissingField, err)
	}
	root, err := stringProp(node, "root")
	if err != nil {
		return fmt.Errorf("%s: mapping %q: nested %q: %w", filename, mappingName, prop, err)
	}
	if root == "" {
		return fmt.Errorf("%s: mapping %q: nested %q: root: %w", filename, mappingName, prop, ErrMissingField)
	}

	var nestedErr error
	b.Nested(prop, mapping.NestedOptions{Root: root}, func(nb *mapping.Builder) {
		nestedErr = applyBlock(nb, node.Children, filename, mappingName)
	})
	return nestedErr
}

// stringArg returns the string value at the given argument index, or an error.
func stringArg(node *document.Node, idx int) (string, error) {
	if idx >= len(node.Arguments) {
		return "", fmt.Errorf("argument %d: %w", idx, ErrMissingField)
	}
	v, ok := node.Arguments[idx].ResolvedValue().(string)
	if !ok {
		return "", fmt.Errorf("argument %d: not a string: %w", idx, ErrTypeMismatch)
	}
	return v, nil
}

// stringProp reads an optional string property from a node. Returns the
// empty string when the property is absent.
func stringProp(node *document.Node, key string) (string, error) {
	v, ok := node.Properties[key]
	if !ok {
		return "", nil
	}
	s, ok := v.ResolvedValue().(string)
	if !ok {
		return "", fmt.Errorf("property %q: not a string: %w", key, ErrTypeMismatch)
	}
	return s, nil
}
