package tree

import (
	"fmt"
)

// Parser binds a root Value to one raw record. One Parser is allocated per
// mapped record and holds no state beyond the root, so distinct records
// never share parser state.
type Parser struct {
	format Format
	root   Value
}

// NewParser decodes content with the given format and roots the parser at
// rootPath (the whole document when empty).
func NewParser(f Format, content []byte, rootPath string) (*Parser, error) {
	if len(content) == 0 {
		return nil, ErrEmptyRecord
	}
	root, err := f.Parse(content, rootPath)
	if err != nil {
		return nil, fmt.Errorf("parsing %s record: %w", f.Name(), err)
	}
	return &Parser{format: f, root: root}, nil
}

// Root returns the parser's root value.
func (p *Parser) Root() Value {
	return p.root
}

// At returns a parser rooted at the given value, sharing the same format.
// Nested mapping scopes use this to descend into a child resource without
// touching the enclosing parser.
func (p *Parser) At(v Value) *Parser {
	return &Parser{format: p.format, root: v}
}

// ChildNodes resolves a logical child name against the current root,
// normalized per the Value contract: native lists expand to one Value per
// element, single nodes become a one-element set, absent nodes are dropped.
func (p *Parser) ChildNodes(name string) NodeSet {
	if p.root == nil || !p.root.Exists() {
		return nil
	}
	return NodeSet(p.root.Child(name))
}

// Resolve evaluates a path expression against the current root. An
// expression matching nothing yields an empty set, not an error; a
// malformed expression is an error since it indicates a definition bug.
func (p *Parser) Resolve(expr string) (NodeSet, error) {
	if p.root == nil || !p.root.Exists() {
		return nil, nil
	}
	vals, err := p.root.Find(expr)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", expr, err)
	}
	return NodeSet(vals), nil
}
