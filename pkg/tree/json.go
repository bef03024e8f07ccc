package tree

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
)

// JSON reads JSON documents. This is the default format.
var JSON Format = jsonFormat{}

type jsonFormat struct{}

func (jsonFormat) Name() string { return "json" }

func (f jsonFormat) Parse(content []byte, rootPath string) (Value, error) {
	data, err := oj.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return rootAt(f.Name(), data, rootPath)
}

func (jsonFormat) CheckPath(path string) error {
	return checkJSONPath(path)
}

// rootAt locates the root value of a decoded generic tree. A root path that
// matches nothing produces a non-existing value, so every assignment against
// it resolves empty instead of failing the record.
func rootAt(format string, data any, rootPath string) (Value, error) {
	whole := anyValue{format: format, node: data}
	if rootPath == "" || rootPath == "$" {
		return whole, nil
	}
	matches, err := whole.Find(rootPath)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return anyValue{format: format}, nil
	}
	return matches[0], nil
}
