package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndisidore/crosswalk/pkg/harvest"
	"github.com/ndisidore/crosswalk/pkg/tree"
)

func record(content string) harvest.Record {
	return harvest.Record{ContentType: "application/json", Content: []byte(content)}
}

func TestProcessRecordBasic(t *testing.T) {
	t.Parallel()

	m, err := New("basic", Options{}, func(b *Builder) {
		b.Set("title", "$.headline")
	})
	require.NoError(t, err)

	obj, err := m.ProcessRecord(t.Context(), record(`{"headline": "Hello"}`))
	require.NoError(t, err)

	doc, ok := obj.(*Document)
	require.True(t, ok)
	title, ok := doc.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Hello", title)
}

func TestProcessRecordMissingFieldLeavesPropertyUnset(t *testing.T) {
	t.Parallel()

	m, err := New("basic", Options{}, func(b *Builder) {
		b.Set("title", "$.headline")
	})
	require.NoError(t, err)

	obj, err := m.ProcessRecord(t.Context(), record(`{}`))
	require.NoError(t, err)

	doc := obj.(*Document)
	_, ok := doc.Get("title")
	assert.False(t, ok)
	assert.Equal(t, 0, doc.Len())
}

func TestProcessRecordTransform(t *testing.T) {
	t.Parallel()

	calls := 0
	m, err := New("t", Options{}, func(b *Builder) {
		b.Set("title", "$.headline", func(v any) (any, error) {
			calls++
			s, ok := v.(string)
			require.True(t, ok, "transform must receive the resolved scalar, got %T", v)
			return strings.ToUpper(s), nil
		})
	})
	require.NoError(t, err)

	obj, err := m.ProcessRecord(t.Context(), record(`{"headline": "Hello"}`))
	require.NoError(t, err)

	title, _ := obj.(*Document).Get("title")
	assert.Equal(t, "HELLO", title)
	assert.Equal(t, 1, calls, "transform must run exactly once per assignment")
}

func TestProcessRecordTransformSkippedWhenUnresolved(t *testing.T) {
	t.Parallel()

	calls := 0
	m, err := New("t", Options{}, func(b *Builder) {
		b.Set("title", "$.headline", func(v any) (any, error) {
			calls++
			return v, nil
		})
	})
	require.NoError(t, err)

	_, err = m.ProcessRecord(t.Context(), record(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestProcessRecordConst(t *testing.T) {
	t.Parallel()

	m, err := New("c", Options{}, func(b *Builder) {
		b.Const("source", "nytimes")
	})
	require.NoError(t, err)

	obj, err := m.ProcessRecord(t.Context(), record(`{}`))
	require.NoError(t, err)

	source, ok := obj.(*Document).Get("source")
	require.True(t, ok)
	assert.Equal(t, "nytimes", source)
}

func TestProcessRecordNested(t *testing.T) {
	t.Parallel()

	m, err := New("n", Options{}, func(b *Builder) {
		b.Set("title", "$.headline")
		b.Nested("authors", NestedOptions{Root: "$.byline"}, func(nb *Builder) {
			nb.Set("name", "$.name")
			nb.Const("role", "author")
		})
	})
	require.NoError(t, err)

	content := `{
		"headline": "Hello",
		"byline": [
			{"name": "Ada"},
			{"name": "Grace"},
			{"name": "Katherine"}
		]
	}`
	obj, err := m.ProcessRecord(t.Context(), record(content))
	require.NoError(t, err)

	authors, ok := obj.(*Document).Get("authors")
	require.True(t, ok)
	subs, ok := authors.([]any)
	require.True(t, ok)
	require.Len(t, subs, 3, "one sub-object per resolved child node")

	names := make([]any, len(subs))
	for i, s := range subs {
		doc, ok := s.(*Document)
		require.True(t, ok)
		names[i], _ = doc.Get("name")
		role, _ := doc.Get("role")
		assert.Equal(t, "author", role)
	}
	assert.Equal(t, []any{"Ada", "Grace", "Katherine"}, names)
}

func TestProcessRecordNestedSingle(t *testing.T) {
	t.Parallel()

	m, err := New("n", Options{}, func(b *Builder) {
		b.Nested("author", NestedOptions{Root: "$.byline"}, func(nb *Builder) {
			nb.Set("name", "$.name")
		})
	})
	require.NoError(t, err)

	obj, err := m.ProcessRecord(t.Context(), record(`{"byline": {"name": "Ada"}}`))
	require.NoError(t, err)

	// A single resolved child assigns the object itself, not a slice.
	author, ok := obj.(*Document).Get("author")
	require.True(t, ok)
	doc, ok := author.(*Document)
	require.True(t, ok)
	name, _ := doc.Get("name")
	assert.Equal(t, "Ada", name)
}

func TestProcessRecordNestedZeroChildren(t *testing.T) {
	t.Parallel()

	m, err := New("n", Options{}, func(b *Builder) {
		b.Nested("authors", NestedOptions{Root: "$.byline"}, func(nb *Builder) {
			nb.Set("name", "$.name")
		})
	})
	require.NoError(t, err)

	obj, err := m.ProcessRecord(t.Context(), record(`{}`))
	require.NoError(t, err)

	// Zero resolved children behave like a missing optional field.
	_, ok := obj.(*Document).Get("authors")
	assert.False(t, ok)
}

func TestProcessRecordNestedScopeRestored(t *testing.T) {
	t.Parallel()

	m, err := New("n", Options{}, func(b *Builder) {
		b.Nested("author", NestedOptions{Root: "$.byline"}, func(nb *Builder) {
			nb.Set("name", "$.name")
		})
		// Declared after the nested block: must resolve against the
		// enclosing (root) context, not the child scope.
		b.Set("title", "$.headline")
	})
	require.NoError(t, err)

	obj, err := m.ProcessRecord(t.Context(), record(`{"headline": "Hello", "byline": {"name": "Ada"}}`))
	require.NoError(t, err)

	title, ok := obj.(*Document).Get("title")
	require.True(t, ok)
	assert.Equal(t, "Hello", title)
}

func TestProcessRecordIndependentAcrossRecords(t *testing.T) {
	t.Parallel()

	m, err := New("basic", Options{}, func(b *Builder) {
		b.Set("title", "$.headline")
	})
	require.NoError(t, err)

	first, err := m.ProcessRecord(t.Context(), record(`{"headline": "one"}`))
	require.NoError(t, err)
	second, err := m.ProcessRecord(t.Context(), record(`{}`))
	require.NoError(t, err)

	title, ok := first.(*Document).Get("title")
	require.True(t, ok)
	assert.Equal(t, "one", title)
	_, ok = second.(*Document).Get("title")
	assert.False(t, ok, "no state may leak between records sharing one mapping")
}

func TestProcessRecordTransformError(t *testing.T) {
	t.Parallel()

	m, err := New("t", Options{}, func(b *Builder) {
		b.Set("title", "$.headline", func(any) (any, error) {
			return nil, assert.AnError
		})
	})
	require.NoError(t, err)

	_, err = m.ProcessRecord(t.Context(), record(`{"headline": "x"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		define  func(*Builder)
		wantErr error
	}{
		{
			name:    "empty mapping",
			define:  func(*Builder) {},
			wantErr: ErrEmptyMapping,
		},
		{
			name: "empty property name",
			define: func(b *Builder) {
				b.Set("", "$.x")
			},
			wantErr: ErrEmptyProperty,
		},
		{
			name: "duplicate property",
			define: func(b *Builder) {
				b.Set("title", "$.a")
				b.Set("title", "$.b")
			},
			wantErr: ErrDuplicateProperty,
		},
		{
			name: "bad path expression",
			define: func(b *Builder) {
				b.Set("title", "$.[broken")
			},
			wantErr: tree.ErrBadPath,
		},
		{
			name: "nil transform",
			define: func(b *Builder) {
				b.Set("title", "$.a", nil)
			},
			wantErr: ErrNilTransform,
		},
		{
			name: "nested without root",
			define: func(b *Builder) {
				b.Nested("authors", NestedOptions{}, func(nb *Builder) {
					nb.Set("name", "$.name")
				})
			},
			wantErr: ErrMissingRoot,
		},
		{
			name: "nested without block",
			define: func(b *Builder) {
				b.Nested("authors", NestedOptions{Root: "$.a"}, nil)
			},
			wantErr: ErrNoBlock,
		},
		{
			name: "empty nested block",
			define: func(b *Builder) {
				b.Nested("authors", NestedOptions{Root: "$.a"}, func(*Builder) {})
			},
			wantErr: ErrEmptyMapping,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New("m", Options{}, tt.define)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewBadRootPath(t *testing.T) {
	t.Parallel()

	_, err := New("m", Options{RootPath: "$.[oops"}, func(b *Builder) {
		b.Set("title", "$.a")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, tree.ErrBadPath)
}

func TestMappingAccessors(t *testing.T) {
	t.Parallel()

	m, err := New("acc", Options{Format: tree.YAML}, func(b *Builder) {
		b.Set("title", "$.a")
		b.Const("source", "s")
	})
	require.NoError(t, err)

	assert.Equal(t, "acc", m.Name())
	assert.Equal(t, "yaml", m.Format().Name())
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"title", "source"}, m.Properties())
}
