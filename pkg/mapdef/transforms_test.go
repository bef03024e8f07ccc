package mapdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndisidore/crosswalk/pkg/mapping"
)

func TestTransformsSorted(t *testing.T) {
	t.Parallel()

	names := Transforms()
	assert.Equal(t, []string{
		"compact", "downcase", "first", "int", "join", "titlecase", "trim", "upcase",
	}, names)
}

func TestPerString(t *testing.T) {
	t.Parallel()

	upcase := perString(func(s string) string { return s + "!" })

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "string", in: "hi", want: "hi!"},
		{name: "slice of strings", in: []any{"a", "b"}, want: []any{"a!", "b!"}},
		{name: "mixed slice passes non-strings through", in: []any{"a", 3.0}, want: []any{"a!", 3.0}},
		{name: "non-string untouched", in: 7, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := upcase(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "multi", in: []any{"a", "b"}, want: "a"},
		{name: "empty list", in: []any{}, want: nil},
		{name: "scalar passes through", in: "solo", want: "solo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := firstValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompactValue(t *testing.T) {
	t.Parallel()

	got, err := compactValue([]any{"a", nil, "  ", "b", ""})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)

	scalar, err := compactValue("keep")
	require.NoError(t, err)
	assert.Equal(t, "keep", scalar)
}

func TestIntValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      any
		want    any
		wantErr bool
	}{
		{name: "float64", in: 41.0, want: int64(41)},
		{name: "int64", in: int64(5), want: int64(5)},
		{name: "string", in: " 12 ", want: int64(12)},
		{name: "bad string", in: "twelve", wantErr: true},
		{name: "slice rejected", in: []any{1.0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := intValue(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoinTransformViaDefinition(t *testing.T) {
	t.Parallel()

	mappings, err := ParseString(`
mapping "tags" {
    property "all" path="$.tags[*]" transform="join" sep=" / "
    property "defaulted" path="$.tags[*]" transform="join"
}`)
	require.NoError(t, err)
	require.Len(t, mappings, 1)

	obj, err := mappings[0].ProcessRecord(t.Context(), jsonRecord(`{"tags": ["go", "etl", "maps"]}`))
	require.NoError(t, err)

	doc := obj.(*mapping.Document)
	all, _ := doc.Get("all")
	assert.Equal(t, "go / etl / maps", all)
	defaulted, _ := doc.Get("defaulted")
	assert.Equal(t, "go, etl, maps", defaulted)
}

func TestTitlecaseViaDefinition(t *testing.T) {
	t.Parallel()

	mappings, err := ParseString(`
mapping "people" {
    property "name" path="$.name" transform="titlecase"
}`)
	require.NoError(t, err)

	obj, err := mappings[0].ProcessRecord(t.Context(), jsonRecord(`{"name": "ada lovelace"}`))
	require.NoError(t, err)

	name, _ := obj.(*mapping.Document).Get("name")
	assert.Equal(t, "Ada Lovelace", name)
}
