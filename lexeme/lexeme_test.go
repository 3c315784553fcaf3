package lexeme

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	lx, err := Parse(`balances["USD"].total[0]`)
	require.NoError(t, err)

	assert.Equal(t, "balances", lx.Key)
	assert.True(t, lx.HasDictKey)
	assert.Equal(t, "USD", lx.DictKey)
	assert.False(t, lx.HasIndex())

	next := lx.Inner
	require.NotNil(t, next)
	assert.Equal(t, "total", next.Key)
	assert.Equal(t, 0, next.Index)
	assert.Nil(t, next.Inner)

	assert.Equal(t, 2, lx.Len())
	assert.Same(t, next, lx.Last())
	assert.Equal(t, []string{"balances", "total"}, lx.Keys())
}

func TestParse_ChainedIndexers(t *testing.T) {
	lx := MustParse("grid[1][2]")
	require.Equal(t, 2, lx.Len())
	assert.Equal(t, "grid", lx.Key)
	assert.Equal(t, 1, lx.Index)
	assert.Equal(t, "", lx.Inner.Key)
	assert.Equal(t, 2, lx.Inner.Index)
}

func TestParse_Simple(t *testing.T) {
	assert.True(t, MustParse("price").IsSimple())
	assert.False(t, MustParse("price.net").IsSimple())
	assert.False(t, MustParse("items[0]").IsSimple())
}

func TestString_RoundTrip(t *testing.T) {
	tests := map[string]string{
		"a":                     "a",
		" a.b.c ":               "a.b.c",
		"items[3].sku":          "items[3].sku",
		"m['k']":                `m["k"]`,
		`m["a\"b"].x`:           `m["a\"b"].x`,
		"grid[ 1 ][2]":          "grid[1][2]",
		`tags["x.y"][0].name`:   `tags["x.y"][0].name`,
		`meta[ "region" ].code`: `meta["region"].code`,
		`m["a\nb"]`:             `m["a\nb"]`,
		`m['it\'s "x"']`:        `m["it's \"x\""]`,
		`m["caf\u00e9"]`:        `m["café"]`,
	}
	for in, want := range tests {
		lx, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, lx.String(), in)

		again, err := Parse(lx.String())
		require.NoError(t, err)
		assert.Equal(t, lx, again)
	}
}

func TestParse_KeyEscapes(t *testing.T) {
	assert.Equal(t, "a\nb", MustParse(`m["a\nb"]`).DictKey)
	assert.Equal(t, "tab\there", MustParse(`m['tab\there']`).DictKey)
	assert.Equal(t, `q"`, MustParse(`m['q"']`).DictKey)

	lx := &Lexeme{Key: "m", Index: -1, HasDictKey: true, DictKey: "line\nbreak\\"}
	again, err := Parse(lx.String())
	require.NoError(t, err)
	assert.Equal(t, lx.DictKey, again.DictKey)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		input string
		pos   int
	}{
		{"", 0},
		{"a..b", 2},
		{"a.", 1},
		{".a", 0},
		{"a[x]", 2},
		{"a[-1]", 2},
		{"a[1", 1},
		{`a["k]`, 2},
		{`a["\q"]`, 2},
		{"a[0]b", 4},
		{"first name", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			var le *Error
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.pos, le.Pos)
		})
	}
}
