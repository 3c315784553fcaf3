package redisearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manojoshi/pathquery/condition"
)

func TestCompileNodes(t *testing.T) {
	cases := []struct {
		e    Expr
		want string
	}{
		{Eq("status", "paid"), "@status:{paid}"},
		{Eq("@status", "on hold"), `@status:{on\ hold}`},
		{In("tag", "a", "b"), "@tag:{a|b}"},
		{Range("price", 10, 100, true), "@price:[10 100]"},
		{Range("price", 10, 100, false), "@price:[(10 (100]"},
		{Above("price", 1.5, false), "@price:[(1.5 +inf]"},
		{Below("price", int64(7), true), "@price:[-inf 7]"},
		{And(Eq("a", "x"), Eq("b", "y")), "(@a:{x} @b:{y})"},
		{Or(Eq("a", "x"), Eq("b", "y")), "(@a:{x}|@b:{y})"},
		{Not(Eq("a", "x")), "-(@a:{x})"},
		{MatchAll(), "*"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Compile(tc.e))
	}
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"status = 'paid'", "@status:{paid}"},
		{"total > 100", "@total:[(100 +inf]"},
		{"total >= 100", "@total:[100 +inf]"},
		{"total < -2.5", "@total:[-inf (-2.5]"},
		{"total <= -3", "@total:[-inf -3]"},
		{"qty BETWEEN 1 AND 5", "@qty:[1 5]"},
		{"qty = 4", "@qty:[4 4]"},
		{"status != 'x'", "-(@status:{x})"},
		{"status IN ('paid', 'new')", "@status:{paid|new}"},
		{"id NOT IN (1, 2)", "-((@id:[1 1]|@id:[2 2]))"},
		{"active IS true", "@active:{true}"},
		{"active IS NOT true", "-(@active:{true})"},
		{"status = 'paid' AND total > 100", "(@status:{paid} @total:[(100 +inf])"},
		{"a = 1 OR b = 2 OR c = 3", "(@a:[1 1]|@b:[2 2]|@c:[3 3])"},
		{"", "*"},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			q, err := Translate(condition.MustParse(tc.expr))
			require.NoError(t, err)
			assert.Equal(t, tc.want, q)
		})
	}
}

func TestTranslate_Unsupported(t *testing.T) {
	for _, expr := range []string{
		"customer.name = 'ann'",
		"items[0] = 1",
		"deleted IS NULL",
		"active",
		"name > 'b'",
		"status = 'x' AND meta.kind = 'y'",
		"qty < 5",
		"qty <= 0",
		"qty >= 0",
		"qty > -1",
		"qty = 0",
		"qty != 0",
		"qty BETWEEN -1 AND 1",
		"id IN (0, 1)",
		"flag = false",
		"flag IS NOT false",
		"status = ''",
		"status NOT IN ('', 'x')",
		"status = 'paid' OR qty < 3",
	} {
		_, err := Translate(condition.MustParse(expr))
		assert.ErrorIs(t, err, ErrUnsupported, expr)
	}
}

type fakeExec struct {
	args  []any
	reply any
}

func (f *fakeExec) Do(_ context.Context, args ...any) (any, error) {
	f.args = args
	return f.reply, nil
}

func TestSearchBuilder(t *testing.T) {
	ex := &fakeExec{reply: []any{
		int64(2),
		"order:1", []any{"id", "1", "status", "paid"},
		"order:2", []any{"id", "2", "status", "paid"},
	}}
	rows, err := NewSearch("order_idx").
		Where(condition.MustParse("status = 'paid'")).
		Select("id", "status").
		SortBy("id", Desc).
		Limit(0, 50).
		Using(ex).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []any{
		"FT.SEARCH", "order_idx", "@status:{paid}",
		"RETURN", "2", "id", "status",
		"SORTBY", "id", "DESC",
		"LIMIT", "0", "50",
	}, ex.args)
	assert.Equal(t, []map[string]string{
		{"id": "1", "status": "paid"},
		{"id": "2", "status": "paid"},
	}, rows)
}

func TestSearchBuilder_Errors(t *testing.T) {
	_, err := NewSearch("idx").Run(context.Background())
	assert.Error(t, err)

	args, err := NewSearch("idx").RawArgs()
	require.NoError(t, err)
	assert.Equal(t, []any{"FT.SEARCH", "idx", "*", "LIMIT", "0", "10000"}, args)

	_, err = NewSearch("idx").Where(condition.MustParse("a.b = 1")).RawArgs()
	assert.ErrorIs(t, err, ErrUnsupported)
}
