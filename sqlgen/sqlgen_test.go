package sqlgen

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manojoshi/pathquery/condition"
)

func TestToSQL(t *testing.T) {
	cases := []struct {
		expr string
		sql  string
		args []any
	}{
		{"status = 'paid'", `SELECT * FROM "orders" WHERE ("status" = $1)`, []any{"paid"}},
		{"status = 'paid' AND total > 100",
			`SELECT * FROM "orders" WHERE (("status" = $1) AND ("total" > $2))`, []any{"paid", int64(100)}},
		{"a = 1 OR b != 2",
			`SELECT * FROM "orders" WHERE (("a" = $1) OR ("b" != $2))`, []any{int64(1), int64(2)}},
		{"id IN (1, 2, 3)", `SELECT * FROM "orders" WHERE ("id" IN ($1, $2, $3))`, []any{int64(1), int64(2), int64(3)}},
		{"qty BETWEEN 1 AND 5", `SELECT * FROM "orders" WHERE ("qty" BETWEEN $1 AND $2)`, []any{int64(1), int64(5)}},
		{"o.total >= 2.5", `SELECT * FROM "orders" WHERE ("o"."total" >= $1)`, []any{2.5}},
		{"deleted IS NULL", `SELECT * FROM "orders" WHERE ("deleted" IS NULL)`, nil},
		{"active", `SELECT * FROM "orders" WHERE ("active" IS TRUE)`, nil},
		{"", `SELECT * FROM "orders"`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			sql, args, err := ToSQL("orders", condition.MustParse(tc.expr))
			require.NoError(t, err)
			assert.Equal(t, tc.sql, sql)
			if len(tc.args) == 0 {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tc.args, args)
			}
		})
	}
}

func TestWhere(t *testing.T) {
	got, err := Where(condition.MustParse("field1 = 'value1' AND (field2 = 'value2' OR field3 = 'value3')"))
	require.NoError(t, err)
	want := goqu.And(
		goqu.C("field1").Eq("value1"),
		goqu.Or(goqu.C("field2").Eq("value2"), goqu.C("field3").Eq("value3")),
	)
	assert.Equal(t, want, got)

	got, err = Where(condition.MustParse("owner IS NOT NULL"))
	require.NoError(t, err)
	assert.Equal(t, goqu.C("owner").IsNotNull(), got)

	got, err = Where(condition.MustParse("flag IS NOT false"))
	require.NoError(t, err)
	assert.Equal(t, goqu.C("flag").IsNotFalse(), got)

	got, err = Where(condition.MustParse("id NOT IN [4, 5]"))
	require.NoError(t, err)
	assert.Equal(t, goqu.C("id").NotIn(int64(4), int64(5)), got)
}

func TestWhere_Unsupported(t *testing.T) {
	for _, expr := range []string{"a.b.c = 1", "items[0] = 1", `tags["k"] = 'v'`} {
		_, err := Where(condition.MustParse(expr))
		assert.ErrorIs(t, err, ErrUnsupported, expr)
	}
}
