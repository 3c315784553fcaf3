// Package sqlgen renders condition trees as goqu expressions so the same
// filter strings can drive SQL stores.
//
//	sql, args, err := sqlgen.ToSQL("orders", condition.MustParse("status = 'paid' AND total > 100"))
//	// SELECT * FROM "orders" WHERE (("status" = $1) AND ("total" > $2))  [paid 100]
//
// Paths map to columns: `total` is a column, `o.total` a qualified one.
// Deeper paths and indexers have no column equivalent.
package sqlgen

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/manojoshi/pathquery/condition"
	"github.com/manojoshi/pathquery/lexeme"
)

// Dialect is the goqu dialect ToSQL renders with.
const Dialect = "postgres"

// ErrUnsupported marks a term without a SQL rendering.
var ErrUnsupported = errors.New("sqlgen: condition has no SQL form")

// Where converts cond into a goqu expression. Empty yields nil.
func Where(cond condition.Condition) (exp.Expression, error) {
	switch c := cond.(type) {
	case *condition.Leaf:
		t, err := c.Term()
		if err != nil {
			return nil, err
		}
		return term(t)
	case *condition.Binary:
		return join(c.Op, []condition.Condition{c.Left, c.Right})
	case *condition.Multi:
		return join(c.Op, c.Items)
	}
	return nil, nil
}

// ToSQL renders SELECT * FROM table WHERE cond as a prepared statement.
func ToSQL(table string, cond condition.Condition) (string, []any, error) {
	ds := goqu.Dialect(Dialect).From(table).Prepared(true)
	w, err := Where(cond)
	if err != nil {
		return "", nil, err
	}
	if w != nil {
		ds = ds.Where(w)
	}
	return ds.ToSQL()
}

func join(op condition.Operator, items []condition.Condition) (exp.Expression, error) {
	xs := make([]exp.Expression, len(items))
	for i, it := range items {
		x, err := Where(it)
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	if op == condition.Or {
		return goqu.Or(xs...), nil
	}
	return goqu.And(xs...), nil
}

func term(t *condition.Term) (exp.Expression, error) {
	col, err := column(t.Path)
	if err != nil {
		return nil, err
	}
	op := t.Operand

	switch t.Op {
	case condition.Undefined:
		return col.IsTrue(), nil
	case condition.Eq, condition.EqEq:
		if op.Kind == condition.OperandNull {
			return col.IsNull(), nil
		}
		return col.Eq(op.Value), nil
	case condition.Not:
		if op.Kind == condition.OperandNull {
			return col.IsNotNull(), nil
		}
		return col.Neq(op.Value), nil
	case condition.Is:
		return is(col, op, t.Negate)
	case condition.Gt:
		return col.Gt(op.Value), nil
	case condition.GtOrEq:
		return col.Gte(op.Value), nil
	case condition.Lt:
		return col.Lt(op.Value), nil
	case condition.LtOrEq:
		return col.Lte(op.Value), nil
	case condition.In:
		if t.Negate {
			return col.NotIn(op.Values()...), nil
		}
		return col.In(op.Values()...), nil
	case condition.Between:
		return col.Between(exp.NewRangeVal(op.List[0].Value, op.List[1].Value)), nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, t.Op)
}

func is(col exp.IdentifierExpression, op condition.Operand, negate bool) (exp.Expression, error) {
	switch op.Kind {
	case condition.OperandNull:
		if negate {
			return col.IsNotNull(), nil
		}
		return col.IsNull(), nil
	case condition.OperandBool:
		switch v := op.Value.(bool); {
		case v && negate:
			return col.IsNotTrue(), nil
		case v:
			return col.IsTrue(), nil
		case negate:
			return col.IsNotFalse(), nil
		default:
			return col.IsFalse(), nil
		}
	}
	if negate {
		return col.Neq(op.Value), nil
	}
	return col.Eq(op.Value), nil
}

// column maps `name` or `table.name` onto an identifier.
func column(lx *lexeme.Lexeme) (exp.IdentifierExpression, error) {
	plain := func(l *lexeme.Lexeme) bool { return l.Key != "" && !l.HasIndex() && !l.HasDictKey }
	switch {
	case lx.IsSimple():
		return goqu.C(lx.Key), nil
	case lx.Len() == 2 && plain(lx) && plain(lx.Inner):
		return goqu.T(lx.Key).Col(lx.Inner.Key), nil
	}
	return nil, fmt.Errorf("%w: path %s", ErrUnsupported, lx)
}
