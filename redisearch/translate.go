package redisearch

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cast"

	"github.com/manojoshi/pathquery/condition"
	"github.com/manojoshi/pathquery/internal"
)

// ErrUnsupported marks a condition RediSearch cannot evaluate.
var ErrUnsupported = errors.New("redisearch: condition cannot be pushed down")

// Translate renders cond as a RediSearch query string.
func Translate(cond condition.Condition) (string, error) {
	e, err := ToExpr(cond)
	if err != nil {
		return "", err
	}
	return Compile(e), nil
}

// ToExpr maps a condition tree onto RediSearch query nodes.
//
//	status = 'paid'        ➜ @status:{paid}
//	total > 100            ➜ @total:[(100 +inf]
//	qty BETWEEN 1 AND 5    ➜ @qty:[1 5]
//	id IN (1, 2)           ➜ (@id:[1 1]|@id:[2 2])
//	status != 'x'          ➜ -(@status:{x})
//
// Strings compare as TAG fields, numbers as NUMERIC fields.
func ToExpr(cond condition.Condition) (Expr, error) {
	switch c := cond.(type) {
	case *condition.Leaf:
		t, err := c.Term()
		if err != nil {
			return nil, err
		}
		return term(t)
	case *condition.Binary:
		return combine(c.Op, []condition.Condition{c.Left, c.Right})
	case *condition.Multi:
		return combine(c.Op, c.Items)
	}
	return MatchAll(), nil
}

func combine(op condition.Operator, items []condition.Condition) (Expr, error) {
	xs := make([]Expr, len(items))
	for i, it := range items {
		x, err := ToExpr(it)
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	switch op {
	case condition.And:
		return And(xs...), nil
	case condition.Or:
		return Or(xs...), nil
	}
	return nil, fmt.Errorf("%w: %s joins conditions", ErrUnsupported, op)
}

// term pushes down one comparison. A hash without the field never
// matches a positive RediSearch clause, while local evaluation reads the
// field as the operand's zero value, so a clause the zero value
// satisfies (qty < 5, flag = false, status = '') stays local.
func term(t *condition.Term) (Expr, error) {
	if !t.Path.IsSimple() {
		return nil, fmt.Errorf("%w: nested path %s", ErrUnsupported, t.Path)
	}
	if t.Op == condition.Undefined || t.Operand.Kind == condition.OperandNull {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
	}

	x, zeroMatches, err := atom(t.Path.Key, t.Op, t.Operand)
	if err != nil {
		return nil, err
	}
	if zeroMatches {
		return nil, fmt.Errorf("%w: %s holds for a missing field", ErrUnsupported, t)
	}
	if t.Op == condition.Not || t.Negate {
		return Not(x), nil
	}
	return x, nil
}

// atom builds the positive clause for op and reports whether the zero
// value of the operand satisfies it.
func atom(f string, op condition.Operator, o condition.Operand) (Expr, bool, error) {
	switch op {
	case condition.Eq, condition.EqEq, condition.Is, condition.Not:
		x, err := equal(f, o)
		return x, err == nil && isZero(o), err

	case condition.In:
		xs := make([]Expr, len(o.List))
		for i, it := range o.List {
			x, err := equal(f, it)
			if err != nil {
				return nil, false, err
			}
			xs[i] = x
		}
		zero := internal.Any(o.List, isZero)
		if internal.All(o.List, func(o condition.Operand) bool { return o.Kind == condition.OperandString }) {
			return In(f, o.Values()...), zero, nil
		}
		return Or(xs...), zero, nil

	case condition.Between:
		if !numbers(o.List...) {
			return nil, false, fmt.Errorf("%w: BETWEEN needs numeric bounds", ErrUnsupported)
		}
		lo, hi := num(o.List[0]), num(o.List[1])
		return Range(f, o.List[0].Value, o.List[1].Value, true), lo <= 0 && hi >= 0, nil

	case condition.Gt, condition.GtOrEq, condition.Lt, condition.LtOrEq:
		if !numbers(o) {
			return nil, false, fmt.Errorf("%w: %s needs a numeric operand", ErrUnsupported, op)
		}
		v := num(o)
		switch op {
		case condition.Gt:
			return Above(f, o.Value, false), v < 0, nil
		case condition.GtOrEq:
			return Above(f, o.Value, true), v <= 0, nil
		case condition.Lt:
			return Below(f, o.Value, false), v > 0, nil
		}
		return Below(f, o.Value, true), v >= 0, nil
	}
	return nil, false, fmt.Errorf("%w: operator %s", ErrUnsupported, op)
}

func equal(f string, op condition.Operand) (Expr, error) {
	switch op.Kind {
	case condition.OperandNumber:
		return Range(f, op.Value, op.Value, true), nil
	case condition.OperandString:
		return Eq(f, op.Value), nil
	case condition.OperandBool:
		return Eq(f, strconv.FormatBool(op.Value.(bool))), nil
	}
	return nil, fmt.Errorf("%w: cannot match %s", ErrUnsupported, op)
}

func isZero(o condition.Operand) bool {
	switch o.Kind {
	case condition.OperandNumber:
		return num(o) == 0
	case condition.OperandString:
		return o.Value.(string) == ""
	case condition.OperandBool:
		return !o.Value.(bool)
	}
	return false
}

func num(o condition.Operand) float64 { return cast.ToFloat64(o.Value) }

func numbers(ops ...condition.Operand) bool {
	return internal.All(ops, func(o condition.Operand) bool { return o.Kind == condition.OperandNumber })
}
