package compile

import (
	"errors"
	"math"
	"reflect"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/exp/constraints"

	"github.com/manojoshi/pathquery/condition"
	"github.com/manojoshi/pathquery/internal"
)

var timeType = reflect.TypeOf(time.Time{})

// matcher decides one term against a member value. ok is false when the
// member is absent on the record.
type matcher func(v reflect.Value, ok bool) bool

func ordered[T constraints.Ordered](x, w T) (int, bool) {
	switch {
	case x < w:
		return -1, true
	case x > w:
		return 1, true
	}
	return 0, true
}

func compareBool(x, w bool) (int, bool) {
	switch {
	case x == w:
		return 0, true
	case w:
		return -1, true
	}
	return 1, true
}

func compareTime(x, w time.Time) (int, bool) { return x.Compare(w), true }

// errArity reports an operand list whose length does not fit the operator.
var errArity = errors.New("wrong number of operands")

// test builds the comparison for op over already-converted operands. cmp
// orders a member against an operand; ok is false when the two cannot be
// compared.
func test[X, W any](op condition.Operator, negate bool, want []W, cmp func(x X, w W) (c int, ok bool)) (func(X) bool, error) {
	switch op {
	case condition.In:
	case condition.Between:
		if len(want) != 2 {
			return nil, errArity
		}
	default:
		if len(want) != 1 {
			return nil, errArity
		}
	}
	eq := func(x X, w W) bool {
		c, ok := cmp(x, w)
		return ok && c == 0
	}
	switch op {
	case condition.Eq, condition.EqEq:
		w := want[0]
		return func(x X) bool { return eq(x, w) }, nil
	case condition.Not:
		w := want[0]
		return func(x X) bool { return !eq(x, w) }, nil
	case condition.Is:
		w := want[0]
		return func(x X) bool { return eq(x, w) != negate }, nil
	case condition.In:
		return func(x X) bool {
			return internal.Any(want, func(w W) bool { return eq(x, w) }) != negate
		}, nil
	case condition.Gt, condition.Lt, condition.GtOrEq, condition.LtOrEq:
		w := want[0]
		accept := orderAccept(op)
		return func(x X) bool {
			c, ok := cmp(x, w)
			return ok && accept(c)
		}, nil
	case condition.Between:
		lo, hi := want[0], want[1]
		return func(x X) bool {
			a, okLo := cmp(x, lo)
			b, okHi := cmp(x, hi)
			return okLo && okHi && a >= 0 && b <= 0
		}, nil
	}
	return nil, ErrBadOperator
}

func orderAccept(op condition.Operator) func(int) bool {
	switch op {
	case condition.Gt:
		return func(c int) bool { return c > 0 }
	case condition.Lt:
		return func(c int) bool { return c < 0 }
	case condition.GtOrEq:
		return func(c int) bool { return c >= 0 }
	}
	return func(c int) bool { return c <= 0 }
}

// ---------------------------------------------------------------------
// Term → matcher
// ---------------------------------------------------------------------

func termMatcher(t *condition.Term, a *accessor) (matcher, error) {
	if t.Op == condition.Undefined {
		return truthy, nil
	}
	if t.Operand.Kind == condition.OperandNull {
		return nullMatcher(t, a)
	}
	if t.Op == condition.Between && len(t.Operand.List) != 2 {
		return nil, newErr(a.path, a.out, ErrBadOperand, "BETWEEN needs two bounds")
	}
	if a.out.Kind() == reflect.Interface {
		return dynamicMatcher(t, a)
	}
	return staticMatcher(t, a)
}

func truthy(v reflect.Value, ok bool) bool {
	if !ok {
		return false
	}
	v = unwrap(v)
	return v.IsValid() && !v.IsZero()
}

func nullMatcher(t *condition.Term, a *accessor) (matcher, error) {
	negate := t.Negate
	switch t.Op {
	case condition.Is, condition.Eq, condition.EqEq:
	case condition.Not:
		negate = true
	default:
		return nil, newErr(a.path, a.out, ErrBadOperator, "%s NULL", t.Op)
	}
	return func(v reflect.Value, ok bool) bool {
		return isNull(v, ok) != negate
	}, nil
}

func isNull(v reflect.Value, ok bool) bool {
	if !ok {
		return true
	}
	v = unwrap(v)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// unwrap strips interface boxes.
func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func bind[T any](pred func(T) bool, read func(reflect.Value) T) matcher {
	return func(v reflect.Value, ok bool) bool {
		var x T
		if ok {
			x = read(v)
		}
		return pred(x)
	}
}

// staticMatcher converts the operands to the member type once, at compile
// time. An operand that does not convert is a compile error.
func staticMatcher(t *condition.Term, a *accessor) (matcher, error) {
	raw := t.Operand.Values()
	out := a.out
	fail := func(err error) (matcher, error) {
		if err == ErrBadOperator {
			return nil, newErr(a.path, out, ErrBadOperator, "%s", t.Op)
		}
		return nil, newErr(a.path, out, ErrBadOperand, "%v", err)
	}

	switch k := out.Kind(); {
	case out == timeType:
		want, err := convert(raw, cast.ToTimeE)
		if err != nil {
			return fail(err)
		}
		pred, err := test(t.Op, t.Negate, want, compareTime)
		if err != nil {
			return fail(err)
		}
		return bind(pred, func(v reflect.Value) time.Time { return v.Interface().(time.Time) }), nil

	case k >= reflect.Int && k <= reflect.Int64:
		if wantI, err := convert(raw, exactInt); err == nil {
			pred, err := test(t.Op, t.Negate, wantI, ordered[int64])
			if err != nil {
				return fail(err)
			}
			return bind(pred, reflect.Value.Int), nil
		}
		want, err := convert(raw, numeric)
		if err != nil {
			return fail(err)
		}
		pred, err := test(t.Op, t.Negate, want, ordered[float64])
		if err != nil {
			return fail(err)
		}
		return bind(pred, func(v reflect.Value) float64 { return float64(v.Int()) }), nil

	case k >= reflect.Uint && k <= reflect.Uintptr:
		want, err := convert(raw, numeric)
		if err != nil {
			return fail(err)
		}
		pred, err := test(t.Op, t.Negate, want, ordered[float64])
		if err != nil {
			return fail(err)
		}
		return bind(pred, func(v reflect.Value) float64 { return float64(v.Uint()) }), nil

	case k == reflect.Float32 || k == reflect.Float64:
		want, err := convert(raw, numeric)
		if err != nil {
			return fail(err)
		}
		pred, err := test(t.Op, t.Negate, want, ordered[float64])
		if err != nil {
			return fail(err)
		}
		return bind(pred, reflect.Value.Float), nil

	case k == reflect.String:
		want, err := convert(raw, cast.ToStringE)
		if err != nil {
			return fail(err)
		}
		pred, err := test(t.Op, t.Negate, want, ordered[string])
		if err != nil {
			return fail(err)
		}
		return bind(pred, reflect.Value.String), nil

	case k == reflect.Bool:
		if t.Op.IsOrdering() || t.Op == condition.Between {
			return fail(ErrBadOperator)
		}
		want, err := convert(raw, cast.ToBoolE)
		if err != nil {
			return fail(err)
		}
		pred, err := test(t.Op, t.Negate, want, compareBool)
		if err != nil {
			return fail(err)
		}
		return bind(pred, reflect.Value.Bool), nil
	}
	return nil, newErr(a.path, out, ErrTypeMismatch, "cannot compare %s with %s", out, t.Operand)
}

func convert[W any](raw []any, fn func(any) (W, error)) ([]W, error) {
	out := make([]W, len(raw))
	for i, r := range raw {
		w, err := fn(r)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

// exactInt accepts integral operands only, so `qty > 1.5` on an int member
// compares as floats rather than truncating.
func exactInt(raw any) (int64, error) {
	switch n := raw.(type) {
	case int64:
		return n, nil
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<63 {
			return int64(n), nil
		}
		return 0, errFractional
	case bool:
		return 0, errNotNumber
	}
	return cast.ToInt64E(raw)
}

func numeric(raw any) (float64, error) {
	if _, ok := raw.(bool); ok {
		return 0, errNotNumber
	}
	return cast.ToFloat64E(raw)
}

type convError string

func (e convError) Error() string { return string(e) }

const (
	errFractional = convError("operand has a fractional part")
	errNotNumber  = convError("operand is not a number")
)

// ---------------------------------------------------------------------
// Dynamic members
// ---------------------------------------------------------------------

// dynamicMatcher compares members whose type is only known per record.
// Numbers compare numerically when the member converts to a number,
// strings lexically, booleans by truth value.
func dynamicMatcher(t *condition.Term, a *accessor) (matcher, error) {
	pred, err := test(t.Op, t.Negate, t.Operand.Values(), compareAny)
	if errors.Is(err, errArity) {
		return nil, newErr(a.path, a.out, ErrBadOperand, "%s: %v", t.Op, err)
	}
	if err != nil {
		return nil, newErr(a.path, a.out, ErrBadOperator, "%s", t.Op)
	}
	return func(v reflect.Value, ok bool) bool {
		var x any
		if ok {
			if v = unwrap(v); v.IsValid() {
				x = v.Interface()
			}
		}
		return pred(x)
	}, nil
}

func compareAny(x, w any) (int, bool) {
	switch wv := w.(type) {
	case int64, float64:
		if _, isBool := x.(bool); isBool {
			return 0, false
		}
		xf, err := cast.ToFloat64E(x)
		if err != nil {
			return 0, false
		}
		return ordered(xf, cast.ToFloat64(wv))
	case string:
		if xt, ok := x.(time.Time); ok {
			wt, err := cast.ToTimeE(wv)
			if err != nil {
				return 0, false
			}
			return compareTime(xt, wt)
		}
		xs, err := cast.ToStringE(x)
		if err != nil {
			return 0, false
		}
		return ordered(xs, wv)
	case bool:
		xb, err := cast.ToBoolE(x)
		if err != nil {
			return 0, false
		}
		return compareBool(xb, wv)
	}
	return 0, false
}
