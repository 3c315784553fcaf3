package engine

import (
	"reflect"

	"github.com/spf13/cast"

	"github.com/manojoshi/pathquery/compile"
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// Filter compiles expr into a typed predicate over T.
func Filter[T any](e *Engine, expr string) (func(T) bool, error) {
	pred, err := e.CompileFilterString(expr, typeOf[T]())
	if err != nil {
		return nil, err
	}
	return func(x T) bool { return pred(x) }, nil
}

// Where returns the items matching expr, in order.
func Where[T any](e *Engine, items []T, expr string) ([]T, error) {
	pred, err := Filter[T](e, expr)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Select compiles a single path into a typed getter. V must be the
// member's type or an interface; members reached dynamically convert to V
// when they are numbers (or numeric strings) read as a numeric V, or share
// V's kind. Anything else reads as V's zero value.
func Select[T, V any](e *Engine, path string) (func(T) V, error) {
	elem := typeOf[T]()
	sel, shape, err := e.CompileSelector([]compile.Field{{Path: path}}, elem)
	if err != nil {
		return nil, err
	}
	vt := typeOf[V]()
	if vt.Kind() != reflect.Interface && shape.ValueType.Kind() != reflect.Interface && shape.ValueType != vt {
		return nil, &compile.Error{Path: path, Type: elem, Err: compile.ErrTypeMismatch}
	}
	return func(x T) V { return convertTo[V](sel(x), vt) }, nil
}

func convertTo[V any](x any, vt reflect.Type) V {
	if v, ok := x.(V); ok {
		return v
	}
	var zero V
	rv := reflect.ValueOf(x)
	if !rv.IsValid() || vt.Kind() == reflect.Interface {
		return zero
	}
	switch {
	case isNumber(vt.Kind()) && isNumber(rv.Kind()):
	case isNumber(vt.Kind()) && rv.Kind() == reflect.String:
		f, err := cast.ToFloat64E(rv.String())
		if err != nil {
			return zero
		}
		rv = reflect.ValueOf(f)
	case rv.Kind() != vt.Kind() || !rv.Type().ConvertibleTo(vt):
		return zero
	}
	return rv.Convert(vt).Interface().(V)
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

// SelectMap compiles fields into a typed map projection. With V == any
// the map is always boxed; otherwise every field must have type V.
func SelectMap[T, V any](e *Engine, fields ...compile.Field) (func(T) map[string]V, error) {
	elem := typeOf[T]()
	if len(fields) == 1 && fields[0].Name == "" {
		fields = []compile.Field{{Path: fields[0].Path, Name: fields[0].Key()}}
	}
	vt := typeOf[V]()
	sel, shape, err := e.compileSelector(fields, elem, vt == anyType)
	if err != nil {
		return nil, err
	}
	if vt != anyType && (!shape.Homogeneous || shape.ValueType != vt) {
		return nil, &compile.Error{Path: fields[0].Path, Type: elem, Err: compile.ErrTypeMismatch}
	}
	return func(x T) map[string]V {
		return sel(x).(map[string]V)
	}, nil
}

// Project applies a select list such as "id, meta.region AS region" to
// every item. A single unaliased field yields bare values.
func Project[T any](e *Engine, items []T, fields string) ([]any, error) {
	fs, err := compile.ParseFields(fields)
	if err != nil {
		return nil, err
	}
	sel, _, err := e.CompileSelector(fs, typeOf[T]())
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = sel(it)
	}
	return out, nil
}
