package compile

import (
	"reflect"

	"github.com/manojoshi/pathquery/internal"
	"github.com/manojoshi/pathquery/lexeme"
)

var stringType = reflect.TypeOf("")

// Shape describes what a Selector returns.
type Shape struct {
	// Keyed is set for map output; otherwise the selector returns the
	// single member value.
	Keyed bool
	// Homogeneous is set when every member shares ValueType and the map is
	// typed (map[string]ValueType). Otherwise the map is map[string]any.
	Homogeneous bool
	ValueType   reflect.Type
}

// OutputType is the Go type the selector's results carry.
func (s Shape) OutputType() reflect.Type {
	switch {
	case !s.Keyed:
		return s.ValueType
	case s.Homogeneous:
		return reflect.MapOf(stringType, s.ValueType)
	}
	return reflect.TypeOf(map[string]any(nil))
}

// Select compiles a projection. A single field without an alias selects
// the bare member; anything else produces a map keyed by Field.Key.
//
// Missing members contribute their zero value, so one malformed record
// never drops the other fields.
func Select(fields []Field, elem reflect.Type, opts Options) (Selector, Shape, error) {
	if len(fields) == 0 {
		return nil, Shape{}, newErr("", elem, ErrNoFields, "")
	}
	if err := checkNarrowing(elem, opts); err != nil {
		return nil, Shape{}, err
	}

	r := &resolver{opts: opts}
	accs := make([]*accessor, len(fields))
	for i, f := range fields {
		lx, err := lexeme.Parse(f.Path)
		if err != nil {
			return nil, Shape{}, newErr(f.Path, elem, ErrUnknownMember, "%v", err)
		}
		if accs[i], err = r.accessor(lx, elem); err != nil {
			return nil, Shape{}, err
		}
	}
	want := rootType(elem, opts)

	if len(fields) == 1 && fields[0].Name == "" {
		a := accs[0]
		return func(x any) any {
			return box(a.value(rootValue(x, want)))
		}, Shape{ValueType: a.out}, nil
	}

	keys := internal.Map(fields, Field.Key)
	if len(internal.Unique(keys)) != len(keys) {
		return nil, Shape{}, newErr("", elem, ErrDuplicateField, "%v", keys)
	}

	first := accs[0].out
	homogeneous := !opts.Boxed && first.Kind() != reflect.Interface &&
		internal.All(accs, func(a *accessor) bool { return a.out == first })

	if homogeneous {
		mt := reflect.MapOf(stringType, first)
		rkeys := internal.Map(keys, func(k string) reflect.Value { return reflect.ValueOf(k) })
		return func(x any) any {
			root := rootValue(x, want)
			m := reflect.MakeMapWithSize(mt, len(accs))
			for i, a := range accs {
				m.SetMapIndex(rkeys[i], a.value(root))
			}
			return m.Interface()
		}, Shape{Keyed: true, Homogeneous: true, ValueType: first}, nil
	}

	return func(x any) any {
		root := rootValue(x, want)
		m := make(map[string]any, len(accs))
		for i, a := range accs {
			m[keys[i]] = box(a.value(root))
		}
		return m
	}, Shape{Keyed: true, ValueType: anyType}, nil
}

// box turns a member into a plain interface value; a nil interface member
// becomes nil.
func box(v reflect.Value) any {
	if v = unwrap(v); !v.IsValid() {
		return nil
	}
	return v.Interface()
}
