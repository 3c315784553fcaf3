package compile

import (
	"reflect"

	"github.com/manojoshi/pathquery/condition"
)

// test against a root value
type rootTest func(root reflect.Value) bool

// Filter compiles cond into a predicate over values of type elem.
//
// An Empty condition matches everything. Errors are returned for
// malformed terms, unknown members (on statically typed paths) and
// operands that cannot be compared with their member.
func Filter(cond condition.Condition, elem reflect.Type, opts Options) (Predicate, error) {
	if err := checkNarrowing(elem, opts); err != nil {
		return nil, err
	}
	r := &resolver{opts: opts}
	t, err := r.build(cond, elem)
	if err != nil {
		return nil, err
	}
	want := rootType(elem, opts)
	return func(x any) bool {
		return t(rootValue(x, want))
	}, nil
}

func (r *resolver) build(cond condition.Condition, elem reflect.Type) (rootTest, error) {
	switch c := cond.(type) {
	case *condition.Leaf:
		return r.leaf(c, elem)

	case *condition.Binary:
		left, err := r.build(c.Left, elem)
		if err != nil {
			return nil, err
		}
		right, err := r.build(c.Right, elem)
		if err != nil {
			return nil, err
		}
		switch c.Op {
		case condition.And:
			return func(v reflect.Value) bool { return left(v) && right(v) }, nil
		case condition.Or:
			return func(v reflect.Value) bool { return left(v) || right(v) }, nil
		}
		return nil, newErr(c.String(), elem, ErrBadOperator, "%s joins conditions", c.Op)

	case *condition.Multi:
		items := make([]rootTest, len(c.Items))
		for i, it := range c.Items {
			t, err := r.build(it, elem)
			if err != nil {
				return nil, err
			}
			items[i] = t
		}
		switch c.Op {
		case condition.And:
			return func(v reflect.Value) bool {
				for _, t := range items {
					if !t(v) {
						return false
					}
				}
				return true
			}, nil
		case condition.Or:
			return func(v reflect.Value) bool {
				for _, t := range items {
					if t(v) {
						return true
					}
				}
				return false
			}, nil
		}
		return nil, newErr(c.String(), elem, ErrBadOperator, "%s joins conditions", c.Op)
	}
	return func(reflect.Value) bool { return true }, nil
}

func (r *resolver) leaf(l *condition.Leaf, elem reflect.Type) (rootTest, error) {
	term, err := l.Term()
	if err != nil {
		return nil, err
	}
	a, err := r.accessor(term.Path, elem)
	if err != nil {
		return nil, err
	}
	m, err := termMatcher(term, a)
	if err != nil {
		return nil, err
	}
	return func(v reflect.Value) bool {
		rv, ok := a.get(v)
		return m(rv, ok)
	}, nil
}

// ---------------------------------------------------------------------
// Roots
// ---------------------------------------------------------------------

func checkNarrowing(elem reflect.Type, opts Options) error {
	c := opts.Concrete
	if c == nil || elem == nil || elem.Kind() != reflect.Interface {
		return nil
	}
	if !c.Implements(elem) {
		return newErr("", elem, ErrTypeMismatch, "%s does not implement %s", c, elem)
	}
	return nil
}

// rootType is the dynamic type inputs must have, or nil when any type is
// resolved on the fly.
func rootType(elem reflect.Type, opts Options) reflect.Type {
	if opts.Concrete != nil {
		return opts.Concrete
	}
	if elem == nil || elem.Kind() == reflect.Interface {
		return nil
	}
	return elem
}

// rootValue wraps x. An input of the wrong type yields an invalid value so
// every member reads as its default.
func rootValue(x any, want reflect.Type) reflect.Value {
	rv := reflect.ValueOf(x)
	if want != nil && rv.IsValid() && rv.Type() != want {
		return reflect.Value{}
	}
	return rv
}
