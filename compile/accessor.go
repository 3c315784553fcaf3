package compile

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/manojoshi/pathquery/lexeme"
)

var (
	anyType     = reflect.TypeOf((*any)(nil)).Elem()
	fielderType = reflect.TypeOf((*Fielder)(nil)).Elem()
	rawJSONType = reflect.TypeOf(json.RawMessage(nil))
)

// ---------------------------------------------------------------------
// Steps
// ---------------------------------------------------------------------

type stepKind uint8

const (
	stepMember stepKind = iota
	stepIndex
	stepKey
)

// step is one hop of a path, independent of any Go type.
type step struct {
	kind  stepKind
	name  string
	index int
}

func (s step) String() string {
	switch s.kind {
	case stepIndex:
		return "[" + strconv.Itoa(s.index) + "]"
	case stepKey:
		return "[" + strconv.Quote(s.name) + "]"
	}
	return s.name
}

// flatten turns a lexeme chain into hops: `a[0]["k"]` → a, [0], ["k"].
func flatten(lx *lexeme.Lexeme) []step {
	var out []step
	for cur := lx; cur != nil; cur = cur.Inner {
		if cur.Key != "" {
			out = append(out, step{kind: stepMember, name: cur.Key})
		}
		if cur.HasIndex() {
			out = append(out, step{kind: stepIndex, index: cur.Index})
		}
		if cur.HasDictKey {
			out = append(out, step{kind: stepKey, name: cur.DictKey})
		}
	}
	return out
}

// ---------------------------------------------------------------------
// Accessor
// ---------------------------------------------------------------------

// getter moves one hop. ok == false means the member is absent on this
// particular value.
type getter func(v reflect.Value) (reflect.Value, bool)

// accessor reads a resolved path. out is the static result type; it is
// an interface type when the tail of the path is resolved dynamically.
type accessor struct {
	path string
	out  reflect.Type
	hops []getter
}

// get walks the hops. Any fault while walking (nil pointer, index out of
// range, a panicking Fielder) reads as an absent member.
func (a *accessor) get(v reflect.Value) (rv reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			rv, ok = reflect.Value{}, false
		}
	}()
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	for _, h := range a.hops {
		if v, ok = h(v); !ok || !v.IsValid() {
			return reflect.Value{}, false
		}
	}
	return v, true
}

// value returns the member or the zero value of out.
func (a *accessor) value(v reflect.Value) reflect.Value {
	if rv, ok := a.get(v); ok {
		return rv
	}
	return reflect.Zero(a.out)
}

// resolver binds step lists to types. Dynamic tails share its options.
type resolver struct {
	opts Options
}

func (r *resolver) accessor(lx *lexeme.Lexeme, root reflect.Type) (*accessor, error) {
	path := lx.String()
	if root == nil || (root.Kind() == reflect.Interface && r.opts.Concrete == nil) {
		return &accessor{path: path, out: anyType, hops: []getter{r.dynamic(flatten(lx), path)}}, nil
	}
	if r.opts.Concrete != nil {
		root = r.opts.Concrete
	}
	return r.resolve(flatten(lx), root, path)
}

// resolve binds steps to t. Pointers along the way, and at the end, are
// dereferenced; a nil pointer reads as absent.
func (r *resolver) resolve(steps []step, t reflect.Type, path string) (*accessor, error) {
	a := &accessor{path: path}
	for i := 0; i < len(steps); i++ {
		if t.Kind() == reflect.Interface || t == rawJSONType || t.Implements(fielderType) {
			h, out := r.tail(steps[i:], t, path)
			a.hops = append(a.hops, h)
			a.out = out
			return a, nil
		}
		for t.Kind() == reflect.Pointer {
			if t.Implements(fielderType) {
				break
			}
			a.hops = append(a.hops, deref)
			t = t.Elem()
		}
		if t.Kind() == reflect.Interface || t == rawJSONType || t.Implements(fielderType) {
			i--
			continue
		}

		h, next, err := r.hop(steps[i], t, path)
		if err != nil {
			return nil, err
		}
		a.hops = append(a.hops, h)
		t = next
	}
	for t.Kind() == reflect.Pointer {
		a.hops = append(a.hops, deref)
		t = t.Elem()
	}
	a.out = t
	return a, nil
}

// tail handles the remainder of a path once the static type stops being
// informative.
func (r *resolver) tail(steps []step, t reflect.Type, path string) (getter, reflect.Type) {
	switch {
	case t == rawJSONType:
		return jsonTail(steps), anyType
	case t.Implements(fielderType):
		return r.fielderTail(steps, path), anyType
	}
	return r.dynamic(steps, path), t
}

func deref(v reflect.Value) (reflect.Value, bool) {
	if v.IsNil() {
		return reflect.Value{}, false
	}
	return v.Elem(), true
}

func (r *resolver) hop(s step, t reflect.Type, path string) (getter, reflect.Type, error) {
	switch s.kind {
	case stepMember:
		return r.member(s.name, t, path)
	case stepKey:
		if t.Kind() == reflect.Struct {
			return r.member(s.name, t, path)
		}
		if t.Kind() == reflect.Map && isStringKind(t.Key().Kind()) {
			return mapKey(s.name, t), t.Elem(), nil
		}
		return nil, nil, newErr(path, t, ErrNotIndexable, "%s by key %q", t, s.name)
	default:
		return index(s.index, t, path)
	}
}

func (r *resolver) member(name string, t reflect.Type, path string) (getter, reflect.Type, error) {
	switch t.Kind() {
	case reflect.Struct:
		meta := structMetaFor(t, r.opts.tag())
		idx, ok := meta.lookup(name, r.opts.CaseInsensitive)
		if !ok {
			return nil, nil, newErr(path, t, ErrUnknownMember, "%q", name)
		}
		return func(v reflect.Value) (reflect.Value, bool) {
			f, err := v.FieldByIndexErr(idx)
			return f, err == nil
		}, t.FieldByIndex(idx).Type, nil
	case reflect.Map:
		if isStringKind(t.Key().Kind()) {
			return mapKey(name, t), t.Elem(), nil
		}
	}
	return nil, nil, newErr(path, t, ErrUnknownMember, "%q: %s has no members", name, t)
}

func mapKey(name string, t reflect.Type) getter {
	key := reflect.ValueOf(name).Convert(t.Key())
	return func(v reflect.Value) (reflect.Value, bool) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		e := v.MapIndex(key)
		return e, e.IsValid()
	}
}

func index(i int, t reflect.Type, path string) (getter, reflect.Type, error) {
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		var out reflect.Type
		if t.Kind() == reflect.String {
			out = reflect.TypeOf(byte(0))
		} else {
			out = t.Elem()
		}
		return func(v reflect.Value) (reflect.Value, bool) {
			if i >= v.Len() {
				return reflect.Value{}, false
			}
			return v.Index(i), true
		}, out, nil
	case reflect.Map:
		if isIntKind(t.Key().Kind()) {
			key := reflect.ValueOf(int64(i)).Convert(t.Key())
			return func(v reflect.Value) (reflect.Value, bool) {
				e := v.MapIndex(key)
				return e, e.IsValid()
			}, t.Elem(), nil
		}
	}
	return nil, nil, newErr(path, t, ErrNotIndexable, "%s by [%d]", t, i)
}

// ---------------------------------------------------------------------
// Dynamic tails
// ---------------------------------------------------------------------

// dynamic resolves steps against the dynamic type of each value it sees.
// Resolutions, failed ones included, are remembered per type.
func (r *resolver) dynamic(steps []step, path string) getter {
	var seen sync.Map // reflect.Type → *accessor (nil when unresolvable)
	return func(v reflect.Value) (reflect.Value, bool) {
		for v.IsValid() && v.Kind() == reflect.Interface {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		if !v.IsValid() {
			return reflect.Value{}, false
		}
		t := v.Type()
		cached, ok := seen.Load(t)
		if !ok {
			inner := &resolver{opts: Options{TagName: r.opts.TagName, CaseInsensitive: r.opts.CaseInsensitive}}
			acc, err := inner.resolve(steps, t, path)
			if err != nil {
				acc = nil
			}
			cached, _ = seen.LoadOrStore(t, acc)
		}
		acc := cached.(*accessor)
		if acc == nil {
			return reflect.Value{}, false
		}
		return acc.get(v)
	}
}

func (r *resolver) fielderTail(steps []step, path string) getter {
	head, rest := steps[0], steps[1:]
	var next getter
	if len(rest) > 0 {
		next = r.dynamic(rest, path)
	}
	return func(v reflect.Value) (reflect.Value, bool) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return reflect.Value{}, false
		}
		f, ok := v.Interface().(Fielder)
		if !ok {
			return reflect.Value{}, false
		}
		name := head.name
		if head.kind == stepIndex {
			name = strconv.Itoa(head.index)
		}
		x, ok := f.Field(name)
		if !ok || x == nil {
			return reflect.Value{}, false
		}
		rv := reflect.ValueOf(x)
		if next == nil {
			return rv, true
		}
		return next(rv)
	}
}

// jsonTail evaluates the remaining hops inside raw JSON.
func jsonTail(steps []step) getter {
	parts := make([]string, len(steps))
	for i, s := range steps {
		if s.kind == stepIndex {
			parts[i] = strconv.Itoa(s.index)
		} else {
			parts[i] = gjsonEscape(s.name)
		}
	}
	path := strings.Join(parts, ".")
	return func(v reflect.Value) (reflect.Value, bool) {
		res := gjson.GetBytes(v.Bytes(), path)
		if !res.Exists() || res.Type == gjson.Null {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(res.Value()), true
	}
}

func gjsonEscape(s string) string {
	if !strings.ContainsAny(s, `.*?|#@\!=<>%`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(`.*?|#@\!=<>%`, s[i]) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isStringKind(k reflect.Kind) bool { return k == reflect.String }

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
