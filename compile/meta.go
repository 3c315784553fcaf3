package compile

import (
	"reflect"
	"strings"
	"sync"
)

/*───────────────────────────────
|  Struct member metadata        |
└───────────────────────────────*/

// metaCache maps metaKey → *structMeta. Built once per struct type and tag.
var metaCache sync.Map

type metaKey struct {
	t   reflect.Type
	tag string
}

type structMeta struct {
	byName  map[string][]int // tag alias or Go field name
	byLower map[string][]int
}

func structMetaFor(t reflect.Type, tag string) *structMeta {
	k := metaKey{t, tag}
	if m, ok := metaCache.Load(k); ok {
		return m.(*structMeta)
	}
	m, _ := metaCache.LoadOrStore(k, buildMeta(t, tag))
	return m.(*structMeta)
}

// buildMeta walks exported fields, including those promoted from embedded
// structs. A tag value of "-" hides the field; the first comma-separated
// tag part is the alias. An embedded type already being walked is not
// entered again, so self-referential embeddings terminate.
func buildMeta(t reflect.Type, tag string) *structMeta {
	m := &structMeta{
		byName:  make(map[string][]int),
		byLower: make(map[string][]int),
	}
	walking := map[reflect.Type]bool{}
	var walk func(rt reflect.Type, prefix []int)
	walk = func(rt reflect.Type, prefix []int) {
		walking[rt] = true
		defer delete(walking, rt)
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			idx := append(append([]int{}, prefix...), i)

			if f.Anonymous {
				ft := f.Type
				if ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if ft.Kind() == reflect.Struct && !walking[ft] {
					walk(ft, idx)
				}
			}
			if !f.IsExported() {
				continue
			}

			name := f.Name
			if tag != "-" {
				if tv := f.Tag.Get(tag); tv != "" {
					alias := strings.TrimPrefix(strings.Split(tv, ",")[0], "@")
					if alias == "-" {
						continue
					}
					if alias != "" {
						name = alias
					}
				}
			}
			// shallower fields win, as with Go's own promotion rules
			m.add(name, idx)
			if name != f.Name {
				m.add(f.Name, idx)
			}
		}
	}
	walk(t, nil)
	return m
}

func (m *structMeta) add(name string, idx []int) {
	if prev, ok := m.byName[name]; !ok || len(idx) < len(prev) {
		m.byName[name] = idx
	}
	low := strings.ToLower(name)
	if prev, ok := m.byLower[low]; !ok || len(idx) < len(prev) {
		m.byLower[low] = idx
	}
}

func (m *structMeta) lookup(name string, fold bool) ([]int, bool) {
	if idx, ok := m.byName[name]; ok {
		return idx, true
	}
	if fold {
		idx, ok := m.byLower[strings.ToLower(name)]
		return idx, ok
	}
	return nil, false
}
