package cache

import (
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/manojoshi/pathquery/internal"
)

// Signature builds the canonical key of a compiled function from the
// element type, the output kind and the query parts (condition text or
// ordered field paths). Equal queries on the same type share a signature.
//
//	Signature(reflect.TypeOf(Order{}), "bool", cond.String())
//	// "github.com/acme/shop.Order#1|bool|(status = 'paid' AND total > 10)"
func Signature(elem reflect.Type, out string, parts ...string) string {
	sb := internal.GetBuilder()
	defer internal.PutBuilder(sb)

	sb.WriteString(TypeName(elem))
	sb.WriteByte('|')
	sb.WriteString(out)
	for _, p := range parts {
		sb.WriteByte('|')
		sb.WriteString(p)
	}
	return sb.String()
}

// TypeName names t for a signature. The readable part qualifies named
// types with their package path; the #n suffix is unique per distinct
// type, so function-local types that share a name never share an entry.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return readable(t) + "#" + strconv.FormatUint(typeID(t), 10)
}

func readable(t reflect.Type) string {
	switch {
	case t.Name() != "" && t.PkgPath() != "":
		return t.PkgPath() + "." + t.Name()
	case t.Kind() == reflect.Pointer:
		return "*" + readable(t.Elem())
	}
	return t.String()
}

var (
	typeIDs    sync.Map // reflect.Type → uint64
	lastTypeID atomic.Uint64
)

func typeID(t reflect.Type) uint64 {
	if id, ok := typeIDs.Load(t); ok {
		return id.(uint64)
	}
	id, _ := typeIDs.LoadOrStore(t, lastTypeID.Add(1))
	return id.(uint64)
}
