// Package redisearch pushes condition trees down to RediSearch.
//
//	import rs "github.com/manojoshi/pathquery/redisearch"
//
//	cond := condition.MustParse("status IN ('paid', 'new') AND total > 100")
//	q, err := rs.Translate(cond)
//	// q == "(@status:{paid|new} @total:[(100 +inf])"
//
// Only flat members translate; nested paths, NULL tests and truthiness
// tests return ErrUnsupported so callers can fall back to local
// evaluation.
package redisearch

import (
	"strings"
)

// -------------------------------------------------------------------
// Expr – the root interface. Every node knows how to write itself
// into a strings.Builder; the writers live in compile.go.
// -------------------------------------------------------------------

type Expr interface {
	compile(*strings.Builder)
}

// ------------
// Leaf nodes
// ------------

// Eq("@field", value)  ➜  "@field:{value}"
func Eq(field string, v any) Expr { return &eq{field, v} }

// In("@field", v1, v2) ➜ "@field:{v1|v2}"
func In(field string, vs ...any) Expr { return &in{field, vs} }

// Range("@price", 10, 100, true)  ➜ "@price:[10 100]"
func Range(field string, min, max any, inclusive bool) Expr {
	return &rng{field, min, max, inclusive, inclusive}
}

// Above("@price", 10, false) ➜ "@price:[(10 +inf]"
func Above(field string, min any, inclusive bool) Expr {
	return &rng{field, min, "+inf", inclusive, true}
}

// Below("@price", 10, true) ➜ "@price:[-inf 10]"
func Below(field string, max any, inclusive bool) Expr {
	return &rng{field, "-inf", max, true, inclusive}
}

// ------------
// Combinators
// ------------

func And(xs ...Expr) Expr { return &and{xs} } // implicit space
func Or(xs ...Expr) Expr  { return &or{xs} }  // |
func Not(x Expr) Expr     { return &not{x} }  // unary -

// -------------------------------------------------------------------
// internal node types
// -------------------------------------------------------------------

type (
	eq struct {
		f string
		v any
	}
	in struct {
		f  string
		vs []any
	}
	rng struct {
		f            string
		lo, hi       any
		loInc, hiInc bool
	}
	and struct{ xs []Expr }
	or  struct{ xs []Expr }
	not struct{ x Expr }
)

func field(f string) string {
	if strings.HasPrefix(f, "@") {
		return f
	}
	return "@" + f
}

func MatchAll() Expr { return matchAll{} }

type matchAll struct{}

func (matchAll) compile(sb *strings.Builder) { sb.WriteByte('*') }
