// Package compile turns condition trees and property paths into Go
// closures bound to a concrete element type.
//
//	pred, err := compile.Filter(cond, reflect.TypeOf(Order{}), compile.Options{})
//	if pred(order) { ... }
//
//	sel, shape, err := compile.Select(
//	    []compile.Field{{Path: "id"}, {Path: `meta["region"]`, Name: "region"}},
//	    reflect.TypeOf(Order{}), compile.Options{},
//	)
//	row := sel(order) // map[string]string when every member is a string
//
// Paths are resolved once per type. Struct members are looked up through
// the `pq` tag, then by exact name, then (optionally) case-insensitively.
// Members reached through an interface are resolved per dynamic type on
// first use and remembered.
//
// Compiled closures never fail: a member missing on a particular record
// reads as the zero value of its type, and only that field is affected.
package compile

import (
	"reflect"
	"strings"

	"github.com/manojoshi/pathquery/condition"
	"github.com/manojoshi/pathquery/lexeme"
)

// DefaultTag is the struct tag consulted for member aliases.
const DefaultTag = "pq"

// Options steers resolution.
type Options struct {
	// TagName names the struct tag carrying member aliases. Empty means
	// DefaultTag; "-" disables tag lookup.
	TagName string
	// CaseInsensitive enables a case-insensitive member-name fallback.
	CaseInsensitive bool
	// Concrete narrows an interface element type: paths are resolved
	// against Concrete and inputs of any other type read as defaults.
	Concrete reflect.Type
	// Boxed forces keyed projections to produce map[string]any.
	Boxed bool
}

func (o Options) tag() string {
	if o.TagName == "" {
		return DefaultTag
	}
	return o.TagName
}

// Fielder lets a type expose its members without reflection.
type Fielder interface {
	Field(name string) (any, bool)
}

// Predicate reports whether a record matches.
type Predicate func(any) bool

// Selector extracts a value, or a map of values, from a record.
type Selector func(any) any

// Field is one projected path, optionally renamed.
type Field struct {
	Path string
	Name string
}

// Key is the output name of the field.
func (f Field) Key() string {
	if f.Name != "" {
		return f.Name
	}
	return strings.TrimSpace(f.Path)
}

// ParseFields reads a comma-separated select list. Each item is a path,
// optionally followed by `AS name`.
//
//	ParseFields(`id, meta["region"] AS region, items[0].sku`)
func ParseFields(s string) ([]Field, error) {
	var out []Field
	for _, item := range splitTopLevel(s, ',') {
		f := Field{Path: item}
		if i := lastAs(item); i >= 0 {
			f.Path = strings.TrimSpace(item[:i])
			f.Name = strings.TrimSpace(item[i+len(" AS "):])
		}
		if _, err := lexeme.Parse(f.Path); err != nil {
			return nil, newErr(f.Path, nil, condition.ErrBadTerm, "%v", err)
		}
		out = append(out, f)
	}
	return out, nil
}

func lastAs(item string) int {
	up := strings.ToUpper(item)
	i := strings.LastIndex(up, " AS ")
	if i < 0 || strings.ContainsAny(item[i:], `"'[]`) {
		return -1
	}
	return i
}

// splitTopLevel splits on sep outside quotes and brackets.
func splitTopLevel(s string, sep byte) []string {
	var (
		out   []string
		quote byte
		depth int
		last  int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == sep && depth == 0:
			if part := strings.TrimSpace(s[last:i]); part != "" {
				out = append(out, part)
			}
			last = i + 1
		}
	}
	if part := strings.TrimSpace(s[last:]); part != "" {
		out = append(out, part)
	}
	return out
}
