package redisearch

import (
	"fmt"
	"strings"

	"github.com/manojoshi/pathquery/internal"
)

// Compile turns an Expr tree into a RediSearch query string.
// Exported so callers can preview the query for logging or explain.
func Compile(e Expr) string {
	sb := internal.GetBuilder()
	defer internal.PutBuilder(sb)
	e.compile(sb)
	return sb.String()
}

// -------------------------------------------------------------------
// node writers
// -------------------------------------------------------------------

func (n *eq) compile(sb *strings.Builder) {
	sb.WriteString(field(n.f))
	sb.WriteString(":{")
	sb.WriteString(escapeTag(toStr(n.v)))
	sb.WriteByte('}')
}

func (n *in) compile(sb *strings.Builder) {
	sb.WriteString(field(n.f) + ":{")
	for i, v := range n.vs {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(escapeTag(toStr(v)))
	}
	sb.WriteByte('}')
}

func (n *rng) compile(sb *strings.Builder) {
	sb.WriteString(field(n.f))
	sb.WriteString(":[")
	if !n.loInc {
		sb.WriteByte('(')
	}
	sb.WriteString(toStr(n.lo))
	sb.WriteByte(' ')
	if !n.hiInc {
		sb.WriteByte('(')
	}
	sb.WriteString(toStr(n.hi))
	sb.WriteByte(']')
}

func (n *and) compile(sb *strings.Builder) { group(sb, n.xs, " ") }
func (n *or) compile(sb *strings.Builder)  { group(sb, n.xs, "|") }

func (n *not) compile(sb *strings.Builder) {
	sb.WriteByte('-')
	sb.WriteByte('(')
	n.x.compile(sb)
	sb.WriteByte(')')
}

// group helper for (a b) / (a|b)
func group(sb *strings.Builder, xs []Expr, sep string) {
	sb.WriteByte('(')
	for i, x := range xs {
		if i > 0 {
			sb.WriteString(sep)
		}
		x.compile(sb)
	}
	sb.WriteByte(')')
}

// -------------------------------------------------------------------
// small utilities
// -------------------------------------------------------------------

func toStr(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int, int64, float64:
		return internal.FormatNumber(t)
	default:
		return fmt.Sprint(t)
	}
}

// escapeTag backslash-escapes the characters the tag tokenizer would
// otherwise treat as separators or syntax.
func escapeTag(s string) string {
	const special = ",.<>{}[]\"':;!@#$%^&*()-+=~|/\\ "
	if !strings.ContainsAny(s, special) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
