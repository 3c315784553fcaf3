// Package lexeme turns property-path tokens into accessor chains.
//
//	lx, err := lexeme.Parse(`balances["USD"].total[0]`)
//	// balances ─▶ ["USD"] ─▶ total ─▶ [0]
//
// The package is purely syntactic. Binding a chain to a concrete Go type is
// the job of the compile package.
package lexeme

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manojoshi/pathquery/internal"
)

// Lexeme is one node of a singly-linked accessor chain.
//
// A node carries at most one of Index / DictKey. `items[0][1]` therefore
// becomes three nodes: {Key: items, Index: 0} ─▶ {Index: 1}.
type Lexeme struct {
	Key        string // property name, empty for a bare indexer
	Index      int    // -1 when absent
	DictKey    string
	HasDictKey bool
	Inner      *Lexeme
}

// Error reports a malformed path together with the byte offset it was
// detected at.
type Error struct {
	Path string
	Pos  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lexeme: %s at position %d in %q", e.Msg, e.Pos, e.Path)
}

// HasIndex reports whether the node indexes into a sequence.
func (l *Lexeme) HasIndex() bool { return l.Index >= 0 }

// Len returns the number of nodes in the chain starting at l.
func (l *Lexeme) Len() int {
	n := 0
	for cur := l; cur != nil; cur = cur.Inner {
		n++
	}
	return n
}

// Last returns the terminal node of the chain.
func (l *Lexeme) Last() *Lexeme {
	cur := l
	for cur != nil && cur.Inner != nil {
		cur = cur.Inner
	}
	return cur
}

// IsSimple reports whether the chain is a single bare property name.
func (l *Lexeme) IsSimple() bool {
	return l != nil && l.Inner == nil && !l.HasIndex() && !l.HasDictKey && l.Key != ""
}

// Keys returns the property names of the chain in order. Indexers
// contribute nothing.
func (l *Lexeme) Keys() []string {
	var out []string
	for cur := l; cur != nil; cur = cur.Inner {
		if cur.Key != "" {
			out = append(out, cur.Key)
		}
	}
	return out
}

// String renders the canonical form of the chain. Parse(l.String())
// yields a chain equal to l.
func (l *Lexeme) String() string {
	sb := internal.GetBuilder()
	defer internal.PutBuilder(sb)
	for cur := l; cur != nil; cur = cur.Inner {
		if cur.Key != "" {
			if cur != l {
				sb.WriteByte('.')
			}
			sb.WriteString(cur.Key)
		}
		if cur.HasIndex() {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(cur.Index))
			sb.WriteByte(']')
		}
		if cur.HasDictKey {
			sb.WriteByte('[')
			sb.WriteString(strconv.Quote(cur.DictKey))
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// Parse splits a path token into its chain of lexemes.
func Parse(path string) (*Lexeme, error) {
	src := strings.TrimSpace(path)
	if src == "" {
		return nil, &Error{Path: path, Pos: 0, Msg: "empty path"}
	}

	var nodes []*Lexeme
	i := 0
	for i < len(src) {
		start := i
		for i < len(src) && src[i] != '.' && src[i] != '[' {
			i++
		}
		name := strings.TrimSpace(src[start:i])
		if name == "" && (i >= len(src) || src[i] != '[') {
			return nil, &Error{Path: src, Pos: start, Msg: "empty segment"}
		}
		if strings.ContainsAny(name, " \t\"'") {
			return nil, &Error{Path: src, Pos: start, Msg: "invalid property name " + strconv.Quote(name)}
		}

		cur := &Lexeme{Key: name, Index: -1}
		nodes = append(nodes, cur)
		used := false
		for i < len(src) && src[i] == '[' {
			end, idx, key, isKey, err := bracket(src, i)
			if err != nil {
				return nil, err
			}
			if used {
				cur = &Lexeme{Index: -1}
				nodes = append(nodes, cur)
			}
			if isKey {
				cur.DictKey, cur.HasDictKey = key, true
			} else {
				cur.Index = idx
			}
			used = true
			i = end + 1
		}

		if i < len(src) {
			if src[i] != '.' {
				return nil, &Error{Path: src, Pos: i, Msg: "unexpected character " + strconv.QuoteRune(rune(src[i]))}
			}
			i++
			if i == len(src) {
				return nil, &Error{Path: src, Pos: i - 1, Msg: "trailing dot"}
			}
		}
	}

	for j := len(nodes) - 1; j > 0; j-- {
		nodes[j-1].Inner = nodes[j]
	}
	return nodes[0], nil
}

// MustParse is like Parse but panics on error.
func MustParse(path string) *Lexeme {
	l, err := Parse(path)
	if err != nil {
		panic(err)
	}
	return l
}

// bracket reads an indexer starting at src[open] == '['. It returns the
// position of the closing bracket.
func bracket(src string, open int) (end, idx int, key string, isKey bool, err error) {
	i := open + 1
	for i < len(src) && src[i] == ' ' {
		i++
	}
	if i >= len(src) {
		return 0, 0, "", false, &Error{Path: src, Pos: open, Msg: "unterminated bracket"}
	}

	if q := src[i]; q == '"' || q == '\'' {
		j := i + 1
		for j < len(src) && src[j] != q {
			if src[j] == '\\' && j+1 < len(src) {
				j++
			}
			j++
		}
		if j >= len(src) {
			return 0, 0, "", false, &Error{Path: src, Pos: i, Msg: "unterminated quote"}
		}
		key, uerr := unquoteKey(q, src[i+1:j])
		if uerr != nil {
			return 0, 0, "", false, &Error{Path: src, Pos: i, Msg: "bad escape in key"}
		}
		j++
		for j < len(src) && src[j] == ' ' {
			j++
		}
		if j >= len(src) || src[j] != ']' {
			return 0, 0, "", false, &Error{Path: src, Pos: open, Msg: "unterminated bracket"}
		}
		return j, -1, key, true, nil
	}

	rb := strings.IndexByte(src[i:], ']')
	if rb < 0 {
		return 0, 0, "", false, &Error{Path: src, Pos: open, Msg: "unterminated bracket"}
	}
	rb += i
	raw := strings.TrimSpace(src[i:rb])
	n, convErr := strconv.Atoi(raw)
	if convErr != nil {
		return 0, 0, "", false, &Error{Path: src, Pos: i, Msg: "index " + strconv.Quote(raw) + " is not an integer"}
	}
	if n < 0 {
		return 0, 0, "", false, &Error{Path: src, Pos: i, Msg: "negative index"}
	}
	return rb, n, "", false, nil
}

// unquoteKey decodes Go escapes in a quoted dictionary key. Single-quoted
// keys are rewritten to double-quoted form first.
func unquoteKey(q byte, body string) (string, error) {
	if q == '\'' {
		var sb strings.Builder
		for i := 0; i < len(body); i++ {
			switch c := body[i]; {
			case c == '\\' && i+1 < len(body) && body[i+1] == '\'':
				sb.WriteByte('\'')
				i++
			case c == '\\' && i+1 < len(body):
				sb.WriteByte(c)
				sb.WriteByte(body[i+1])
				i++
			case c == '"':
				sb.WriteString(`\"`)
			default:
				sb.WriteByte(c)
			}
		}
		body = sb.String()
	}
	return strconv.Unquote(`"` + body + `"`)
}
