package condition

import (
	"strconv"
	"strings"
)

// placeholder prefix for flattened bracket groups: @C0, @C1, ...
const groupPrefix = "@C"

// Parse builds a condition tree from expr.
//
// Grouping parentheses are resolved first; parentheses inside a quoted
// literal or a square-bracket indexer are left alone. Each top-level group
// is swapped for a placeholder, the flattened text is split on OR and then
// on AND, and placeholders are expanded depth-first into sub-trees.
//
// AND / OR are case-sensitive, whitespace-delimited words. Splitting skips
// quoted literals, so `name = "SALT AND PEPPER"` stays a single term.
// An AND that closes a `BETWEEN lo AND hi` range is not a split point.
func Parse(expr string) (Condition, error) {
	p := &parser{src: expr, groups: make(map[string]string)}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p.expr(expr), nil
}

// MustParse is like Parse but panics on error.
func MustParse(expr string) Condition {
	c, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return c
}

type parser struct {
	src    string
	groups map[string]string // placeholder → inner text
	seq    int
}

// check validates bracket balance over the whole input so that error
// positions refer to the original expression.
func (p *parser) check() error {
	var stack []int
	sc := scanner{}
	for i := 0; i < len(p.src); i++ {
		switch sc.step(p.src, i) {
		case '(':
			stack = append(stack, i)
		case ')':
			if len(stack) == 0 {
				return parseErr(p.src, i, ErrMissingOpening, "")
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return parseErr(p.src, stack[0], ErrMissingClosing, "")
	}
	return nil
}

func (p *parser) expr(s string) Condition {
	s = strings.TrimSpace(s)
	if s == "" {
		return Empty
	}
	if strings.ContainsAny(s, "()") {
		s = p.flatten(s)
	}
	return p.simple(s)
}

// flatten replaces every top-level (...) span of s with a placeholder.
// s is known to be balanced.
func (p *parser) flatten(s string) string {
	var (
		sb    strings.Builder
		depth int
		open  int
		last  int
	)
	sc := scanner{}
	for i := 0; i < len(s); i++ {
		switch sc.step(s, i) {
		case '(':
			if depth == 0 {
				open = i
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				sb.WriteString(s[last:open])
				sb.WriteString(p.add(s[open+1 : i]))
				last = i + 1
			}
		}
	}
	sb.WriteString(s[last:])
	return sb.String()
}

func (p *parser) add(inner string) string {
	key := groupPrefix + strconv.Itoa(p.seq)
	p.seq++
	p.groups[key] = inner
	return key
}

func (p *parser) simple(s string) Condition {
	ors := splitWord(s, "OR")
	if len(ors) == 1 {
		return p.conjunction(ors[0])
	}
	parts := make([]Condition, 0, len(ors))
	for _, frag := range ors {
		parts = append(parts, p.conjunction(frag))
	}
	return Join(Or, parts...)
}

func (p *parser) conjunction(s string) Condition {
	ands := rejoinBetween(splitWord(s, "AND"))
	parts := make([]Condition, 0, len(ands))
	for _, tok := range ands {
		parts = append(parts, p.resolve(tok))
	}
	return Join(And, parts...)
}

// resolve expands a token that is exactly one placeholder into its
// sub-tree; any other token becomes a leaf with its groups restored.
func (p *parser) resolve(tok string) Condition {
	tok = strings.TrimSpace(tok)
	if inner, ok := p.groups[tok]; ok {
		return p.expr(inner)
	}
	return NewLeaf(p.restore(tok))
}

// restore puts back the literal "(inner)" text of every placeholder in tok.
func (p *parser) restore(tok string) string {
	if !strings.Contains(tok, groupPrefix) {
		return tok
	}
	var sb strings.Builder
	for i := 0; i < len(tok); {
		if strings.HasPrefix(tok[i:], groupPrefix) {
			j := i + len(groupPrefix)
			for j < len(tok) && tok[j] >= '0' && tok[j] <= '9' {
				j++
			}
			if inner, ok := p.groups[tok[i:j]]; ok && j > i+len(groupPrefix) {
				sb.WriteByte('(')
				sb.WriteString(inner)
				sb.WriteByte(')')
				i = j
				continue
			}
		}
		sb.WriteByte(tok[i])
		i++
	}
	return sb.String()
}

/*───────────────────────────────
|  Lexical helpers               |
└───────────────────────────────*/

// scanner tracks whether a position sits inside a quoted literal or a
// square-bracket indexer.
type scanner struct {
	quote   byte
	bracket bool
	escaped bool
}

// step advances over s[i] and returns it when it is structurally
// significant ('(' or ')' outside literals and indexers), 0 otherwise.
func (sc *scanner) step(s string, i int) byte {
	c := s[i]
	switch {
	case sc.quote != 0:
		switch {
		case sc.escaped:
			sc.escaped = false
		case c == '\\':
			sc.escaped = true
		case c == sc.quote:
			sc.quote = 0
		}
	case c == '"' || c == '\'':
		sc.quote = c
	case sc.bracket:
		if c == ']' {
			sc.bracket = false
		}
	case c == '[':
		sc.bracket = true
	case c == '(' || c == ')':
		return c
	}
	return 0
}

// literal reports whether the scanner is currently inside a quote or an
// indexer.
func (sc *scanner) literal() bool { return sc.quote != 0 || sc.bracket }

// splitWord splits s on every whitespace-delimited occurrence of word
// that is not inside a quoted literal or indexer. Blank fragments are
// dropped.
func splitWord(s, word string) []string {
	var out []string
	sc := scanner{}
	last := 0
	for i := 0; i < len(s); i++ {
		if !sc.literal() && isWordAt(s, i, word) {
			out = appendFrag(out, s[last:i])
			i += len(word) - 1
			last = i + 1
			continue
		}
		sc.step(s, i)
	}
	return appendFrag(out, s[last:])
}

func isWordAt(s string, i int, word string) bool {
	if !strings.HasPrefix(s[i:], word) {
		return false
	}
	if i > 0 && !isSpace(s[i-1]) {
		return false
	}
	end := i + len(word)
	return end == len(s) || isSpace(s[end])
}

func isWordFold(s string, i int, word string) bool {
	end := i + len(word)
	if end > len(s) || !strings.EqualFold(s[i:end], word) {
		return false
	}
	if i > 0 && !isSpace(s[i-1]) {
		return false
	}
	return end == len(s) || isSpace(s[end])
}

func appendFrag(out []string, frag string) []string {
	if f := strings.TrimSpace(frag); f != "" {
		out = append(out, f)
	}
	return out
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// rejoinBetween glues `x BETWEEN lo` and `hi` back together after an AND
// split. Range forms `BETWEEN [lo, hi]` and `BETWEEN (lo, hi)` are left
// as they are.
func rejoinBetween(parts []string) []string {
	out := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		cur := parts[i]
		if i+1 < len(parts) && danglingBetween(cur) {
			cur = cur + " AND " + parts[i+1]
			i++
		}
		out = append(out, cur)
	}
	return out
}

func danglingBetween(s string) bool {
	idx := lastWord(s, "BETWEEN")
	if idx < 0 {
		return false
	}
	rest := strings.TrimSpace(s[idx+len("BETWEEN"):])
	return rest != "" && rest[0] != '[' && !strings.HasPrefix(rest, groupPrefix)
}

// lastWord returns the index of the last whitespace-delimited,
// case-insensitive occurrence of word outside literals, or -1.
func lastWord(s, word string) int {
	found := -1
	sc := scanner{}
	for i := 0; i < len(s); i++ {
		if !sc.literal() && isWordFold(s, i, word) {
			found = i
		}
		sc.step(s, i)
	}
	return found
}
