package condition

import (
	"strconv"
	"strings"

	"github.com/manojoshi/pathquery/internal"
	"github.com/manojoshi/pathquery/lexeme"
)

// OperandKind tags the literal on the right-hand side of a term.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandString
	OperandNumber
	OperandBool
	OperandNull
	OperandList
)

// Operand is a parsed literal. Numbers are int64 when they fit, float64
// otherwise.
type Operand struct {
	Kind  OperandKind
	Value any
	List  []Operand
}

// Values flattens a list operand into its raw values. A scalar yields a
// one-element slice.
func (o Operand) Values() []any {
	if o.Kind != OperandList {
		return []any{o.Value}
	}
	return internal.Map(o.List, func(x Operand) any { return x.Value })
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandString:
		return strconv.Quote(o.Value.(string))
	case OperandNull:
		return "NULL"
	case OperandBool:
		return strconv.FormatBool(o.Value.(bool))
	case OperandNumber:
		return internal.FormatNumber(o.Value)
	case OperandList:
		parts := internal.Map(o.List, Operand.String)
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// Term is a leaf condition broken into path, operator and operand.
//
// A bare path (`active`) has Op == Undefined and tests the member for a
// non-zero value. Negate flips the outcome of IS and IN.
type Term struct {
	Text    string
	Path    *lexeme.Lexeme
	Op      Operator
	Negate  bool
	Operand Operand
}

// String renders the canonical form of the term.
func (t *Term) String() string {
	if t.Op == Undefined {
		return t.Path.String()
	}
	op := t.Op.String()
	if t.Negate {
		switch t.Op {
		case Is:
			op = "IS NOT"
		case In:
			op = "NOT IN"
		}
	}
	return t.Path.String() + " " + op + " " + t.Operand.String()
}

// ParseTerm parses the text of a single comparison:
//
//	price > 100          name = "bob"        tags[0] != 'x'
//	deleted IS NULL      owner IS NOT NULL   flag IS true
//	id IN (1, 2, 3)      id NOT IN [4, 5]    qty BETWEEN 1 AND 9
//	active
func ParseTerm(text string) (*Term, error) {
	src := strings.TrimSpace(text)
	if src == "" {
		return nil, parseErr(text, 0, ErrBadTerm, "empty term")
	}

	pathEnd := pathExtent(src)
	path, err := lexeme.Parse(src[:pathEnd])
	if err != nil {
		return nil, parseErr(src, 0, ErrBadTerm, err.Error())
	}
	t := &Term{Text: src, Path: path}

	restAt := skipSpace(src, pathEnd)
	if restAt == len(src) {
		return t, nil
	}

	op, negate, width := readOperator(src[restAt:])
	if op == Undefined {
		return nil, parseErr(src, restAt, ErrBadTerm, "unknown operator")
	}
	t.Op, t.Negate = op, negate

	valAt := skipSpace(src, restAt+width)
	raw := strings.TrimSpace(src[valAt:])
	if raw == "" {
		return nil, parseErr(src, valAt, ErrBadOperand, "missing operand")
	}

	switch op {
	case In:
		t.Operand, err = parseList(raw)
	case Between:
		t.Operand, err = parseRange(raw)
	default:
		t.Operand, err = parseLiteral(raw)
		if err == nil && t.Operand.Kind == OperandList {
			err = errBadOperand("list operand needs IN or BETWEEN")
		}
	}
	if err != nil {
		return nil, parseErr(src, valAt, ErrBadOperand, err.Error())
	}
	return t, nil
}

// pathExtent returns the end of the leading path token: it stops at
// whitespace or an operator character outside an indexer.
func pathExtent(s string) int {
	sc := scanner{}
	for i := 0; i < len(s); i++ {
		if !sc.literal() && (isSpace(s[i]) || strings.IndexByte("<>=!", s[i]) >= 0) {
			return i
		}
		sc.step(s, i)
	}
	return len(s)
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

// readOperator recognises the operator at the start of s and returns how
// many bytes it spans.
func readOperator(s string) (op Operator, negate bool, width int) {
	for _, sym := range []string{">=", "<=", "==", "!=", "<>"} {
		if strings.HasPrefix(s, sym) {
			return ParseOperator(sym), false, 2
		}
	}
	switch s[0] {
	case '>':
		return Gt, false, 1
	case '<':
		return Lt, false, 1
	case '=':
		return Eq, false, 1
	}

	first, n := word(s, 0)
	switch strings.ToUpper(first) {
	case "IS":
		if next, m := word(s, skipSpace(s, n)); strings.EqualFold(next, "NOT") {
			return Is, true, m
		}
		return Is, false, n
	case "NOT":
		if next, m := word(s, skipSpace(s, n)); strings.EqualFold(next, "IN") {
			return In, true, m
		}
		return Not, false, n
	case "IN":
		return In, false, n
	case "BETWEEN":
		return Between, false, n
	}
	return Undefined, false, 0
}

// word reads the run of letters starting at i and returns it with the
// index just past it.
func word(s string, i int) (string, int) {
	j := i
	for j < len(s) && (s[j] >= 'a' && s[j] <= 'z' || s[j] >= 'A' && s[j] <= 'Z') {
		j++
	}
	return s[i:j], j
}

type operandError string

func (e operandError) Error() string { return string(e) }

func errBadOperand(msg string) error { return operandError(msg) }

func parseList(raw string) (Operand, error) {
	op, err := parseLiteral(raw)
	if err != nil {
		return Operand{}, err
	}
	if op.Kind != OperandList {
		return Operand{Kind: OperandList, List: []Operand{op}}, nil
	}
	return op, nil
}

func parseRange(raw string) (Operand, error) {
	if raw[0] == '[' || raw[0] == '(' {
		op, err := parseLiteral(raw)
		if err != nil {
			return Operand{}, err
		}
		if len(op.List) != 2 {
			return Operand{}, errBadOperand("BETWEEN needs exactly two bounds")
		}
		return op, nil
	}
	idx := lastWord(raw, "AND")
	if idx < 0 {
		return Operand{}, errBadOperand("BETWEEN needs lo AND hi")
	}
	lo, err := parseLiteral(strings.TrimSpace(raw[:idx]))
	if err != nil {
		return Operand{}, err
	}
	hi, err := parseLiteral(strings.TrimSpace(raw[idx+len("AND"):]))
	if err != nil {
		return Operand{}, err
	}
	return Operand{Kind: OperandList, List: []Operand{lo, hi}}, nil
}

func parseLiteral(raw string) (Operand, error) {
	if raw == "" {
		return Operand{}, errBadOperand("empty literal")
	}
	switch raw[0] {
	case '"', '\'':
		s, err := unquote(raw)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: OperandString, Value: s}, nil
	case '[', '(':
		closer := byte(']')
		if raw[0] == '(' {
			closer = ')'
		}
		if raw[len(raw)-1] != closer {
			return Operand{}, errBadOperand("unterminated list")
		}
		var items []Operand
		for _, part := range splitList(raw[1 : len(raw)-1]) {
			it, err := parseLiteral(part)
			if err != nil {
				return Operand{}, err
			}
			if it.Kind == OperandList {
				return Operand{}, errBadOperand("nested list")
			}
			items = append(items, it)
		}
		return Operand{Kind: OperandList, List: items}, nil
	}

	switch strings.ToLower(raw) {
	case "null", "nil":
		return Operand{Kind: OperandNull}, nil
	case "true", "false":
		return Operand{Kind: OperandBool, Value: strings.EqualFold(raw, "true")}, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Operand{Kind: OperandNumber, Value: n}, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Operand{Kind: OperandNumber, Value: f}, nil
	}
	if !isBareWord(raw) {
		return Operand{}, errBadOperand("unexpected literal " + strconv.Quote(raw))
	}
	return Operand{Kind: OperandString, Value: raw}, nil
}

// isBareWord accepts unquoted string literals such as PENDING or
// 2024-01-02T10:00:00Z.
func isBareWord(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '-' || c == '.' || c == ':' || c == '+' || c == '/' || c == '@':
		default:
			return false
		}
	}
	return true
}

func unquote(raw string) (string, error) {
	q := raw[0]
	if len(raw) < 2 || raw[len(raw)-1] != q {
		return "", errBadOperand("unterminated quote")
	}
	var sb strings.Builder
	body := raw[1 : len(raw)-1]
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			c = body[i]
		} else if c == q {
			return "", errBadOperand("unescaped quote inside literal")
		}
		sb.WriteByte(c)
	}
	return sb.String(), nil
}

// splitList splits on commas outside quotes.
func splitList(s string) []string {
	var out []string
	sc := scanner{}
	last := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && !sc.literal() {
			out = appendFrag(out, s[last:i])
			last = i + 1
			continue
		}
		sc.step(s, i)
	}
	return appendFrag(out, s[last:])
}
