// Package condition parses filter strings into boolean condition trees.
//
//	c, err := condition.Parse(`(status = "PENDING" AND qty > 3) OR priority IS NOT NULL`)
//	// c.String() == `((status = "PENDING" AND qty > 3) OR priority IS NOT NULL)`
//
// A tree is built from three node shapes: a Leaf holding the raw text of one
// comparison term, a Binary node and a Multi node. Trees are immutable once
// built and carry no back-references, so they may be shared freely.
package condition

import (
	"strings"

	"github.com/manojoshi/pathquery/internal"
)

// Kind identifies the shape of a Condition node.
type Kind int

const (
	KindEmpty Kind = iota
	KindLeaf
	KindBinary
	KindMulti
)

// Condition is a node of a parsed boolean expression.
type Condition interface {
	Kind() Kind
	// String renders a parenthesised form that Parse accepts again.
	String() string
	write(sb *strings.Builder)
}

// -------------------------------------------------------------------
// node types
// -------------------------------------------------------------------

type empty struct{}

// Empty is the "no condition" sentinel. Join drops it.
var Empty Condition = empty{}

func (empty) Kind() Kind                { return KindEmpty }
func (empty) String() string            { return "" }
func (empty) write(sb *strings.Builder) {}

// Leaf holds the trimmed text of a single comparison term.
type Leaf struct{ text string }

// NewLeaf trims text and wraps it. Blank text yields Empty.
func NewLeaf(text string) Condition {
	t := strings.TrimSpace(text)
	if t == "" {
		return Empty
	}
	return &Leaf{text: t}
}

func (l *Leaf) Text() string              { return l.text }
func (l *Leaf) Kind() Kind                { return KindLeaf }
func (l *Leaf) String() string            { return l.text }
func (l *Leaf) write(sb *strings.Builder) { sb.WriteString(l.text) }

// Term parses the leaf text into a comparison term.
func (l *Leaf) Term() (*Term, error) { return ParseTerm(l.text) }

// Binary joins exactly two conditions with a logical operator.
type Binary struct {
	Left  Condition
	Op    Operator
	Right Condition
}

func (b *Binary) Kind() Kind     { return KindBinary }
func (b *Binary) String() string { return render(b) }
func (b *Binary) write(sb *strings.Builder) {
	sb.WriteByte('(')
	b.Left.write(sb)
	sb.WriteByte(' ')
	sb.WriteString(b.Op.String())
	sb.WriteByte(' ')
	b.Right.write(sb)
	sb.WriteByte(')')
}

// Multi joins three or more conditions with one logical operator.
type Multi struct {
	Op    Operator
	Items []Condition
}

func (m *Multi) Kind() Kind     { return KindMulti }
func (m *Multi) String() string { return render(m) }
func (m *Multi) write(sb *strings.Builder) {
	sb.WriteByte('(')
	for i, it := range m.Items {
		if i > 0 {
			sb.WriteByte(' ')
			sb.WriteString(m.Op.String())
			sb.WriteByte(' ')
		}
		it.write(sb)
	}
	sb.WriteByte(')')
}

func render(c Condition) string {
	sb := internal.GetBuilder()
	defer internal.PutBuilder(sb)
	c.write(sb)
	return sb.String()
}

// -------------------------------------------------------------------
// combination
// -------------------------------------------------------------------

// IsEmpty reports whether c is nil or the Empty sentinel.
func IsEmpty(c Condition) bool { return c == nil || c == Empty }

// Join combines parts with op. Empty parts are discarded first; a single
// survivor is returned unwrapped, two become a Binary and more a Multi.
func Join(op Operator, parts ...Condition) Condition {
	kept := internal.Filter(parts, func(c Condition) bool { return !IsEmpty(c) })
	switch len(kept) {
	case 0:
		return Empty
	case 1:
		return kept[0]
	case 2:
		return &Binary{Left: kept[0], Op: op, Right: kept[1]}
	default:
		return &Multi{Op: op, Items: kept}
	}
}

// AndOf is shorthand for Join(And, parts...).
func AndOf(parts ...Condition) Condition { return Join(And, parts...) }

// OrOf is shorthand for Join(Or, parts...).
func OrOf(parts ...Condition) Condition { return Join(Or, parts...) }

// Equal reports whether a and b have the same shape, operators and leaf
// text.
func Equal(a, b Condition) bool {
	if IsEmpty(a) || IsEmpty(b) {
		return IsEmpty(a) && IsEmpty(b)
	}
	switch x := a.(type) {
	case *Leaf:
		y, ok := b.(*Leaf)
		return ok && x.text == y.text
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Multi:
		y, ok := b.(*Multi)
		if !ok || x.Op != y.Op || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Walk calls fn for every leaf in left-to-right order and stops at the
// first error.
func Walk(c Condition, fn func(*Leaf) error) error {
	switch n := c.(type) {
	case *Leaf:
		return fn(n)
	case *Binary:
		if err := Walk(n.Left, fn); err != nil {
			return err
		}
		return Walk(n.Right, fn)
	case *Multi:
		for _, it := range n.Items {
			if err := Walk(it, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Children returns the direct sub-conditions of a logical node and its
// operator. Leaves and Empty return (nil, Undefined).
func Children(c Condition) ([]Condition, Operator) {
	switch n := c.(type) {
	case *Binary:
		return []Condition{n.Left, n.Right}, n.Op
	case *Multi:
		return n.Items, n.Op
	}
	return nil, Undefined
}
