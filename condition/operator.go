package condition

import "strings"

// Operator covers both the logical combinators and the comparison operators
// that may appear inside a leaf term.
type Operator int

const (
	Undefined Operator = iota
	And
	Or
	Gt
	Lt
	Eq
	EqEq
	GtOrEq
	LtOrEq
	Not
	Is
	In
	Between
)

var opSymbols = [...]string{
	Undefined: "",
	And:       "AND",
	Or:        "OR",
	Gt:        ">",
	Lt:        "<",
	Eq:        "=",
	EqEq:      "==",
	GtOrEq:    ">=",
	LtOrEq:    "<=",
	Not:       "NOT",
	Is:        "IS",
	In:        "IN",
	Between:   "BETWEEN",
}

// ParseOperator maps a symbol to its Operator. Keywords are matched
// case-insensitively; anything unknown is Undefined.
func ParseOperator(s string) Operator {
	s = strings.TrimSpace(s)
	switch s {
	case "!=", "<>":
		return Not
	case "":
		return Undefined
	}
	for op, sym := range opSymbols {
		if sym != "" && strings.EqualFold(sym, s) {
			return Operator(op)
		}
	}
	return Undefined
}

func (o Operator) String() string {
	if o < 0 || int(o) >= len(opSymbols) {
		return ""
	}
	return opSymbols[o]
}

// IsLogical reports whether o combines sub-conditions.
func (o Operator) IsLogical() bool { return o == And || o == Or }

// IsOrdering reports whether o needs an ordered comparison.
func (o Operator) IsOrdering() bool {
	switch o {
	case Gt, Lt, GtOrEq, LtOrEq, Between:
		return true
	}
	return false
}
