package condition

import (
	"errors"
	"fmt"
)

var (
	ErrMissingOpening = errors.New("missing opening bracket")
	ErrMissingClosing = errors.New("missing closing bracket")
	ErrBadTerm        = errors.New("malformed term")
	ErrBadOperand     = errors.New("malformed operand")
)

// ParseError is a structural error in an expression. Pos is the byte
// offset of the offending character within Expr.
type ParseError struct {
	Expr string
	Pos  int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("condition: %v at position %d in %q", e.Err, e.Pos, e.Expr)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(expr string, pos int, err error, detail string) *ParseError {
	if detail != "" {
		err = fmt.Errorf("%w: %s", err, detail)
	}
	return &ParseError{Expr: expr, Pos: pos, Err: err}
}
