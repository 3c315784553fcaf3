package compile

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrUnknownMember  = errors.New("unknown member")
	ErrNotIndexable   = errors.New("member is not indexable")
	ErrBadOperator    = errors.New("operator not supported for member type")
	ErrBadOperand     = errors.New("operand not convertible to member type")
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrDuplicateField = errors.New("duplicate output name")
	ErrNoFields       = errors.New("empty select list")
)

// Error is a resolution or compile failure. Nothing produced by a failed
// compile is ever cached.
type Error struct {
	Path string
	Type reflect.Type
	Err  error
}

func (e *Error) Error() string {
	if e.Type == nil {
		return fmt.Sprintf("compile: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("compile: %s on %s: %v", e.Path, e.Type, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(path string, t reflect.Type, err error, format string, args ...any) *Error {
	if format != "" {
		err = fmt.Errorf("%w: "+format, append([]any{err}, args...)...)
	}
	return &Error{Path: path, Type: t, Err: err}
}
