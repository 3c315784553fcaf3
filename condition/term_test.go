package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTerm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPath string
		wantOp   Operator
		negate   bool
		kind     OperandKind
		value    any
	}{
		{"greater", "price > 100", "price", Gt, false, OperandNumber, int64(100)},
		{"no spaces", "price>=1.5", "price", GtOrEq, false, OperandNumber, 1.5},
		{"double equals", "n == -3", "n", EqEq, false, OperandNumber, int64(-3)},
		{"double quoted", `name = "bob \"b\""`, "name", Eq, false, OperandString, `bob "b"`},
		{"single quoted", `name = 'it''s'`, "", Undefined, false, 0, nil},
		{"bare word", "status = PENDING", "status", Eq, false, OperandString, "PENDING"},
		{"not equal", "status != 'x'", "status", Not, false, OperandString, "x"},
		{"angle not equal", "status <> 'x'", "status", Not, false, OperandString, "x"},
		{"keyword not", "status NOT 'x'", "status", Not, false, OperandString, "x"},
		{"is null", "owner IS NULL", "owner", Is, false, OperandNull, nil},
		{"is not null", "owner is not null", "owner", Is, true, OperandNull, nil},
		{"is bool", "flag IS true", "flag", Is, false, OperandBool, true},
		{"dict key path", `balances["USD"].total < 5`, `balances["USD"].total`, Lt, false, OperandNumber, int64(5)},
		{"index path", "items[2] <= 7", "items[2]", LtOrEq, false, OperandNumber, int64(7)},
		{"bare truthiness", "active", "active", Undefined, false, OperandNone, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, err := ParseTerm(tt.input)
			if tt.wantPath == "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrBadOperand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, term.Path.String())
			assert.Equal(t, tt.wantOp, term.Op)
			assert.Equal(t, tt.negate, term.Negate)
			assert.Equal(t, tt.kind, term.Operand.Kind)
			assert.Equal(t, tt.value, term.Operand.Value)
		})
	}
}

func TestParseTerm_Lists(t *testing.T) {
	term, err := ParseTerm("id IN (1, 'two', 3.5)")
	require.NoError(t, err)
	assert.Equal(t, In, term.Op)
	assert.Equal(t, []any{int64(1), "two", 3.5}, term.Operand.Values())

	term, err = ParseTerm("id NOT IN [4]")
	require.NoError(t, err)
	assert.True(t, term.Negate)
	assert.Equal(t, []any{int64(4)}, term.Operand.Values())

	term, err = ParseTerm("qty BETWEEN 1 AND 9")
	require.NoError(t, err)
	assert.Equal(t, Between, term.Op)
	assert.Equal(t, []any{int64(1), int64(9)}, term.Operand.Values())

	term, err = ParseTerm("qty BETWEEN [2, 3]")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3)}, term.Operand.Values())

	term, err = ParseTerm("id IN 5")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(5)}, term.Operand.Values())
}

func TestParseTerm_Errors(t *testing.T) {
	tests := []struct {
		input string
		err   error
	}{
		{"", ErrBadTerm},
		{"a LIKE 'x'", ErrBadTerm},
		{"a => 5", ErrBadOperand},
		{"a =", ErrBadOperand},
		{"a BETWEEN 1", ErrBadOperand},
		{"a BETWEEN [1, 2, 3]", ErrBadOperand},
		{"a = [1, 2]", ErrBadOperand},
		{"a IS []", ErrBadOperand},
		{"a IS [1, 2]", ErrBadOperand},
		{`a = "open`, ErrBadOperand},
		{"a..b = 1", ErrBadTerm},
		{"a[x] = 1", ErrBadTerm},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseTerm(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestTerm_String(t *testing.T) {
	tests := map[string]string{
		"a>1":                   "a > 1",
		"a IS NOT null":         "a IS NOT NULL",
		"a not in (1,2)":        "a NOT IN [1, 2]",
		`m['k'] = x`:            `m["k"] = "x"`,
		"qty BETWEEN 1 AND 2.5": "qty BETWEEN [1, 2.5]",
		"flag":                  "flag",
	}
	for in, want := range tests {
		term, err := ParseTerm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, term.String())
	}
}
