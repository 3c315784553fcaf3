package repository

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manojoshi/pathquery/compile"
	"github.com/manojoshi/pathquery/source"
)

// fakeRedis answers FT.SEARCH with every order, SCAN in a single page and
// HGETALL from hashes. It records the commands it saw.
type fakeRedis struct {
	hashes map[string][]any
	order  []string
	seen   []string
}

func newFake() *fakeRedis {
	return &fakeRedis{
		order: []string{"order:1", "order:2", "order:3"},
		hashes: map[string][]any{
			"order:1": {"order_id", "1", "status", "PENDING", "qty", "2"},
			"order:2": {"order_id", "2", "status", "PENDING", "qty", "1"},
			"order:3": {"order_id", "3", "status", "SHIPPED", "qty", "5"},
		},
	}
}

func (f *fakeRedis) Do(_ context.Context, args ...any) (any, error) {
	cmd := args[0].(string)
	f.seen = append(f.seen, cmd)
	switch cmd {
	case "FT.SEARCH":
		// a real server would narrow the hits further; the repo filters
		// again. Hashes lacking a queried field are never indexed for it.
		reply := []any{int64(0)}
		for _, k := range f.order {
			if f.indexed(k, args[2].(string)) {
				reply = append(reply, k, f.hashes[k])
			}
		}
		reply[0] = int64((len(reply) - 1) / 2)
		return reply, nil
	case "SCAN":
		page := make([]any, len(f.order))
		for i, k := range f.order {
			page[i] = k
		}
		return []any{"0", page}, nil
	case "HGETALL":
		return f.hashes[args[1].(string)], nil
	case "FT.DROPINDEX":
		return nil, errors.New("Unknown Index name")
	}
	return "OK", nil
}

var queriedField = regexp.MustCompile(`@(\w+):`)

func (f *fakeRedis) indexed(key, query string) bool {
	fields := map[string]bool{}
	h := f.hashes[key]
	for i := 0; i+1 < len(h); i += 2 {
		fields[h[i].(string)] = true
	}
	for _, m := range queriedField.FindAllStringSubmatch(positive(query), -1) {
		if !fields[m[1]] {
			return false
		}
	}
	return true
}

// positive drops negated groups: a hash lacking the field matches -(...).
func positive(query string) string {
	var sb strings.Builder
	depth := 0
	for i := 0; i < len(query); i++ {
		switch {
		case depth == 0 && strings.HasPrefix(query[i:], "-("):
			depth = 1
			i++
		case depth > 0 && query[i] == '(':
			depth++
		case depth > 0 && query[i] == ')':
			depth--
		case depth == 0:
			sb.WriteByte(query[i])
		}
	}
	return sb.String()
}

func TestFind_Pushdown(t *testing.T) {
	f := newFake()
	repo := New(f, WithIndex("order_idx"), WithPrefix("order:"))

	rows, err := repo.Find(context.Background(), "status = 'PENDING' AND qty > 1", "order_id", "qty")
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"order_id": "1", "qty": "2"}}, rows)
	assert.Equal(t, []string{"FT.SEARCH"}, f.seen)
}

func TestFind_FallbackScan(t *testing.T) {
	f := newFake()
	var buf bytes.Buffer
	repo := New(f,
		WithIndex("order_idx"),
		WithPrefix("order:"),
		WithLogger(zerolog.New(&buf)),
	)

	// IS NOT NULL cannot be expressed in RediSearch
	rows, err := repo.Find(context.Background(), "status IS NOT NULL AND qty >= 2", "order_id")
	require.NoError(t, err)
	assert.Equal(t, []any{"1", "3"}, rows)
	assert.NotContains(t, f.seen, "FT.SEARCH")
	assert.Contains(t, buf.String(), "pushdown unsupported")
}

func TestFind_PushdownMatchesScan(t *testing.T) {
	f := newFake()
	f.order = append(f.order, "order:4")
	f.hashes["order:4"] = []any{"order_id", "4", "status", "NEW"}

	pushed := New(f, WithIndex("order_idx"), WithPrefix("order:"))
	scanned := New(f, WithPrefix("order:"))
	for _, where := range []string{
		"qty < 5",
		"qty = 0",
		"qty != 2",
		"qty > 1",
		"qty BETWEEN 1 AND 2",
		"status = 'PENDING'",
		"status != 'PENDING'",
		"status IN ('NEW', 'SHIPPED') AND qty <= 5",
	} {
		want, err := scanned.Find(context.Background(), where, "order_id")
		require.NoError(t, err, where)
		got, err := pushed.Find(context.Background(), where, "order_id")
		require.NoError(t, err, where)
		assert.Equal(t, want, got, where)
	}

	rows, err := pushed.Find(context.Background(), "qty < 5", "order_id")
	require.NoError(t, err)
	assert.Equal(t, []any{"1", "2", "4"}, rows)
}

func TestFind_NoIndex(t *testing.T) {
	f := newFake()
	repo := New(f, WithPrefix("order:"))

	rows, err := repo.Find(context.Background(), "status = 'SHIPPED'")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	rec := rows[0].(source.Record)
	assert.Equal(t, "3", rec["order_id"])
	assert.Equal(t, "order:3", rec[source.KeyField])
	assert.Equal(t, "SCAN", f.seen[0])
}

func TestFind_WithoutPushdown(t *testing.T) {
	f := newFake()
	repo := New(f, WithIndex("order_idx"), WithoutPushdown())
	rows, err := repo.Find(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.NotContains(t, f.seen, "FT.SEARCH")
}

func TestFind_Errors(t *testing.T) {
	repo := New(newFake())
	_, err := repo.Find(context.Background(), "(status = 'x'")
	assert.Error(t, err)

	_, err = repo.Find(context.Background(), "a = 1", "a AS x, b AS x")
	assert.ErrorIs(t, err, compile.ErrDuplicateField)
}

type Order struct {
	ID  string `pq:"order_id"`
	Qty int    `pq:"qty"`
}

func TestIndexAdmin(t *testing.T) {
	f := newFake()
	assert.Error(t, New(f).EnsureIndex(context.Background(), Order{}))

	repo := New(f, WithIndex("order_idx"), WithPrefix("order:"))
	require.NoError(t, repo.EnsureIndex(context.Background(), Order{}))
	assert.Equal(t, "FT.CREATE", f.seen[len(f.seen)-1])

	assert.NoError(t, repo.DropIndex(context.Background()))
}
