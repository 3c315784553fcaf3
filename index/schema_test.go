package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type OrderLine struct {
	ID      string    `pq:"order_id,SORTABLE"`
	Status  string    `pq:"status"`
	Qty     int       `pq:"qty,SORTABLE"`
	Total   float64   `pq:"total"`
	Rush    bool      `pq:"rush"`
	Notes   string    `pq:"notes,TEXT,NOSTEM"`
	Secret  string    `pq:"-"`
	Created time.Time `pq:"created"`
	Tags    []string  `pq:"tags"`
	Region  string
	hidden  int
}

func TestBuildSchema(t *testing.T) {
	schema, err := BuildSchema(&OrderLine{}, "pq")
	require.NoError(t, err)
	assert.Equal(t, []any{
		"order_id", "TAG", "CASESENSITIVE", "SORTABLE",
		"status", "TAG", "CASESENSITIVE",
		"qty", "NUMERIC", "SORTABLE",
		"total", "NUMERIC",
		"rush", "TAG", "CASESENSITIVE",
		"notes", "TEXT", "NOSTEM",
		"Region", "TAG", "CASESENSITIVE",
	}, schema)

	_, err = BuildSchema(struct{ M map[string]int }{}, "pq")
	assert.ErrorIs(t, err, ErrNoFields)

	_, err = BuildSchema(42, "pq")
	assert.Error(t, err)
}

func TestCreateArgs(t *testing.T) {
	args, err := CreateArgs(OrderLine{}, WithPrefixes("order:"), WithStopwords("a"))
	require.NoError(t, err)
	assert.Equal(t, []any{"FT.CREATE", "order_line_idx", "ON", "HASH", "PREFIX", 1, "order:", "STOPWORDS", 1, "a", "SCHEMA"}, args[:11])

	args, err = CreateArgs(OrderLine{}, WithName("orders"))
	require.NoError(t, err)
	assert.Equal(t, "orders", args[1])
}

type stubExec struct {
	err  error
	args []any
}

func (s *stubExec) Do(_ context.Context, args ...any) (any, error) {
	s.args = args
	return "OK", s.err
}

func TestAutoCreate(t *testing.T) {
	ex := &stubExec{}
	require.NoError(t, AutoCreate(context.Background(), ex, OrderLine{}))
	assert.Equal(t, "FT.CREATE", ex.args[0])

	ex.err = errors.New("Index already exists")
	assert.NoError(t, AutoCreate(context.Background(), ex, OrderLine{}))

	ex.err = errors.New("ERR syntax")
	assert.Error(t, AutoCreate(context.Background(), ex, OrderLine{}))
}
