package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/parquet-go"
	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis serves SCAN in pages of two and HGETALL from hashes.
type fakeRedis struct {
	keys   []string
	hashes map[string][]any
	calls  int
}

func (f *fakeRedis) Do(_ context.Context, args ...any) (any, error) {
	f.calls++
	switch args[0] {
	case "SCAN":
		cur := int(args[1].(uint64))
		end := cur + 2
		next := fmt.Sprint(end)
		if end >= len(f.keys) {
			end, next = len(f.keys), "0"
		}
		page := make([]any, 0, 2)
		for _, k := range f.keys[cur:end] {
			page = append(page, k)
		}
		return []any{next, page}, nil
	case "HGETALL":
		if h, ok := f.hashes[args[1].(string)]; ok {
			return h, nil
		}
		return []any{}, nil
	}
	return nil, errors.New("unknown command")
}

type fakePipe struct {
	*fakeRedis
	batches int
}

func (f *fakePipe) Pipeline(ctx context.Context, cmds [][]any) ([]any, error) {
	f.batches++
	out := make([]any, len(cmds))
	for i, c := range cmds {
		out[i], _ = f.Do(ctx, c...)
	}
	return out, nil
}

func newFake() *fakeRedis {
	return &fakeRedis{
		keys: []string{"order:1", "order:2", "order:3", "order:2"},
		hashes: map[string][]any{
			"order:1": {"status", "paid", "total", "150"},
			"order:2": {"status", "new", "total", "20"},
		},
	}
}

func TestRedisHashes(t *testing.T) {
	f := newFake()
	rows, err := RedisHashes(context.Background(), f, "order:*")
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{"status": "paid", "total": "150", KeyField: "order:1"},
		{"status": "new", "total": "20", KeyField: "order:2"},
	}, rows)
}

func TestRedisHashes_Pipelined(t *testing.T) {
	p := &fakePipe{fakeRedis: newFake()}
	rows, err := RedisHashes(context.Background(), p, "order:*", WithBatch(2))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, p.batches) // three unique keys in chunks of two
}

func TestRedisHashes_MaxKeys(t *testing.T) {
	rows, err := RedisHashes(context.Background(), newFake(), "order:*", WithMaxKeys(1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "order:1", rows[0][KeyField])
}

func TestRedisHashes_BadReply(t *testing.T) {
	f := newFake()
	f.hashes["order:3"] = []any{"dangling"}
	_, err := RedisHashes(context.Background(), f, "order:*")
	assert.ErrorContains(t, err, "order:3")
}

func TestJSONLines(t *testing.T) {
	in := `{"id": 1, "customer": {"name": "ann"}, "tags": ["a"]}

{"id": 2.5, "active": true}
`
	rows, err := JSONLines(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{"id": 1.0, "customer": map[string]any{"name": "ann"}, "tags": []any{"a"}},
		{"id": 2.5, "active": true},
	}, rows)

	_, err = JSONLines(strings.NewReader("{\"a\": 1}\n{oops}\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = JSONLines(strings.NewReader("[1, 2]\n"))
	assert.ErrorContains(t, err, "want an object")
}

func TestParquet(t *testing.T) {
	type Row struct {
		ID   int64  `parquet:"id"`
		Name string `parquet:"name"`
	}
	path := filepath.Join(t.TempDir(), "rows.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[Row](f)
	_, err = w.Write([]Row{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	rows, err := Parquet(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 2, cast.ToInt64(rows[1]["id"]))
	assert.Equal(t, "Alice", cast.ToString(rows[0]["name"]))

	_, err = Parquet(filepath.Join(t.TempDir(), "missing.parquet"))
	assert.Error(t, err)
}
