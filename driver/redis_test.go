package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachable() *RedisConn {
	return NewRedisConn(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}))
}

func TestRedisConn_DoError(t *testing.T) {
	rc := unreachable()
	defer rc.Close()

	_, err := rc.Do(context.Background(), "PING")
	assert.Error(t, err)

	_, err = rc.Pipeline(context.Background(), [][]any{{"PING"}, {"PING"}})
	assert.Error(t, err)
}

func TestCollect(t *testing.T) {
	ok := redis.NewCmd(context.Background(), "GET", "a")
	ok.SetVal("1")
	bad := redis.NewCmd(context.Background(), "GET", "b")
	bad.SetErr(errors.New("boom"))

	out := Collect([]*redis.Cmd{ok, bad})
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0])
	assert.EqualError(t, out[1].(error), "boom")
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "FT.SEARCH idx * LIMIT 0 10", stringifyCmd([]any{"FT.SEARCH", []byte("idx"), "*", "LIMIT", 0, int64(10)}))
	assert.Equal(t, "1.5", ToString(1.5))
}

var (
	_ Executor  = (*RedisConn)(nil)
	_ Pipeliner = (*RedisConn)(nil)
)
