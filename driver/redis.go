// Package driver is a thin shim over github.com/redis/go-redis/v9 that
// satisfies Executor and adds pipeline batching and OpenTelemetry spans.
//
// Usage:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	conn := driver.NewRedisConn(rdb)
//	repo := repository.New(conn, repository.WithIndex("order_idx"))
//	rows, _ := repo.Find(ctx, "status = 'PENDING'")
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Executor runs one raw Redis command.
type Executor interface {
	Do(ctx context.Context, args ...any) (any, error)
}

// Pipeliner is implemented by executors that can batch commands. Each
// result slot holds the reply or the per-command error.
type Pipeliner interface {
	Pipeline(ctx context.Context, cmds [][]any) ([]any, error)
}

// RedisConn implements Executor and Pipeliner on top of *redis.Client.
type RedisConn struct {
	client *redis.Client
}

// NewRedisConn wraps an existing go-redis client.
func NewRedisConn(c *redis.Client) *RedisConn { return &RedisConn{client: c} }

func (rc *RedisConn) Do(ctx context.Context, args ...any) (any, error) {
	ctx, span := otel.Tracer("pathquery.driver").Start(ctx, "redis.do")
	defer span.End()

	start := time.Now()
	res, err := rc.client.Do(ctx, args...).Result()
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("redis.cmd", stringifyCmd(args)),
		attribute.Float64("redis.duration_ms", float64(elapsed.Milliseconds())),
	)
	if err != nil && err != redis.Nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

// Close closes the underlying *redis.Client.
func (rc *RedisConn) Close() error { return rc.client.Close() }

// Pipeline executes a batch of commands in one round trip.
func (rc *RedisConn) Pipeline(ctx context.Context, cmds [][]any) ([]any, error) {
	ctx, span := otel.Tracer("pathquery.driver").Start(ctx, "redis.pipeline")
	defer span.End()
	span.SetAttributes(attribute.Int("redis.commands", len(cmds)))

	pipe := rc.client.Pipeline()
	results := make([]*redis.Cmd, len(cmds))
	for i, cmd := range cmds {
		results[i] = pipe.Do(ctx, cmd...)
	}
	// server replies such as WRONGTYPE stay in their result slot
	if _, err := pipe.Exec(ctx); err != nil && !isReplyErr(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return Collect(results), nil
}

// Collect turns finished pipeline commands into reply-or-error slots.
func Collect(results []*redis.Cmd) []any {
	out := make([]any, len(results))
	for i, r := range results {
		if err := r.Err(); err != nil {
			out[i] = err
		} else {
			out[i] = r.Val()
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// internal helpers
// ----------------------------------------------------------------------------

func isReplyErr(err error) bool {
	var rerr redis.Error
	return err == redis.Nil || errors.As(err, &rerr)
}

func stringifyCmd(args []any) string {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(ToString(a))
	}
	return sb.String()
}

// ToString renders a reply element as text.
func ToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
