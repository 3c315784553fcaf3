// Package source loads records for the engine to filter: Redis hashes,
// Parquet files and JSON lines. Every loader yields []Record.
package source

import (
	"context"
	"fmt"

	"github.com/manojoshi/pathquery/driver"
	"github.com/manojoshi/pathquery/internal"
	"github.com/manojoshi/pathquery/scan"
)

// Record is one loaded row. Values keep their dynamic type so the engine
// compares them through the dynamic path.
type Record = map[string]any

// KeyField holds the Redis key of a record loaded by RedisHashes.
const KeyField = "_key"

// DefaultBatch is the SCAN COUNT hint and the HGETALL pipeline size.
const DefaultBatch = 500

type hashCfg struct {
	batch int
	limit int
}

// HashOption tunes RedisHashes.
type HashOption func(*hashCfg)

func WithBatch(n int) HashOption { return func(c *hashCfg) { c.batch = n } }

// WithMaxKeys stops scanning once n keys were collected (0 = unbounded).
func WithMaxKeys(n int) HashOption { return func(c *hashCfg) { c.limit = n } }

// RedisHashes scans the keys matching pattern and loads each hash as a
// Record. Hashes are fetched through a pipeline when exec supports one.
func RedisHashes(ctx context.Context, exec driver.Executor, pattern string, opts ...HashOption) ([]Record, error) {
	cfg := hashCfg{batch: DefaultBatch}
	for _, o := range opts {
		o(&cfg)
	}
	cfg.batch = internal.Clamp(cfg.batch, 1, 10_000)

	keys, err := scanKeys(ctx, exec, pattern, cfg)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(keys))
	for _, chunk := range internal.Chunk(keys, cfg.batch) {
		replies, err := hgetall(ctx, exec, chunk)
		if err != nil {
			return nil, err
		}
		for i, raw := range replies {
			if err, ok := raw.(error); ok {
				return nil, fmt.Errorf("source: HGETALL %s: %w", chunk[i], err)
			}
			kv, err := scan.Pairs(raw)
			if err != nil {
				return nil, fmt.Errorf("source: HGETALL %s: %w", chunk[i], err)
			}
			if len(kv) == 0 {
				continue // expired between SCAN and HGETALL
			}
			rec := make(Record, len(kv)+1)
			for k, v := range kv {
				rec[k] = v
			}
			rec[KeyField] = chunk[i]
			out = append(out, rec)
		}
	}
	return out, nil
}

func scanKeys(ctx context.Context, exec driver.Executor, pattern string, cfg hashCfg) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		raw, err := exec.Do(ctx, "SCAN", cursor, "MATCH", pattern, "COUNT", cfg.batch)
		if err != nil {
			return nil, err
		}
		next, page, err := scan.ScanPage(raw)
		if err != nil {
			return nil, err
		}
		keys = append(keys, page...)
		if next == 0 || (cfg.limit > 0 && len(keys) >= cfg.limit) {
			break
		}
		cursor = next
	}
	// SCAN may return a key more than once
	keys = internal.Unique(keys)
	if cfg.limit > 0 && len(keys) > cfg.limit {
		keys = keys[:cfg.limit]
	}
	return keys, nil
}

func hgetall(ctx context.Context, exec driver.Executor, keys []string) ([]any, error) {
	if p, ok := exec.(driver.Pipeliner); ok {
		cmds := internal.Map(keys, func(k string) []any { return []any{"HGETALL", k} })
		return p.Pipeline(ctx, cmds)
	}
	out := make([]any, len(keys))
	for i, k := range keys {
		raw, err := exec.Do(ctx, "HGETALL", k)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}
