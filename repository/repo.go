// Package repository runs path queries against Redis hashes. Conditions
// are pushed down to RediSearch when an index is configured and the
// condition translates; otherwise hashes are scanned and filtered by the
// engine.
//
//	repo := repository.New(conn,
//	    repository.WithIndex("order_idx"),
//	    repository.WithPrefix("order:"),
//	)
//	rows, err := repo.Find(ctx, "status = 'PENDING' AND qty > 1", "order_id", "qty")
package repository

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/manojoshi/pathquery/condition"
	"github.com/manojoshi/pathquery/driver"
	"github.com/manojoshi/pathquery/engine"
	"github.com/manojoshi/pathquery/index"
	"github.com/manojoshi/pathquery/redisearch"
	"github.com/manojoshi/pathquery/source"
)

var recordType = reflect.TypeOf(source.Record{})

// Repo is the single, reusable handle you inject everywhere.
type Repo struct {
	exec     driver.Executor
	engine   *engine.Engine
	log      zerolog.Logger
	index    string
	prefix   string
	match    string
	limit    int
	batch    int
	pushdown bool
}

// New constructs a Repo over exec.
func New(exec driver.Executor, opts ...Option) *Repo {
	r := &Repo{
		exec:     exec,
		log:      zerolog.Nop(),
		limit:    redisearch.DefaultLimit,
		batch:    source.DefaultBatch,
		pushdown: true,
	}
	for _, o := range opts {
		o(r)
	}
	if r.engine == nil {
		r.engine = engine.New(engine.WithLogger(r.log))
	}
	return r
}

// Find returns the records matching where, projected onto fields when
// any are given ("qty", "customer AS c"). Without fields every row is a
// source.Record.
//
// Pushed-down hits are filtered again locally. Clauses a hash without
// the field would satisfy (qty < 5, flag = false) are never pushed down,
// so an index built by EnsureIndex returns the same rows as a scan as long
// as every indexed value parses as its schema type.
func (r *Repo) Find(ctx context.Context, where string, fields ...string) ([]any, error) {
	cond, err := condition.Parse(where)
	if err != nil {
		return nil, err
	}
	pred, err := r.engine.CompileFilter(cond, recordType)
	if err != nil {
		return nil, err
	}

	rows, err := r.load(ctx, cond)
	if err != nil {
		return nil, err
	}
	matched := make([]source.Record, 0, len(rows))
	for _, row := range rows {
		if pred(row) {
			matched = append(matched, row)
		}
	}

	if len(fields) == 0 {
		out := make([]any, len(matched))
		for i, m := range matched {
			out[i] = m
		}
		return out, nil
	}
	return engine.Project(r.engine, matched, strings.Join(fields, ", "))
}

func (r *Repo) load(ctx context.Context, cond condition.Condition) ([]source.Record, error) {
	if r.index != "" && r.pushdown {
		rows, err := r.search(ctx, cond)
		switch {
		case err == nil:
			r.log.Debug().Str("index", r.index).Int("rows", len(rows)).Msg("pushed down")
			return rows, nil
		case !errors.Is(err, redisearch.ErrUnsupported):
			return nil, err
		}
		r.log.Info().Err(err).Str("condition", cond.String()).Msg("pushdown unsupported, scanning")
	}
	rows, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	r.log.Debug().Str("match", r.pattern()).Int("rows", len(rows)).Msg("scanned")
	return rows, nil
}

/*───────────────────────────────────────────────────────────────
|  Administrative helpers                                        |
└───────────────────────────────────────────────────────────────*/

// EnsureIndex creates the configured index for model, keyed on the
// configured prefix.
func (r *Repo) EnsureIndex(ctx context.Context, model any, opts ...index.CreateOpt) error {
	if r.index == "" {
		return errors.New("repository: no index configured (use WithIndex)")
	}
	opts = append([]index.CreateOpt{index.WithName(r.index)}, opts...)
	if r.prefix != "" {
		opts = append(opts, index.WithPrefixes(r.prefix))
	}
	return index.AutoCreate(ctx, r.exec, model, opts...)
}

// DropIndex drops the configured index. Documents are kept.
func (r *Repo) DropIndex(ctx context.Context) error {
	if r.index == "" {
		return nil
	}
	_, err := r.exec.Do(ctx, "FT.DROPINDEX", r.index)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "unknown index") {
		return nil
	}
	return err
}
