package repository

import (
	"context"

	"github.com/manojoshi/pathquery/condition"
	"github.com/manojoshi/pathquery/redisearch"
	"github.com/manojoshi/pathquery/source"
)

/*───────────────────────────────────────────────────────────────
|  Loading paths                                                 |
└───────────────────────────────────────────────────────────────*/

// search runs cond as FT.SEARCH. redisearch.ErrUnsupported is returned
// before anything is sent when cond cannot be translated.
func (r *Repo) search(ctx context.Context, cond condition.Condition) ([]source.Record, error) {
	hits, err := redisearch.NewSearch(r.index).
		Where(cond).
		Limit(0, r.limit).
		Using(r.exec).
		Run(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]source.Record, len(hits))
	for i, h := range hits {
		rec := make(source.Record, len(h))
		for k, v := range h {
			rec[k] = v
		}
		out[i] = rec
	}
	return out, nil
}

// scan loads every hash whose key matches the SCAN pattern.
func (r *Repo) scan(ctx context.Context) ([]source.Record, error) {
	return source.RedisHashes(ctx, r.exec, r.pattern(),
		source.WithBatch(r.batch),
		source.WithMaxKeys(r.limit),
	)
}

func (r *Repo) pattern() string {
	if r.match != "" {
		return r.match
	}
	return r.prefix + "*"
}
