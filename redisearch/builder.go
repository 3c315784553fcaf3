package redisearch

import (
	"context"
	"errors"
	"strconv"

	"github.com/manojoshi/pathquery/condition"
	"github.com/manojoshi/pathquery/driver"
	"github.com/manojoshi/pathquery/scan"
)

// DefaultLimit caps a search that never called Limit.
const DefaultLimit = 10_000

// -------------------------------------------------------------------
// SearchBuilder – fluent builder for FT.SEARCH
// -------------------------------------------------------------------

type Dir string

const (
	Asc  Dir = "ASC"
	Desc Dir = "DESC"
)

type SearchBuilder struct {
	idx           string
	where         condition.Condition
	returnFields  []string
	sortField     string
	dir           Dir
	offset, limit int
	executor      driver.Executor
}

// NewSearch starts a builder. Executor must be provided before Run.
func NewSearch(index string) *SearchBuilder {
	return &SearchBuilder{idx: index, limit: DefaultLimit}
}

func (b *SearchBuilder) Where(c condition.Condition) *SearchBuilder { b.where = c; return b }
func (b *SearchBuilder) Select(fs ...string) *SearchBuilder {
	b.returnFields = append([]string{}, fs...)
	return b
}
func (b *SearchBuilder) SortBy(f string, d Dir) *SearchBuilder {
	b.sortField, b.dir = f, d
	return b
}
func (b *SearchBuilder) Limit(off, lim int) *SearchBuilder {
	b.offset, b.limit = off, lim
	return b
}
func (b *SearchBuilder) Using(ex driver.Executor) *SearchBuilder {
	b.executor = ex
	return b
}

// RawArgs gives the complete arg slice for logging / pipeline use.
// A condition that cannot be pushed down fails with ErrUnsupported.
func (b *SearchBuilder) RawArgs() ([]any, error) {
	q := "*"
	if !condition.IsEmpty(b.where) {
		e, err := ToExpr(b.where)
		if err != nil {
			return nil, err
		}
		q = Compile(e)
	}

	args := []any{"FT.SEARCH", b.idx, q}

	if len(b.returnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(b.returnFields)))
		for _, f := range b.returnFields {
			args = append(args, f)
		}
	}

	if b.sortField != "" {
		dir := b.dir
		if dir == "" {
			dir = Asc
		}
		args = append(args, "SORTBY", b.sortField, string(dir))
	}

	args = append(args, "LIMIT", strconv.Itoa(b.offset), strconv.Itoa(b.limit))
	return args, nil
}

// Run executes the command and decodes the hits.
func (b *SearchBuilder) Run(ctx context.Context) ([]map[string]string, error) {
	if b.executor == nil {
		return nil, errors.New("redisearch: executor not set (call Using())")
	}
	args, err := b.RawArgs()
	if err != nil {
		return nil, err
	}

	raw, err := b.executor.Do(ctx, args...)
	if err != nil {
		return nil, err
	}
	return scan.DecodeMaps(raw)
}
