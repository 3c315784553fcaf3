package repository

import (
	"github.com/rs/zerolog"

	"github.com/manojoshi/pathquery/engine"
)

// Option configures a Repo.
type Option func(*Repo)

// WithIndex enables FT.SEARCH pushdown against the named index.
func WithIndex(name string) Option { return func(r *Repo) { r.index = name } }

// WithPrefix sets the key prefix scanned when a query is not pushed down
// (default "" scans every key).
func WithPrefix(p string) Option { return func(r *Repo) { r.prefix = p } }

// WithMatch sets the SCAN glob of the fallback scan, overriding the
// prefix-derived "<prefix>*" (e.g. "order:[0-9]*" or "*:2024:*").
func WithMatch(glob string) Option { return func(r *Repo) { r.match = glob } }

// WithEngine shares an engine, and with it the compiled-query cache.
func WithEngine(e *engine.Engine) Option { return func(r *Repo) { r.engine = e } }

func WithLogger(l zerolog.Logger) Option { return func(r *Repo) { r.log = l } }

// WithLimit caps the rows fetched per Find (default 10 000).
func WithLimit(n int) Option { return func(r *Repo) { r.limit = n } }

// WithBatch sets the SCAN / HGETALL batch size of the fallback scan.
func WithBatch(n int) Option { return func(r *Repo) { r.batch = n } }

// WithoutPushdown forces local evaluation even when an index is set.
func WithoutPushdown() Option { return func(r *Repo) { r.pushdown = false } }
