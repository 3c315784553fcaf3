// Command pathq filters and projects records with path queries.
//
//	pathq -q "total > 100 AND customer.tier >= 2" -s "id, customer.name AS name" orders.jsonl
//	pathq -q "status = 'PENDING'" -redis localhost:6379 -match 'order:*'
//	cat orders.jsonl | pathq -q "items[0].sku = 'A1'" -
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/manojoshi/pathquery/driver"
	"github.com/manojoshi/pathquery/engine"
	"github.com/manojoshi/pathquery/repository"
	"github.com/manojoshi/pathquery/source"
)

type config struct {
	query   string
	fields  string
	limit   int
	verbose bool
	redis   string
	match   string
	index   string
	input   string
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := zerolog.WarnLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	e := engine.New(engine.WithLogger(log))
	ctx := context.Background()

	var rows []any
	if cfg.redis != "" {
		rows, err = fromRedis(ctx, cfg, e, log)
	} else {
		rows, err = fromFile(cfg, e, stdin, log)
	}
	if err != nil {
		return err
	}

	if cfg.limit > 0 && len(rows) > cfg.limit {
		rows = rows[:cfg.limit]
	}
	enc := json.NewEncoder(stdout)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	log.Debug().Int("rows", len(rows)).Msg("done")
	return nil
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("pathq", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.query, "q", "", "filter condition (e.g. \"total > 100 AND status = 'paid'\")")
	fs.StringVar(&cfg.fields, "s", "", "select list (e.g. \"id, customer.name AS name\")")
	fs.IntVar(&cfg.limit, "limit", 0, "limit number of rows (0 = unlimited)")
	fs.BoolVar(&cfg.verbose, "v", false, "log compile and load details to stderr")
	fs.StringVar(&cfg.redis, "redis", "", "read hashes from this Redis address instead of a file")
	fs.StringVar(&cfg.match, "match", "*", "key pattern scanned with -redis")
	fs.StringVar(&cfg.index, "index", "", "RediSearch index used for pushdown with -redis")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pathq [options] <file.parquet|file.jsonl|->\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.limit < 0 {
		return cfg, fmt.Errorf("-limit must be non-negative, got %d", cfg.limit)
	}
	if cfg.redis == "" {
		if fs.NArg() < 1 {
			fs.Usage()
			return cfg, errors.New("missing input file")
		}
		cfg.input = fs.Arg(0)
	}
	return cfg, nil
}

func fromFile(cfg config, e *engine.Engine, stdin io.Reader, log zerolog.Logger) ([]any, error) {
	records, err := load(cfg.input, stdin)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("input", cfg.input).Int("records", len(records)).Msg("loaded")

	matched, err := engine.Where(e, records, cfg.query)
	if err != nil {
		return nil, err
	}
	if cfg.fields == "" {
		out := make([]any, len(matched))
		for i, m := range matched {
			out[i] = m
		}
		return out, nil
	}
	return engine.Project(e, matched, cfg.fields)
}

func load(input string, stdin io.Reader) ([]source.Record, error) {
	if input == "-" {
		return source.JSONLines(stdin)
	}
	switch strings.ToLower(filepath.Ext(input)) {
	case ".parquet":
		return source.Parquet(input)
	case ".jsonl", ".ndjson", ".json":
		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return source.JSONLines(f)
	}
	return nil, fmt.Errorf("unsupported input %q (want .parquet, .jsonl or -)", input)
}

func fromRedis(ctx context.Context, cfg config, e *engine.Engine, log zerolog.Logger) ([]any, error) {
	conn := driver.NewRedisConn(redis.NewClient(&redis.Options{Addr: cfg.redis}))
	defer conn.Close()
	return find(ctx, conn, cfg, e, log)
}

// find runs the query through a repository; -match is the SCAN glob as
// given, so patterns such as 'order:[0-9]*' keep their meaning.
func find(ctx context.Context, exec driver.Executor, cfg config, e *engine.Engine, log zerolog.Logger) ([]any, error) {
	opts := []repository.Option{
		repository.WithEngine(e),
		repository.WithLogger(log),
		repository.WithMatch(cfg.match),
	}
	if cfg.index != "" {
		opts = append(opts, repository.WithIndex(cfg.index))
	}
	var fields []string
	if cfg.fields != "" {
		fields = []string{cfg.fields}
	}
	return repository.New(exec, opts...).Find(ctx, cfg.query, fields...)
}
