// Package index turns Go structs into RediSearch FT.CREATE statements
// whose field types match what the redisearch translator emits: strings
// and bools as TAG, numbers as NUMERIC.
//
//	type Order struct {
//	    ID        string  `pq:"order_id,SORTABLE"`
//	    Status    string  `pq:"status"`
//	    Qty       int     `pq:"qty,SORTABLE"`
//	    Notes     string  `pq:"notes,TEXT"`
//	    Internal  string  `pq:"-"`
//	}
//
//	if err := index.AutoCreate(ctx, conn, Order{},
//	    index.WithName("order_idx"),
//	    index.WithPrefixes("order:"),
//	); err != nil {
//	    log.Fatal(err)
//	}
package index

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/manojoshi/pathquery/compile"
	"github.com/manojoshi/pathquery/driver"
)

// ErrNoFields is returned for a model without a single indexable field.
var ErrNoFields = errors.New("index: model has no indexable fields")

// ------------------------------------------------------------------
// Options
// ------------------------------------------------------------------

type CreateOpt func(*createCfg)

type createCfg struct {
	name      string   // FT index name
	prefixes  []string // HASH key prefixes
	tag       string   // struct tag holding aliases and attributes
	stopwords []string
}

func WithName(name string) CreateOpt          { return func(c *createCfg) { c.name = name } }
func WithPrefixes(p ...string) CreateOpt      { return func(c *createCfg) { c.prefixes = p } }
func WithTag(tag string) CreateOpt            { return func(c *createCfg) { c.tag = tag } }
func WithStopwords(words ...string) CreateOpt { return func(c *createCfg) { c.stopwords = words } }

// ------------------------------------------------------------------
// Public API
// ------------------------------------------------------------------

// AutoCreate builds a schema from the supplied struct model and invokes
// FT.CREATE. An "Index already exists" reply is not an error.
func AutoCreate(ctx context.Context, exec driver.Executor, model any, opts ...CreateOpt) error {
	args, err := CreateArgs(model, opts...)
	if err != nil {
		return err
	}
	if _, err := exec.Do(ctx, args...); err != nil &&
		!strings.Contains(err.Error(), "Index already exists") {
		return fmt.Errorf("index: FT.CREATE failed: %w", err)
	}
	return nil
}

// CreateArgs returns the full FT.CREATE command for model.
func CreateArgs(model any, opts ...CreateOpt) ([]any, error) {
	cfg := &createCfg{name: inferIndexName(model), tag: compile.DefaultTag}
	for _, o := range opts {
		o(cfg)
	}

	schema, err := BuildSchema(model, cfg.tag)
	if err != nil {
		return nil, err
	}
	args := []any{"FT.CREATE", cfg.name, "ON", "HASH"}
	if len(cfg.prefixes) > 0 {
		args = append(args, "PREFIX", len(cfg.prefixes))
		for _, p := range cfg.prefixes {
			args = append(args, p)
		}
	}
	if len(cfg.stopwords) > 0 {
		args = append(args, "STOPWORDS", len(cfg.stopwords))
		for _, s := range cfg.stopwords {
			args = append(args, s)
		}
	}
	args = append(args, "SCHEMA")
	return append(args, schema...), nil
}

// BuildSchema inspects the struct tags (`pq:"field,SORTABLE"`) and returns
// the tail of the SCHEMA clause. Untagged exported fields index under
// their Go name; nested structs, maps and slices are skipped.
func BuildSchema(model any, tag string) ([]any, error) {
	rt := reflect.TypeOf(model)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("index: model must be a struct, got %v", rt)
	}

	var out []any
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name, attrs := f.Name, []string(nil)
		if tv := f.Tag.Get(tag); tv != "" {
			parts := strings.Split(tv, ",")
			if alias := strings.TrimPrefix(parts[0], "@"); alias == "-" {
				continue
			} else if alias != "" {
				name = alias
			}
			attrs = parts[1:]
		}

		fieldType := inferType(f.Type)
		for _, a := range attrs {
			switch strings.ToUpper(a) {
			case "NUMERIC", "TAG", "TEXT", "GEO":
				fieldType = strings.ToUpper(a)
			}
		}
		if fieldType == "" {
			continue
		}

		out = append(out, name, fieldType)
		if fieldType == "TAG" {
			// local evaluation compares strings exactly
			out = append(out, "CASESENSITIVE")
		}
		for _, a := range attrs {
			switch upper := strings.ToUpper(a); upper {
			case "SORTABLE", "NOINDEX", "NOSTEM":
				out = append(out, upper)
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoFields
	}
	return out, nil
}

var timeType = reflect.TypeOf(time.Time{})

// inferType maps a Go type onto the RediSearch field type the translator
// expects. An empty result means "not indexable".
func inferType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return ""
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool:
		return "TAG"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "NUMERIC"
	}
	return ""
}

// inferIndexName defaults to struct type name snake_cased + "_idx".
func inferIndexName(model any) string {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "pathquery_idx"
	}
	return snake(t.Name()) + "_idx"
}

// snake converts CamelCase to snake_case.
func snake(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			sb.WriteByte('_')
		}
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}
