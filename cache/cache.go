// Package cache stores compiled query functions keyed by signature.
//
// It is an approximate LRU: the cache holds at most Capacity entries and
// remembers the last few signatures touched. When an insert pushes the
// cache past capacity, every entry outside that recent set is dropped.
//
//	c := cache.New(cache.WithCapacity(500))
//	fn, err := c.GetOrCompile(sig, func() (any, error) { return compileIt() })
//
// Values are opaque. Invoke calls any stored single-argument function.
//
// Safe for concurrent use by multiple goroutines.
package cache

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/manojoshi/pathquery/internal"
)

const (
	DefaultCapacity = 1000
	DefaultRecent   = 20
)

var (
	ErrNotCached   = errors.New("cache: signature not cached")
	ErrNotCallable = errors.New("cache: entry is not a single-argument function")
)

// Option configures a Cache.
type Option func(*config)

type config struct {
	capacity     int
	recent       int
	singleFlight bool
	log          zerolog.Logger
}

func WithCapacity(n int) Option { return func(c *config) { c.capacity = n } }
func WithRecent(n int) Option   { return func(c *config) { c.recent = n } }

// WithSingleFlight makes concurrent misses on one signature share a single
// compile. Without it two racing misses may both compile; one insert wins.
func WithSingleFlight() Option { return func(c *config) { c.singleFlight = true } }

func WithLogger(l zerolog.Logger) Option { return func(c *config) { c.log = l } }

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Compiles  uint64
	Evictions uint64
}

// entry keeps the full signature so hash collisions read as misses.
type entry struct {
	sig string
	fn  any
}

// Cache is the compiled-function store.
type Cache struct {
	mu       sync.RWMutex
	items    map[uint64]*entry
	capacity int

	rmu    sync.Mutex
	recent []uint64 // most recent first, at most cap(recent)

	group *singleflight.Group
	log   zerolog.Logger

	hits, misses, compiles, evictions atomic.Uint64
}

// New builds a cache. Non-positive sizes fall back to the defaults; the
// recent set never exceeds the capacity.
func New(opts ...Option) *Cache {
	cfg := &config{capacity: DefaultCapacity, recent: DefaultRecent, log: zerolog.Nop()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.capacity <= 0 {
		cfg.capacity = DefaultCapacity
	}
	if cfg.recent <= 0 {
		cfg.recent = DefaultRecent
	}
	cfg.recent = internal.Clamp(cfg.recent, 1, cfg.capacity)

	c := &Cache{
		items:    make(map[uint64]*entry, cfg.capacity),
		capacity: cfg.capacity,
		recent:   make([]uint64, 0, cfg.recent),
		log:      cfg.log,
	}
	if cfg.singleFlight {
		c.group = new(singleflight.Group)
	}
	return c
}

func key(sig string) uint64 { return xxhash.Sum64String(sig) }

// Get returns the function stored under sig and refreshes its recency.
func (c *Cache) Get(sig string) (any, bool) {
	fn, ok := c.peek(sig)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.touch(key(sig))
	return fn, true
}

func (c *Cache) peek(sig string) (any, bool) {
	c.mu.RLock()
	e, ok := c.items[key(sig)]
	c.mu.RUnlock()
	if !ok || e.sig != sig {
		return nil, false
	}
	return e.fn, true
}

// Set stores fn under sig, replacing any previous entry.
func (c *Cache) Set(sig string, fn any) {
	k := key(sig)
	c.touch(k)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[k] = &entry{sig: sig, fn: fn}
	if len(c.items) > c.capacity {
		c.evictLocked()
	}
}

// GetOrCompile returns the cached function for sig, or calls compile and
// caches its result. Errors are returned as-is and never cached.
func (c *Cache) GetOrCompile(sig string, compile func() (any, error)) (any, error) {
	if fn, ok := c.Get(sig); ok {
		return fn, nil
	}
	if c.group == nil {
		return c.compile(sig, compile)
	}
	fn, err, _ := c.group.Do(sig, func() (any, error) {
		if fn, ok := c.peek(sig); ok {
			return fn, nil
		}
		return c.compile(sig, compile)
	})
	return fn, err
}

func (c *Cache) compile(sig string, compile func() (any, error)) (any, error) {
	c.compiles.Add(1)
	fn, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(sig, fn)
	return fn, nil
}

// Wrapped is a cached value that carries a function alongside metadata.
// Invoke calls the function Func returns.
type Wrapped interface{ Func() any }

// Invoke calls the single-argument function stored under sig with arg and
// returns its first result.
func (c *Cache) Invoke(sig string, arg any) (any, error) {
	fn, ok := c.Get(sig)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotCached, sig)
	}
	if w, ok := fn.(Wrapped); ok {
		fn = w.Func()
	}
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.Type().NumIn() != 1 || fv.Type().NumOut() < 1 {
		return nil, fmt.Errorf("%w: %T", ErrNotCallable, fn)
	}
	in := fv.Type().In(0)
	av := reflect.ValueOf(arg)
	switch {
	case !av.IsValid():
		av = reflect.Zero(in)
	case !av.Type().AssignableTo(in):
		return nil, fmt.Errorf("cache: %T is not assignable to %s", arg, in)
	}
	return fv.Call([]reflect.Value{av})[0].Interface(), nil
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(sig string) {
	k := key(sig)
	c.mu.Lock()
	if e, ok := c.items[k]; ok && e.sig == sig {
		delete(c.items, k)
	}
	c.mu.Unlock()
}

// Clear removes all entries. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[uint64]*entry, c.capacity)
	c.mu.Unlock()

	c.rmu.Lock()
	c.recent = c.recent[:0]
	c.rmu.Unlock()
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int { return c.capacity }

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Compiles:  c.compiles.Load(),
		Evictions: c.evictions.Load(),
	}
}

// touch moves k to the front of the recent set.
func (c *Cache) touch(k uint64) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	if len(c.recent) > 0 && c.recent[0] == k {
		return
	}
	for i, r := range c.recent {
		if r == k {
			copy(c.recent[1:i+1], c.recent[:i])
			c.recent[0] = k
			return
		}
	}
	if len(c.recent) < cap(c.recent) {
		c.recent = append(c.recent, 0)
	}
	copy(c.recent[1:], c.recent[:len(c.recent)-1])
	c.recent[0] = k
}

// evictLocked drops every entry outside the recent set.
// Must be called with c.mu held for writing.
func (c *Cache) evictLocked() {
	c.rmu.Lock()
	keep := make(map[uint64]struct{}, len(c.recent))
	for _, k := range c.recent {
		keep[k] = struct{}{}
	}
	c.rmu.Unlock()

	n := 0
	for k := range c.items {
		if _, ok := keep[k]; !ok {
			delete(c.items, k)
			n++
		}
	}
	c.evictions.Add(uint64(n))
	c.log.Debug().Int("evicted", n).Int("retained", len(c.items)).Msg("cache eviction")
}
