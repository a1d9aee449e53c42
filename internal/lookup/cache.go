// Package lookup resolves an institution code to its education authority and
// writes the result into the two dependent form fields. Lookups are debounced
// while the user types and memoized for the life of a form session.
package lookup

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fieldreg/internal/platform/metrics"
	"fieldreg/pkg/platform/sentinel"
)

const (
	// SentinelCode marks a participant who does not represent any institution.
	SentinelCode = "0000000"
	NoDRE        = "Sin DRE"
	NoUGEL       = "Sin UGEL"

	DefaultDebounce  = 500 * time.Millisecond
	DefaultMinDigits = 3
)

// ErrEmptyCode is returned by Resolve for a blank code.
var ErrEmptyCode = errors.New("lookup: empty code")

// Record is the part of a registry entry the form depends on.
type Record struct {
	Code        string
	Institution string
	Region      string
	Authority   string
}

// Result is a resolved code. Found is false for a cached "not found".
type Result struct {
	Record Record
	Found  bool
}

// Fields returns the DRE and UGEL values a result writes into the form.
func (r Result) Fields() (dre, ugel string) {
	if !r.Found {
		return NoDRE, NoUGEL
	}
	dre, ugel = r.Record.Region, r.Record.Authority
	if dre == "" {
		dre = NoDRE
	}
	if ugel == "" {
		ugel = NoUGEL
	}
	return dre, ugel
}

// Resolver performs the remote lookup. A missing code is reported as an
// error matching sentinel.ErrNotFound.
type Resolver interface {
	Resolve(ctx context.Context, code string) (Record, error)
}

// Writer receives the dependent field values. It is called with the cache
// lock held and must not call back into the Cache.
type Writer interface {
	ApplyLookup(dre, ugel string)
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(dre, ugel string)

func (f WriterFunc) ApplyLookup(dre, ugel string) { f(dre, ugel) }

// Cache memoizes resolved codes and drives the debounced input watcher.
type Cache struct {
	resolver  Resolver
	writer    Writer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	debounce  time.Duration
	minDigits int

	base   context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string]Result
	timer   *time.Timer
	seq     uint64
	pending int
	idle    chan struct{}
	closed  bool
}

type Option func(*Cache)

func WithDebounce(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

func WithMinDigits(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.minDigits = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a cache. writer may be nil when only Resolve is used.
func New(resolver Resolver, writer Writer, opts ...Option) *Cache {
	base, cancel := context.WithCancel(context.Background())
	c := &Cache{
		resolver:  resolver,
		writer:    writer,
		logger:    slog.Default(),
		debounce:  DefaultDebounce,
		minDigits: DefaultMinDigits,
		base:      base,
		cancel:    cancel,
		entries:   make(map[string]Result),
		idle:      make(chan struct{}),
	}
	close(c.idle)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Normalize trims surrounding whitespace from a raw code.
func Normalize(code string) string {
	return strings.TrimSpace(code)
}

// Resolve returns the cached result for code or performs the lookup.
// Concurrent calls for the same code share one remote call. Failures are
// returned and not cached.
func (c *Cache) Resolve(ctx context.Context, code string) (Result, error) {
	code = Normalize(code)
	if code == "" {
		return Result{}, ErrEmptyCode
	}
	if res, ok := c.cached(code); ok {
		c.metrics.IncrementLookup("hit")
		return res, nil
	}

	v, err, _ := c.group.Do(code, func() (any, error) {
		if res, ok := c.cached(code); ok {
			return res, nil
		}
		c.metrics.IncrementLookup("miss")
		rec, err := c.resolver.Resolve(ctx, code)
		var res Result
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			c.metrics.IncrementLookup("not_found")
		case err != nil:
			c.metrics.IncrementLookup("failure")
			return nil, err
		default:
			res = Result{Record: rec, Found: true}
		}
		c.mu.Lock()
		c.entries[code] = res
		c.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// Input feeds one raw value of the code field. Blank input writes nothing
// but supersedes any pending lookup, the sentinel code and cached codes
// apply immediately, and anything else is
// looked up once the input has been quiet for the debounce window. Only the
// most recent input may write the dependent fields.
func (c *Cache) Input(code string) {
	code = Normalize(code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.seq++
	seq := c.seq
	c.stopTimer()

	if code == "" {
		return
	}

	if code == SentinelCode {
		c.metrics.IncrementLookup("sentinel")
		c.write(NoDRE, NoUGEL)
		return
	}
	if !c.plausible(code) {
		return
	}
	if res, ok := c.entries[code]; ok {
		c.metrics.IncrementLookup("hit")
		c.write(res.Fields())
		return
	}

	c.begin()
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(seq, code) })
}

// Settle blocks until no debounce timer or lookup is pending.
func (c *Cache) Settle(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.pending == 0 {
			c.mu.Unlock()
			return nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the pending timer and abandons in-flight lookups.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimer()
	c.mu.Unlock()
	c.cancel()
}

// Len reports the number of cached codes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) fire(seq uint64, code string) {
	c.mu.Lock()
	if c.seq != seq || c.closed {
		c.done()
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	res, err := c.Resolve(c.base, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.done()
	if err != nil {
		c.logger.Warn("code lookup failed",
			"code", code,
			"error", err,
		)
		return
	}
	if c.seq != seq || c.closed {
		c.metrics.IncrementLookup("superseded")
		return
	}
	c.write(res.Fields())
}

func (c *Cache) cached(code string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[code]
	return res, ok
}

func (c *Cache) plausible(code string) bool {
	if len(code) < c.minDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// The helpers below require c.mu.

func (c *Cache) write(dre, ugel string) {
	if c.writer != nil {
		c.writer.ApplyLookup(dre, ugel)
	}
}

func (c *Cache) stopTimer() {
	if c.timer != nil && c.timer.Stop() {
		c.done()
	}
	c.timer = nil
}

func (c *Cache) begin() {
	if c.pending == 0 {
		c.idle = make(chan struct{})
	}
	c.pending++
}

func (c *Cache) done() {
	c.pending--
	if c.pending == 0 {
		close(c.idle)
	}
}
