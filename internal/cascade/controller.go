package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fieldreg/internal/options"
	"fieldreg/internal/platform/metrics"
)

type level struct {
	key    options.Level
	parent *level
	child  *level

	options  []options.Option
	selected string
	state    LoadState
	err      error

	// loadedFor is the parent value the current (or in-flight) options belong to.
	loadedFor string
	// gen is bumped on every load start and every invalidation; a completing
	// load whose generation no longer matches is stale.
	gen uint64
	// armed is the one-shot hydration exemption for this level as a parent.
	armed bool
	// seeded marks a value that came from Seed and may still be a label.
	seeded bool
}

// Controller orchestrates one or more chains of dependent selects.
type Controller struct {
	repo    options.Repository
	logger  *slog.Logger
	metrics *metrics.Metrics

	base   context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	levels      map[options.Level]*level
	order       []*level
	seeded      bool
	interactive bool
	inflight    int
	idle        chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New builds a controller for chains. A level may belong to only one chain.
func New(repo options.Repository, chains []Chain, opts ...Option) (*Controller, error) {
	base, cancel := context.WithCancel(context.Background())
	c := &Controller{
		repo:   repo,
		logger: slog.Default(),
		base:   base,
		cancel: cancel,
		levels: make(map[options.Level]*level),
		idle:   make(chan struct{}),
	}
	close(c.idle)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	for _, chain := range chains {
		var parent *level
		for _, key := range chain {
			if _, dup := c.levels[key]; dup {
				cancel()
				return nil, fmt.Errorf("cascade: level %s appears in more than one chain", key)
			}
			lv := &level{key: key, parent: parent}
			if parent != nil {
				parent.child = lv
				parent.armed = true
			}
			c.levels[key] = lv
			c.order = append(c.order, lv)
			parent = lv
		}
	}
	return c, nil
}

// Init loads every root level. Roots load unconditionally and in parallel;
// on failure all roots are left NotLoaded and can be retried with Reload.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	var keys []options.Level
	gens := make(map[options.Level]uint64)
	for _, lv := range c.order {
		if lv.parent != nil {
			continue
		}
		lv.gen++
		lv.state = Loading
		lv.err = nil
		gens[lv.key] = lv.gen
		keys = append(keys, lv.key)
	}
	c.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}

	start := time.Now()
	loaded, err := options.LoadRoots(ctx, c.repo, keys...)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		lv := c.levels[key]
		if lv.gen != gens[key] {
			continue
		}
		if err != nil {
			lv.state = NotLoaded
			lv.err = err
			continue
		}
		lv.options = loaded[key]
		lv.state = Loaded
		c.afterLoad(lv)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "root option load failed",
			"levels", keys,
			"error", err,
		)
		return err
	}
	c.logger.DebugContext(ctx, "root options loaded",
		"levels", keys,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Seed hydrates the chains from a saved record. Values are assigned top-down,
// children of every non-empty parent are loaded, and nothing is cleared. Each
// seeded parent consumes its hydration exemption. Seed may run once, before
// any interactive selection.
func (c *Controller) Seed(ctx context.Context, values map[options.Level]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interactive {
		return ErrSeedAfterSelect
	}
	if c.seeded {
		return ErrAlreadySeeded
	}
	c.seeded = true

	for _, lv := range c.order {
		v := strings.TrimSpace(values[lv.key])
		if v == "" {
			continue
		}
		if lv.parent != nil && lv.parent.selected == "" {
			c.logger.WarnContext(ctx, "ignoring seed value without parent",
				"level", lv.key,
				"parent", lv.parent.key,
			)
			continue
		}
		lv.selected = v
		lv.seeded = true
		if lv.state == Loaded {
			c.normalizeSeed(lv)
		}
	}

	for _, lv := range c.order {
		if lv.child == nil || lv.selected == "" {
			continue
		}
		lv.armed = false
		c.startLoad(ctx, lv.child, lv.selected)
	}
	return nil
}

// Select applies an interactive change and reports every level whose selected
// value changed. The first non-empty value observed on an armed parent loads
// its children without clearing them; every other change empties all
// descendants before the immediate child starts loading.
func (c *Controller) Select(ctx context.Context, key options.Level, value string) ([]options.Level, error) {
	value = strings.TrimSpace(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	lv, ok := c.levels[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLevel, key)
	}
	if value != "" && lv.parent != nil && lv.parent.selected == "" {
		return nil, fmt.Errorf("%w: %s", ErrParentEmpty, key)
	}
	if value != "" && lv.state == Loaded {
		if _, found := options.Find(lv.options, value); !found {
			return nil, fmt.Errorf("%w: %s=%q", ErrUnknownOption, key, value)
		}
	}

	c.interactive = true
	c.seeded = true
	lv.seeded = false
	if value == lv.selected {
		return nil, nil
	}
	lv.selected = value
	changed := []options.Level{key}
	if lv.child == nil {
		return changed, nil
	}

	if lv.armed && value != "" {
		lv.armed = false
		c.startLoad(ctx, lv.child, value)
		return changed, nil
	}

	changed = append(changed, c.clearBelow(lv)...)
	if value != "" {
		c.startLoad(ctx, lv.child, value)
	}
	return changed, nil
}

// Clear empties key and its descendants regardless of hydration state.
// It reports every level whose selected value changed.
func (c *Controller) Clear(key options.Level) ([]options.Level, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lv, ok := c.levels[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLevel, key)
	}
	var changed []options.Level
	if lv.selected != "" {
		changed = append(changed, key)
	}
	lv.selected = ""
	lv.seeded = false
	return append(changed, c.clearBelow(lv)...), nil
}

// Reload retries a level that is not loaded. Roots reload synchronously;
// children reload in the background against the parent's current value.
func (c *Controller) Reload(ctx context.Context, key options.Level) error {
	c.mu.Lock()
	lv, ok := c.levels[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownLevel, key)
	}
	if lv.state != NotLoaded {
		c.mu.Unlock()
		return nil
	}
	if lv.parent == nil {
		lv.gen++
		gen := lv.gen
		lv.state = Loading
		c.mu.Unlock()

		start := time.Now()
		opts, err := c.repo.LoadRoot(ctx, key)

		c.mu.Lock()
		defer c.mu.Unlock()
		if lv.gen != gen {
			c.metrics.IncrementStaleCascade(key.String())
			return nil
		}
		if err != nil {
			lv.state = NotLoaded
			lv.err = err
			return err
		}
		lv.options = opts
		lv.state = Loaded
		lv.err = nil
		c.afterLoad(lv)
		c.logger.DebugContext(ctx, "root options reloaded",
			"level", key,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
	defer c.mu.Unlock()
	if lv.parent.selected == "" {
		return fmt.Errorf("%w: %s", ErrParentEmpty, key)
	}
	lv.loadedFor = ""
	c.startLoad(ctx, lv, lv.parent.selected)
	return nil
}

// Reset returns every level to its pristine state and re-arms hydration.
// Loaded root options are kept.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, lv := range c.order {
		lv.selected = ""
		lv.seeded = false
		lv.armed = lv.child != nil
		lv.gen++
		if lv.parent != nil {
			lv.options = nil
			lv.state = NotLoaded
			lv.loadedFor = ""
			lv.err = nil
		}
	}
	c.seeded = false
	c.interactive = false
}

// Wait blocks until no option load is in flight or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.inflight == 0 {
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

// Close abandons in-flight loads. Their results are discarded.
func (c *Controller) Close() {
	c.cancel()
}

// Snapshot returns a copy of every level in chain order.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(Snapshot, 0, len(c.order))
	for _, lv := range c.order {
		st := LevelState{
			Key:      lv.key,
			Options:  append([]options.Option{}, lv.options...),
			Selected: lv.selected,
			State:    lv.state,
		}
		if lv.parent != nil {
			st.Parent = lv.parent.key
		}
		if lv.err != nil {
			st.Error = lv.err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Value returns the selected value of key.
func (c *Controller) Value(key options.Level) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lv, ok := c.levels[key]; ok {
		return lv.selected
	}
	return ""
}

// Manages reports whether key belongs to one of the controller's chains.
func (c *Controller) Manages(key options.Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.levels[key]
	return ok
}

// Armed reports whether key still holds its hydration exemption.
func (c *Controller) Armed(key options.Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	lv, ok := c.levels[key]
	return ok && lv.armed
}

// clearBelow empties every descendant of lv and invalidates their in-flight
// loads. c.mu must be held.
func (c *Controller) clearBelow(lv *level) []options.Level {
	var changed []options.Level
	for d := lv.child; d != nil; d = d.child {
		if d.selected != "" {
			changed = append(changed, d.key)
		}
		d.selected = ""
		d.seeded = false
		d.options = nil
		d.state = NotLoaded
		d.loadedFor = ""
		d.err = nil
		d.gen++
	}
	return changed
}

// startLoad begins loading lv's options for parentValue. A level already
// loaded (or loading) for the same parent value is left alone. c.mu must be held.
func (c *Controller) startLoad(ctx context.Context, lv *level, parentValue string) {
	if lv.loadedFor == parentValue && lv.state != NotLoaded {
		return
	}
	lv.gen++
	gen := lv.gen
	lv.state = Loading
	lv.options = nil
	lv.loadedFor = parentValue
	lv.err = nil

	c.begin()
	loadCtx, stop := c.detach(ctx)
	go func() {
		start := time.Now()
		opts, err := c.repo.LoadChildren(loadCtx, lv.key, parentValue)
		stop()

		c.mu.Lock()
		defer c.mu.Unlock()
		defer c.done()

		if lv.gen != gen || lv.parent.selected != parentValue {
			c.metrics.IncrementStaleCascade(lv.key.String())
			c.logger.Debug("discarding stale option load",
				"level", lv.key,
				"parent_value", parentValue,
			)
			return
		}
		if err != nil {
			lv.state = NotLoaded
			lv.loadedFor = ""
			lv.err = err
			c.logger.Warn("option load failed",
				"level", lv.key,
				"parent_value", parentValue,
				"error", err,
			)
			return
		}
		lv.options = opts
		lv.state = Loaded
		c.logger.Debug("options loaded",
			"level", lv.key,
			"parent_value", parentValue,
			"count", len(opts),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		c.afterLoad(lv)
	}()
}

// afterLoad resolves a seeded label against freshly loaded options and, when
// that changes the value, reloads the child for the resolved id. c.mu must be held.
func (c *Controller) afterLoad(lv *level) {
	if c.normalizeSeed(lv) && lv.child != nil {
		c.startLoad(c.base, lv.child, lv.selected)
	}
}

// normalizeSeed maps a seeded label (saved records sometimes store names) to
// the matching option id. It reports whether the selected value changed.
func (c *Controller) normalizeSeed(lv *level) bool {
	if !lv.seeded {
		return false
	}
	lv.seeded = false
	if lv.selected == "" {
		return false
	}
	if _, ok := options.Find(lv.options, lv.selected); ok {
		return false
	}
	if o, ok := options.FindByLabel(lv.options, lv.selected); ok {
		lv.selected = o.ID
		return true
	}
	return false
}

// detach gives a background load a context that outlives the caller's
// request but ends when the controller is closed.
func (c *Controller) detach(ctx context.Context) (context.Context, func()) {
	if ctx == nil {
		ctx = c.base
	}
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := context.AfterFunc(c.base, cancel)
	return loadCtx, func() {
		stopAfter()
		cancel()
	}
}

// begin and done track in-flight loads for Wait. c.mu must be held.
func (c *Controller) begin() {
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
}

func (c *Controller) done() {
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
	}
}
