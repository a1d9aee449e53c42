// Package form hosts one registration form: it owns field values, tracks
// which fields the user changed and drives the cascade controller and the
// code lookup from field changes.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"fieldreg/internal/cascade"
	"fieldreg/internal/diff"
	"fieldreg/internal/fields"
	"fieldreg/internal/lookup"
	"fieldreg/internal/options"
	"fieldreg/internal/platform/metrics"
	"fieldreg/pkg/platform/sentinel"
)

// Kind selects the field set and behavior of a form.
type Kind string

const (
	KindAmbassador  Kind = "ambassador"
	KindReplica     Kind = "replica"
	KindParticipant Kind = "participant"
)

var (
	ErrUnknownKind  = errors.New("form: unknown kind")
	ErrUnknownField = errors.New("form: unknown field")
	ErrFieldHidden  = fmt.Errorf("form: field is hidden for the current profile: %w", sentinel.ErrInvalidState)
	ErrNoRules      = errors.New("form: kind has no partial update rules")
)

var kindFields = map[Kind][]string{
	KindAmbassador: {
		fields.TipoDocumento, fields.NumeroDocumento, fields.NombreCompleto, fields.Sexo,
		fields.Correo, fields.Celular, fields.Region, fields.Provincia, fields.Distrito,
		fields.PerfilEmbajador, fields.PerfilEmbajadorOtro, fields.DRE, fields.UGEL, fields.CodigoModular,
	},
	KindReplica: {
		fields.CodigoModular, fields.DRE, fields.UGEL, fields.Fecha,
		fields.HoraInicio, fields.HoraFin, fields.FotosURL,
	},
	KindParticipant: {
		fields.NombreCompleto, fields.TipoDocumento, fields.NumeroDocumento, fields.Sexo,
		fields.Correo, fields.Celular, fields.PerfilParticipante, fields.NivelEducativo,
		fields.Grado, fields.PerfilParticipanteOtro,
	},
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindFields[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Fields lists the fields of kind in display order.
func (k Kind) Fields() []string {
	return slices.Clone(kindFields[k])
}

// Config carries the collaborators of a form. Options is required for the
// ambassador kind and Resolver for the replica kind.
type Config struct {
	Options   options.Repository
	Resolver  lookup.Resolver
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Debounce  time.Duration
	MinDigits int
	Location  *time.Location
}

// Form is safe for concurrent use.
type Form struct {
	kind    Kind
	logger  *slog.Logger
	metrics *metrics.Metrics
	rules   diff.Rules

	ctrl   *cascade.Controller
	lookup *lookup.Cache

	mu      sync.Mutex
	values  diff.Values
	initial diff.Values
	dirty   diff.DirtySet
	rootErr error
}

// New builds an unmounted form of kind.
func New(kind Kind, cfg Config) (*Form, error) {
	if _, ok := kindFields[kind]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	f := &Form{
		kind:    kind,
		logger:  logger.With("form", string(kind)),
		metrics: cfg.Metrics,
		values:  diff.Values{},
		initial: diff.Values{},
		dirty:   diff.DirtySet{},
	}

	switch kind {
	case KindAmbassador:
		if cfg.Options == nil {
			return nil, errors.New("form: ambassador form requires an option repository")
		}
		ctrl, err := cascade.New(cfg.Options, []cascade.Chain{cascade.Geography, cascade.Education},
			cascade.WithLogger(f.logger),
			cascade.WithMetrics(cfg.Metrics),
		)
		if err != nil {
			return nil, err
		}
		f.ctrl = ctrl
		f.rules = diff.AmbassadorRules
	case KindReplica:
		if cfg.Resolver == nil {
			return nil, errors.New("form: replica form requires a code resolver")
		}
		f.lookup = lookup.New(cfg.Resolver, lookup.WriterFunc(f.applyLookup),
			lookup.WithDebounce(cfg.Debounce),
			lookup.WithMinDigits(cfg.MinDigits),
			lookup.WithLogger(f.logger),
			lookup.WithMetrics(cfg.Metrics),
		)
		f.rules = diff.ReplicaRules(cfg.Location)
	}
	for _, k := range kindFields[kind] {
		f.values[k] = ""
	}
	return f, nil
}

// Kind reports the form kind.
func (f *Form) Kind() Kind { return f.kind }

// Mount (re)initializes the form from defaults: plain fields are assigned,
// cascade fields are seeded, and once every option load has settled the
// resulting values become the baseline for dirty tracking. A root option
// failure leaves the form usable; it is logged and reported in the view.
func (f *Form) Mount(ctx context.Context, defaults diff.Values) error {
	f.mu.Lock()
	for _, k := range kindFields[f.kind] {
		f.values[k] = ""
	}
	seed := map[options.Level]string{}
	for k, v := range defaults {
		if !f.has(k) {
			f.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownField, k)
		}
		v = sanitizeText(v)
		if f.cascaded(k) {
			seed[options.Level(k)] = v
			continue
		}
		f.values[k] = v
	}
	f.dirty = diff.DirtySet{}
	f.rootErr = nil
	f.mu.Unlock()

	if f.ctrl != nil {
		f.ctrl.Reset()
		if !f.rootsLoaded() {
			if err := f.ctrl.Init(ctx); err != nil {
				f.logger.WarnContext(ctx, "form mounted without root options", "error", err)
				f.mu.Lock()
				f.rootErr = err
				f.mu.Unlock()
			}
		}
		if err := f.ctrl.Seed(ctx, seed); err != nil {
			return err
		}
		if err := f.ctrl.Wait(ctx); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.initial = f.currentLocked()
	f.dirty = diff.DirtySet{}
	return nil
}

// Set applies one user edit and returns every field whose value changed as a
// consequence, including cascade clears and profile resets.
func (f *Form) Set(ctx context.Context, key, value string) ([]string, error) {
	value = sanitizeText(value)

	f.mu.Lock()
	if !f.has(key) {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if !f.visibleLocked(key) {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrFieldHidden, key)
	}

	var changed []string
	if f.cascaded(key) {
		levels, err := f.ctrl.Select(ctx, options.Level(key), value)
		if err != nil {
			f.mu.Unlock()
			return nil, err
		}
		for _, l := range levels {
			changed = append(changed, string(l))
		}
	} else if f.values[key] != value {
		f.values[key] = value
		changed = append(changed, key)
	}

	if slices.Contains(changed, key) {
		gated, err := f.applyGating(key, value)
		if err != nil {
			f.mu.Unlock()
			return nil, err
		}
		changed = append(changed, gated...)
	}
	f.markDirtyLocked(changed)
	f.mu.Unlock()

	// The lookup writes back through applyLookup, so it runs without f.mu.
	if f.lookup != nil && key == fields.CodigoModular && slices.Contains(changed, key) {
		f.lookup.Input(value)
	}
	return changed, nil
}

// Reload retries a cascade level whose options failed to load.
func (f *Form) Reload(ctx context.Context, key string) error {
	if !f.cascaded(key) {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	return f.ctrl.Reload(ctx, options.Level(key))
}

// Values returns a copy of the current values.
func (f *Form) Values() diff.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentLocked()
}

// Dirty returns a copy of the dirty set.
func (f *Form) Dirty() diff.DirtySet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return diff.NewDirtySet(f.dirty.Keys()...)
}

// Validate checks the current values. It returns ValidationErrors or nil.
func (f *Form) Validate() error {
	values := f.Values()
	switch f.kind {
	case KindAmbassador:
		return validateAmbassador(values)
	case KindReplica:
		return validateReplica(values)
	default:
		return validateParticipant(values)
	}
}

// PartialPayload builds the minimal update for the fields changed since the
// last mount or submit.
func (f *Form) PartialPayload() (diff.Payload, error) {
	if f.rules == nil {
		return nil, ErrNoRules
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.rules.BuildPartialPayload(f.currentLocked(), f.dirty)
	f.metrics.ObservePartialPayload(len(p))
	return p, nil
}

// MarkSubmitted makes the current values the new baseline after a
// successful full submit.
func (f *Form) MarkSubmitted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initial = f.currentLocked()
	f.dirty = diff.DirtySet{}
}

// MarkUpdated makes the current values the new baseline after a successful
// partial update. Values the payload replaced with a parent's null were not
// stored, so they stay dirty against an empty baseline and go out with the
// next update.
func (f *Form) MarkUpdated() {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := f.currentLocked()
	var pending []string
	if f.rules != nil {
		pending = f.rules.Overridden(current, f.dirty)
	}
	f.initial = current
	f.dirty = diff.DirtySet{}
	for _, k := range pending {
		f.initial[k] = ""
		f.dirty.Add(k)
	}
}

// Settle waits for pending option loads and code lookups.
func (f *Form) Settle(ctx context.Context) error {
	if f.ctrl != nil {
		if err := f.ctrl.Wait(ctx); err != nil {
			return err
		}
	}
	if f.lookup != nil {
		return f.lookup.Settle(ctx)
	}
	return nil
}

// Close releases background work. The form must not be used afterwards.
func (f *Form) Close() {
	if f.ctrl != nil {
		f.ctrl.Close()
	}
	if f.lookup != nil {
		f.lookup.Close()
	}
}

// applyLookup receives resolved DRE/UGEL names for the replica form.
func (f *Form) applyLookup(dre, ugel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var changed []string
	for k, v := range map[string]string{fields.DRE: dre, fields.UGEL: ugel} {
		if f.values[k] != v {
			f.values[k] = v
			changed = append(changed, k)
		}
	}
	f.markDirtyLocked(changed)
}

// applyGating resets fields hidden by a profile or level change. f.mu must be held.
func (f *Form) applyGating(key, value string) ([]string, error) {
	var changed []string
	reset := func(k string) {
		if f.values[k] != "" {
			f.values[k] = ""
			changed = append(changed, k)
		}
	}

	switch {
	case f.kind == KindAmbassador && key == fields.PerfilEmbajador:
		if !fields.AmbassadorShowsEducation(value) {
			levels, err := f.ctrl.Clear(options.LevelDRE)
			if err != nil {
				return nil, err
			}
			for _, l := range levels {
				changed = append(changed, string(l))
			}
		}
		if value != fields.ProfilePIP {
			reset(fields.CodigoModular)
		}
		if value != fields.ProfileOther {
			reset(fields.PerfilEmbajadorOtro)
		}
	case f.kind == KindParticipant && key == fields.PerfilParticipante:
		if value != fields.ProfileStudent {
			reset(fields.NivelEducativo)
			reset(fields.Grado)
		}
		if value != fields.ProfileOther {
			reset(fields.PerfilParticipanteOtro)
		}
	case f.kind == KindParticipant && key == fields.NivelEducativo:
		reset(fields.Grado)
	}
	return changed, nil
}

func (f *Form) markDirtyLocked(changed []string) {
	if len(changed) == 0 {
		return
	}
	current := f.currentLocked()
	for _, k := range changed {
		if current[k] != f.initial[k] {
			f.dirty.Add(k)
		}
	}
}

func (f *Form) currentLocked() diff.Values {
	out := make(diff.Values, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	if f.ctrl != nil {
		for _, lv := range f.ctrl.Snapshot() {
			out[string(lv.Key)] = lv.Selected
		}
	}
	return out
}

func (f *Form) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *Form) cascaded(key string) bool {
	return f.ctrl != nil && f.ctrl.Manages(options.Level(key))
}

func (f *Form) rootsLoaded() bool {
	for _, lv := range f.ctrl.Snapshot() {
		if lv.Parent == "" && lv.State != cascade.Loaded {
			return false
		}
	}
	return true
}
