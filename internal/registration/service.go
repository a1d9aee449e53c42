// Package registration drives the ambassador, replica and participant
// workflow: it mounts forms for the current actor, keeps them between
// requests and turns a submit into a create or a minimal partial update.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fieldreg/internal/audit"
	"fieldreg/internal/diff"
	"fieldreg/internal/form"
	"fieldreg/internal/lookup"
	"fieldreg/internal/options"
	"fieldreg/internal/platform/metrics"
	"fieldreg/internal/records"
	"fieldreg/internal/session"
	"fieldreg/pkg/platform/sentinel"
)

// ErrReplicaRequired is returned when a participant form is opened without
// the replica it registers into.
var ErrReplicaRequired = fmt.Errorf("participant form requires a replica: %w", sentinel.ErrInvalidState)

// Records is the subset of records.Client the workflow writes through.
type Records interface {
	CreateAmbassador(ctx context.Context, a records.Ambassador) (records.Ambassador, error)
	UpdateAmbassador(ctx context.Context, id int64, payload diff.Payload) error
	GetOwnedReplica(ctx context.Context, id, ambassadorID int64) (records.Replica, error)
	CreateReplica(ctx context.Context, r records.Replica) (records.Replica, error)
	UpdateReplica(ctx context.Context, id int64, payload diff.Payload) error
	CreateRegistration(ctx context.Context, r records.Registration) (records.Registration, error)
	ListAmbassadorReplicas(ctx context.Context, ambassadorID int64, p records.Page) (records.PageResult[records.Replica], error)
	ListRegistrationsByAmbassador(ctx context.Context, ambassadorID int64, p records.Page) (records.PageResult[records.Registration], error)
	ListRegistrationsByReplica(ctx context.Context, replicaID int64, p records.Page) (records.PageResult[records.Registration], error)
	CountReplicas(ctx context.Context, ambassadorID int64) (int, error)
	CountRegistrations(ctx context.Context, ambassadorID int64) (int, error)
}

// Sessions is the subset of session.Service the workflow needs.
type Sessions interface {
	Login(ctx context.Context, sessionID, document string) (session.Actor, error)
	Logout(ctx context.Context, sessionID string) error
	Current(ctx context.Context, sessionID string) (session.Actor, error)
	Refresh(ctx context.Context, sessionID string) (session.Actor, error)
	Adopt(ctx context.Context, sessionID string, a records.Ambassador) (session.Actor, error)
}

// Emitter receives audit events.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Config carries what every mounted form is built with.
type Config struct {
	Options   options.Repository
	Resolver  lookup.Resolver
	Debounce  time.Duration
	MinDigits int
	Location  *time.Location
}

// Service is safe for concurrent use.
type Service struct {
	records  Records
	sessions Sessions
	forms    *FormStore
	cfg      Config
	audit    Emitter
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAudit(e Emitter) Option {
	return func(s *Service) {
		s.audit = e
	}
}

func New(recs Records, sessions Sessions, forms *FormStore, cfg Config, opts ...Option) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &Service{
		records:  recs,
		sessions: sessions,
		forms:    forms,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// LoginResult carries the session issued at login or signup.
type LoginResult struct {
	SessionID string        `json:"session_id"`
	Actor     session.Actor `json:"actor"`
}

// Summary counts the current ambassador's work.
type Summary struct {
	Replicas      int `json:"replicas"`
	Registrations int `json:"registrations"`
}

// OpenRequest selects the form to mount. ReplicaID names the replica to edit
// (replica kind) or to register into (participant kind).
type OpenRequest struct {
	Kind      string `json:"kind"`
	ReplicaID int64  `json:"replica_id,omitempty"`
}

// FormState is a mounted form as seen by a client.
type FormState struct {
	ID     string `json:"id"`
	Target Target `json:"target"`
	form.View
}

// FieldResult reports the consequences of one edit.
type FieldResult struct {
	Changed []string  `json:"changed"`
	Form    FormState `json:"form"`
}

// SubmitResult reports what a submit wrote. Payload is the partial update
// sent for edits; creates leave it nil.
type SubmitResult struct {
	Action       audit.Action          `json:"action"`
	SessionID    string                `json:"session_id,omitempty"`
	Ambassador   *records.Ambassador   `json:"ambassador,omitempty"`
	Replica      *records.Replica      `json:"replica,omitempty"`
	Registration *records.Registration `json:"registration,omitempty"`
	Payload      diff.Payload          `json:"payload,omitempty"`
	Form         *FormState            `json:"form,omitempty"`
}

// Login starts a session for the ambassador with document.
func (s *Service) Login(ctx context.Context, document string) (LoginResult, error) {
	id := uuid.NewString()
	actor, err := s.sessions.Login(ctx, id, document)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{SessionID: id, Actor: actor}, nil
}

// Logout ends the session and closes its forms.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Logout(ctx, sessionID); err != nil {
		return err
	}
	if n := s.forms.dropOwner(sessionID); n > 0 {
		s.logger.InfoContext(ctx, "closed forms at logout", "forms", n)
	}
	return nil
}

// Me returns the current actor.
func (s *Service) Me(ctx context.Context, sessionID string) (session.Actor, error) {
	return s.sessions.Current(ctx, sessionID)
}

// Summary counts replicas and registrations concurrently.
func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	actor, err := s.sessions.Current(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	var out Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.records.CountReplicas(gctx, actor.Ambassador.ID)
		out.Replicas = n
		return err
	})
	g.Go(func() error {
		n, err := s.records.CountRegistrations(gctx, actor.Ambassador.ID)
		out.Registrations = n
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}

// OpenForm mounts a form. Without a session only the ambassador signup form
// can be opened; with one, the ambassador form edits the current actor.
func (s *Service) OpenForm(ctx context.Context, sessionID string, req OpenRequest) (FormState, error) {
	kind, err := form.ParseKind(req.Kind)
	if err != nil {
		return FormState{}, err
	}

	var (
		target   Target
		defaults diff.Values
		replica  records.Replica
	)
	switch kind {
	case form.KindAmbassador:
		if sessionID != "" {
			actor, err := s.sessions.Current(ctx, sessionID)
			if err != nil {
				return FormState{}, err
			}
			target.ID = actor.Ambassador.ID
			defaults = records.AmbassadorDefaults(actor.Ambassador)
		}
	case form.KindReplica:
		actor, err := s.sessions.Current(ctx, sessionID)
		if err != nil {
			return FormState{}, err
		}
		if req.ReplicaID != 0 {
			r, err := s.records.GetOwnedReplica(ctx, req.ReplicaID, actor.Ambassador.ID)
			if err != nil {
				return FormState{}, err
			}
			target.ID = r.ID
			defaults = records.ReplicaDefaults(r, s.cfg.Location)
		}
	case form.KindParticipant:
		actor, err := s.sessions.Current(ctx, sessionID)
		if err != nil {
			return FormState{}, err
		}
		if req.ReplicaID == 0 {
			return FormState{}, ErrReplicaRequired
		}
		replica, err = s.records.GetOwnedReplica(ctx, req.ReplicaID, actor.Ambassador.ID)
		if err != nil {
			return FormState{}, err
		}
		target.ReplicaID = replica.ID
	}

	f, err := form.New(kind, form.Config{
		Options:   s.cfg.Options,
		Resolver:  s.cfg.Resolver,
		Logger:    s.logger,
		Metrics:   s.metrics,
		Debounce:  s.cfg.Debounce,
		MinDigits: s.cfg.MinDigits,
		Location:  s.cfg.Location,
	})
	if err != nil {
		return FormState{}, err
	}
	if err := f.Mount(ctx, defaults); err != nil {
		f.Close()
		return FormState{}, err
	}
	e := s.forms.put(sessionID, target, f, replica)
	s.logger.InfoContext(ctx, "form opened", "form_id", e.id, "kind", string(kind), "target_id", target.ID)
	return state(e), nil
}

// Form returns the current state of a mounted form.
func (s *Service) Form(_ context.Context, sessionID, formID string) (FormState, error) {
	e, err := s.forms.get(formID, sessionID)
	if err != nil {
		return FormState{}, err
	}
	return state(e), nil
}

// Await waits for pending option loads and code lookups of a form, then
// returns its state.
func (s *Service) Await(ctx context.Context, sessionID, formID string) (FormState, error) {
	e, err := s.forms.get(formID, sessionID)
	if err != nil {
		return FormState{}, err
	}
	if err := e.form.Settle(ctx); err != nil {
		return FormState{}, err
	}
	return state(e), nil
}

// SetField applies one edit.
func (s *Service) SetField(ctx context.Context, sessionID, formID, key, value string) (FieldResult, error) {
	e, err := s.forms.get(formID, sessionID)
	if err != nil {
		return FieldResult{}, err
	}
	changed, err := e.form.Set(ctx, key, value)
	if err != nil {
		return FieldResult{}, err
	}
	if changed == nil {
		changed = []string{}
	}
	return FieldResult{Changed: changed, Form: state(e)}, nil
}

// ReloadOptions retries a failed option load.
func (s *Service) ReloadOptions(ctx context.Context, sessionID, formID, level string) (FormState, error) {
	e, err := s.forms.get(formID, sessionID)
	if err != nil {
		return FormState{}, err
	}
	if err := e.form.Reload(ctx, level); err != nil {
		return FormState{}, err
	}
	return state(e), nil
}

// Preview returns the partial update a submit would send right now.
func (s *Service) Preview(_ context.Context, sessionID, formID string) (diff.Payload, error) {
	e, err := s.forms.get(formID, sessionID)
	if err != nil {
		return nil, err
	}
	return e.form.PartialPayload()
}

// CloseForm discards a mounted form.
func (s *Service) CloseForm(_ context.Context, sessionID, formID string) error {
	return s.forms.remove(formID, sessionID)
}

// Submit validates the form and writes it. On failure the form keeps its
// values and dirty set so the submit can be retried.
func (s *Service) Submit(ctx context.Context, sessionID, formID string) (SubmitResult, error) {
	e, err := s.forms.get(formID, sessionID)
	if err != nil {
		return SubmitResult{}, err
	}
	e.submit.Lock()
	defer e.submit.Unlock()

	if err := e.form.Settle(ctx); err != nil {
		return SubmitResult{}, err
	}
	if err := e.form.Validate(); err != nil {
		return SubmitResult{}, err
	}

	var res SubmitResult
	switch e.form.Kind() {
	case form.KindAmbassador:
		res, err = s.submitAmbassador(ctx, e)
	case form.KindReplica:
		res, err = s.submitReplica(ctx, e)
	default:
		res, err = s.submitParticipant(ctx, e)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "submit failed", "form_id", e.id, "error", err)
		return SubmitResult{}, err
	}
	return res, nil
}

func (s *Service) submitAmbassador(ctx context.Context, e *entry) (SubmitResult, error) {
	target := e.getTarget()
	if target.Creates() {
		created, err := s.records.CreateAmbassador(ctx, records.AmbassadorFromValues(e.form.Values()))
		if err != nil {
			return SubmitResult{}, err
		}
		sessionID := uuid.NewString()
		if _, err := s.sessions.Adopt(ctx, sessionID, created); err != nil {
			return SubmitResult{}, err
		}
		s.emit(ctx, created.ID, audit.ActionAmbassadorCreated, "ambassador", created.ID, nil)
		// The signup form is done; later edits go through a session form.
		_ = s.forms.remove(e.id, e.owner)
		return SubmitResult{Action: audit.ActionAmbassadorCreated, SessionID: sessionID, Ambassador: &created}, nil
	}

	payload, err := e.form.PartialPayload()
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.records.UpdateAmbassador(ctx, target.ID, payload); err != nil {
		return SubmitResult{}, err
	}
	e.form.MarkUpdated()
	actor, err := s.sessions.Refresh(ctx, e.owner)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "could not refresh session after update", "error", err)
	}
	s.emit(ctx, target.ID, audit.ActionAmbassadorUpdated, "ambassador", target.ID, payload.Keys())
	st := state(e)
	res := SubmitResult{Action: audit.ActionAmbassadorUpdated, Payload: payload, Form: &st}
	if err == nil {
		res.Ambassador = &actor.Ambassador
	}
	return res, nil
}

func (s *Service) submitReplica(ctx context.Context, e *entry) (SubmitResult, error) {
	actor, err := s.sessions.Current(ctx, e.owner)
	if err != nil {
		return SubmitResult{}, err
	}
	target := e.getTarget()
	if target.Creates() {
		created, err := s.records.CreateReplica(ctx, records.ReplicaFromValues(e.form.Values(), actor.Ambassador.ID, s.cfg.Location))
		if err != nil {
			return SubmitResult{}, err
		}
		// Further submits of this form update the replica just created.
		e.setTarget(Target{ID: created.ID})
		e.form.MarkSubmitted()
		s.emit(ctx, actor.Ambassador.ID, audit.ActionReplicaCreated, "replica", created.ID, nil)
		st := state(e)
		return SubmitResult{Action: audit.ActionReplicaCreated, Replica: &created, Form: &st}, nil
	}

	payload, err := e.form.PartialPayload()
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.records.UpdateReplica(ctx, target.ID, payload); err != nil {
		return SubmitResult{}, err
	}
	e.form.MarkUpdated()
	s.emit(ctx, actor.Ambassador.ID, audit.ActionReplicaUpdated, "replica", target.ID, payload.Keys())
	st := state(e)
	return SubmitResult{Action: audit.ActionReplicaUpdated, Payload: payload, Form: &st}, nil
}

func (s *Service) submitParticipant(ctx context.Context, e *entry) (SubmitResult, error) {
	actor, err := s.sessions.Current(ctx, e.owner)
	if err != nil {
		return SubmitResult{}, err
	}
	reg := records.RegistrationFromValues(e.form.Values(), actor.Ambassador.ID, e.replica.ID, e.replica.CodigoModular)
	created, err := s.records.CreateRegistration(ctx, reg)
	if err != nil {
		return SubmitResult{}, err
	}
	s.emit(ctx, actor.Ambassador.ID, audit.ActionRegistrationCreated, "registration", created.ID, nil)

	// The form is cleared for the next participant of the same replica.
	if err := e.form.Mount(ctx, nil); err != nil {
		return SubmitResult{}, err
	}
	st := state(e)
	return SubmitResult{Action: audit.ActionRegistrationCreated, Registration: &created, Form: &st}, nil
}

// Replicas pages through the current ambassador's replicas.
func (s *Service) Replicas(ctx context.Context, sessionID string, p records.Page) (records.PageResult[records.Replica], error) {
	actor, err := s.sessions.Current(ctx, sessionID)
	if err != nil {
		return records.PageResult[records.Replica]{}, err
	}
	return s.records.ListAmbassadorReplicas(ctx, actor.Ambassador.ID, p)
}

// Registrations pages through participants, of one owned replica when
// replicaID is set and of every replica otherwise.
func (s *Service) Registrations(ctx context.Context, sessionID string, replicaID int64, p records.Page) (records.PageResult[records.Registration], error) {
	actor, err := s.sessions.Current(ctx, sessionID)
	if err != nil {
		return records.PageResult[records.Registration]{}, err
	}
	if replicaID == 0 {
		return s.records.ListRegistrationsByAmbassador(ctx, actor.Ambassador.ID, p)
	}
	if _, err := s.records.GetOwnedReplica(ctx, replicaID, actor.Ambassador.ID); err != nil {
		return records.PageResult[records.Registration]{}, err
	}
	return s.records.ListRegistrationsByReplica(ctx, replicaID, p)
}

func (s *Service) emit(ctx context.Context, ambassadorID int64, action audit.Action, kind string, id int64, fields []string) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, audit.Event{
		AmbassadorID: ambassadorID,
		Action:       action,
		Subject:      fmt.Sprintf("%s:%d", kind, id),
		Fields:       fields,
	})
}

func state(e *entry) FormState {
	return FormState{ID: e.id, Target: e.getTarget(), View: e.form.Snapshot()}
}
