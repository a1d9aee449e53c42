package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"fieldreg/internal/audit"
	"fieldreg/internal/records"
	"fieldreg/pkg/platform/sentinel"
	"fieldreg/pkg/requestcontext"
)

var (
	// ErrUnknownAmbassador is returned when no ambassador has the document.
	ErrUnknownAmbassador = fmt.Errorf("ambassador not registered: %w", sentinel.ErrNotFound)
	// ErrEmptyDocument rejects a login without a document number.
	ErrEmptyDocument = errors.New("document number is required")
)

// Directory is the subset of records.Client the session service reads.
type Directory interface {
	FindAmbassadorByDocument(ctx context.Context, document string) (records.Ambassador, error)
	GetAmbassador(ctx context.Context, id int64) (records.Ambassador, error)
}

// Emitter receives audit events.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service resolves and remembers the ambassador behind a session id.
type Service struct {
	store     Store
	directory Directory
	audit     Emitter
	logger    *slog.Logger

	// mu serializes writes so a Refresh racing a Logout cannot bring a
	// cleared session back.
	mu sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAudit(e Emitter) ServiceOption {
	return func(s *Service) {
		s.audit = e
	}
}

func NewService(store Store, directory Directory, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Login finds the ambassador by document number and stores it as the
// current actor of sessionID.
func (s *Service) Login(ctx context.Context, sessionID, document string) (Actor, error) {
	document = strings.TrimSpace(document)
	if document == "" {
		return Actor{}, ErrEmptyDocument
	}
	amb, err := s.directory.FindAmbassadorByDocument(ctx, document)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.InfoContext(ctx, "login with unknown document")
		return Actor{}, ErrUnknownAmbassador
	}
	if err != nil {
		return Actor{}, err
	}

	actor := Actor{Ambassador: amb, LoggedInAt: requestcontext.Now(ctx)}
	s.mu.Lock()
	err = s.store.Save(ctx, sessionID, actor)
	s.mu.Unlock()
	if err != nil {
		return Actor{}, err
	}
	s.emit(ctx, amb.ID, audit.ActionLogin)
	s.logger.InfoContext(ctx, "ambassador logged in", "ambassador_id", amb.ID)
	return actor, nil
}

// Logout clears the session. Logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	actor, err := s.store.Load(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return err
	}
	s.emit(ctx, actor.Ambassador.ID, audit.ActionLogout)
	return nil
}

// Current returns the actor of sessionID or ErrNoActor.
func (s *Service) Current(ctx context.Context, sessionID string) (Actor, error) {
	if sessionID == "" {
		return Actor{}, ErrNoActor
	}
	return s.store.Load(ctx, sessionID)
}

// ValidateSession reports the ambassador id behind sessionID.
func (s *Service) ValidateSession(ctx context.Context, sessionID string) (int64, error) {
	actor, err := s.Current(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return actor.Ambassador.ID, nil
}

// Refresh re-reads the current ambassador after an edit so later forms
// start from the stored record.
func (s *Service) Refresh(ctx context.Context, sessionID string) (Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	actor, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Actor{}, err
	}
	amb, err := s.directory.GetAmbassador(ctx, actor.Ambassador.ID)
	if err != nil {
		return Actor{}, err
	}
	actor.Ambassador = amb
	if err := s.store.Save(ctx, sessionID, actor); err != nil {
		return Actor{}, err
	}
	return actor, nil
}

// Adopt stores a freshly created ambassador as the current actor.
func (s *Service) Adopt(ctx context.Context, sessionID string, amb records.Ambassador) (Actor, error) {
	actor := Actor{Ambassador: amb, LoggedInAt: requestcontext.Now(ctx)}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(ctx, sessionID, actor); err != nil {
		return Actor{}, err
	}
	return actor, nil
}

func (s *Service) emit(ctx context.Context, ambassadorID int64, action audit.Action) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, audit.Event{AmbassadorID: ambassadorID, Action: action})
}
