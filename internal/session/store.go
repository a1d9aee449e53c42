// Package session persists the ambassador currently operating the
// registration flow. Every backend stores one Actor per session id and
// reports a missing or cleared session as sentinel.ErrNotFound.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldreg/internal/records"
	"fieldreg/pkg/platform/sentinel"
)

// Actor is the persisted current ambassador.
type Actor struct {
	Ambassador records.Ambassador `json:"embajador"`
	LoggedInAt time.Time          `json:"logged_in_at"`
}

// Store loads, saves and clears the current actor of a session.
type Store interface {
	Load(ctx context.Context, id string) (Actor, error)
	Save(ctx context.Context, id string, a Actor) error
	Clear(ctx context.Context, id string) error
}

var (
	// ErrNoActor is returned when nobody is logged in under a session id.
	ErrNoActor = fmt.Errorf("no current ambassador: %w", sentinel.ErrNotFound)
	// ErrEmptySessionID rejects writes without a session id.
	ErrEmptySessionID = errors.New("session id is required")
)
