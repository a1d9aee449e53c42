// Package cascade keeps dependent selects consistent: it loads child options
// when a parent value changes, clears descendants on interactive changes and
// exempts exactly one observation per parent from clearing so a form can be
// hydrated from a saved record.
package cascade

import (
	"errors"
	"fmt"

	"fieldreg/internal/options"
	"fieldreg/pkg/platform/sentinel"
)

// LoadState tracks option availability for one level.
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "not_loaded"
	}
}

// MarshalText renders the state as its name in JSON snapshots.
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Chain is an ordered root-to-leaf path of levels.
type Chain []options.Level

var (
	// Geography is region → provincia → distrito.
	Geography = Chain{options.LevelRegion, options.LevelProvincia, options.LevelDistrito}
	// Education is DRE → UGEL.
	Education = Chain{options.LevelDRE, options.LevelUGEL}
)

// LevelState is an immutable view of one level.
type LevelState struct {
	Key      options.Level    `json:"key"`
	Parent   options.Level    `json:"parent,omitempty"`
	Options  []options.Option `json:"options"`
	Selected string           `json:"selected"`
	State    LoadState        `json:"state"`
	Error    string           `json:"error,omitempty"`
}

// Snapshot is a consistent view of every level, in chain order.
type Snapshot []LevelState

// Level returns the state of key.
func (s Snapshot) Level(key options.Level) (LevelState, bool) {
	for _, l := range s {
		if l.Key == key {
			return l, true
		}
	}
	return LevelState{}, false
}

var (
	ErrUnknownLevel    = errors.New("cascade: unknown level")
	ErrUnknownOption   = errors.New("cascade: value is not one of the loaded options")
	ErrParentEmpty     = fmt.Errorf("cascade: parent has no selected value: %w", sentinel.ErrInvalidState)
	ErrAlreadySeeded   = fmt.Errorf("cascade: hydration already consumed: %w", sentinel.ErrInvalidState)
	ErrSeedAfterSelect = fmt.Errorf("cascade: cannot seed after an interactive selection: %w", sentinel.ErrInvalidState)
)
