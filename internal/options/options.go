// Package options loads the hierarchical option sets behind the dependent
// selects of the registration forms. Repositories are stateless; caching and
// invalidation belong to the cascade controller.
package options

import (
	"context"
	"strings"
)

// Level identifies one select in a dependency chain.
type Level string

const (
	LevelRegion    Level = "region"
	LevelProvincia Level = "provincia"
	LevelDistrito  Level = "distrito"
	LevelDRE       Level = "dre"
	LevelUGEL      Level = "ugel"
)

// String implements fmt.Stringer.
func (l Level) String() string { return string(l) }

// Option is one selectable entry.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Repository returns option sets. LoadChildren with a blank parent returns an
// empty slice without touching the network.
type Repository interface {
	LoadRoot(ctx context.Context, level Level) ([]Option, error)
	LoadChildren(ctx context.Context, level Level, parent string) ([]Option, error)
}

// Find returns the option with the given id.
func Find(opts []Option, id string) (Option, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// FindByLabel returns the first option whose label matches, ignoring case and
// surrounding whitespace. Saved records sometimes carry a name instead of an id.
func FindByLabel(opts []Option, label string) (Option, bool) {
	label = strings.TrimSpace(label)
	for _, o := range opts {
		if strings.EqualFold(strings.TrimSpace(o.Label), label) {
			return o, true
		}
	}
	return Option{}, false
}
