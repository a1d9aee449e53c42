package options

import (
	"context"
	"strings"
	"sync"
)

// StaticRepository serves options from memory. It backs tests and the
// terminal client's offline mode, and counts loads so callers can assert
// which lookups actually reached the "network".
type StaticRepository struct {
	mu       sync.RWMutex
	roots    map[Level][]Option
	children map[Level]map[string][]Option
	loads    map[Level]int
}

// NewStaticRepository returns an empty repository.
func NewStaticRepository() *StaticRepository {
	return &StaticRepository{
		roots:    make(map[Level][]Option),
		children: make(map[Level]map[string][]Option),
		loads:    make(map[Level]int),
	}
}

// AddRoot registers the options of a root level.
func (r *StaticRepository) AddRoot(level Level, opts ...Option) *StaticRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots[level] = append(r.roots[level], opts...)
	return r
}

// AddChildren registers the options of level under parent.
func (r *StaticRepository) AddChildren(level Level, parent string, opts ...Option) *StaticRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.children[level] == nil {
		r.children[level] = make(map[string][]Option)
	}
	r.children[level][parent] = append(r.children[level][parent], opts...)
	return r
}

// LoadRoot implements Repository.
func (r *StaticRepository) LoadRoot(_ context.Context, level Level) ([]Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opts, ok := r.roots[level]
	if !ok {
		return nil, unknownLevel(level)
	}
	r.loads[level]++
	return cloneOptions(opts), nil
}

// LoadChildren implements Repository.
func (r *StaticRepository) LoadChildren(_ context.Context, level Level, parent string) ([]Option, error) {
	parent = strings.TrimSpace(parent)
	if parent == "" {
		return []Option{}, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byParent, ok := r.children[level]
	if !ok {
		return nil, unknownLevel(level)
	}
	r.loads[level]++
	return cloneOptions(byParent[parent]), nil
}

// Loads reports how many loads reached level.
func (r *StaticRepository) Loads(level Level) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loads[level]
}

func cloneOptions(in []Option) []Option {
	out := make([]Option, len(in))
	copy(out, in)
	return out
}

// SampleData returns a small offline dataset covering both chains.
func SampleData() *StaticRepository {
	return NewStaticRepository().
		AddRoot(LevelRegion,
			Option{ID: "8", Label: "CUSCO"},
			Option{ID: "15", Label: "LIMA"},
		).
		AddChildren(LevelProvincia, "8",
			Option{ID: "801", Label: "CUSCO"},
			Option{ID: "811", Label: "PAUCARTAMBO"},
		).
		AddChildren(LevelProvincia, "15",
			Option{ID: "1501", Label: "LIMA"},
			Option{ID: "1508", Label: "HUAURA"},
		).
		AddChildren(LevelDistrito, "801", Option{ID: "80101", Label: "CUSCO"}, Option{ID: "80108", Label: "WANCHAQ"}).
		AddChildren(LevelDistrito, "811", Option{ID: "81101", Label: "PAUCARTAMBO"}).
		AddChildren(LevelDistrito, "1501", Option{ID: "150101", Label: "LIMA"}, Option{ID: "150122", Label: "MIRAFLORES"}).
		AddChildren(LevelDistrito, "1508", Option{ID: "150801", Label: "HUACHO"}).
		AddRoot(LevelDRE,
			Option{ID: "1", Label: "DRE CUSCO"},
			Option{ID: "2", Label: "DRE LIMA METROPOLITANA"},
		).
		AddChildren(LevelUGEL, "1",
			Option{ID: "11", Label: "UGEL CUSCO"},
			Option{ID: "12", Label: "UGEL PAUCARTAMBO"},
		).
		AddChildren(LevelUGEL, "2",
			Option{ID: "21", Label: "UGEL 01 SAN JUAN DE MIRAFLORES"},
		)
}
