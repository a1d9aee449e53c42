package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps actors in a single JSON document on disk. It backs the
// terminal client, where the document survives between runs.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context, id string) (Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	actors, err := s.read()
	if err != nil {
		return Actor{}, err
	}
	a, ok := actors[id]
	if !ok {
		return Actor{}, ErrNoActor
	}
	return a, nil
}

func (s *FileStore) Save(_ context.Context, id string, a Actor) error {
	if id == "" {
		return ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	actors, err := s.read()
	if err != nil {
		return err
	}
	actors[id] = a
	return s.write(actors)
}

func (s *FileStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	actors, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := actors[id]; !ok {
		return nil
	}
	delete(actors, id)
	return s.write(actors)
}

func (s *FileStore) read() (map[string]Actor, error) {
	actors := make(map[string]Actor)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return actors, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(data) == 0 {
		return actors, nil
	}
	if err := json.Unmarshal(data, &actors); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return actors, nil
}

// write replaces the document through a temp file and rename so a crash
// never leaves a half-written session behind.
func (s *FileStore) write(actors map[string]Actor) error {
	data, err := json.MarshalIndent(actors, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
