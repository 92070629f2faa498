package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"chat-style-studio/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

// Store keeps collection membership in a single JSON document on disk. Every
// mutation rewrites the file.
type Store struct {
	path  string
	mu    sync.RWMutex
	state model.StoredState
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.state = defaultState()
			return s.saveLocked()
		}
		return err
	}
	if len(b) == 0 {
		s.state = defaultState()
		return s.saveLocked()
	}

	var state model.StoredState
	if err := json.Unmarshal(b, &state); err != nil {
		return err
	}
	mergeDefaults(&state)
	s.state = state
	return nil
}

func defaultState() model.StoredState {
	return model.StoredState{
		Collections: map[string][]model.ImageRef{},
		Generations: map[string][]model.GenerationRef{},
		CreatedAt:   time.Now().UTC(),
	}
}

func mergeDefaults(state *model.StoredState) {
	if state.Collections == nil {
		state.Collections = map[string][]model.ImageRef{}
	}
	if state.Generations == nil {
		state.Generations = map[string][]model.GenerationRef{}
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
}

func (s *Store) saveLocked() error {
	s.state.LastUpdatedUnixMS = time.Now().UnixMilli()
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) AddImage(ctx context.Context, ref model.ImageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.state.Collections[ref.CollectionID]
	s.state.Collections[ref.CollectionID] = appendCopy(prev, ref)
	if err := s.saveLocked(); err != nil {
		if existed {
			s.state.Collections[ref.CollectionID] = prev
		} else {
			delete(s.state.Collections, ref.CollectionID)
		}
		return err
	}
	return nil
}

func (s *Store) ListImages(ctx context.Context, collectionID string) ([]model.ImageRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	in := s.state.Collections[collectionID]
	out := make([]model.ImageRef, len(in))
	copy(out, in)
	return out, nil
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.state.Collections))
	for id := range s.state.Collections {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AddGeneration(ctx context.Context, ref model.GenerationRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.state.Generations[ref.CollectionID]
	s.state.Generations[ref.CollectionID] = appendCopy(prev, ref)
	if err := s.saveLocked(); err != nil {
		if existed {
			s.state.Generations[ref.CollectionID] = prev
		} else {
			delete(s.state.Generations, ref.CollectionID)
		}
		return err
	}
	return nil
}

func (s *Store) GetGeneration(ctx context.Context, collectionID, id string) (model.GenerationRef, error) {
	if err := ctx.Err(); err != nil {
		return model.GenerationRef{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.state.Generations[collectionID] {
		if g.ID == id {
			return g, nil
		}
	}
	return model.GenerationRef{}, ErrNotFound
}

// appendCopy never shares a backing array with in, so in stays valid for
// rollback when a save fails.
func appendCopy[T any](in []T, v T) []T {
	out := make([]T, len(in), len(in)+1)
	copy(out, in)
	return append(out, v)
}
