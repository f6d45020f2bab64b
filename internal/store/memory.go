package store

import (
	"context"
	"sync"
	"time"

	"github.com/DoyleJ11/jeopardy-backend/internal/snapshot"
)

// MemoryStore is a process-wide Store. Entries live until the process exits.
type MemoryStore struct {
	mu      sync.Mutex
	lobbies map[string]*LobbyState
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lobbies: make(map[string]*LobbyState),
		now:     time.Now,
	}
}

// getOrCreate must be called with mu held.
func (s *MemoryStore) getOrCreate(id string) *LobbyState {
	l, ok := s.lobbies[id]
	if !ok {
		l = &LobbyState{LobbyID: id, Data: snapshot.Document{}, UpdatedAt: s.now()}
		s.lobbies[id] = l
	}
	return l
}

// copyOf must be called with mu held. Callers never see the stored document.
func copyOf(l *LobbyState) LobbyState {
	out := *l
	out.Data = l.Data.Clone()
	return out
}

func (s *MemoryStore) Get(_ context.Context, id string) (LobbyState, error) {
	if id == "" {
		return LobbyState{}, ErrEmptyLobbyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOf(s.getOrCreate(id)), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch snapshot.Document) (LobbyState, error) {
	if id == "" {
		return LobbyState{}, ErrEmptyLobbyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.getOrCreate(id)
	l.Version++
	l.UpdatedAt = s.now()
	l.Data.Merge(patch)
	return copyOf(l), nil
}

// count reports how many lobbies have been referenced so far.
func (s *MemoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lobbies)
}

func (s *MemoryStore) Close() error { return nil }
