// Package store keeps the latest snapshot document of every lobby together
// with a version counter that grows by one on every update.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/jeopardy-backend/internal/snapshot"
)

var ErrEmptyLobbyID = errors.New("empty lobby id")

type LobbyState struct {
	LobbyID   string            `json:"lobby_id"`
	Version   int               `json:"version"`
	Data      snapshot.Document `json:"data"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store is the shared, versioned lobby holder. Get creates a lobby on first
// reference. Update bumps the version, stamps the time and merges patch key by
// key, all as one atomic step.
type Store interface {
	Get(ctx context.Context, lobbyID string) (LobbyState, error)
	Update(ctx context.Context, lobbyID string, patch snapshot.Document) (LobbyState, error)
	Close() error
}
