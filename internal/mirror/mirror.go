// Package mirror keeps a player's read-only copy of a lobby in step with the
// snapshots the host publishes.
package mirror

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
	"github.com/DoyleJ11/jeopardy-backend/internal/snapshot"
	"github.com/DoyleJ11/jeopardy-backend/internal/types"
)

// Mirror is not safe for concurrent use.
type Mirror struct {
	lobbyID string
	role    engine.Role
	version int
	state   engine.State
	log     *zap.Logger
}

func New(lobbyID string, role engine.Role, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{
		lobbyID: lobbyID,
		role:    role,
		state:   engine.NewEmptyState(),
		log:     log.With(zap.String("lobby", lobbyID)),
	}
}

// HandleMessage decodes one raw message and applies it. Anything that is not
// a lobby_state message is dropped.
func (m *Mirror) HandleMessage(data []byte) bool {
	var msg types.LobbyStateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		m.log.Debug("dropping unreadable message", zap.Error(err))
		return false
	}
	return m.Apply(msg)
}

// Apply merges msg into the mirror and reports whether it was used. Snapshots
// for other lobbies, snapshots at or below the last applied version and every
// snapshot seen by a host are ignored.
func (m *Mirror) Apply(msg types.LobbyStateMessage) bool {
	if msg.Type != types.TypeLobbyState || msg.LobbyID != m.lobbyID || m.role == engine.RoleHost {
		return false
	}
	if msg.Version <= m.version {
		m.log.Debug("dropping stale snapshot", zap.Int("version", msg.Version), zap.Int("have", m.version))
		return false
	}
	snapshot.Apply(msg.Data, &m.state)
	m.version = msg.Version
	return true
}

func (m *Mirror) Version() int { return m.version }

func (m *Mirror) State() engine.State { return m.state.Clone() }

// Route is the path this client should be showing.
func (m *Mirror) Route() string { return engine.RouteFor(m.role, m.state.Screen) }

func (m *Mirror) Capabilities() engine.Capabilities {
	return engine.ComputeCapabilities(m.state, m.role)
}
