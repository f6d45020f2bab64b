package mirror

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
	"github.com/DoyleJ11/jeopardy-backend/internal/snapshot"
	"github.com/DoyleJ11/jeopardy-backend/internal/types"
)

func stateMsg(t *testing.T, lobbyID string, version int, s engine.State) []byte {
	t.Helper()
	doc, err := snapshot.Encode(s)
	require.NoError(t, err)
	b, err := json.Marshal(types.NewLobbyState(lobbyID, version, doc))
	require.NoError(t, err)
	return b
}

func boardState(t *testing.T) engine.State {
	t.Helper()
	_, s, err := engine.Apply(engine.NewEmptyState(), engine.Command{Type: engine.CmdNewGame, Cols: 2, Rows: 2})
	require.NoError(t, err)
	return s
}

func TestMirror_AppliesNewerSnapshot(t *testing.T) {
	m := New("dev", engine.RolePlayer, nil)
	assert.Equal(t, "/player/lobby", m.Route())

	require.True(t, m.HandleMessage(stateMsg(t, "dev", 1, boardState(t))))

	assert.Equal(t, 1, m.Version())
	assert.Equal(t, engine.ScreenBoard, m.State().Screen)
	assert.Equal(t, "/player/game", m.Route())
}

func TestMirror_DropsStaleVersions(t *testing.T) {
	m := New("dev", engine.RolePlayer, nil)
	board := boardState(t)

	require.True(t, m.HandleMessage(stateMsg(t, "dev", 5, board)))
	assert.False(t, m.HandleMessage(stateMsg(t, "dev", 4, engine.NewEmptyState())))
	assert.False(t, m.HandleMessage(stateMsg(t, "dev", 5, engine.NewEmptyState())))

	assert.Equal(t, 5, m.Version())
	assert.Equal(t, engine.ScreenBoard, m.State().Screen)
}

func TestMirror_Filters(t *testing.T) {
	board := boardState(t)
	tests := []struct {
		name string
		role engine.Role
		data []byte
	}{
		{"other lobby", engine.RolePlayer, stateMsg(t, "other", 1, board)},
		{"host ignores broadcasts", engine.RoleHost, stateMsg(t, "dev", 1, board)},
		{"error message", engine.RolePlayer, []byte(`{"type":"error","error":"nope"}`)},
		{"not json", engine.RolePlayer, []byte(`lobby_state`)},
		{"missing version", engine.RolePlayer, []byte(`{"type":"lobby_state","lobby_id":"dev","data":{"screen":"board"}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("dev", tt.role, nil)
			assert.False(t, m.HandleMessage(tt.data))
			assert.Equal(t, 0, m.Version())
			assert.Equal(t, engine.ScreenLobby, m.State().Screen)
		})
	}
}

func TestMirror_CapabilitiesFollowState(t *testing.T) {
	m := New("dev", engine.RolePlayer, nil)
	s := boardState(t)
	_, s, err := engine.Apply(s, engine.Command{Type: engine.CmdPickTile})
	require.NoError(t, err)
	require.True(t, m.HandleMessage(stateMsg(t, "dev", 1, s)))
	assert.False(t, m.Capabilities().CanBuzz)

	_, s, err = engine.Apply(s, engine.Command{Type: engine.CmdMarkIncorrect})
	require.NoError(t, err)
	require.True(t, m.HandleMessage(stateMsg(t, "dev", 2, s)))
	assert.True(t, m.Capabilities().CanBuzz)
	assert.Equal(t, "/player/question", m.Route())
}

func TestMirror_StateIsACopy(t *testing.T) {
	m := New("dev", engine.RolePlayer, nil)
	require.True(t, m.HandleMessage(stateMsg(t, "dev", 1, boardState(t))))

	s := m.State()
	s.Players[0].Score = 999
	assert.Equal(t, 0, m.State().Players[0].Score)
}
