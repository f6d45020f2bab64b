package types

import (
	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
	"github.com/DoyleJ11/jeopardy-backend/internal/snapshot"
)

const (
	TypeLobbyState = "lobby_state"
	TypeError      = "error"
)

// ClientMessage is a command sent over the socket. Type is an engine command
// name such as "PickTile". Token is required for every host command.
type ClientMessage struct {
	Type       string `json:"type"`
	Token      string `json:"token,omitempty"`
	Category   int    `json:"category,omitempty"`
	Tile       int    `json:"tile,omitempty"`
	Player     int    `json:"player,omitempty"`
	Screen     string `json:"screen,omitempty"`
	Name       string `json:"name,omitempty"`
	Cols       int    `json:"cols,omitempty"`
	Rows       int    `json:"rows,omitempty"`
	MaxPlayers int    `json:"max_players,omitempty"`
}

// Command converts m into an engine command. Unknown types report false.
func (m ClientMessage) Command() (engine.Command, bool) {
	t := engine.CommandType(m.Type)
	switch t {
	case engine.CmdNewGame, engine.CmdPickTile, engine.CmdRevealAnswer,
		engine.CmdMarkCorrect, engine.CmdMarkIncorrect, engine.CmdBuzz,
		engine.CmdSetAnswerer, engine.CmdSetTurn, engine.CmdBackWithoutUse,
		engine.CmdNavigate, engine.CmdSetMaxPlayers, engine.CmdRenamePlayer:
	default:
		return engine.Command{}, false
	}
	return engine.Command{
		Type:       t,
		Category:   m.Category,
		Tile:       m.Tile,
		Player:     m.Player,
		Screen:     engine.Screen(m.Screen),
		Name:       m.Name,
		Cols:       m.Cols,
		Rows:       m.Rows,
		MaxPlayers: m.MaxPlayers,
	}, true
}

// LobbyStateMessage carries a full snapshot of one lobby.
type LobbyStateMessage struct {
	Type    string            `json:"type"`
	LobbyID string            `json:"lobby_id"`
	Version int               `json:"version"`
	Data    snapshot.Document `json:"data"`
}

func NewLobbyState(lobbyID string, version int, data snapshot.Document) LobbyStateMessage {
	return LobbyStateMessage{Type: TypeLobbyState, LobbyID: lobbyID, Version: version, Data: data}
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewError(err error) ErrorMessage {
	return ErrorMessage{Type: TypeError, Error: err.Error()}
}

// CreateLobbyResponse is returned once per lobby. The host token is never
// sent again.
type CreateLobbyResponse struct {
	Code      string `json:"code"`
	HostToken string `json:"host_token"`
	JoinURL   string `json:"join_url,omitempty"`
}
