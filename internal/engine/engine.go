package engine

import (
	"errors"
	"slices"
	"strings"
)

var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseQuestionOpen Phase = "question_open"
	PhaseBuzzerOpen   Phase = "buzzer_open"
)

type CommandType string

const (
	CmdNewGame        CommandType = "NewGame"
	CmdPickTile       CommandType = "PickTile"
	CmdRevealAnswer   CommandType = "RevealAnswer"
	CmdMarkCorrect    CommandType = "MarkCorrect"
	CmdMarkIncorrect  CommandType = "MarkIncorrect"
	CmdBuzz           CommandType = "Buzz"
	CmdSetAnswerer    CommandType = "SetAnswerer"
	CmdSetTurn        CommandType = "SetTurn"
	CmdBackWithoutUse CommandType = "BackWithoutUse"
	CmdNavigate       CommandType = "Navigate"
	CmdSetMaxPlayers  CommandType = "SetMaxPlayers"
	CmdRenamePlayer   CommandType = "RenamePlayer"
)

/*
	CmdPickTile       -> EvtTileSelected
	CmdMarkCorrect    -> EvtScoreChanged -> EvtTurnAdvanced -> EvtTileUsed -> EvtQuestionEnded
	CmdMarkIncorrect  -> EvtScoreChanged -> EvtBuzzerOpened
	CmdMarkCorrect and CmdMarkIncorrect are ignored until a buzz or
	CmdSetAnswerer closes the buzzer again.
	CmdBuzz           -> EvtPlayerBuzzed -> EvtAnswererChanged
	CmdBackWithoutUse -> EvtQuestionEnded
	A command that does not change anything produces no events.
*/

type Command struct {
	Type       CommandType
	Category   int
	Tile       int
	Player     int
	Screen     Screen
	Name       string
	Cols       int
	Rows       int
	MaxPlayers int
}

type EventType string

const (
	EvtGameStarted     EventType = "GameStarted"
	EvtTileSelected    EventType = "TileSelected"
	EvtAnswerRevealed  EventType = "AnswerRevealed"
	EvtScoreChanged    EventType = "ScoreChanged"
	EvtTurnAdvanced    EventType = "TurnAdvanced"
	EvtTileUsed        EventType = "TileUsed"
	EvtBuzzerOpened    EventType = "BuzzerOpened"
	EvtPlayerBuzzed    EventType = "PlayerBuzzed"
	EvtAnswererChanged EventType = "AnswererChanged"
	EvtQuestionEnded   EventType = "QuestionEnded"
	EvtScreenChanged   EventType = "ScreenChanged"
	EvtRosterChanged   EventType = "RosterChanged"
)

type Event struct {
	Type     EventType
	Player   int
	Delta    int
	Category int
	Tile     int
	Screen   Screen
}

// DerivePhase reports where the question round stands. Resolution is not a
// phase of its own: it happens inside a single Apply and lands back in idle.
func DerivePhase(s State) Phase {
	if s.Screen != ScreenQuestion || s.Selected == nil {
		return PhaseIdle
	}
	if s.BuzzerOpen || len(s.BuzzedQueue) > 0 {
		return PhaseBuzzerOpen
	}
	return PhaseQuestionOpen
}

// Apply runs cmd against a copy of s. Commands that are not legal in the
// current state are ignored: they return no events and the unchanged state.
func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s.Clone()
	phase := DerivePhase(s)

	switch cmd.Type {
	case CmdNewGame:
		newState.Board = BuildDummyBoard(cmd.Cols, cmd.Rows)
		newState.Selected = nil
		newState.EndQuestionRound()
		newState.ensureRoster()
		for i := range newState.Players {
			newState.Players[i].Score = 0
		}
		newState.SetTurn(0)
		newState.Screen = ScreenBoard
		return []Event{{Type: EvtGameStarted}, {Type: EvtScreenChanged, Screen: ScreenBoard}}, newState, nil

	case CmdPickTile:
		if phase != PhaseIdle || s.Screen != ScreenBoard {
			return nil, s, nil
		}
		tile, ok := newState.TileAt(cmd.Category, cmd.Tile)
		if !ok || tile.Used {
			return nil, s, nil
		}
		newState.Selected = &Selection{cmd.Category, cmd.Tile}
		newState.StartQuestionRound()
		newState.Screen = ScreenQuestion
		return []Event{
			{Type: EvtTileSelected, Category: cmd.Category, Tile: cmd.Tile, Player: newState.ActivePlayerIndex},
			{Type: EvtScreenChanged, Screen: ScreenQuestion},
		}, newState, nil

	case CmdRevealAnswer:
		if phase == PhaseIdle || s.QuestionAnswerRevealed {
			return nil, s, nil
		}
		newState.QuestionAnswerRevealed = true
		return []Event{{Type: EvtAnswerRevealed}}, newState, nil

	case CmdMarkCorrect:
		// While the buzzer is open nobody is answering yet.
		if phase == PhaseIdle || s.BuzzerOpen {
			return nil, s, nil
		}
		tile, ok := newState.SelectedTile()
		if !ok {
			return nil, s, nil
		}
		newState.ensureRoster()
		answerer := newState.QuestionAnswererIndex
		newState.Players[answerer].Score += tile.Value

		// The next turn is counted from whoever picked the tile, not from the
		// player who won it on the buzzer.
		newState.SetTurn(newState.QuestionTurnOwnerIndex)
		newState.AdvanceTurn(1)

		events := []Event{
			{Type: EvtScoreChanged, Player: answerer, Delta: tile.Value},
			{Type: EvtTurnAdvanced, Player: newState.ActivePlayerIndex},
			{Type: EvtTileUsed, Category: newState.Selected.Category(), Tile: newState.Selected.Tile()},
		}
		tile.Used = true
		return append(events, finishQuestion(&newState)...), newState, nil

	case CmdMarkIncorrect:
		if phase == PhaseIdle || s.BuzzerOpen {
			return nil, s, nil
		}
		tile, ok := newState.SelectedTile()
		if !ok {
			return nil, s, nil
		}
		newState.ensureRoster()
		answerer := newState.QuestionAnswererIndex
		newState.Players[answerer].Score -= tile.Value
		newState.OpenBuzzer()
		return []Event{
			{Type: EvtScoreChanged, Player: answerer, Delta: -tile.Value},
			{Type: EvtBuzzerOpened},
		}, newState, nil

	case CmdBuzz:
		if phase != PhaseBuzzerOpen || !s.BuzzerOpen {
			return nil, s, nil
		}
		if cmd.Player < 0 || cmd.Player >= len(s.Players) || slices.Contains(s.BuzzedQueue, cmd.Player) {
			return nil, s, nil
		}
		newState.BuzzedQueue = append(newState.BuzzedQueue, cmd.Player)
		// First to buzz wins; the window closes until the host reopens it.
		winner := newState.BuzzedQueue[0]
		newState.SetAnswerer(winner)
		newState.BuzzerOpen = false
		return []Event{
			{Type: EvtPlayerBuzzed, Player: cmd.Player},
			{Type: EvtAnswererChanged, Player: newState.QuestionAnswererIndex},
		}, newState, nil

	case CmdSetAnswerer:
		if phase == PhaseIdle || len(s.Players) == 0 {
			return nil, s, nil
		}
		newState.SetAnswerer(cmd.Player)
		// Naming an answerer by hand closes an open buzzer.
		newState.BuzzerOpen = false
		if newState.QuestionAnswererIndex == s.QuestionAnswererIndex && !s.BuzzerOpen {
			return nil, s, nil
		}
		return []Event{{Type: EvtAnswererChanged, Player: newState.QuestionAnswererIndex}}, newState, nil

	case CmdSetTurn:
		if phase != PhaseIdle || len(s.Players) == 0 {
			return nil, s, nil
		}
		newState.SetTurn(cmd.Player)
		if newState.ActivePlayerIndex == s.ActivePlayerIndex {
			return nil, s, nil
		}
		return []Event{{Type: EvtTurnAdvanced, Player: newState.ActivePlayerIndex}}, newState, nil

	case CmdBackWithoutUse:
		if s.Screen != ScreenQuestion && s.Selected == nil {
			return nil, s, nil
		}
		return finishQuestion(&newState), newState, nil

	case CmdNavigate:
		if !cmd.Screen.Valid() {
			return nil, s, nil
		}
		var events []Event
		if s.Screen == ScreenQuestion && cmd.Screen != ScreenQuestion {
			newState.Selected = nil
			newState.EndQuestionRound()
			events = append(events, Event{Type: EvtQuestionEnded})
		}
		newState.Screen = resolveScreen(&newState, cmd.Screen)
		if newState.Screen != s.Screen {
			events = append(events, Event{Type: EvtScreenChanged, Screen: newState.Screen})
		}
		if len(events) == 0 {
			return nil, s, nil
		}
		return events, newState, nil

	case CmdSetMaxPlayers:
		if phase != PhaseIdle || cmd.MaxPlayers <= 0 || cmd.MaxPlayers == len(s.Players) {
			return nil, s, nil
		}
		newState.EnsurePlayers(cmd.MaxPlayers)
		return []Event{{Type: EvtRosterChanged}}, newState, nil

	case CmdRenamePlayer:
		name := strings.TrimSpace(cmd.Name)
		if name == "" || cmd.Player < 0 || cmd.Player >= len(s.Players) || s.Players[cmd.Player].Name == name {
			return nil, s, nil
		}
		newState.Players[cmd.Player].Name = name
		return []Event{{Type: EvtRosterChanged, Player: cmd.Player}}, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// finishQuestion leaves the question screen, used or not.
func finishQuestion(s *State) []Event {
	s.Selected = nil
	s.EndQuestionRound()
	s.Screen = resolveScreen(s, ScreenBoard)
	return []Event{{Type: EvtQuestionEnded}, {Type: EvtScreenChanged, Screen: s.Screen}}
}

// resolveScreen falls back to a screen that can actually be shown: no board
// means lobby, and a question needs a valid selection.
func resolveScreen(s *State, want Screen) Screen {
	switch want {
	case ScreenQuestion:
		if _, ok := s.SelectedTile(); ok {
			return ScreenQuestion
		}
		return resolveScreen(s, ScreenBoard)
	case ScreenBoard:
		if s.Board == nil {
			return ScreenLobby
		}
		return ScreenBoard
	default:
		return ScreenLobby
	}
}

// replay runs a command log from a fresh state, skipping anything the
// engine rejects.
func replay(cmds []Command) State {
	s := NewEmptyState()
	for _, cmd := range cmds {
		_, next, err := Apply(s, cmd)
		if err != nil {
			continue
		}
		s = next
	}
	return s
}

// NormalizeScreen moves the state off a screen it cannot show.
func (s *State) NormalizeScreen() {
	s.Screen = resolveScreen(s, s.Screen)
}
