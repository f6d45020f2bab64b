package snapshot

import (
	"bytes"
	"encoding/json"

	"github.com/spf13/cast"

	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
)

// Field is an optional value: Set reports whether the document carried it.
type Field[T any] struct {
	Set   bool
	Value T
}

func set[T any](v T) Field[T] { return Field[T]{Set: true, Value: v} }

// Patch is the validated form of a Document. Unset fields leave the target
// state untouched.
type Patch struct {
	Screen                 Field[engine.Screen]
	Board                  Field[*engine.Board]
	Selected               Field[*engine.Selection]
	MaxPlayers             Field[int]
	Players                Field[[]PlayerPatch]
	ActivePlayerIndex      Field[int]
	QuestionTurnOwnerIndex Field[int]
	QuestionAnswererIndex  Field[int]
	BuzzerOpen             Field[bool]
	BuzzedQueue            Field[[]int]
	AnswerRevealed         Field[bool]
}

var null = []byte("null")

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), null)
}

func decodeAny(raw json.RawMessage) (any, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

func decodeInt(raw json.RawMessage) (int, bool) {
	v, ok := decodeAny(raw)
	if !ok || v == nil {
		return 0, false
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func decodeBool(raw json.RawMessage) (bool, bool) {
	v, ok := decodeAny(raw)
	if !ok || v == nil {
		return false, false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// decodeIndex reads a player index. Unlike other numbers a broken index does
// not keep its prior value: it resets to 0 and is clamped later.
func decodeIndex(raw json.RawMessage) Field[int] {
	n, ok := decodeInt(raw)
	if !ok {
		return set(0)
	}
	return set(n)
}

// PlayerPatch is one roster entry. Unset fields fall back to the player at
// the same index in the target state.
type PlayerPatch struct {
	Name   Field[string]
	Score  Field[int]
	IsTurn Field[bool]
}

func decodePlayers(raw json.RawMessage) (Field[[]PlayerPatch], bool) {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return Field[[]PlayerPatch]{}, false
	}
	players := make([]PlayerPatch, 0, len(items))
	for _, item := range items {
		var p PlayerPatch
		if v, ok := item["name"]; ok && v != nil {
			if name, err := cast.ToStringE(v); err == nil {
				p.Name = set(name)
			}
		}
		if v, ok := item["score"]; ok && v != nil {
			if score, err := cast.ToIntE(v); err == nil {
				p.Score = set(score)
			}
		}
		if v, ok := item["is_turn"]; ok && v != nil {
			if turn, err := cast.ToBoolE(v); err == nil {
				p.IsTurn = set(turn)
			}
		}
		players = append(players, p)
	}
	return set(players), true
}

func mergePlayers(prev []engine.Player, patch []PlayerPatch) []engine.Player {
	out := make([]engine.Player, len(patch))
	for i, p := range patch {
		if i < len(prev) {
			out[i] = prev[i]
		}
		if p.Name.Set {
			out[i].Name = p.Name.Value
		}
		if p.Score.Set {
			out[i].Score = p.Score.Value
		}
		if p.IsTurn.Set {
			out[i].IsTurn = p.IsTurn.Value
		}
	}
	return out
}

func decodeQueue(raw json.RawMessage) (Field[[]int], bool) {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return Field[[]int]{}, false
	}
	var queue []int
	for _, item := range items {
		if n, err := cast.ToIntE(item); err == nil {
			queue = append(queue, n)
		}
	}
	return set(queue), true
}

func decodeSelected(raw json.RawMessage) (Field[*engine.Selection], bool) {
	if isNull(raw) {
		return set[*engine.Selection](nil), true
	}
	var pair []any
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return Field[*engine.Selection]{}, false
	}
	c, err1 := cast.ToIntE(pair[0])
	t, err2 := cast.ToIntE(pair[1])
	if err1 != nil || err2 != nil {
		return Field[*engine.Selection]{}, false
	}
	return set(&engine.Selection{c, t}), true
}

func decodeBoard(raw json.RawMessage) (Field[*engine.Board], bool) {
	if isNull(raw) {
		return set[*engine.Board](nil), true
	}
	var b engine.Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return Field[*engine.Board]{}, false
	}
	return set(&b), true
}

// Decode validates doc at the boundary. It never fails: unreadable keys are
// left unset, except index keys, which fall back to 0.
func Decode(doc Document) Patch {
	var p Patch
	for key, raw := range doc {
		switch key {
		case KeyScreen:
			var s string
			if json.Unmarshal(raw, &s) == nil && engine.Screen(s).Valid() {
				p.Screen = set(engine.Screen(s))
			}
		case KeyBoard:
			p.Board, _ = decodeBoard(raw)
		case KeySelected:
			p.Selected, _ = decodeSelected(raw)
		case KeyMaxPlayers:
			if n, ok := decodeInt(raw); ok && n > 0 {
				p.MaxPlayers = set(n)
			}
		case KeyPlayers:
			p.Players, _ = decodePlayers(raw)
		case KeyActivePlayerIndex:
			p.ActivePlayerIndex = decodeIndex(raw)
		case KeyQuestionTurnOwnerIndex:
			p.QuestionTurnOwnerIndex = decodeIndex(raw)
		case KeyQuestionAnswererIndex:
			p.QuestionAnswererIndex = decodeIndex(raw)
		case KeyBuzzerOpen:
			if b, ok := decodeBool(raw); ok {
				p.BuzzerOpen = set(b)
			}
		case KeyBuzzedQueue:
			p.BuzzedQueue, _ = decodeQueue(raw)
		case KeyAnswerRevealed:
			if b, ok := decodeBool(raw); ok {
				p.AnswerRevealed = set(b)
			}
		}
	}
	return p
}

func (p Patch) rosterTouched() bool {
	return p.Players.Set || p.MaxPlayers.Set || p.ActivePlayerIndex.Set ||
		p.QuestionTurnOwnerIndex.Set || p.QuestionAnswererIndex.Set
}

// ApplyTo merges the set fields into s and restores the state invariants:
// one player holds the turn, indices point at real players and the screen can
// be shown.
func (p Patch) ApplyTo(s *engine.State) {
	if p.Screen.Set {
		s.Screen = p.Screen.Value
	}
	if p.Board.Set {
		s.Board = p.Board.Value
	}
	if p.Selected.Set {
		s.Selected = p.Selected.Value
	}
	if p.MaxPlayers.Set {
		s.MaxPlayers = p.MaxPlayers.Value
	}
	if p.Players.Set {
		s.Players = mergePlayers(s.Players, p.Players.Value)
	}
	if p.ActivePlayerIndex.Set {
		s.ActivePlayerIndex = p.ActivePlayerIndex.Value
	}
	if p.QuestionTurnOwnerIndex.Set {
		s.QuestionTurnOwnerIndex = p.QuestionTurnOwnerIndex.Value
	}
	if p.QuestionAnswererIndex.Set {
		s.QuestionAnswererIndex = p.QuestionAnswererIndex.Value
	}
	if p.BuzzerOpen.Set {
		s.BuzzerOpen = p.BuzzerOpen.Value
	}
	if p.BuzzedQueue.Set {
		s.BuzzedQueue = p.BuzzedQueue.Value
	}
	if p.AnswerRevealed.Set {
		s.QuestionAnswerRevealed = p.AnswerRevealed.Value
	}

	if p.rosterTouched() {
		s.EnsurePlayers(s.MaxPlayers)
	}
	clampSelection(s)
	s.NormalizeScreen()
}

// clampSelection pulls an out-of-range coordinate back onto the board. Without
// a board there is nothing to select.
func clampSelection(s *engine.State) {
	if s.Selected == nil {
		return
	}
	if s.Board == nil || len(s.Board.Categories) == 0 {
		s.Selected = nil
		return
	}
	c := min(max(s.Selected.Category(), 0), len(s.Board.Categories)-1)
	tiles := s.Board.Categories[c].Tiles
	if len(tiles) == 0 {
		s.Selected = nil
		return
	}
	t := min(max(s.Selected.Tile(), 0), len(tiles)-1)
	s.Selected = &engine.Selection{c, t}
}
