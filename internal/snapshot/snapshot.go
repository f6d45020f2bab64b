// Package snapshot converts engine state to and from the plain document that
// is stored per lobby and broadcast to clients.
//
// Decoding is lenient: a document may carry any subset of keys, and a key
// whose value cannot be read leaves the local field as it was.
package snapshot

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
)

const (
	KeyScreen                 = "screen"
	KeyBoard                  = "board"
	KeySelected               = "selected"
	KeyMaxPlayers             = "max_players"
	KeyPlayers                = "players"
	KeyActivePlayerIndex      = "active_player_index"
	KeyQuestionTurnOwnerIndex = "question_turn_owner_index"
	KeyQuestionAnswererIndex  = "question_answerer_index"
	KeyBuzzerOpen             = "buzzer_open"
	KeyBuzzedQueue            = "buzzed_queue"
	KeyAnswerRevealed         = "question_answer_revealed"
)

// Document is a snapshot keyed by top-level field. Values stay encoded so the
// store can merge documents key by key without understanding them.
type Document map[string]json.RawMessage

func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Merge overwrites every key present in patch. Keys missing from patch keep
// their stored value.
func (d Document) Merge(patch Document) {
	maps.Copy(d, patch.Clone())
}

// Encode projects the full state. The host always sends complete snapshots, so
// every key is present.
func Encode(s engine.State) (Document, error) {
	queue := s.BuzzedQueue
	if queue == nil {
		queue = []int{}
	}
	players := s.Players
	if players == nil {
		players = []engine.Player{}
	}

	fields := map[string]any{
		KeyScreen:                 s.Screen,
		KeyBoard:                  s.Board,
		KeySelected:               s.Selected,
		KeyMaxPlayers:             s.MaxPlayers,
		KeyPlayers:                players,
		KeyActivePlayerIndex:      s.ActivePlayerIndex,
		KeyQuestionTurnOwnerIndex: s.QuestionTurnOwnerIndex,
		KeyQuestionAnswererIndex:  s.QuestionAnswererIndex,
		KeyBuzzerOpen:             s.BuzzerOpen,
		KeyBuzzedQueue:            queue,
		KeyAnswerRevealed:         s.QuestionAnswerRevealed,
	}

	doc := make(Document, len(fields))
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		doc[k] = raw
	}
	return doc, nil
}

// Apply merges doc into s. See Decode for how individual keys are read.
func Apply(doc Document, s *engine.State) {
	Decode(doc).ApplyTo(s)
}
