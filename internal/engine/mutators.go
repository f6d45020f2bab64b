package engine

import "fmt"

// The mutators below never fail. Out-of-range input is clamped and every call
// leaves exactly one player with IsTurn set whenever the roster is non-empty.

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

func defaultPlayerName(i int) string {
	return fmt.Sprintf("Player %d", i+1)
}

// EnsurePlayers resizes the roster to maxPlayers, keeping existing players.
// A non-positive maxPlayers means DefaultMaxPlayers.
func (s *State) EnsurePlayers(maxPlayers int) {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	s.MaxPlayers = maxPlayers

	if len(s.Players) == 0 {
		s.Players = make([]Player, maxPlayers)
		for i := range s.Players {
			s.Players[i] = Player{Name: defaultPlayerName(i)}
		}
		s.ActivePlayerIndex = 0
	}

	for i := len(s.Players); i < maxPlayers; i++ {
		s.Players = append(s.Players, Player{Name: defaultPlayerName(i)})
	}
	if len(s.Players) > maxPlayers {
		s.Players = s.Players[:maxPlayers]
	}

	s.QuestionTurnOwnerIndex = clamp(s.QuestionTurnOwnerIndex, len(s.Players))
	s.QuestionAnswererIndex = clamp(s.QuestionAnswererIndex, len(s.Players))
	s.SetTurn(s.ActivePlayerIndex)
}

func (s *State) ensureRoster() { s.EnsurePlayers(s.MaxPlayers) }

func (s *State) SetTurn(index int) {
	if len(s.Players) == 0 {
		return
	}
	index = clamp(index, len(s.Players))
	s.ActivePlayerIndex = index
	for i := range s.Players {
		s.Players[i].IsTurn = i == index
	}
}

// AdvanceTurn moves the turn around the ring. Negative steps walk backwards.
func (s *State) AdvanceTurn(step int) {
	n := len(s.Players)
	if n == 0 {
		return
	}
	next := ((s.ActivePlayerIndex+step)%n + n) % n
	s.SetTurn(next)
}

// StartQuestionRound makes the player whose turn it is both owner and first
// answerer of the question being opened.
func (s *State) StartQuestionRound() {
	s.ensureRoster()
	s.QuestionTurnOwnerIndex = s.ActivePlayerIndex
	s.QuestionAnswererIndex = s.ActivePlayerIndex
	s.QuestionAnswerRevealed = false
	s.BuzzerOpen = false
	s.BuzzedQueue = nil
}

func (s *State) OpenBuzzer() {
	s.BuzzerOpen = true
	s.BuzzedQueue = nil
}

func (s *State) SetAnswerer(index int) {
	if len(s.Players) == 0 {
		return
	}
	s.QuestionAnswererIndex = clamp(index, len(s.Players))
}

func (s *State) EndQuestionRound() {
	s.BuzzerOpen = false
	s.BuzzedQueue = nil
	s.QuestionAnswerRevealed = false
}
