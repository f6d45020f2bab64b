package engine

import "fmt"

const (
	DefaultBoardCols = 6
	DefaultBoardRows = 5
)

func NewEmptyState() State {
	s := State{
		Screen:     ScreenLobby,
		MaxPlayers: DefaultMaxPlayers,
	}
	s.ensureRoster() // Players show up on join, before any game starts
	return s
}

// BuildDummyBoard generates a placeholder board with values 100, 200, ... per row.
// Non-positive dimensions fall back to the defaults.
func BuildDummyBoard(cols, rows int) *Board {
	if cols <= 0 {
		cols = DefaultBoardCols
	}
	if rows <= 0 {
		rows = DefaultBoardRows
	}

	b := &Board{Categories: make([]Category, cols)}
	for c := range cols {
		tiles := make([]Tile, rows)
		for r := range rows {
			v := (r + 1) * 100
			tiles[r] = Tile{
				Value: v,
				Question: Question{
					Prompt: fmt.Sprintf("Question for %d in category %d", v, c+1),
					Answer: fmt.Sprintf("Answer for %d (category %d)", v, c+1),
				},
			}
		}
		b.Categories[c] = Category{Title: fmt.Sprintf("Category %d", c+1), Tiles: tiles}
	}
	return b
}

// RemainingTiles counts tiles that can still be picked.
func RemainingTiles(b *Board) int {
	if b == nil {
		return 0
	}
	n := 0
	for _, c := range b.Categories {
		for _, t := range c.Tiles {
			if !t.Used {
				n++
			}
		}
	}
	return n
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
