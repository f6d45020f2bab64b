package engine

type Screen string

const (
	ScreenLobby    Screen = "lobby"
	ScreenBoard    Screen = "board"
	ScreenQuestion Screen = "question"
)

func (s Screen) Valid() bool {
	switch s {
	case ScreenLobby, ScreenBoard, ScreenQuestion:
		return true
	}
	return false
}

type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// ParseRole normalizes a role string. Unknown roles fall back to host, the same
// default the session store hands out.
func ParseRole(s string) Role {
	switch Role(s) {
	case RolePlayer:
		return RolePlayer
	default:
		return RoleHost
	}
}

type Question struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

type Tile struct {
	Value    int      `json:"value"`
	Used     bool     `json:"used"`
	Question Question `json:"question"`
}

type Category struct {
	Title string `json:"title"`
	Tiles []Tile `json:"tiles"`
}

type Board struct {
	Categories []Category `json:"categories"`
}

type Player struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	IsTurn bool   `json:"is_turn"`
}

// Selection is a (category, tile) coordinate into the board.
type Selection [2]int

func (s Selection) Category() int { return s[0] }
func (s Selection) Tile() int     { return s[1] }

const DefaultMaxPlayers = 4

type State struct {
	Screen   Screen
	Board    *Board
	Selected *Selection

	MaxPlayers        int
	Players           []Player
	ActivePlayerIndex int

	QuestionTurnOwnerIndex int
	QuestionAnswererIndex  int
	QuestionAnswerRevealed bool

	BuzzerOpen  bool
	BuzzedQueue []int
}

// Clone returns a deep copy so reducers never write through to the caller's state.
func (s State) Clone() State {
	out := s
	if s.Board != nil {
		b := Board{Categories: make([]Category, len(s.Board.Categories))}
		for i, c := range s.Board.Categories {
			b.Categories[i] = Category{Title: c.Title, Tiles: append([]Tile(nil), c.Tiles...)}
		}
		out.Board = &b
	}
	if s.Selected != nil {
		sel := *s.Selected
		out.Selected = &sel
	}
	out.Players = append([]Player(nil), s.Players...)
	out.BuzzedQueue = append([]int(nil), s.BuzzedQueue...)
	return out
}

// SelectedTile returns the tile under Selected, if both the board and the
// coordinate are valid.
func (s *State) SelectedTile() (*Tile, bool) {
	if s.Selected == nil {
		return nil, false
	}
	return s.TileAt(s.Selected.Category(), s.Selected.Tile())
}

func (s *State) TileAt(cat, tile int) (*Tile, bool) {
	if s.Board == nil || cat < 0 || cat >= len(s.Board.Categories) {
		return nil, false
	}
	tiles := s.Board.Categories[cat].Tiles
	if tile < 0 || tile >= len(tiles) {
		return nil, false
	}
	return &tiles[tile], true
}

func (s *State) ActivePlayer() (*Player, bool) {
	if len(s.Players) == 0 {
		return nil, false
	}
	return &s.Players[clamp(s.ActivePlayerIndex, len(s.Players))], true
}

func (s *State) Answerer() (*Player, bool) {
	if len(s.Players) == 0 {
		return nil, false
	}
	return &s.Players[clamp(s.QuestionAnswererIndex, len(s.Players))], true
}
