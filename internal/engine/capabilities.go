package engine

type Capabilities struct {
	CanPickTile       bool `json:"can_pick_tile"`
	CanSelectTurn     bool `json:"can_select_turn"`
	CanAwardPoints    bool `json:"can_award_points"`
	CanSimulateBuzzer bool `json:"can_simulate_buzzer"`
	CanBuzz           bool `json:"can_buzz"`
}

// ComputeCapabilities derives what a client in the given role may do right now.
// It has no side effects and is safe to call on every render.
func ComputeCapabilities(s State, role Role) Capabilities {
	if role != RoleHost {
		return Capabilities{
			CanBuzz: s.Screen == ScreenQuestion && s.BuzzerOpen,
		}
	}
	onBoard := s.Screen == ScreenBoard
	inQuestion := s.Screen == ScreenQuestion
	return Capabilities{
		CanPickTile:       onBoard,
		CanSelectTurn:     onBoard,
		CanAwardPoints:    inQuestion,
		CanSimulateBuzzer: inQuestion,
	}
}

// Allows reports whether a command from role is permitted by the capabilities
// of s. Commands outside the gameplay set (new game, navigation, roster edits)
// are host-only but not screen-gated.
func (c Capabilities) Allows(role Role, t CommandType) bool {
	switch t {
	case CmdPickTile:
		return c.CanPickTile
	case CmdSetTurn:
		return c.CanSelectTurn
	case CmdMarkCorrect, CmdMarkIncorrect, CmdRevealAnswer, CmdBackWithoutUse:
		return c.CanAwardPoints
	case CmdSetAnswerer:
		return c.CanSimulateBuzzer
	case CmdBuzz:
		return c.CanSimulateBuzzer || c.CanBuzz
	default:
		return role == RoleHost
	}
}
