package engine

import "testing"

func TestComputeCapabilities(t *testing.T) {
	buzzing := State{Screen: ScreenQuestion, BuzzerOpen: true}

	cases := []struct {
		name  string
		state State
		role  Role
		want  Capabilities
	}{
		{name: "host on lobby", state: State{Screen: ScreenLobby}, role: RoleHost, want: Capabilities{}},
		{name: "host on board", state: State{Screen: ScreenBoard}, role: RoleHost, want: Capabilities{CanPickTile: true, CanSelectTurn: true}},
		{name: "host in question", state: State{Screen: ScreenQuestion}, role: RoleHost, want: Capabilities{CanAwardPoints: true, CanSimulateBuzzer: true}},
		{name: "player on board", state: State{Screen: ScreenBoard}, role: RolePlayer, want: Capabilities{}},
		{name: "player in question", state: State{Screen: ScreenQuestion}, role: RolePlayer, want: Capabilities{}},
		{name: "player while buzzer open", state: buzzing, role: RolePlayer, want: Capabilities{CanBuzz: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeCapabilities(tc.state, tc.role); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestCapabilities_Allows(t *testing.T) {
	board := ComputeCapabilities(State{Screen: ScreenBoard}, RoleHost)
	if !board.Allows(RoleHost, CmdPickTile) || board.Allows(RoleHost, CmdMarkCorrect) {
		t.Fatalf("host on board: %+v", board)
	}
	if !board.Allows(RoleHost, CmdNewGame) {
		t.Fatalf("host may always start a new game")
	}

	player := ComputeCapabilities(State{Screen: ScreenQuestion, BuzzerOpen: true}, RolePlayer)
	if !player.Allows(RolePlayer, CmdBuzz) {
		t.Fatalf("player should be able to buzz")
	}
	for _, cmd := range []CommandType{CmdMarkCorrect, CmdNewGame, CmdNavigate, CmdSetAnswerer} {
		if player.Allows(RolePlayer, cmd) {
			t.Fatalf("player must not be allowed %s", cmd)
		}
	}
}

func TestRoutes(t *testing.T) {
	if got := RouteFor(RolePlayer, ScreenBoard); got != "/player/game" {
		t.Fatalf("got %q", got)
	}
	if got := RouteFor(RoleHost, Screen("nope")); got != "/host/lobby" {
		t.Fatalf("got %q", got)
	}

	for _, screen := range []Screen{ScreenLobby, ScreenBoard, ScreenQuestion} {
		role, back := ParseRoute(RouteFor(RolePlayer, screen))
		if role != RolePlayer || back != screen {
			t.Fatalf("round trip %s: got %s %s", screen, role, back)
		}
	}

	role, screen := ParseRoute("/")
	if role != RoleHost || screen != ScreenLobby {
		t.Fatalf("root: got %s %s", role, screen)
	}
}
