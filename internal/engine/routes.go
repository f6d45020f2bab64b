package engine

import "strings"

var screenToRoute = map[Screen]string{
	ScreenLobby:    "lobby",
	ScreenBoard:    "game",
	ScreenQuestion: "question",
}

var routeToScreen = map[string]Screen{
	"lobby":    ScreenLobby,
	"game":     ScreenBoard,
	"question": ScreenQuestion,
}

// RouteFor returns the URL path a client in role should show for screen.
func RouteFor(role Role, screen Screen) string {
	tail, ok := screenToRoute[screen]
	if !ok {
		tail = "lobby"
	}
	return "/" + string(role) + "/" + tail
}

// ParseRoute splits "/{role}/{tail}" back into a role and screen. Missing or
// unknown parts fall back to host and lobby.
func ParseRoute(path string) (Role, Screen) {
	parts := strings.FieldsFunc(strings.ToLower(path), func(r rune) bool { return r == '/' })
	role, screen := RoleHost, ScreenLobby
	if len(parts) >= 1 {
		role = ParseRole(parts[0])
	}
	if len(parts) >= 2 {
		if s, ok := routeToScreen[parts[1]]; ok {
			screen = s
		}
	}
	return role, screen
}
