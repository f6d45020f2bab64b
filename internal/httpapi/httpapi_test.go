package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
	"github.com/DoyleJ11/jeopardy-backend/internal/hub"
	"github.com/DoyleJ11/jeopardy-backend/internal/mirror"
	"github.com/DoyleJ11/jeopardy-backend/internal/store"
	"github.com/DoyleJ11/jeopardy-backend/internal/types"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	h := hub.NewHub(context.Background(), hub.Options{Store: store.NewMemoryStore(), Log: log})
	srv := httptest.NewServer(SetupRoutes(h, Options{Log: log}))
	t.Cleanup(func() {
		srv.Close()
		h.Shutdown()
	})
	return srv
}

func createLobby(t *testing.T, srv *httptest.Server) types.CreateLobbyResponse {
	t.Helper()
	resp, err := http.Post(srv.URL+"/lobbies", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out types.CreateLobbyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?"+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readRaw(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	return data
}

func send(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

func TestCreateAndGetLobby(t *testing.T) {
	srv := newServer(t)
	created := createLobby(t, srv)

	assert.Len(t, created.Code, codeLength)
	assert.NotEmpty(t, created.HostToken)
	assert.Contains(t, created.JoinURL, "/player/lobby?code="+created.Code)

	resp, err := http.Get(srv.URL + "/lobbies/" + created.Code)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msg types.LobbyStateMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, types.TypeLobbyState, msg.Type)
	assert.Equal(t, created.Code, msg.LobbyID)
	assert.Equal(t, 1, msg.Version)
	assert.JSONEq(t, `"lobby"`, string(msg.Data["screen"]))
}

func TestUnknownLobby(t *testing.T) {
	srv := newServer(t)
	for _, path := range []string{"/lobbies/NOPE42", "/lobbies/NOPE42/qr.png", "/ws?code=NOPE42"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestLobbyQR(t *testing.T) {
	srv := newServer(t)
	created := createLobby(t, srv)

	resp, err := http.Get(srv.URL + "/lobbies/" + created.Code + "/qr.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWS_HostDrivesPlayerMirror(t *testing.T) {
	srv := newServer(t)
	created := createLobby(t, srv)

	player := dial(t, srv, "code="+created.Code+"&role=player&seat=1")
	m := mirror.New(created.Code, engine.RolePlayer, nil)
	require.True(t, m.HandleMessage(readRaw(t, player)))
	assert.Equal(t, "/player/lobby", m.Route())

	host := dial(t, srv, "code="+created.Code+"&role=host&token="+created.HostToken)
	_ = readRaw(t, host)

	send(t, host, types.ClientMessage{Type: "NewGame", Cols: 2, Rows: 2})
	require.True(t, m.HandleMessage(readRaw(t, player)))
	assert.Equal(t, 2, m.Version())
	assert.Equal(t, "/player/game", m.Route())

	send(t, host, types.ClientMessage{Type: "PickTile", Category: 1, Tile: 1})
	send(t, host, types.ClientMessage{Type: "MarkIncorrect"})
	require.True(t, m.HandleMessage(readRaw(t, player)))
	require.True(t, m.HandleMessage(readRaw(t, player)))
	require.True(t, m.Capabilities().CanBuzz)

	send(t, player, types.ClientMessage{Type: "Buzz", Player: 1})
	require.True(t, m.HandleMessage(readRaw(t, player)))
	s := m.State()
	assert.Equal(t, 1, s.QuestionAnswererIndex)
	assert.Equal(t, -200, s.Players[0].Score)
	assert.False(t, s.BuzzerOpen)
}

func TestWS_Errors(t *testing.T) {
	srv := newServer(t)
	created := createLobby(t, srv)

	impostor := dial(t, srv, "code="+created.Code)
	_ = readRaw(t, impostor)

	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"bad json", `{"type":`, "bad json"},
		{"unknown type", `{"type":"LockPick"}`, "unknown type"},
		{"missing token", `{"type":"NewGame"}`, "host token required"},
		{"wrong token", `{"type":"NewGame","token":"nope"}`, "host token required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			require.NoError(t, impostor.Write(ctx, websocket.MessageText, []byte(tt.msg)))

			var got types.ErrorMessage
			require.NoError(t, json.Unmarshal(readRaw(t, impostor), &got))
			assert.Equal(t, types.TypeError, got.Type)
			assert.Equal(t, tt.want, got.Error)
		})
	}
}

func TestWS_DisconnectReleasesGoroutines(t *testing.T) {
	srv := newServer(t)
	created := createLobby(t, srv)
	query := "code=" + created.Code + "&role=player&seat=0"

	cycle := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?"+query, nil)
		require.NoError(t, err)
		_, _, err = conn.Read(ctx)
		require.NoError(t, err)
		require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	}

	cycle()
	before := runtime.NumGoroutine()
	const cycles = 30
	for range cycles {
		cycle()
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+5
	}, 3*time.Second, 20*time.Millisecond, "goroutines before=%d after=%d", before, runtime.NumGoroutine())
}

func TestScreenRoute(t *testing.T) {
	srv := newServer(t)
	created := createLobby(t, srv)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(created.JoinURL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/player/question?code=" + created.Code)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/player/lobby?code="+created.Code, resp.Header.Get("Location"))

	for path, want := range map[string]int{
		"/player/lobby":             http.StatusBadRequest,
		"/host/game?code=NOPE42":    http.StatusNotFound,
		"/spectator/lobby?code=abc": http.StatusNotFound,
	} {
		resp, err := client.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}
