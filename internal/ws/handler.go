package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
	"github.com/DoyleJ11/jeopardy-backend/internal/hub"
	"github.com/DoyleJ11/jeopardy-backend/internal/lobby"
	"github.com/DoyleJ11/jeopardy-backend/internal/types"
)

var (
	errBadJSON     = errors.New("bad json")
	errUnknownType = errors.New("unknown type")
)

const (
	outboxSize   = 8
	writeTimeout = 3 * time.Second
)

type Options struct {
	Log            *zap.Logger
	OriginPatterns []string
}

// Handler upgrades /ws?code=..&role=host|player&seat=N. A host may pass its
// token once as a query parameter instead of on every message.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		role := engine.ParseRole(q.Get("role"))
		seat := 0
		if s := q.Get("seat"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "bad seat", http.StatusBadRequest)
				return
			}
			seat = n
		}

		lb, err := h.Get(r.Context(), code)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("lobby", code), zap.String("client", clientID), zap.String("role", string(role)))
		log.Info("client connected")

		out := make(chan lobby.Snapshot, outboxSize)
		select {
		case lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}:
		case <-lb.Done():
			conn.Close(websocket.StatusTryAgainLater, "lobby closed")
			return
		}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Leave{ClientID: clientID}:
			case <-lb.Done():
			}
			log.Info("client disconnected")
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// The lobby dropped us or stopped.
						conn.Close(websocket.StatusTryAgainLater, "lobby closed the stream")
						return
					}
					if err := write(writeCtx, conn, types.NewLobbyState(snap.LobbyID, snap.Version, snap.Data)); err != nil {
						log.Debug("write failed", zap.Error(err))
						return
					}
				}
			}
		}()

		hostToken := q.Get("token")
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(r.Context(), conn, types.NewError(errBadJSON))
				continue
			}
			cmd, ok := cm.Command()
			if !ok {
				_ = write(r.Context(), conn, types.NewError(errUnknownType))
				continue
			}
			token := cm.Token
			if token == "" {
				token = hostToken
			}

			err = lb.Submit(r.Context(), lobby.FromClient{Cmd: cmd, Role: role, Token: token, Seat: seat})
			if errors.Is(err, lobby.ErrStopped) {
				return
			}
			if err != nil {
				_ = write(r.Context(), conn, types.NewError(err))
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
