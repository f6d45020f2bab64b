package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
	"github.com/DoyleJ11/jeopardy-backend/internal/hub"
	"github.com/DoyleJ11/jeopardy-backend/internal/snapshot"
	"github.com/DoyleJ11/jeopardy-backend/internal/types"
)

const (
	codeLength  = 6
	qrSize      = 320
	maxAttempts = 16
)

var errNoFreeCode = errors.New("no free lobby code")

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// joinURL is where a player scans to. Without a configured public URL it is
// derived from the request.
func joinURL(publicURL string, r *http.Request, code string) string {
	base, err := url.Parse(publicURL)
	if publicURL == "" || err != nil {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = &url.URL{Scheme: scheme, Host: r.Host}
	}
	u := *base
	u.Path = engine.RouteFor(engine.RolePlayer, engine.ScreenLobby)
	u.RawQuery = url.Values{"code": {code}}.Encode()
	return u.String()
}

func CreateLobby(h *hub.Hub, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for range maxAttempts {
			code, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			res, err := h.Ensure(r.Context(), code)
			if err != nil {
				opts.Log.Error("create lobby failed", zap.String("lobby", code), zap.Error(err))
				http.Error(w, "failed to create lobby", http.StatusInternalServerError)
				return
			}
			if !res.Created {
				opts.Log.Debug("collision on code, regenerating", zap.String("lobby", code))
				continue
			}

			opts.Log.Info("lobby created", zap.String("lobby", code))
			writeJSON(w, http.StatusCreated, types.CreateLobbyResponse{
				Code:      code,
				HostToken: res.Lobby.HostToken(),
				JoinURL:   joinURL(opts.PublicURL, r, code),
			})
			return
		}
		http.Error(w, errNoFreeCode.Error(), http.StatusServiceUnavailable)
	}
}

// GetLobby returns the latest stored snapshot so a reloading client can catch
// up before its socket delivers anything.
func GetLobby(h *hub.Hub, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		lb, err := h.Get(r.Context(), code)
		if err != nil || lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}
		st, err := h.Store().Get(r.Context(), code)
		if err != nil {
			opts.Log.Error("load lobby failed", zap.String("lobby", code), zap.Error(err))
			http.Error(w, "failed to load lobby", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, types.NewLobbyState(st.LobbyID, st.Version, st.Data))
	}
}

// ScreenRoute serves /{role}/{screen}?code=.., the URL join links point at. A
// URL for a screen the lobby is not showing redirects to the one it is.
func ScreenRoute(h *hub.Hub, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		if lb, err := h.Get(r.Context(), code); err != nil || lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}
		st, err := h.Store().Get(r.Context(), code)
		if err != nil {
			opts.Log.Error("load lobby failed", zap.String("lobby", code), zap.Error(err))
			http.Error(w, "failed to load lobby", http.StatusInternalServerError)
			return
		}

		state := engine.NewEmptyState()
		snapshot.Apply(st.Data, &state)
		role, screen := engine.ParseRoute(r.URL.Path)
		if want := engine.RouteFor(role, state.Screen); want != engine.RouteFor(role, screen) {
			u := url.URL{Path: want, RawQuery: r.URL.RawQuery}
			http.Redirect(w, r, u.String(), http.StatusFound)
			return
		}
		writeJSON(w, http.StatusOK, types.NewLobbyState(st.LobbyID, st.Version, st.Data))
	}
}

func LobbyQR(h *hub.Hub, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if lb, err := h.Get(r.Context(), code); err != nil || lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}
		png, err := qrcode.Encode(joinURL(opts.PublicURL, r, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
