// Command player joins a lobby as a player and prints the game as the host
// drives it. With --buzz it rings in as soon as the buzzer opens.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/jeopardy-backend/internal/config"
	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
	"github.com/DoyleJ11/jeopardy-backend/internal/logging"
	"github.com/DoyleJ11/jeopardy-backend/internal/mirror"
	"github.com/DoyleJ11/jeopardy-backend/internal/types"
)

type options struct {
	server   string
	code     string
	seat     int
	buzz     bool
	logLevel string
	dev      bool
}

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "jeopardy-player",
		Short:         "Follows a Jeopardy lobby from a player seat.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.server, "server", "s", "http://localhost:8080", "server base URL (env: JEOPARDY_SERVER)")
	fs.StringVarP(&opts.code, "code", "c", "dev", "lobby code (env: JEOPARDY_CODE)")
	fs.IntVar(&opts.seat, "seat", 0, "player seat, starting at 0 (env: JEOPARDY_SEAT)")
	fs.BoolVar(&opts.buzz, "buzz", false, "buzz in whenever the buzzer opens (env: JEOPARDY_BUZZ)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error (env: JEOPARDY_LOG_LEVEL)")
	fs.BoolVarP(&opts.dev, "dev", "d", true, "human readable logs (env: JEOPARDY_DEV)")
	config.ApplyEnv(fs)

	cobra.CheckErr(cmd.Execute())
}

// fetchState loads the stored snapshot so the first render does not wait for
// the next host change.
func fetchState(ctx context.Context, base *url.URL, code string) (types.LobbyStateMessage, error) {
	u := base.JoinPath("lobbies", code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return types.LobbyStateMessage{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return types.LobbyStateMessage{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.LobbyStateMessage{}, fmt.Errorf("get lobby %s: %s", code, resp.Status)
	}
	var msg types.LobbyStateMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return types.LobbyStateMessage{}, fmt.Errorf("decode lobby %s: %w", code, err)
	}
	return msg, nil
}

func socketURL(base *url.URL, code string, seat int) string {
	u := base.JoinPath("ws")
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.RawQuery = url.Values{
		"code": {code},
		"role": {string(engine.RolePlayer)},
		"seat": {strconv.Itoa(seat)},
	}.Encode()
	return u.String()
}

func describe(log *zap.Logger, m *mirror.Mirror) {
	s := m.State()
	scores := make([]string, len(s.Players))
	for i, p := range s.Players {
		scores[i] = fmt.Sprintf("%s=%d", p.Name, p.Score)
	}
	fields := []zap.Field{
		zap.Int("version", m.Version()),
		zap.String("route", m.Route()),
		zap.String("scores", strings.Join(scores, " ")),
	}
	if s.Board != nil {
		fields = append(fields, zap.Int("tiles_left", engine.RemainingTiles(s.Board)))
	}
	if p, ok := s.ActivePlayer(); ok {
		fields = append(fields, zap.String("turn", p.Name))
	}
	if t, ok := s.SelectedTile(); ok {
		fields = append(fields, zap.String("question", t.Question.Prompt))
		if p, ok := s.Answerer(); ok {
			fields = append(fields, zap.String("answering", p.Name))
		}
		if s.QuestionAnswerRevealed {
			fields = append(fields, zap.String("answer", t.Question.Answer))
		}
		fields = append(fields, zap.Bool("buzzer_open", s.BuzzerOpen))
	}
	log.Info("state", fields...)
}

func run(parent context.Context, opts *options) error {
	log, err := logging.New(opts.logLevel, opts.dev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	base, err := url.Parse(opts.server)
	if err != nil {
		return fmt.Errorf("server url: %w", err)
	}
	log = log.With(zap.String("lobby", opts.code), zap.Int("seat", opts.seat))

	m := mirror.New(opts.code, engine.RolePlayer, log)
	initial, err := fetchState(ctx, base, opts.code)
	if err != nil {
		return err
	}
	if m.Apply(initial) {
		describe(log, m)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	conn, _, err := websocket.Dial(dialCtx, socketURL(base, opts.code, opts.seat), nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	log.Info("joined")

	buzzedAt := 0
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		if !m.HandleMessage(data) {
			var e types.ErrorMessage
			if json.Unmarshal(data, &e) == nil && e.Type == types.TypeError {
				log.Warn("server error", zap.String("error", e.Error))
			}
			continue
		}
		describe(log, m)

		// One buzz per snapshot; the server ignores repeats anyway.
		if opts.buzz && m.Capabilities().CanBuzz && buzzedAt != m.Version() {
			buzzedAt = m.Version()
			if err := wsjson.Write(ctx, conn, types.ClientMessage{Type: string(engine.CmdBuzz), Player: opts.seat}); err != nil {
				return fmt.Errorf("buzz: %w", err)
			}
			log.Info("buzzed")
		}
	}
}
