// Package lobby runs one goroutine per game. The goroutine owns the
// authoritative engine state, persists every change through the store and
// fans snapshots out to connected clients.
package lobby

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
	"github.com/DoyleJ11/jeopardy-backend/internal/snapshot"
	"github.com/DoyleJ11/jeopardy-backend/internal/store"
)

var (
	ErrNotHost   = errors.New("host token required")
	ErrForbidden = errors.New("command not allowed for this seat")
	ErrStopped   = errors.New("lobby stopped")
)

type Msg interface{ isLobbyMsg() }

// FromClient is a command from one connection. Hosts prove themselves with
// Token. Players may only buzz for their own Seat. Reply, if set, receives
// exactly one value and should be buffered.
type FromClient struct {
	Cmd   engine.Command
	Role  engine.Role
	Token string
	Seat  int
	Reply chan error
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Snapshot is what subscribers receive: the stored document at Version.
type Snapshot struct {
	LobbyID string
	Version int
	Data    snapshot.Document
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Config struct {
	ID        string
	HostToken string
	Initial   engine.State
	Store     store.Store
	Log       *zap.Logger

	// Board size for NewGame commands that leave it out.
	BoardCols int
	BoardRows int
}

type Lobby struct {
	id        string
	hostToken string
	inbox     chan Msg
	state     engine.State
	version   int
	latest    snapshot.Document
	store     store.Store
	board     [2]int
	clients   map[string]chan Snapshot
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewLobby loads the stored state for cfg.ID, or publishes cfg.Initial as
// version 1 when the store has never seen this lobby, then starts the loop.
func NewLobby(parent context.Context, cfg Config) (*Lobby, error) {
	if cfg.Store == nil {
		return nil, errors.New("lobby: nil store")
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("lobby", cfg.ID))

	stored, err := cfg.Store.Get(parent, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("load lobby %s: %w", cfg.ID, err)
	}
	state := cfg.Initial.Clone()
	if stored.Version > 0 {
		snapshot.Apply(stored.Data, &state)
	} else {
		doc, err := snapshot.Encode(state)
		if err != nil {
			return nil, err
		}
		if stored, err = cfg.Store.Update(parent, cfg.ID, doc); err != nil {
			return nil, fmt.Errorf("publish lobby %s: %w", cfg.ID, err)
		}
	}

	ctx, cancel := context.WithCancel(parent)
	l := &Lobby{
		id:        cfg.ID,
		hostToken: cfg.HostToken,
		inbox:     make(chan Msg, 64),
		state:     state,
		version:   stored.Version,
		latest:    stored.Data,
		store:     cfg.Store,
		board:     [2]int{cfg.BoardCols, cfg.BoardRows},
		clients:   make(map[string]chan Snapshot),
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	log.Info("lobby started", zap.Int("version", l.version))

	go l.loop()
	return l, nil
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = msg.Outbox
				l.send(msg.ClientID, msg.Outbox, l.snapshot())

			case Leave:
				delete(l.clients, msg.ClientID)

			case FromClient:
				err := l.handle(msg)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state.Clone(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) authorize(msg FromClient) error {
	if msg.Role == engine.RoleHost {
		if l.hostToken == "" || msg.Token != l.hostToken {
			return ErrNotHost
		}
		return nil
	}
	if msg.Cmd.Type != engine.CmdBuzz || msg.Cmd.Player != msg.Seat {
		return ErrForbidden
	}
	return nil
}

// handle applies one command. Commands that change nothing are not stored and
// not broadcast, so the version only moves when the state does.
func (l *Lobby) handle(msg FromClient) error {
	log := l.log.With(zap.String("cmd", string(msg.Cmd.Type)), zap.String("role", string(msg.Role)))
	if err := l.authorize(msg); err != nil {
		log.Debug("command rejected", zap.Error(err))
		return err
	}
	if !engine.ComputeCapabilities(l.state, msg.Role).Allows(msg.Role, msg.Cmd.Type) {
		log.Debug("command ignored on this screen", zap.String("screen", string(l.state.Screen)))
		return nil
	}

	cmd := msg.Cmd
	if cmd.Type == engine.CmdNewGame {
		if cmd.Cols <= 0 {
			cmd.Cols = l.board[0]
		}
		if cmd.Rows <= 0 {
			cmd.Rows = l.board[1]
		}
	}
	events, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	doc, err := snapshot.Encode(next)
	if err != nil {
		return err
	}
	stored, err := l.store.Update(l.ctx, l.id, doc)
	if err != nil {
		log.Error("store update failed", zap.Error(err))
		return err
	}

	l.state = next
	l.version = stored.Version
	l.latest = stored.Data
	log.Debug("state changed", zap.Int("version", l.version), zap.Int("events", len(events)))
	l.broadcast(l.snapshot())
	return nil
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{LobbyID: l.id, Version: l.version, Data: l.latest.Clone()}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch)
		delete(l.clients, id)
	}
	l.cancel()
	l.log.Info("lobby stopped", zap.Int("version", l.version))
}

// send delivers snap or drops a client whose outbox is full.
func (l *Lobby) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
	default:
		l.log.Warn("dropping slow client", zap.String("client", id))
		close(ch)
		delete(l.clients, id)
	}
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		l.send(id, ch, snap)
	}
}

func (l *Lobby) ID() string { return l.id }

func (l *Lobby) HostToken() string { return l.hostToken }

// Inbox exposes the lobby to the transport and to tests.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Stop asks the loop to exit without going through the inbox. It never blocks.
func (l *Lobby) Stop() { l.cancel() }

// Done is closed once the loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Submit sends msg and waits for the lobby's verdict.
func (l *Lobby) Submit(ctx context.Context, msg FromClient) error {
	msg.Reply = make(chan error, 1)
	select {
	case l.inbox <- msg:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-msg.Reply:
		return err
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
