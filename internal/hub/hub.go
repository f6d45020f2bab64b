package hub

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/jeopardy-backend/internal/engine"
	"github.com/DoyleJ11/jeopardy-backend/internal/lobby"
	"github.com/DoyleJ11/jeopardy-backend/internal/store"
)

var ErrHubStopped = errors.New("hub stopped")

type HubMsg interface{ isHubMsg() }

// Result is the answer to CreateLobby and EnsureLobby. Created tells the
// caller whether it owns the freshly issued host token.
type Result struct {
	Lobby   *lobby.Lobby
	Created bool
	Err     error
}

type CreateLobby struct {
	Code  string
	Reply chan Result
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Code  string
	Reply chan Result
}

type RemoveLobby struct {
	Code string
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Store      store.Store
	Log        *zap.Logger
	MaxPlayers int
	BoardCols  int
	BoardRows  int
}

type Hub struct {
	inbox      chan HubMsg
	lobbies    map[string]*lobby.Lobby
	store      store.Store
	log        *zap.Logger
	maxPlayers int
	boardCols  int
	boardRows  int
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	st := opts.Store
	if st == nil {
		st = store.NewMemoryStore()
	}
	h := &Hub{
		inbox:      make(chan HubMsg, 64),
		lobbies:    make(map[string]*lobby.Lobby),
		store:      st,
		log:        log,
		maxPlayers: opts.MaxPlayers,
		boardCols:  opts.BoardCols,
		boardRows:  opts.BoardRows,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed after every lobby has been asked to stop.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) Store() store.Store { return h.store }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					msg.Reply <- Result{Lobby: lb}
					break
				}
				msg.Reply <- h.start(msg.Code)

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					msg.Reply <- Result{Lobby: lb}
					break
				}
				msg.Reply <- h.start(msg.Code)

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					lb.Stop()
					delete(h.lobbies, msg.Code)
					h.log.Info("lobby removed", zap.String("lobby", msg.Code))
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// start runs a new lobby actor with a fresh host token.
func (h *Hub) start(code string) Result {
	initial := engine.NewEmptyState()
	initial.EnsurePlayers(h.maxPlayers)

	lb, err := lobby.NewLobby(h.ctx, lobby.Config{
		ID:        code,
		HostToken: uuid.NewString(),
		Initial:   initial,
		Store:     h.store,
		Log:       h.log,
		BoardCols: h.boardCols,
		BoardRows: h.boardRows,
	})
	if err != nil {
		h.log.Error("lobby start failed", zap.String("lobby", code), zap.Error(err))
		return Result{Err: err}
	}
	h.lobbies[code] = lb
	return Result{Lobby: lb, Created: true}
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Stop()
	}
	clear(h.lobbies)
	h.cancel()
}

func (h *Hub) ask(ctx context.Context, msg HubMsg) error {
	select {
	case h.inbox <- msg:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the running lobby for code, or nil.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.ask(ctx, GetLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ensure returns the lobby for code, starting it if needed.
func (h *Hub) Ensure(ctx context.Context, code string) (Result, error) {
	reply := make(chan Result, 1)
	if err := h.ask(ctx, EnsureLobby{Code: code, Reply: reply}); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-h.done:
		return Result{}, ErrHubStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
	}
	<-h.done
}
