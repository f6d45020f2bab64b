package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/jeopardy-backend/internal/config"
	"github.com/DoyleJ11/jeopardy-backend/internal/httpapi"
	"github.com/DoyleJ11/jeopardy-backend/internal/hub"
	"github.com/DoyleJ11/jeopardy-backend/internal/logging"
	"github.com/DoyleJ11/jeopardy-backend/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := &config.Config{}
	cmd := config.NewCommand("jeopardy-server", "Hosts Jeopardy lobbies over HTTP and WebSocket.", cfg, run)
	cobra.CheckErr(cmd.Execute())
}

func openStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.Store == config.StorePostgres {
		return store.NewPostgresStore(cfg.DatabaseURL, log.Named("store"))
	}
	return store.NewMemoryStore(), nil
}

func run(cmd *cobra.Command, cfg *config.Config) (err error) {
	log, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	h := hub.NewHub(context.Background(), hub.Options{
		Store:      st,
		Log:        log.Named("lobby"),
		MaxPlayers: cfg.MaxPlayers,
		BoardCols:  cfg.BoardCols,
		BoardRows:  cfg.BoardRows,
	})
	defer h.Shutdown()

	if cfg.DefaultLobby != "" {
		res, err := h.Ensure(ctx, cfg.DefaultLobby)
		if err != nil {
			return fmt.Errorf("start default lobby: %w", err)
		}
		log.Info("default lobby ready",
			zap.String("lobby", cfg.DefaultLobby),
			zap.String("host_token", res.Lobby.HostToken()))
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(h, httpapi.Options{
			PublicURL:      cfg.PublicURL,
			OriginPatterns: cfg.Origins,
			Log:            log.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
