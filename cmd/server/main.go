package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shardlabs/shardfeed/internal/config"
	"github.com/shardlabs/shardfeed/internal/domain"
	"github.com/shardlabs/shardfeed/internal/graph/memory"
	"github.com/shardlabs/shardfeed/internal/graph/neo4j"
	"github.com/shardlabs/shardfeed/internal/graph/sqlite"
	"github.com/shardlabs/shardfeed/internal/httpserver"
	"github.com/shardlabs/shardfeed/internal/stream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	defer closeStore()
	logger.Info("graph store ready", "backend", cfg.Store)

	broadcaster := stream.NewBroadcaster(logger)

	engine, err := domain.NewService(store, domain.ServiceConfig{
		MaxVisited: cfg.MaxVisited,
		Events:     broadcaster,
	}, logger)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	server := httpserver.NewServer(cfg, engine, broadcaster, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port, "store", cfg.Store)

	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}

// openStore builds the configured graph store backend and returns it with a
// cleanup function.
func openStore(ctx context.Context, cfg *config.Config) (domain.GraphStore, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewStore(), func() {}, nil

	case config.StoreSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case config.StoreNeo4j:
		store, err := neo4j.NewStore(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
