// Command docketd is the docket server daemon. It loads the YAML config,
// opens the task snapshot store and serves the REST API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GoCodeAlone/docket/catalog"
	"github.com/GoCodeAlone/docket/comms"
	"github.com/GoCodeAlone/docket/config"
	"github.com/GoCodeAlone/docket/engine"
	"github.com/GoCodeAlone/docket/internal/version"
	"github.com/GoCodeAlone/docket/lawcase"
	"github.com/GoCodeAlone/docket/policy"
	"github.com/GoCodeAlone/docket/server"
	"github.com/GoCodeAlone/docket/task"
)

var (
	configPath = flag.String("config", "docket.yaml", "path to config file")
	mintToken  = flag.Bool("mint-token", false, "print a bearer token for -actor-id/-actor-name/-role and exit")
	actorID    = flag.String("actor-id", "", "actor id for -mint-token")
	actorName  = flag.String("actor-name", "", "actor display name for -mint-token")
	actorRole  = flag.String("role", string(task.RoleCaseManager), "actor role for -mint-token (attorney, caseManager, admin)")
	tokenTTL   = flag.Duration("ttl", 24*time.Hour, "token lifetime for -mint-token")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}

	if *mintToken {
		actor := policy.Actor{ID: *actorID, Name: *actorName, Role: task.Role(*actorRole)}
		token, err := server.SignActorToken(cfg.Auth.JWTSecret, actor, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to mint token: %v", err)
		}
		fmt.Println(token)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting docketd",
		"version", version.Version,
		"commit", version.Commit,
	)

	repo, err := openRepository(cfg)
	if err != nil {
		log.Fatalf("Failed to open task storage: %v", err)
	}
	if c, ok := repo.(io.Closer); ok {
		defer c.Close() //nolint:errcheck
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := comms.NewInMemoryBus()
	store := task.Open(ctx, repo, task.WithLogger(logger), task.WithPublisher(bus))
	svc := engine.NewService(store, cat, lawcase.NewFileSource(cfg.CasesPath()),
		engine.WithColumns(cfg.Matrix.Columns),
		engine.WithServiceLogger(logger))

	srv := server.New(*cfg, version.Version, logger)
	srv.SetService(svc)
	srv.SetBus(bus)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("docket ready",
		slog.String("addr", cfg.Server.Addr),
		slog.String("storage", cfg.Storage.Backend),
		slog.Int("tasks", len(store.All())),
		slog.Int("templates", len(cat.Templates())))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		logger.Error("server stop error", "error", err)
	}
}

// loadConfig reads path, or returns the defaults when the default config
// file does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) && !flagSet("config") {
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func openRepository(cfg *config.Config) (task.Repository, error) {
	path := cfg.StoragePath()
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return task.NewMemoryRepository(), nil
	case config.BackendFile:
		return task.NewFileRepository(path), nil
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		repo, err := task.NewSQLiteRepository(path, cfg.Storage.Key)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.TemplatesFile == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.TemplatesFile)
}
