package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/probelab/flowboard/pkg/api"
	"github.com/probelab/flowboard/pkg/config"
	"github.com/probelab/flowboard/pkg/editor"
	"github.com/probelab/flowboard/pkg/flows"
	"github.com/probelab/flowboard/pkg/registry"
	"github.com/probelab/flowboard/pkg/storage"
)

// App wires storage, the flow store, the node type registry, the editor
// session, and the API server together
type App struct {
	provider   storage.StorageProvider
	flows      *flows.Manager
	registry   *registry.CustomNodeRegistry
	controller *editor.Controller
	server     *api.Server
	logger     hclog.Logger
}

// NewApp initializes the application from configuration
func NewApp(cfg *config.Config, logger hclog.Logger) (*App, error) {
	provider, err := newStorageProvider(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	flowMgr := flows.NewManager(provider.GetDocumentStore(), flows.Options{
		Logger:          logger,
		PersistDebounce: time.Duration(cfg.Editor.PersistDebounceMs) * time.Millisecond,
	})

	reg := registry.NewCustomNodeRegistry(provider.GetCustomNodeStore(), logger)

	controller, err := editor.NewController(flowMgr, reg, editor.Options{
		Logger:           logger,
		MaxHistorySize:   cfg.Editor.MaxHistorySize,
		SnapshotDebounce: time.Duration(cfg.Editor.SnapshotDebounceMs) * time.Millisecond,
	})
	if err != nil {
		provider.Close()
		return nil, err
	}

	return &App{
		provider:   provider,
		flows:      flowMgr,
		registry:   reg,
		controller: controller,
		server:     api.NewServer(cfg, controller, flowMgr, reg, logger),
		logger:     logger,
	}, nil
}

// Start runs the HTTP server until shutdown
func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops the server and flushes pending state to storage
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error

	if err := a.server.Stop(ctx); err != nil {
		firstErr = err
	}

	a.controller.Close()

	if err := a.flows.Close(); err != nil {
		a.logger.Error("failed to flush flows on shutdown", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := a.provider.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// newStorageProvider maps file configuration onto a storage provider
func newStorageProvider(cfg config.StorageConfig) (storage.StorageProvider, error) {
	return storage.NewProvider(storage.ProviderConfig{
		Type: storage.ProviderType(cfg.Type),
		Badger: &storage.BadgerProviderConfig{
			Path: cfg.Badger.Path,
		},
		Redis: &storage.RedisProviderConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		PostgreSQL: &storage.PostgreSQLProviderConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		},
	})
}
