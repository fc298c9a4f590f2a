package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitwall/pitwall/internal/cache"
	"github.com/pitwall/pitwall/internal/config"
	"github.com/pitwall/pitwall/internal/database"
	"github.com/pitwall/pitwall/internal/storage"
	"github.com/pitwall/pitwall/internal/storage/memory"
	pgstorage "github.com/pitwall/pitwall/internal/storage/postgres"
	sqlitestorage "github.com/pitwall/pitwall/internal/storage/sqlite"
	wsstorage "github.com/pitwall/pitwall/internal/storage/websocket"
)

// ErrUnknownStorage is returned for a storage.type no backend answers to.
var ErrUnknownStorage = errors.New("unknown storage type")

type storageDeps struct {
	Logger   *slog.Logger
	DBLogger zerolog.Logger
	IDCache  *cache.IDCache
	Tag      string
	API      config.APIConfig
	DB       config.DBConfig
	Start    time.Time
}

// createStorageBackend builds the backend named by cfg.Type. It is not
// initialized yet.
func createStorageBackend(cfg config.StorageConfig, deps storageDeps) (storage.Backend, error) {
	switch cfg.Type {
	case storage.TypePostgres:
		deps.Logger.Info("Postgres storage backend selected", "host", deps.DB.Host)
		return pgstorage.New(pgstorage.Dependencies{
			Config:   deps.DB,
			IDCache:  deps.IDCache,
			Logger:   deps.Logger,
			DBLogger: deps.DBLogger,
			Tag:      deps.Tag,
		}), nil

	case storage.TypeSQLite:
		dumpPath := sqliteDumpPath(cfg.SQLite.DumpPath, deps.Start)
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
			Tag:          deps.Tag,
		}, deps.IDCache, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		deps.Logger.Info("SQLite storage backend selected", "dumpPath", dumpPath)
		return backend, nil

	case storage.TypeWebSocket:
		wsURL := wsstorage.HTTPToWS(deps.API.ServerURL) + "/api"
		deps.Logger.Info("WebSocket storage backend selected", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: deps.API.APIKey,
		}, deps.Logger), nil

	case storage.TypeNone:
		deps.Logger.Info("Recording disabled")
		return storage.Noop{}, nil

	case storage.TypeMemory, "":
		backend := memory.New(cfg.Memory)
		backend.SetTag(deps.Tag)
		deps.Logger.Info("Memory storage backend selected", "outputDir", cfg.Memory.OutputDir)
		return backend, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, cfg.Type)
}

// sqliteDumpPath keeps a configured .db file as is. Any other path is a
// directory that gets one dump file per process start.
func sqliteDumpPath(configured string, start time.Time) string {
	if configured == "" || filepath.Ext(configured) == ".db" {
		return configured
	}
	return database.DumpFileName(configured, ServiceName, start)
}
