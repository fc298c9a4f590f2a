// Package postgres implements storage.Backend on PostgreSQL through the GORM backend.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/pitwall/pitwall/internal/cache"
	"github.com/pitwall/pitwall/internal/config"
	"github.com/pitwall/pitwall/internal/database"
	gormstorage "github.com/pitwall/pitwall/internal/storage/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	Config   config.DBConfig
	IDCache  *cache.IDCache
	Logger   *slog.Logger
	DBLogger zerolog.Logger
	Tag      string
	// Connect is replaced in tests.
	Connect func(*database.Manager) error
}

// Backend connects lazily in Init and then delegates to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Connect == nil {
		deps.Connect = (*database.Manager).Connect
	}
	return &Backend{deps: deps}
}

// Init connects, falling back to in-memory SQLite when Postgres is unreachable, and starts the writer.
func (b *Backend) Init() error {
	b.manager = database.NewManager(b.deps.Config, b.deps.DBLogger)
	if err := b.deps.Connect(b.manager); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if b.manager.ShouldSaveLocal {
		b.deps.Logger.Warn("Postgres unavailable, recording to in-memory SQLite")
	}

	dbLogger := b.deps.DBLogger
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:       b.manager.DB,
		IDCache:  b.deps.IDCache,
		Logger:   b.deps.Logger,
		DBLogger: &dbLogger,
		Tag:      b.deps.Tag,
	})
	return b.Backend.Init()
}

// Close closes the GORM backend and the connection pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.manager != nil && b.manager.SqlDB != nil {
		return b.manager.SqlDB.Close()
	}
	return nil
}

// Local reports whether the backend fell back to SQLite.
func (b *Backend) Local() bool {
	return b.manager != nil && b.manager.ShouldSaveLocal
}
