// Package sqlitestorage implements storage.Backend using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific parts are the in-memory
// connection and the dump loop.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/pitwall/pitwall/internal/cache"
	"github.com/pitwall/pitwall/internal/database"
	gormstorage "github.com/pitwall/pitwall/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
	// DSN overrides the shared in-memory database.
	DSN string
	Tag string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// New creates a new SQLite storage backend.
func New(cfg Config, ids *cache.IDCache, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := cfg.DSN
	if dsn == "" {
		dsn = database.MemoryDSN
	}
	db, err := database.OpenSQLite(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:      db,
		IDCache: ids,
		Logger:  logger,
		Tag:     cfg.Tag,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// EndRecording finalizes the run and dumps immediately so the file on disk contains it.
func (b *Backend) EndRecording() error {
	if err := b.Backend.EndRecording(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	return b.Dump()
}

// Close stops the dump goroutine, closes the embedded GORM backend and writes a last dump.
func (b *Backend) Close() error {
	b.once.Do(func() { close(b.stopChan) })
	b.wg.Wait()
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	return b.Dump()
}

// Dump writes a point-in-time snapshot of the database to DumpPath.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Dumped SQLite DB to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.Error("Error flushing before dump", "error", err)
			}
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
