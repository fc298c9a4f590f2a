// Package database opens the gorm connections used by the recording backends.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pitwall/pitwall/internal/config"
	"github.com/pitwall/pitwall/internal/model"
)

// MemoryDSN is the shared in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
	"PRAGMA page_size = 32768;",
}

// Manager handles database connections and operations.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	cfg             config.DBConfig
	Logger          zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(cfg config.DBConfig, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		Logger: log,
	}
}

// Connect establishes a database connection, falling back to in-memory SQLite if Postgres fails.
func (m *Manager) Connect() error {
	db, err := OpenPostgres(m.cfg)
	if err == nil {
		m.SqlDB, err = db.DB()
		if err == nil {
			err = m.SqlDB.Ping()
		}
	}
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		m.ShouldSaveLocal = true
		db, err = OpenSQLite("")
		if err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
		if m.SqlDB, err = db.DB(); err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	} else {
		m.Logger.Info().Str("host", m.cfg.Host).Msg("Connected to database")
		m.SqlDB.SetMaxOpenConns(10)
	}

	m.DB = db
	m.IsValid = true
	return nil
}

// Setup migrates tables and records the instance info row.
func (m *Manager) Setup(instanceName string) error {
	if err := Migrate(m.DB, instanceName, m.Logger); err != nil {
		m.IsValid = false
		return err
	}
	return nil
}

// DSN builds the Postgres connection string.
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

// OpenPostgres returns a connection to the Postgres database.
func OpenPostgres(cfg config.DBConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  DSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// OpenSQLite returns a connection to a SQLite database.
// If path is empty, uses the shared in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// Migrate creates the schema and the instance info row if it does not exist yet.
func Migrate(db *gorm.DB, instanceName string, log zerolog.Logger) error {
	if !db.Migrator().HasTable(&model.ServerInfo{}) {
		if err := db.AutoMigrate(&model.ServerInfo{}); err != nil {
			return fmt.Errorf("failed to create server_infos table: %w", err)
		}
		if err := db.Create(&model.ServerInfo{
			InstanceName: instanceName,
			Description:  "pitwall recording instance",
		}).Error; err != nil {
			return fmt.Errorf("failed to create server_infos entry: %w", err)
		}
	}

	log.Info().Str("dialect", db.Dialector.Name()).Msg("Migrating schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info().Msg("Database setup complete")
	return nil
}

// DumpMemoryDBToDisk vacuums the in-memory database to a disk file.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	if err := os.MkdirAll(filepath.Dir(sqliteFilePath), 0755); err != nil {
		return fmt.Errorf("error creating dump directory: %w", err)
	}
	// VACUUM INTO refuses to overwrite
	if _, err := os.Stat(sqliteFilePath); err == nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	quoted := strings.ReplaceAll(sqliteFilePath, "'", "''")
	if err := db.Exec("VACUUM INTO 'file:" + quoted + "';").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}

// DumpFileName names a dump file for a process started at start.
func DumpFileName(dir, prefix string, start time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.db", prefix, start.Format("20060102_150405")))
}

// GetBackupDBPaths returns paths to all .db files in the given directory.
func GetBackupDBPaths(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var dbPaths []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".db") {
			dbPaths = append(dbPaths, filepath.Join(dir, file.Name()))
		}
	}
	return dbPaths, nil
}
