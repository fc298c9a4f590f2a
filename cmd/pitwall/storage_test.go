package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/pitwall/internal/cache"
	"github.com/pitwall/pitwall/internal/config"
	"github.com/pitwall/pitwall/internal/storage"
	"github.com/pitwall/pitwall/internal/storage/memory"
)

func testStorageDeps() storageDeps {
	return storageDeps{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		IDCache: cache.NewIDCache(),
		Tag:     "Practice",
		Start:   time.Date(2024, 9, 1, 13, 0, 0, 0, time.UTC),
	}
}

func TestCreateStorageBackend(t *testing.T) {
	tests := []struct {
		typ  string
		want any
	}{
		{"", &memory.Backend{}},
		{storage.TypeMemory, &memory.Backend{}},
		{storage.TypeNone, storage.Noop{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			b, err := createStorageBackend(config.StorageConfig{Type: tt.typ}, testStorageDeps())
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}
}

func TestCreateStorageBackend_Unknown(t *testing.T) {
	_, err := createStorageBackend(config.StorageConfig{Type: "mongodb"}, testStorageDeps())
	assert.ErrorIs(t, err, ErrUnknownStorage)
}

func TestSQLiteDumpPath(t *testing.T) {
	start := time.Date(2024, 9, 1, 13, 0, 0, 0, time.UTC)

	assert.Equal(t, "", sqliteDumpPath("", start))
	assert.Equal(t, "out/run.db", sqliteDumpPath("out/run.db", start))
	assert.Equal(t, filepath.Join("recordings", "pitwall_20240901_130000.db"), sqliteDumpPath("recordings", start))
}
