// Package storage defines the contract shared by the recording backends.
package storage

import "github.com/pitwall/pitwall/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management. StartRecording may assign rec.ID.
	StartRecording(rec *core.Recording, data core.Comparison) error
	EndRecording() error

	// Frame recording
	RecordFrame(f *core.Frame) error
}

// Uploadable is an optional interface for storage backends that produce
// replay files suitable for upload to a viewer service.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Type names accepted by storage.type.
const (
	TypeMemory    = "memory"
	TypeSQLite    = "sqlite"
	TypePostgres  = "postgres"
	TypeWebSocket = "websocket"
	TypeNone      = "none"
)

// Noop discards everything. It backs storage.type "none".
type Noop struct{}

func (Noop) Init() error                                           { return nil }
func (Noop) Close() error                                          { return nil }
func (Noop) StartRecording(*core.Recording, core.Comparison) error { return nil }
func (Noop) EndRecording() error                                   { return nil }
func (Noop) RecordFrame(*core.Frame) error                         { return nil }
