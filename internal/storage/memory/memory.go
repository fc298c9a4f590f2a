// Package memory keeps a recording run in memory and exports it as a replay file when the run ends.
package memory

import (
	"sync"

	"github.com/pitwall/pitwall/internal/config"
	"github.com/pitwall/pitwall/pkg/core"
)

// Backend stores run data in memory and exports to JSON
type Backend struct {
	cfg       config.MemoryConfig
	tag       string
	recording *core.Recording
	data      core.Comparison
	frames    []core.Frame

	idCounter          uint
	lastExportPath     string
	lastExportMetadata core.UploadMetadata
	mu                 sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
	}
}

// SetTag sets the tag written into subsequent exports.
func (b *Backend) SetTag(tag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tag = tag
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRecording begins a new run, discarding any unfinished one.
func (b *Backend) StartRecording(rec *core.Recording, data core.Comparison) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	rec.ID = b.idCounter

	r := *rec
	b.recording = &r
	b.data = data
	b.frames = make([]core.Frame, 0, 512)
	return nil
}

// EndRecording exports the run and forgets it.
func (b *Backend) EndRecording() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.recording == nil {
		return nil
	}
	err := b.exportJSON()
	b.recording = nil
	b.frames = nil
	return err
}

// RecordFrame appends a frame to the active run. Frames arriving with no active run are ignored.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.recording == nil {
		return nil
	}
	b.frames = append(b.frames, *f)
	return nil
}

// Recording returns the active run header.
func (b *Backend) Recording() (core.Recording, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.recording == nil {
		return core.Recording{}, false
	}
	return *b.recording, true
}

// FrameCount returns the number of frames held for the active run.
func (b *Backend) FrameCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames)
}
