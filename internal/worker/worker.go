// Package worker connects the dispatcher to the session and the recording
// backends. Session commands are applied directly; run boundaries and frames
// flow through one ordered recorder queue into the storage backend.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pitwall/pitwall/internal/channel"
	"github.com/pitwall/pitwall/internal/dispatcher"
	"github.com/pitwall/pitwall/internal/influx"
	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/internal/storage"
	"github.com/pitwall/pitwall/pkg/core"
)

// DefaultRecorderQueueSize bounds the recorder queue when none is configured.
const DefaultRecorderQueueSize = 10000

// Uploader sends an exported replay somewhere.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Dispatcher *dispatcher.Dispatcher
	// Influx is optional; without it :FRAME:METRIC: and :METRIC: are not registered.
	Influx            *influx.Manager
	Uploader          Uploader
	Logger            *slog.Logger
	RecorderQueueSize int
}

type opKind int

const (
	opStart opKind = iota
	opFrame
	opEnd
)

type recordOp struct {
	kind  opKind
	rec   core.Recording
	data  core.Comparison
	frame core.Frame
}

// Manager owns the recorder goroutine.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	logger  *slog.Logger

	records   *channel.Buffered[recordOp]
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	recorded atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64

	lastWriteNs atomic.Int64
	uploads     sync.WaitGroup
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.RecorderQueueSize <= 0 {
		deps.RecorderQueueSize = DefaultRecorderQueueSize
	}
	if backend == nil {
		backend = storage.Noop{}
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		logger:  deps.Logger.With("component", "worker"),
		records: channel.NewBuffered[recordOp](deps.RecorderQueueSize),
		done:    make(chan struct{}),
	}
}

// Backend returns the storage backend frames are recorded to.
func (m *Manager) Backend() storage.Backend {
	return m.backend
}

// Start launches the recorder goroutine.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		go m.recordLoop()
	})
}

// Close drains the recorder queue and waits for uploads in flight.
// The backend itself is closed by its owner.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.Start()
		m.records.Close()
		<-m.done
		m.uploads.Wait()
	})
}

// QueueLength is the number of recorder operations waiting.
func (m *Manager) QueueLength() int {
	return m.records.Len()
}

// Stats reports recorded, dropped and failed frame counts.
func (m *Manager) Stats() (recorded, dropped, failed uint64) {
	return m.recorded.Load(), m.dropped.Load(), m.failed.Load()
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last write duration for monitoring.
type DBWriteDurationProvider interface {
	LastWriteDuration() time.Duration
}

// LastWriteDuration returns the backend's last batch write duration, or the
// time the recorder spent on its last operation when the backend does not
// report one.
func (m *Manager) LastWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.LastWriteDuration()
	}
	return time.Duration(m.lastWriteNs.Load())
}

func (m *Manager) recordLoop() {
	defer close(m.done)
	for op := range m.records.Receive() {
		start := time.Now()
		if err := m.apply(op); err != nil {
			m.logger.Error("recorder operation failed", "op", op.kind.String(), "error", err)
		}
		m.lastWriteNs.Store(int64(time.Since(start)))
	}
}

func (m *Manager) apply(op recordOp) error {
	switch op.kind {
	case opStart:
		rec := op.rec
		if err := m.backend.StartRecording(&rec, op.data); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		m.logger.Info("recording started", "recording", rec.ID, "track", rec.TrackName)
	case opFrame:
		f := op.frame
		if err := m.backend.RecordFrame(&f); err != nil {
			m.failed.Add(1)
			return fmt.Errorf("failed to record frame %d: %w", f.Seq, err)
		}
		m.recorded.Add(1)
	case opEnd:
		if err := m.backend.EndRecording(); err != nil {
			return fmt.Errorf("failed to end recording: %w", err)
		}
		m.logger.Info("recording ended", "track", op.rec.TrackName)
		m.uploadExport()
	}
	return nil
}

func (m *Manager) uploadExport() {
	up, ok := m.backend.(storage.Uploadable)
	if !ok || m.deps.Uploader == nil {
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		return
	}
	meta := up.GetExportMetadata()

	m.uploads.Add(1)
	go func() {
		defer m.uploads.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := m.deps.Uploader.Upload(ctx, path, meta); err != nil {
			m.logger.Error("replay upload failed", "path", path, "error", err)
			return
		}
		m.logger.Info("replay uploaded", "path", path, "title", meta.Title)
	}()
}

func (k opKind) String() string {
	switch k {
	case opStart:
		return "start"
	case opFrame:
		return "frame"
	case opEnd:
		return "end"
	}
	return "unknown"
}

// runAdapter turns session run callbacks into dispatcher events.
type runAdapter struct {
	d      *dispatcher.Dispatcher
	logger *slog.Logger
}

func (a runAdapter) RunStarted(rec core.Recording, data core.Comparison) {
	if _, err := a.d.Dispatch(dispatcher.Event{
		Command: CmdRunStart,
		Payload: RunStart{Recording: rec, Data: data},
	}); err != nil {
		a.logger.Error("failed to dispatch run start", "error", err)
	}
}

func (a runAdapter) RunEnded(rec core.Recording) {
	if _, err := a.d.Dispatch(dispatcher.Event{Command: CmdRunEnd, Payload: rec}); err != nil {
		a.logger.Error("failed to dispatch run end", "error", err)
	}
}

// RunHandler is passed to session.WithRunHandler.
func (m *Manager) RunHandler() session.RunHandler {
	return runAdapter{d: m.deps.Dispatcher, logger: m.logger}
}

// FrameSink is passed to session.WithFrameSink. Every frame is dispatched for
// recording and, when influx is configured, for metrics. Extra sinks such as
// the websocket hub are called after.
func (m *Manager) FrameSink(extra ...func(core.Frame)) func(core.Frame) {
	return func(f core.Frame) {
		if _, err := m.deps.Dispatcher.Dispatch(dispatcher.Event{Command: CmdFrameRecord, Payload: f}); err != nil {
			m.logger.Debug("frame not recorded", "seq", f.Seq, "error", err)
		}
		if m.deps.Influx != nil {
			if _, err := m.deps.Dispatcher.Dispatch(dispatcher.Event{Command: CmdFrameMetric, Payload: f}); err != nil {
				m.logger.Debug("frame metric dropped", "seq", f.Seq, "error", err)
			}
		}
		for _, fn := range extra {
			fn(f)
		}
	}
}
