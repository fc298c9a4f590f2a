// Package gormstorage implements storage.Backend on top of any gorm dialect.
// Frames are queued and written in batches by a background goroutine.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pitwall/pitwall/internal/cache"
	"github.com/pitwall/pitwall/internal/database"
	"github.com/pitwall/pitwall/internal/model"
	"github.com/pitwall/pitwall/internal/model/convert"
	"github.com/pitwall/pitwall/internal/queue"
	"github.com/pitwall/pitwall/pkg/core"
)

const (
	defaultFlushInterval = 500 * time.Millisecond
	maxBatch             = 5000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB may be nil, in which case frames are only queued (used by tests and dry runs).
	DB            *gorm.DB
	IDCache       *cache.IDCache
	Logger        *slog.Logger
	DBLogger      *zerolog.Logger
	InstanceName  string
	Tag           string
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps        Dependencies
	frames      *queue.Queue[model.FrameRecord]
	recordingID atomic.Uint64
	frameCount  atomic.Int64
	lastWriteNs atomic.Int64
	idCounter   atomic.Uint64
	writeMu     sync.Mutex
	stopChan    chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.DBLogger == nil {
		nop := zerolog.Nop()
		deps.DBLogger = &nop
	}
	if deps.IDCache == nil {
		deps.IDCache = cache.NewIDCache()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.InstanceName == "" {
		deps.InstanceName = "pitwall"
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates the queue, migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	b.frames = queue.New[model.FrameRecord]()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return nil
	}

	if err := database.Migrate(b.deps.DB, b.deps.InstanceName, *b.deps.DBLogger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.wg.Add(1)
	go b.writerLoop()
	return nil
}

// Close stops the writer goroutine after a final flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
		}
		b.wg.Wait()
	})
	if b.deps.DB != nil && b.frames != nil {
		return b.flush()
	}
	return nil
}

// StartRecording inserts the recording header and both drivers, assigning rec.ID.
func (b *Backend) StartRecording(rec *core.Recording, data core.Comparison) error {
	if b.recordingID.Load() != 0 {
		if err := b.EndRecording(); err != nil {
			b.deps.Logger.Warn("Failed to close previous recording", "error", err)
		}
	}

	if b.deps.DB == nil {
		rec.ID = uint(b.idCounter.Add(1))
	} else {
		gormRec := convert.CoreToRecording(*rec)
		gormRec.Tag = b.deps.Tag
		db := b.deps.DB
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit(clause.Associations).Create(&gormRec).Error; err != nil {
				return fmt.Errorf("failed to insert recording: %w", err)
			}
			drivers := []model.RecordedDriver{
				convert.CoreToDriver(gormRec.ID, 0, data.Driver1),
				convert.CoreToDriver(gormRec.ID, 1, data.Driver2),
			}
			if err := tx.Omit(clause.Associations).Create(&drivers).Error; err != nil {
				return fmt.Errorf("failed to insert drivers: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		rec.ID = gormRec.ID
	}

	attrs := []any{"recordingId", rec.ID, "track", rec.TrackName}
	if prev, ok := b.deps.IDCache.Get(rec.SessionID); ok {
		attrs = append(attrs, "previousRecordingId", prev)
	}
	b.deps.IDCache.Set(rec.SessionID, rec.ID)
	b.frameCount.Store(0)
	b.recordingID.Store(uint64(rec.ID))
	b.deps.Logger.Info("Recording started", attrs...)
	return nil
}

// EndRecording flushes pending frames and stamps end time and frame count.
func (b *Backend) EndRecording() error {
	id := uint(b.recordingID.Swap(0))
	if id == 0 {
		return nil
	}
	count := b.frameCount.Load()
	b.deps.Logger.Info("Recording ended", "recordingId", id, "frames", count)

	if b.deps.DB == nil {
		return nil
	}
	if err := b.flush(); err != nil {
		return err
	}
	now := time.Now()
	return b.deps.DB.Model(&model.Recording{}).Where("id = ?", id).Updates(map[string]any{
		"end_time":    now,
		"frame_count": count,
	}).Error
}

// RecordFrame converts and queues a frame. Frames with no active recording are dropped.
func (b *Backend) RecordFrame(f *core.Frame) error {
	id := uint(b.recordingID.Load())
	if id == 0 {
		return nil
	}
	b.frames.Push(convert.CoreToFrame(id, *f))
	b.frameCount.Add(1)
	return nil
}

// RecordingID returns the id of the active recording, 0 when idle.
func (b *Backend) RecordingID() uint {
	return uint(b.recordingID.Load())
}

// QueueLength returns the number of frames waiting to be written.
func (b *Backend) QueueLength() int {
	if b.frames == nil {
		return 0
	}
	return b.frames.Len()
}

// LastWriteDuration returns how long the last batch write took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNs.Load())
}

// Flush writes all pending frames now.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	return b.flush()
}

func (b *Backend) flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	for !b.frames.Empty() {
		if err := writeQueue(b.deps.DB, b.frames, maxBatch, &b.lastWriteNs); err != nil {
			b.deps.Logger.Error("Error writing frames", "error", err)
			return err
		}
	}
	return nil
}

// writeQueue writes up to n items from a queue in a transaction. On failure the
// items go back to the front of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], n int, lastWriteNs *atomic.Int64) error {
	items := q.PopN(n)
	if len(items) == 0 {
		return nil
	}

	start := time.Now()
	tx := db.Begin()
	if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
		tx.Rollback()
		q.Requeue(items...)
		return fmt.Errorf("failed to insert %d rows: %w", len(items), err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return fmt.Errorf("failed to commit: %w", err)
	}
	lastWriteNs.Store(int64(time.Since(start)))
	return nil
}

// writerLoop periodically drains the frame queue into the DB.
func (b *Backend) writerLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			// errors are logged and the batch retried next tick
			_ = b.flush()
		}
	}
}

// SavePerformance stores a buffer sample for the active recording.
func (b *Backend) SavePerformance(t time.Time) error {
	if b.deps.DB == nil {
		return nil
	}
	return b.deps.DB.Create(&model.ServicePerformance{
		Time:                t,
		RecordingID:         b.RecordingID(),
		FrameQueueLength:    b.QueueLength(),
		LastWriteDurationMs: float32(b.LastWriteDuration().Microseconds()) / 1000,
	}).Error
}
