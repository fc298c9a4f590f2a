// Package monitor periodically samples the session and the recorder and
// publishes the result to a status file, InfluxDB and the performance table.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/internal/sim"
)

// DefaultInterval is the sampling period when none is configured.
const DefaultInterval = time.Second

// StatusFileName is written into Dependencies.Dir.
const StatusFileName = "status.json"

// SessionSource is the part of a session the monitor reads.
type SessionSource interface {
	ID() string
	Status() (session.Status, error)
	Snapshot() sim.Snapshot
}

// RecorderSource exposes recorder counters.
type RecorderSource interface {
	QueueLength() int
	Stats() (recorded, dropped, failed uint64)
	LastWriteDuration() time.Duration
}

// StatusWriter receives one status point per sample.
type StatusWriter interface {
	WriteStatus(t time.Time, tags map[string]string, fields map[string]interface{}) error
}

// PerformanceRecorder stores a performance row per sample.
type PerformanceRecorder interface {
	SavePerformance(t time.Time) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Session  SessionSource
	Recorder RecorderSource
	// optional sinks
	Influx       StatusWriter
	Performance  PerformanceRecorder
	Clients      func() int
	Dir          string
	InstanceName string
	Interval     time.Duration
	Logger       *slog.Logger
}

// Status is one sample.
type Status struct {
	Time          time.Time `json:"time"`
	Instance      string    `json:"instance"`
	SessionID     string    `json:"sessionId"`
	DataStatus    string    `json:"dataStatus"`
	Error         string    `json:"error,omitempty"`
	Phase         string    `json:"phase"`
	Seq           uint64    `json:"seq"`
	Progress      float64   `json:"progress"`
	QueueLength   int       `json:"queueLength"`
	Recorded      uint64    `json:"recorded"`
	Dropped       uint64    `json:"dropped"`
	Failed        uint64    `json:"failed"`
	LastWriteMs   float64   `json:"lastWriteMs"`
	StreamClients int       `json:"streamClients"`
}

// Service manages status monitoring
type Service struct {
	deps   Dependencies
	logger *slog.Logger

	mu        sync.RWMutex
	isRunning bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
	last      Status
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		deps:   deps,
		logger: deps.Logger.With("component", "monitor"),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Last returns the most recent sample.
func (s *Service) Last() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Collect takes a sample without publishing it.
func (s *Service) Collect(now time.Time) Status {
	st := Status{
		Time:     now,
		Instance: s.deps.InstanceName,
	}
	if src := s.deps.Session; src != nil {
		dataStatus, err := src.Status()
		snap := src.Snapshot()
		st.SessionID = src.ID()
		st.DataStatus = string(dataStatus)
		if err != nil {
			st.Error = err.Error()
		}
		st.Phase = snap.Phase.String()
		st.Seq = snap.Seq
		st.Progress = snap.State.Progress()
	}
	if rec := s.deps.Recorder; rec != nil {
		st.QueueLength = rec.QueueLength()
		st.Recorded, st.Dropped, st.Failed = rec.Stats()
		st.LastWriteMs = float64(rec.LastWriteDuration().Microseconds()) / 1000
	}
	if s.deps.Clients != nil {
		st.StreamClients = s.deps.Clients()
	}
	return st
}

// Publish writes a sample to every configured sink. Sink errors are logged
// and do not stop the others.
func (s *Service) Publish(st Status) {
	s.mu.Lock()
	s.last = st
	s.mu.Unlock()

	if s.deps.Dir != "" {
		if err := WriteStatusFile(filepath.Join(s.deps.Dir, StatusFileName), st); err != nil {
			s.logger.Error("Error writing status file", "error", err)
		}
	}

	if s.deps.Influx != nil {
		tags := map[string]string{
			"instance": st.Instance,
			"session":  st.SessionID,
		}
		fields := map[string]interface{}{
			"phase":         st.Phase,
			"dataStatus":    st.DataStatus,
			"queueLength":   st.QueueLength,
			"recorded":      int64(st.Recorded),
			"dropped":       int64(st.Dropped),
			"failed":        int64(st.Failed),
			"lastWriteMs":   st.LastWriteMs,
			"streamClients": st.StreamClients,
		}
		if err := s.deps.Influx.WriteStatus(st.Time, tags, fields); err != nil {
			s.logger.Error("Error writing status to InfluxDB", "error", err)
		}
	}

	if s.deps.Performance != nil {
		if err := s.deps.Performance.SavePerformance(st.Time); err != nil {
			s.logger.Error("Error writing performance row", "error", err)
		}
	}
}

// WriteStatusFile replaces path with the JSON encoding of st.
func WriteStatusFile(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if s.deps.Dir != "" {
		if err := os.MkdirAll(s.deps.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create status dir: %w", err)
		}
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go s.loop(s.stopChan)
	return nil
}

func (s *Service) loop(stop <-chan struct{}) {
	defer s.wg.Done()
	s.logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.Publish(s.Collect(now))
		}
	}
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
}
