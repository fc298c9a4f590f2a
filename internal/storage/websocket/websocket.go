// Package websocket streams recording runs to a remote server as JSON envelopes.
package websocket

import (
	"log/slog"
	"strings"

	"github.com/pitwall/pitwall/pkg/core"
	"github.com/pitwall/pitwall/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "ws-storage")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// StartRecording sends the run header and waits for the server ack.
func (b *Backend) StartRecording(rec *core.Recording, data core.Comparison) error {
	msg, err := streaming.Marshal(streaming.TypeStartRecording, streaming.StartRecordingPayload{Recording: rec, Data: data})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedStart = msg
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(msg, streaming.TypeStartRecording, ackTimeout)
}

// EndRecording sends end_recording and waits for the server ack.
func (b *Backend) EndRecording() error {
	msg, err := streaming.Marshal(streaming.TypeEndRecording, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(msg, streaming.TypeEndRecording, ackTimeout)

	b.conn.mu.Lock()
	b.conn.cachedStart = nil
	b.conn.mu.Unlock()

	return err
}

// RecordFrame sends a frame without waiting.
func (b *Backend) RecordFrame(f *core.Frame) error {
	msg, err := streaming.Marshal(streaming.TypeFrame, f)
	if err != nil {
		return err
	}
	b.conn.send(msg)
	return nil
}

// Dropped returns how many messages were dropped because the send channel was full.
func (b *Backend) Dropped() uint64 {
	b.conn.mu.Lock()
	defer b.conn.mu.Unlock()
	return b.conn.dropped
}

// HTTPToWS converts an HTTP(S) URL to a WebSocket URL.
func HTTPToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
