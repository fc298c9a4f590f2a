// Package dispatcher routes session commands and internal recording events to
// their handlers, optionally through a bounded asynchronous queue.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrUnknownCommand is returned when no handler is registered for a command
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned when a non-blocking buffered handler drops an event
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned by Dispatch after Close
	ErrClosed = errors.New("dispatcher closed")
)

// Event is one command. Args carry the text arguments of client commands;
// Payload carries typed values for internal events such as frames.
type Event struct {
	Command   string
	Args      []string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger  Logger
	metrics *metrics

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	queues   map[string]*queue

	// closeMu guards closed and every send into a queue
	closeMu sync.RWMutex
	closed  bool
	workers sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]*queue),
	}
	m, err := newMetrics(d.queueDepths)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

func (d *Dispatcher) queueDepths(observe func(command string, depth int)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, q := range d.queues {
		observe(cmd, len(q.events))
	}
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg.bufferSize, cfg.blocking, handler)
	}

	d.mu.Lock()
	d.handlers[command] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Close stops buffered handlers from accepting events and waits until every
// queue drained. Unbuffered handlers keep working.
func (d *Dispatcher) Close() {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		return
	}
	d.closed = true
	d.mu.RLock()
	for _, q := range d.queues {
		close(q.events)
	}
	d.mu.RUnlock()
	d.closeMu.Unlock()

	d.workers.Wait()
}

// queue is the channel and worker behind one buffered handler.
type queue struct {
	command  string
	attrs    metric.MeasurementOption
	events   chan Event
	blocking bool
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	q := &queue{
		command:  command,
		attrs:    metric.WithAttributes(attribute.String("command", command)),
		events:   make(chan Event, size),
		blocking: blocking,
	}
	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range q.events {
			_, _ = h(e)
			d.metrics.processed.Add(context.Background(), 1, q.attrs)
		}
	}()

	return func(e Event) (any, error) {
		return d.enqueue(q, e)
	}
}

func (d *Dispatcher) enqueue(q *queue, e Event) (any, error) {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	if q.blocking {
		q.events <- e
		return "queued", nil
	}
	select {
	case q.events <- e:
		return "queued", nil
	default:
		d.metrics.dropped.Add(context.Background(), 1, q.attrs)
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, q.command)
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("Dispatching", "command", command, "args", len(e.Args))

		result, err := h(e)
		if err != nil {
			d.logger.Error("Command failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("Command done", "command", command, "duration", time.Since(start))
		return result, nil
	}
}
