package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, keysAndValues))
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.log("DEBUG", msg, keysAndValues) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.log("INFO", msg, keysAndValues) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.log("ERROR", msg, keysAndValues) }

func (l *testLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register(":SIM:PLAY:", func(e Event) (any, error) {
		got = e
		return "result", nil
	})

	result, err := d.Dispatch(Event{Command: ":SIM:PLAY:", Args: []string{"arg1"}})
	require.NoError(t, err)
	assert.Equal(t, "result", result)
	assert.Equal(t, []string{"arg1"}, got.Args)
	assert.False(t, got.Timestamp.IsZero(), "dispatch stamps events")
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: ":UNKNOWN:"})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Contains(t, err.Error(), ":UNKNOWN:")
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d.Register(":FRAME:RECORD:", func(e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Command: ":FRAME:RECORD:", Payload: i})
		require.NoError(t, err)
		assert.Equal(t, "queued", result)
	}

	wg.Wait()
	assert.Equal(t, int32(3), processed.Load())
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register(":FULL:", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(2))

	var dropped error
	for i := 0; i < 4 && dropped == nil; i++ {
		_, dropped = d.Dispatch(Event{Command: ":FULL:"})
	}
	assert.ErrorIs(t, dropped, ErrQueueFull)

	close(block)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register(":BLOCKING:", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(Event{Command: ":BLOCKING:"})
	d.Dispatch(Event{Command: ":BLOCKING:"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":BLOCKING:"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":LOGGED:", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	_, err := d.Dispatch(Event{Command: ":LOGGED:", Args: []string{"a", "b"}})
	require.NoError(t, err)

	msgs := logger.snapshot()
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0], "DEBUG: Dispatching"))
	assert.True(t, strings.HasPrefix(msgs[1], "DEBUG: Command done"))
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":ERROR:", func(e Event) (any, error) {
		return nil, errors.New("test error")
	}, Logged())

	_, err := d.Dispatch(Event{Command: ":ERROR:"})
	assert.Error(t, err)

	var hasError bool
	for _, msg := range logger.snapshot() {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
		}
	}
	assert.True(t, hasError, "expected error log message")
}

func TestDispatcher_BufferedLoggedReportsHandlerErrors(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":ASYNC:", func(e Event) (any, error) {
		return nil, errors.New("backend down")
	}, Buffered(4), Logged())

	_, err := d.Dispatch(Event{Command: ":ASYNC:"})
	require.NoError(t, err)
	d.Close()

	var hasError bool
	for _, msg := range logger.snapshot() {
		if strings.Contains(msg, "backend down") {
			hasError = true
		}
	}
	assert.True(t, hasError)
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":EXISTS:", func(e Event) (any, error) { return nil, nil })

	assert.True(t, d.HasHandler(":EXISTS:"))
	assert.False(t, d.HasHandler(":NOT_EXISTS:"))
}

func TestDispatcher_CloseDrainsQueues(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(":SLOW:", func(e Event) (any, error) {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil, nil
	}, Buffered(10))
	d.Register(":SYNC:", func(e Event) (any, error) { return "ok", nil })

	for i := 0; i < 5; i++ {
		_, err := d.Dispatch(Event{Command: ":SLOW:"})
		require.NoError(t, err)
	}
	d.Close()
	assert.Equal(t, int32(5), processed.Load())

	_, err := d.Dispatch(Event{Command: ":SLOW:"})
	assert.ErrorIs(t, err, ErrClosed)

	result, err := d.Dispatch(Event{Command: ":SYNC:"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	d.Close()
}
