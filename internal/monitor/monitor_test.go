package monitor

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/internal/sim"
	"github.com/pitwall/pitwall/pkg/core"
)

type fakeSession struct{}

func (fakeSession) ID() string { return "s1" }
func (fakeSession) Status() (session.Status, error) {
	return session.StatusError, errors.New("Failed to fetch F1 data.")
}
func (fakeSession) Snapshot() sim.Snapshot {
	return sim.Snapshot{
		Phase: sim.Running,
		Seq:   42,
		State: core.RaceState{{Distance: 0.25}, {Distance: 0.5}},
	}
}

type fakeRecorder struct{}

func (fakeRecorder) QueueLength() int                 { return 3 }
func (fakeRecorder) Stats() (uint64, uint64, uint64)  { return 100, 2, 1 }
func (fakeRecorder) LastWriteDuration() time.Duration { return 1500 * time.Microsecond }

type fakeInflux struct {
	mu     sync.Mutex
	tags   []map[string]string
	fields []map[string]interface{}
}

func (f *fakeInflux) WriteStatus(_ time.Time, tags map[string]string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, tags)
	f.fields = append(f.fields, fields)
	return nil
}

func (f *fakeInflux) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tags)
}

type fakePerf struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakePerf) SavePerformance(time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func TestCollect(t *testing.T) {
	s := NewService(Dependencies{
		Session:      fakeSession{},
		Recorder:     fakeRecorder{},
		Clients:      func() int { return 2 },
		InstanceName: "pitwall-1",
	})
	now := time.Date(2024, 7, 7, 14, 0, 0, 0, time.UTC)

	st := s.Collect(now)
	assert.Equal(t, Status{
		Time:          now,
		Instance:      "pitwall-1",
		SessionID:     "s1",
		DataStatus:    "error",
		Error:         "Failed to fetch F1 data.",
		Phase:         "running",
		Seq:           42,
		Progress:      0.5,
		QueueLength:   3,
		Recorded:      100,
		Dropped:       2,
		Failed:        1,
		LastWriteMs:   1.5,
		StreamClients: 2,
	}, st)
}

func TestCollect_NoSources(t *testing.T) {
	st := NewService(Dependencies{}).Collect(time.Now())
	assert.Empty(t, st.SessionID)
	assert.Zero(t, st.QueueLength)
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	ifx := &fakeInflux{}
	perf := &fakePerf{err: errors.New("db down")}
	s := NewService(Dependencies{
		Session:      fakeSession{},
		Recorder:     fakeRecorder{},
		Influx:       ifx,
		Performance:  perf,
		Dir:          dir,
		InstanceName: "pitwall-1",
	})

	st := s.Collect(time.Now())
	s.Publish(st)

	data, err := os.ReadFile(filepath.Join(dir, StatusFileName))
	require.NoError(t, err)
	var got Status
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, 3, got.QueueLength)

	require.Equal(t, 1, ifx.count())
	assert.Equal(t, map[string]string{"instance": "pitwall-1", "session": "s1"}, ifx.tags[0])
	assert.Equal(t, int64(2), ifx.fields[0]["dropped"])

	assert.Equal(t, 1, perf.calls)
	assert.Equal(t, st, s.Last())
}

func TestStartStop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "status")
	ifx := &fakeInflux{}
	s := NewService(Dependencies{
		Session:  fakeSession{},
		Influx:   ifx,
		Dir:      dir,
		Interval: 5 * time.Millisecond,
	})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return ifx.count() >= 2 }, time.Second, time.Millisecond)
	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())

	_, err := os.Stat(filepath.Join(dir, StatusFileName))
	assert.NoError(t, err)
}
