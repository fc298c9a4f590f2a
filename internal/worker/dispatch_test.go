package worker

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/pitwall/internal/catalog"
	"github.com/pitwall/pitwall/internal/config"
	"github.com/pitwall/pitwall/internal/dispatcher"
	"github.com/pitwall/pitwall/internal/influx"
	"github.com/pitwall/pitwall/internal/mockdata"
	"github.com/pitwall/pitwall/internal/parser"
	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/internal/sim"
	"github.com/pitwall/pitwall/pkg/core"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) { l.add(msg) }
func (l *mockLogger) Info(msg string, keysAndValues ...any)  { l.add(msg) }
func (l *mockLogger) Error(msg string, keysAndValues ...any) { l.add(msg) }

func (l *mockLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// mockBackend implements storage.Backend and storage.Uploadable for testing
type mockBackend struct {
	mu      sync.Mutex
	ops     []string
	frames  []core.Frame
	started []core.Recording
	nextID  uint
	export  string
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) StartRecording(rec *core.Recording, _ core.Comparison) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	rec.ID = b.nextID
	b.started = append(b.started, *rec)
	b.ops = append(b.ops, "start")
	return nil
}

func (b *mockBackend) EndRecording() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, "end")
	return nil
}

func (b *mockBackend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, "frame")
	b.frames = append(b.frames, *f)
	return nil
}

func (b *mockBackend) GetExportedFilePath() string { return b.export }

func (b *mockBackend) GetExportMetadata() core.UploadMetadata {
	return core.UploadMetadata{Title: "VER vs HAM @ Silverstone", FrameCount: 3}
}

func (b *mockBackend) snapshot() ([]string, []core.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ops...), append([]core.Frame(nil), b.frames...)
}

type mockUploader struct {
	mu    sync.Mutex
	paths []string
	metas []core.UploadMetadata
}

func (u *mockUploader) Upload(_ context.Context, path string, meta core.UploadMetadata) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, path)
	u.metas = append(u.metas, meta)
	return nil
}

type testEnv struct {
	d       *dispatcher.Dispatcher
	m       *Manager
	s       *session.Session
	backend *mockBackend
}

func newTestEnv(t *testing.T, deps Dependencies) *testEnv {
	t.Helper()
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)

	deps.Dispatcher = d
	backend := &mockBackend{}
	m := NewManager(deps, backend)

	cat := catalog.Default()
	fetcher := mockdata.New(cat, rand.New(rand.NewSource(7)), mockdata.WithLatency(0))
	s := session.New(cat, fetcher,
		session.WithSpeedMultiplier(400),
		session.WithRunnerOptions(sim.WithInterval(time.Millisecond)),
		session.WithRunHandler(m.RunHandler()),
		session.WithFrameSink(m.FrameSink()),
	)
	m.RegisterHandlers(s)
	m.Start()

	t.Cleanup(func() {
		s.Close()
		m.Close()
		d.Close()
	})
	return &testEnv{d: d, m: m, s: s, backend: backend}
}

func (e *testEnv) dispatch(cmd string, args ...string) (any, error) {
	return e.d.Dispatch(dispatcher.Event{Command: cmd, Args: args})
}

// waitReady requests data for the default pair and waits until it is loaded.
func (e *testEnv) waitReady(t *testing.T) {
	t.Helper()
	st, _ := e.s.Status()
	require.Equal(t, session.StatusNoData, st)

	e.s.Start()
	require.Eventually(t, func() bool {
		st, _ := e.s.Status()
		return st == session.StatusReady
	}, 2*time.Second, time.Millisecond)
}

func TestRegisterHandlers(t *testing.T) {
	env := newTestEnv(t, Dependencies{})

	for _, cmd := range []string{
		CmdSelectDriver, CmdSetTrack, CmdPlay, CmdPause, CmdToggle, CmdReset,
		CmdPitAdd, CmdPitInsert, CmdPitUpdate, CmdPitRemove,
		CmdRunStart, CmdRunEnd, CmdFrameRecord,
	} {
		assert.True(t, env.d.HasHandler(cmd), cmd)
	}
	assert.False(t, env.d.HasHandler(CmdFrameMetric))
	assert.False(t, env.d.HasHandler(CmdMetric))
}

func TestSessionCommands(t *testing.T) {
	env := newTestEnv(t, Dependencies{})

	res, err := env.dispatch(CmdPlay)
	require.NoError(t, err)
	assert.Equal(t, ResultNoData, res)

	res, err = env.dispatch(CmdSelectDriver, `"1"`, `"norris"`)
	require.NoError(t, err)
	assert.Equal(t, ResultOK, res)
	assert.Equal(t, "norris", env.s.Drivers()[0].ID)

	_, err = env.dispatch(CmdSelectDriver, "1", "schumacher")
	assert.ErrorIs(t, err, session.ErrUnknownDriver)

	_, err = env.dispatch(CmdSelectDriver, "3", "norris")
	assert.ErrorIs(t, err, parser.ErrInvalidArg)

	res, err = env.dispatch(CmdSetTrack, "Monaco")
	require.NoError(t, err)
	assert.Equal(t, ResultOK, res)
	assert.Equal(t, "Monaco", env.s.Track().Name)

	_, err = env.dispatch(CmdSetTrack, "Monza")
	assert.ErrorIs(t, err, session.ErrUnknownTrack)

	res, err = env.dispatch(CmdReset)
	require.NoError(t, err)
	assert.Equal(t, ResultOK, res)

	res, err = env.dispatch(CmdPause)
	require.NoError(t, err)
	assert.Equal(t, ResultPaused, res)
}

func TestPitCommands(t *testing.T) {
	env := newTestEnv(t, Dependencies{})

	before, err := env.s.Stops(1)
	require.NoError(t, err)

	res, err := env.dispatch(CmdPitAdd, "2")
	require.NoError(t, err)
	assert.Equal(t, ResultOK, res)

	after, err := env.s.Stops(1)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)

	res, err = env.dispatch(CmdPitRemove, "2", "99")
	require.NoError(t, err)
	assert.Equal(t, ResultRejected, res)

	_, err = env.dispatch(CmdPitInsert, "2", "10")
	assert.ErrorIs(t, err, parser.ErrArgCount)

	_, err = env.dispatch(CmdPitAdd, "0")
	assert.ErrorIs(t, err, parser.ErrInvalidArg)
}

func TestRunRecordedInOrder(t *testing.T) {
	env := newTestEnv(t, Dependencies{})
	env.waitReady(t)

	res, err := env.dispatch(CmdPlay)
	require.NoError(t, err)
	assert.Equal(t, ResultPlaying, res)

	require.Eventually(t, func() bool {
		ops, _ := env.backend.snapshot()
		return len(ops) > 0 && ops[len(ops)-1] == "end"
	}, 5*time.Second, 5*time.Millisecond)

	ops, frames := env.backend.snapshot()
	assert.Equal(t, "start", ops[0])
	for _, op := range ops[1 : len(ops)-1] {
		assert.Equal(t, "frame", op)
	}
	require.NotEmpty(t, frames)
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].Seq, frames[i-1].Seq)
	}
	assert.True(t, frames[len(frames)-1].State.Finished())
	assert.Equal(t, env.s.ID(), frames[0].SessionID)

	recorded, dropped, failed := env.m.Stats()
	assert.Equal(t, uint64(len(frames)), recorded)
	assert.Zero(t, dropped)
	assert.Zero(t, failed)
}

func TestFrameRecord_DropsWhenFull(t *testing.T) {
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	defer d.Close()

	// not started, so nothing drains the queue
	m := NewManager(Dependencies{Dispatcher: d, RecorderQueueSize: 1}, &mockBackend{})

	_, err = m.handleFrameRecord(dispatcher.Event{Payload: core.Frame{Seq: 1}})
	require.NoError(t, err)
	_, err = m.handleFrameRecord(dispatcher.Event{Payload: core.Frame{Seq: 2}})
	assert.ErrorIs(t, err, dispatcher.ErrQueueFull)

	_, dropped, _ := m.Stats()
	assert.Equal(t, uint64(1), dropped)
	assert.Equal(t, 1, m.QueueLength())

	m.Close()
	assert.Zero(t, m.QueueLength())
}

func TestBadPayload(t *testing.T) {
	m := NewManager(Dependencies{}, nil)
	defer m.Close()

	for _, h := range []dispatcher.HandlerFunc{m.handleRunStart, m.handleRunEnd, m.handleFrameRecord, m.handleFrameMetric} {
		_, err := h(dispatcher.Event{Payload: "nope"})
		assert.ErrorIs(t, err, ErrBadPayload)
	}
}

func TestUploadAfterEnd(t *testing.T) {
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	defer d.Close()

	up := &mockUploader{}
	backend := &mockBackend{export: "/tmp/silverstone.json.gz"}
	m := NewManager(Dependencies{Dispatcher: d, Uploader: up}, backend)
	m.RegisterHandlers(nil)
	m.Start()

	rh := m.RunHandler()
	rh.RunStarted(core.Recording{TrackName: "Silverstone"}, core.Comparison{})
	m.FrameSink()(core.Frame{Seq: 1})
	rh.RunEnded(core.Recording{TrackName: "Silverstone"})
	m.Close()

	ops, _ := backend.snapshot()
	assert.Equal(t, []string{"start", "frame", "end"}, ops)

	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, []string{"/tmp/silverstone.json.gz"}, up.paths)
	assert.Equal(t, "VER vs HAM @ Silverstone", up.metas[0].Title)
}

func TestFrameSink_CallsExtraSinks(t *testing.T) {
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	defer d.Close()

	m := NewManager(Dependencies{Dispatcher: d}, &mockBackend{})
	defer m.Close()

	var got []uint64
	sink := m.FrameSink(func(f core.Frame) { got = append(got, f.Seq) })
	sink(core.Frame{Seq: 4})
	sink(core.Frame{Seq: 5})
	assert.Equal(t, []uint64{4, 5}, got)
}

// unreachableInflux returns an influx manager that fell back to its backup file.
func unreachableInflux(t *testing.T) (*influx.Manager, string) {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	server.Close()

	path := filepath.Join(t.TempDir(), "influx_backup.gz")
	mgr := influx.NewManager(config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     u.Hostname(),
		Port:     u.Port(),
		Org:      "pitwall",
	}, zerolog.Nop(), path)
	require.NoError(t, mgr.Connect(context.Background()))
	require.False(t, mgr.IsValid)
	return mgr, path
}

func TestMetrics_WrittenToInfluxBackup(t *testing.T) {
	mgr, path := unreachableInflux(t)

	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	m := NewManager(Dependencies{Dispatcher: d, Influx: mgr}, &mockBackend{})
	m.RegisterHandlers(nil)
	m.Start()

	m.FrameSink()(core.Frame{SessionID: "s", Seq: 1, Phase: "running"})
	res, err := d.Dispatch(dispatcher.Event{
		Command: CmdMetric,
		Args:    []string{`"service"`, `"lap"`, `"field::float::time::91.2"`},
	})
	require.NoError(t, err)
	assert.Equal(t, "queued", res)

	d.Close()
	m.Close()
	require.NoError(t, mgr.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var measurements []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		measurements = append(measurements, strings.SplitN(sc.Text(), ",", 2)[0])
	}
	require.NoError(t, sc.Err())
	assert.ElementsMatch(t, []string{"progress", "lap"}, measurements)
}

func TestMetric_InvalidArgs(t *testing.T) {
	mgr, _ := unreachableInflux(t)
	defer mgr.Close()

	m := NewManager(Dependencies{Influx: mgr}, nil)
	defer m.Close()

	_, err := m.handleMetric(dispatcher.Event{Args: []string{"service"}})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrBadPayload))
}
