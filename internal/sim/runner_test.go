package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/pitwall/pkg/core"
)

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *manualTicker) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (f *tickerFactory) New(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time, 16)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *tickerFactory) last() *manualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

type frameLog struct {
	mu     sync.Mutex
	frames []Snapshot
}

func (l *frameLog) add(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, s)
}

func (l *frameLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}

func (l *frameLog) last() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames[len(l.frames)-1]
}

func newTestRunner(t *testing.T) (*Runner, *tickerFactory, *frameLog) {
	t.Helper()
	a := NewAnimator(testTrack, 0)
	require.NoError(t, a.Load([2][]core.TelemetryPoint{constantSpeed(360), constantSpeed(360)}))

	f := &tickerFactory{}
	log := &frameLog{}
	r := NewRunner(a, WithTicker(f.New), WithFrameHandler(log.add), WithInterval(time.Millisecond))
	t.Cleanup(r.Close)
	return r, f, log
}

func waitTicker(t *testing.T, f *tickerFactory, n int) *manualTicker {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.tickers) >= n
	}, time.Second, time.Millisecond)
	return f.last()
}

func TestRunner_PlayAdvances(t *testing.T) {
	r, f, log := newTestRunner(t)
	require.True(t, r.Play())

	tk := waitTicker(t, f, 1)
	t0 := time.Unix(0, 0)
	tk.ch <- t0
	tk.ch <- t0.Add(100 * time.Millisecond)

	require.Eventually(t, func() bool { return log.len() == 2 }, time.Second, time.Millisecond)
	assert.InDelta(t, 0.1, log.last().State[0].Distance, 1e-9)
}

func TestRunner_PauseStopsTicks(t *testing.T) {
	r, f, log := newTestRunner(t)
	require.True(t, r.Play())
	tk := waitTicker(t, f, 1)

	t0 := time.Unix(0, 0)
	tk.ch <- t0
	require.Eventually(t, func() bool { return log.len() == 1 }, time.Second, time.Millisecond)

	r.Pause()
	require.Eventually(t, tk.isStopped, time.Second, time.Millisecond)

	tk.ch <- t0.Add(500 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, log.len())
	assert.Equal(t, core.RaceState{}, r.Animator().Snapshot().State)
}

func TestRunner_StopsWhenFinished(t *testing.T) {
	r, f, log := newTestRunner(t)
	require.True(t, r.Play())
	tk := waitTicker(t, f, 1)

	t0 := time.Unix(0, 0)
	tk.ch <- t0
	tk.ch <- t0.Add(5 * time.Second)

	require.Eventually(t, tk.isStopped, time.Second, time.Millisecond)
	require.Equal(t, 2, log.len())
	assert.Equal(t, Finished, log.last().Phase)
}

func TestRunner_Toggle(t *testing.T) {
	r, f, _ := newTestRunner(t)

	require.True(t, r.Toggle())
	waitTicker(t, f, 1)
	assert.Equal(t, Running, r.Animator().Snapshot().Phase)

	require.True(t, r.Toggle())
	assert.Equal(t, Idle, r.Animator().Snapshot().Phase)
}

func TestRunner_ResetAndSetTrack(t *testing.T) {
	r, f, log := newTestRunner(t)
	require.True(t, r.Play())
	tk := waitTicker(t, f, 1)
	t0 := time.Unix(0, 0)
	tk.ch <- t0
	tk.ch <- t0.Add(200 * time.Millisecond)
	require.Eventually(t, func() bool { return log.len() == 2 }, time.Second, time.Millisecond)

	r.Reset()
	require.Eventually(t, tk.isStopped, time.Second, time.Millisecond)
	assert.Equal(t, core.RaceState{}, r.Animator().Snapshot().State)

	require.True(t, r.Play())
	tk = waitTicker(t, f, 2)
	r.SetTrack(core.Track{Name: "Monaco", Length: 3337})
	require.Eventually(t, tk.isStopped, time.Second, time.Millisecond)
	assert.Equal(t, Idle, r.Animator().Snapshot().Phase)
}

func TestRunner_PlayWithoutData(t *testing.T) {
	r := NewRunner(NewAnimator(testTrack, 0))
	assert.False(t, r.Play())
	r.Close()
}
