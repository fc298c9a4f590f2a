package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/pitwall/internal/catalog"
	"github.com/pitwall/pitwall/internal/mockdata"
	"github.com/pitwall/pitwall/internal/sim"
	"github.com/pitwall/pitwall/pkg/core"
)

type fetchCall struct {
	ctx    context.Context
	d1, d2 core.Driver
	reply  chan fetchReply
}

type fetchReply struct {
	cmp core.Comparison
	err error
}

// fakeFetcher blocks every request until the test replies to it.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []*fetchCall
}

func (f *fakeFetcher) Fetch(ctx context.Context, d1, d2 core.Driver) (core.Comparison, error) {
	c := &fetchCall{ctx: ctx, d1: d1, d2: d2, reply: make(chan fetchReply, 1)}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	r := <-c.reply
	return r.cmp, r.err
}

func (f *fakeFetcher) call(t *testing.T, i int) *fetchCall {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.calls) > i
	}, time.Second, time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func (c *fetchCall) succeed() {
	c.reply <- fetchReply{cmp: comparison(c.d1, c.d2)}
}

func (c *fetchCall) fail(err error) {
	c.reply <- fetchReply{err: err}
}

func comparison(d1, d2 core.Driver) core.Comparison {
	tel := make([]core.TelemetryPoint, 201)
	for i := range tel {
		tel[i] = core.TelemetryPoint{Distance: float64(i) / 200, Speed: 300, Gear: 8, Throttle: 1}
	}
	lap := func(id string) core.LapData {
		return core.LapData{DriverID: id, LapTime: 88, Telemetry: tel}
	}
	return core.Comparison{
		Driver1: core.DriverData{Driver: d1, LapData: lap(d1.ID)},
		Driver2: core.DriverData{Driver: d2, LapData: lap(d2.ID)},
	}
}

type manualTicker struct {
	ch chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

type tickers struct {
	mu  sync.Mutex
	all []*manualTicker
}

func (f *tickers) New(time.Duration) sim.Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	f.all = append(f.all, t)
	return t
}

func (f *tickers) last(t *testing.T) *manualTicker {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.all) > 0
	}, time.Second, time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.all[len(f.all)-1]
}

type runLog struct {
	mu      sync.Mutex
	started []core.Recording
	ended   []core.Recording
}

func (r *runLog) RunStarted(rec core.Recording, _ core.Comparison) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, rec)
}

func (r *runLog) RunEnded(rec core.Recording) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, rec)
}

func (r *runLog) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started), len(r.ended)
}

func waitStatus(t *testing.T, s *Session, want Status) {
	t.Helper()
	assert.Eventually(t, func() bool {
		st, _ := s.Status()
		return st == want
	}, time.Second, time.Millisecond)
}

func newReadySession(t *testing.T, opts ...Option) (*Session, *fakeFetcher) {
	t.Helper()
	f := &fakeFetcher{}
	s := New(catalog.Default(), f, opts...)
	t.Cleanup(s.Close)
	s.Start()
	f.call(t, 0).succeed()
	waitStatus(t, s, StatusReady)
	return s, f
}

func TestNew_Defaults(t *testing.T) {
	s := New(catalog.Default(), &fakeFetcher{})
	defer s.Close()

	pair := s.Drivers()
	assert.Equal(t, "verstappen", pair[0].ID)
	assert.Equal(t, "hamilton", pair[1].ID)
	assert.Equal(t, "Silverstone", s.Track().Name)
	assert.NotEmpty(t, s.ID())

	st, err := s.Status()
	assert.Equal(t, StatusNoData, st)
	assert.NoError(t, err)

	stops, err := s.Stops(0)
	require.NoError(t, err)
	assert.Equal(t, []core.PitStop{{Lap: 1, Tire: core.TireMedium}}, stops)
}

func TestStart_LoadsComparison(t *testing.T) {
	f := &fakeFetcher{}
	s := New(catalog.Default(), f)
	defer s.Close()

	s.Start()
	st, _ := s.Status()
	assert.Equal(t, StatusLoading, st)

	call := f.call(t, 0)
	assert.Equal(t, "verstappen", call.d1.ID)
	assert.Equal(t, "hamilton", call.d2.ID)
	call.succeed()

	waitStatus(t, s, StatusReady)
	cmp, ok := s.Data()
	require.True(t, ok)
	assert.Equal(t, "verstappen", cmp.Driver1.Driver.ID)
}

func TestSelectDriver_KeepsPairDistinct(t *testing.T) {
	s, f := newReadySession(t)

	require.NoError(t, s.SelectDriver(1, "verstappen"))
	pair := s.Drivers()
	assert.Equal(t, "hamilton", pair[0].ID)
	assert.Equal(t, "verstappen", pair[1].ID)

	require.NoError(t, s.SelectDriver(0, "norris"))
	pair = s.Drivers()
	assert.Equal(t, "norris", pair[0].ID)
	assert.Equal(t, "verstappen", pair[1].ID)

	f.call(t, 1).succeed()
	f.call(t, 2).succeed()
	waitStatus(t, s, StatusReady)
}

func TestSelectDriver_Errors(t *testing.T) {
	s := New(catalog.Default(), &fakeFetcher{})
	defer s.Close()

	assert.ErrorIs(t, s.SelectDriver(0, "schumacher"), ErrUnknownDriver)
	assert.ErrorIs(t, s.SelectDriver(2, "norris"), ErrInvalidSlot)

	st, _ := s.Status()
	assert.Equal(t, StatusNoData, st)
}

func TestSelectDriver_DropsStaleResult(t *testing.T) {
	f := &fakeFetcher{}
	s := New(catalog.Default(), f)
	defer s.Close()

	require.NoError(t, s.SelectDriver(0, "alonso"))
	first := f.call(t, 0)
	require.NoError(t, s.SelectDriver(0, "sainz"))
	second := f.call(t, 1)

	assert.Error(t, first.ctx.Err(), "superseded request should be cancelled")

	second.succeed()
	waitStatus(t, s, StatusReady)

	first.succeed()
	time.Sleep(10 * time.Millisecond)

	cmp, ok := s.Data()
	require.True(t, ok)
	assert.Equal(t, "sainz", cmp.Driver1.Driver.ID)
}

func TestFetchFailure(t *testing.T) {
	f := &fakeFetcher{}
	s := New(catalog.Default(), f)
	defer s.Close()

	s.Start()
	f.call(t, 0).fail(mockdata.ErrDataFetch)

	waitStatus(t, s, StatusError)
	_, err := s.Status()
	assert.ErrorIs(t, err, mockdata.ErrDataFetch)
	_, ok := s.Data()
	assert.False(t, ok)
	assert.False(t, s.Play())
}

func TestStrategyEdits(t *testing.T) {
	s := New(catalog.Default(), &fakeFetcher{})
	defer s.Close()

	ok, err := s.AddStop(0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.InsertStop(0, 30, core.TireHard)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UpdateStop(0, 2, 11, core.TireSoft)
	require.NoError(t, err)
	assert.False(t, ok, "lap 11 is taken")

	ok, err = s.RemoveStop(0, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	stops, err := s.Stops(0)
	require.NoError(t, err)
	assert.Equal(t, []core.PitStop{
		{Lap: 1, Tire: core.TireMedium},
		{Lap: 11, Tire: core.TireMedium},
		{Lap: 30, Tire: core.TireHard},
	}, stops)

	other, err := s.Stops(1)
	require.NoError(t, err)
	assert.Len(t, other, 1)

	_, err = s.AddStop(5)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestSelectTrack(t *testing.T) {
	s := New(catalog.Default(), &fakeFetcher{})
	defer s.Close()

	assert.ErrorIs(t, s.SelectTrack("Monza"), ErrUnknownTrack)
	require.NoError(t, s.SelectTrack("Monaco"))
	assert.Equal(t, "Monaco", s.Track().Name)
	assert.Equal(t, "Monaco", s.State().Track.Name)
}

func TestPlay_RecordsRunAndFrames(t *testing.T) {
	tk := &tickers{}
	runs := &runLog{}

	var mu sync.Mutex
	var frames []core.Frame
	sink := func(f core.Frame) {
		mu.Lock()
		defer mu.Unlock()
		frames = append(frames, f)
	}

	s, _ := newReadySession(t,
		WithRunnerOptions(sim.WithTicker(tk.New)),
		WithFrameSink(sink),
		WithRunHandler(runs))

	require.True(t, s.Play())
	started, ended := runs.counts()
	assert.Equal(t, 1, started)
	assert.Equal(t, 0, ended)

	ticker := tk.last(t)
	origin := time.Now()
	ticker.ch <- origin
	ticker.ch <- origin.Add(10 * time.Second)

	assert.Eventually(t, func() bool {
		return s.Snapshot().Phase == sim.Finished
	}, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool {
		_, ended := runs.counts()
		return ended == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, frames, 2)
	last := frames[1]
	assert.Equal(t, s.ID(), last.SessionID)
	assert.Equal(t, "finished", last.Phase)
	assert.Equal(t, 1.0, last.State[0].Distance)
	assert.Equal(t, 300.0, last.Samples[0].Speed)
}

func TestReset_EndsRun(t *testing.T) {
	tk := &tickers{}
	runs := &runLog{}
	s, _ := newReadySession(t, WithRunnerOptions(sim.WithTicker(tk.New)), WithRunHandler(runs))

	require.True(t, s.TogglePlay())
	assert.Equal(t, sim.Running, s.Snapshot().Phase)
	require.True(t, s.TogglePlay())
	assert.Equal(t, sim.Idle, s.Snapshot().Phase)

	s.Reset()
	started, ended := runs.counts()
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, ended)
}

func TestFinishedSnapshot_OnlyEndsItsOwnRun(t *testing.T) {
	tk := &tickers{}
	runs := &runLog{}
	s, _ := newReadySession(t, WithRunnerOptions(sim.WithTicker(tk.New)), WithRunHandler(runs))

	require.True(t, s.Play())
	stale := s.Snapshot()
	stale.Phase = sim.Finished

	// the first run is reset and a second one started before the
	// finishing tick of the first is handled
	s.Reset()
	require.True(t, s.Play())
	s.handleSnapshot(stale)

	started, ended := runs.counts()
	assert.Equal(t, 2, started)
	assert.Equal(t, 1, ended)

	s.mu.RLock()
	active := s.run != nil
	s.mu.RUnlock()
	assert.True(t, active, "second run still recording")
}

func TestSelectDriver_UnloadsSimulation(t *testing.T) {
	tk := &tickers{}
	s, f := newReadySession(t, WithRunnerOptions(sim.WithTicker(tk.New)))

	require.True(t, s.Play())
	require.NoError(t, s.SelectDriver(0, "leclerc"))

	assert.Equal(t, sim.Idle, s.Snapshot().Phase)
	assert.False(t, s.Play())

	f.call(t, 1).succeed()
	waitStatus(t, s, StatusReady)
	assert.True(t, s.Play())
}

func TestState_IsACopy(t *testing.T) {
	s, _ := newReadySession(t)

	st := s.State()
	require.NotNil(t, st.Data)
	st.Data.Driver1.Driver.Name = "changed"
	st.Stops[0][0].Lap = 99

	again := s.State()
	assert.NotEqual(t, "changed", again.Data.Driver1.Driver.Name)
	assert.Equal(t, 1, again.Stops[0][0].Lap)
	assert.Equal(t, StatusReady, again.Status)
	assert.Equal(t, 50, again.RaceLength)
}

func TestClose_CancelsFetch(t *testing.T) {
	f := &fakeFetcher{}
	s := New(catalog.Default(), f)
	s.Start()
	call := f.call(t, 0)

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	assert.Eventually(t, func() bool { return call.ctx.Err() != nil }, time.Second, time.Millisecond)
	call.fail(errors.New("cancelled"))
	<-done
}
