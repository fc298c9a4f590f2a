// Package session holds the state of one comparison: the selected driver pair,
// the data fetched for it, both strategy plans, the track and the simulation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitwall/pitwall/internal/catalog"
	"github.com/pitwall/pitwall/internal/sim"
	"github.com/pitwall/pitwall/internal/strategy"
	"github.com/pitwall/pitwall/internal/telemetry"
	"github.com/pitwall/pitwall/internal/tire"
	"github.com/pitwall/pitwall/pkg/core"
)

var (
	// ErrUnknownDriver is returned when a driver id is not in the catalog
	ErrUnknownDriver = errors.New("unknown driver")
	// ErrUnknownTrack is returned when a track name is not in the catalog
	ErrUnknownTrack = errors.New("unknown track")
	// ErrInvalidSlot is returned for a slot other than 0 or 1
	ErrInvalidSlot = errors.New("invalid driver slot")
)

// Fetcher loads the comparison bundle of a driver pair.
type Fetcher interface {
	Fetch(ctx context.Context, d1, d2 core.Driver) (core.Comparison, error)
}

// RunHandler is told when a simulation run starts and ends. It is called with
// the session lock held and must not call back into the Session.
type RunHandler interface {
	RunStarted(rec core.Recording, data core.Comparison)
	RunEnded(rec core.Recording)
}

// State is a consistent copy of everything the views render.
type State struct {
	ID         string
	Drivers    [2]core.Driver
	Status     Status
	Err        error
	Data       *core.Comparison
	Stops      [2][]core.PitStop
	RaceLength int
	Track      core.Track
	Sim        sim.Snapshot
}

// Session is safe for concurrent use.
type Session struct {
	id      string
	catalog *catalog.Catalog
	tires   *tire.Model
	fetcher Fetcher
	runner  *sim.Runner
	logger  *slog.Logger

	raceLength int
	multiplier float64
	simOpts    []sim.RunnerOption
	onFrame    func(core.Frame)
	runs       RunHandler

	ctx      context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.RWMutex
	drivers  [2]core.Driver
	status   Status
	fetchErr error
	data     *core.Comparison
	plans    [2]*strategy.Plan
	gen      uint64
	cancel   context.CancelFunc
	run      *core.Recording
	runRace  uint64
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithRaceLength sets the number of laps both plans cover.
func WithRaceLength(laps int) Option {
	return func(s *Session) {
		if laps > 0 {
			s.raceLength = laps
		}
	}
}

// WithSpeedMultiplier overrides sim.SpeedMultiplier.
func WithSpeedMultiplier(m float64) Option {
	return func(s *Session) {
		s.multiplier = m
	}
}

// WithRunnerOptions passes options through to the simulation runner.
func WithRunnerOptions(opts ...sim.RunnerOption) Option {
	return func(s *Session) {
		s.simOpts = append(s.simOpts, opts...)
	}
}

// WithFrameSink receives every applied simulation frame.
func WithFrameSink(fn func(core.Frame)) Option {
	return func(s *Session) {
		s.onFrame = fn
	}
}

// WithRunHandler is notified about run boundaries.
func WithRunHandler(h RunHandler) Option {
	return func(s *Session) {
		s.runs = h
	}
}

// New creates a session showing the catalog's default pair on its default
// track. No data is requested until Start is called.
func New(cat *catalog.Catalog, fetcher Fetcher, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		catalog:    cat,
		tires:      tire.New(cat.Tires()),
		fetcher:    fetcher,
		logger:     slog.Default(),
		raceLength: strategy.DefaultRaceLaps,
		drivers:    cat.DefaultPair(),
		status:     StatusNoData,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.shutdown = context.WithCancel(context.Background())

	for i := range s.plans {
		s.plans[i] = strategy.NewPlan(s.raceLength, strategy.DefaultStartTire, s.tires)
	}

	runnerOpts := append([]sim.RunnerOption{sim.WithFrameHandler(s.handleSnapshot)}, s.simOpts...)
	s.runner = sim.NewRunner(sim.NewAnimator(cat.DefaultTrack(), s.multiplier), runnerOpts...)
	return s
}

// ID returns the unique id of this session
func (s *Session) ID() string {
	return s.id
}

// Catalog returns the catalog the session validates against.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// Tires returns the tire model built from the catalog.
func (s *Session) Tires() *tire.Model {
	return s.tires
}

// Start requests data for the current pair.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
}

// Close cancels any fetch in flight, stops the simulation and waits for
// background work to finish.
func (s *Session) Close() {
	s.mu.Lock()
	s.endRunLocked()
	s.mu.Unlock()

	s.shutdown()
	s.runner.Close()
	s.wg.Wait()
}

// Drivers returns the selected pair.
func (s *Session) Drivers() [2]core.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drivers
}

// SelectDriver puts driverID into slot. If the other slot already holds that
// driver, it receives the first catalog driver that differs. A new fetch is
// started for the resulting pair.
func (s *Session) SelectDriver(slot int, driverID string) error {
	if slot != 0 && slot != 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	d, ok := s.catalog.Driver(driverID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDriver, driverID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	other := 1 - slot
	s.drivers[slot] = d
	if s.drivers[other].ID == d.ID {
		s.drivers[other] = s.catalog.FirstDriverExcept(d.ID)
	}
	s.refreshLocked()
	return nil
}

// refreshLocked starts a fetch for the current pair and supersedes any
// earlier one. The caller must hold s.mu.
func (s *Session) refreshLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	s.endRunLocked()
	s.gen++
	gen := s.gen

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.status = StatusLoading
	s.fetchErr = nil
	s.data = nil
	s.runner.Unload()

	d1, d2 := s.drivers[0], s.drivers[1]
	s.logger.Debug("fetching comparison", "driver1", d1.ID, "driver2", d2.ID, "generation", gen)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		cmp, err := s.fetcher.Fetch(ctx, d1, d2)
		s.applyFetch(gen, cmp, err)
	}()
}

func (s *Session) applyFetch(gen uint64, cmp core.Comparison, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.logger.Debug("discarding stale comparison", "generation", gen, "current", s.gen)
		return
	}
	s.cancel = nil

	if err != nil {
		s.status = StatusError
		s.fetchErr = err
		s.logger.Error("failed to fetch comparison", "error", err)
		return
	}

	if err := s.runner.Load([2][]core.TelemetryPoint{
		cmp.Driver1.LapData.Telemetry,
		cmp.Driver2.LapData.Telemetry,
	}); err != nil {
		s.status = StatusError
		s.fetchErr = err
		s.logger.Error("failed to load telemetry", "error", err)
		return
	}

	s.data = &cmp
	s.status = StatusReady
	s.logger.Info("comparison ready",
		"driver1", cmp.Driver1.Driver.ID,
		"driver2", cmp.Driver2.Driver.ID)
}

// Status returns the load state and, in StatusError, the cause.
func (s *Session) Status() (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.fetchErr
}

// Data returns the loaded comparison.
func (s *Session) Data() (core.Comparison, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return core.Comparison{}, false
	}
	return *s.data, true
}

// Track returns the selected track.
func (s *Session) Track() core.Track {
	return s.runner.Animator().Snapshot().Track
}

// SelectTrack switches the circuit and resets the simulation.
func (s *Session) SelectTrack(name string) error {
	track, ok := s.catalog.Track(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTrack, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endRunLocked()
	s.runner.SetTrack(track)
	return nil
}

// Play starts the simulation. It returns false while no data is loaded.
func (s *Session) Play() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playLocked()
}

func (s *Session) playLocked() bool {
	if s.data == nil {
		return false
	}
	snap := s.runner.Animator().Snapshot()
	fresh := s.run == nil && snap.State == (core.RaceState{})
	if fresh {
		s.beginRunLocked(snap.Track, snap.Race)
	}
	if !s.runner.Play() {
		if fresh {
			s.endRunLocked()
		}
		return false
	}
	return true
}

// Pause halts the simulation, keeping positions.
func (s *Session) Pause() {
	s.runner.Pause()
}

// TogglePlay pauses a running simulation and plays any other.
func (s *Session) TogglePlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner.Animator().Snapshot().Phase == sim.Running {
		s.runner.Pause()
		return true
	}
	return s.playLocked()
}

// Reset puts both cars back on the line.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endRunLocked()
	s.runner.Reset()
}

// Snapshot returns the simulation state.
func (s *Session) Snapshot() sim.Snapshot {
	return s.runner.Animator().Snapshot()
}

// State returns a consistent copy of the session for rendering.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		ID:         s.id,
		Drivers:    s.drivers,
		Status:     s.status,
		Err:        s.fetchErr,
		RaceLength: s.raceLength,
		Sim:        s.runner.Animator().Snapshot(),
	}
	st.Track = st.Sim.Track
	if s.data != nil {
		cmp := *s.data
		st.Data = &cmp
	}
	for i, p := range s.plans {
		st.Stops[i] = p.Stops()
	}
	return st
}

func (s *Session) beginRunLocked(track core.Track, race uint64) {
	s.runRace = race
	s.run = &core.Recording{
		SessionID:   s.id,
		StartTime:   time.Now(),
		TrackName:   track.Name,
		TrackLength: track.Length,
		Latitude:    track.Latitude,
		Longitude:   track.Longitude,
		DriverIDs:   [2]string{s.data.Driver1.Driver.ID, s.data.Driver2.Driver.ID},
	}
	s.logger.Info("simulation run started", "track", track.Name)
	if s.runs != nil {
		s.runs.RunStarted(*s.run, *s.data)
	}
}

func (s *Session) endRunLocked() {
	if s.run == nil {
		return
	}
	rec := *s.run
	s.run = nil
	s.logger.Info("simulation run ended", "track", rec.TrackName, "duration", time.Since(rec.StartTime))
	if s.runs != nil {
		s.runs.RunEnded(rec)
	}
}

func (s *Session) handleSnapshot(snap sim.Snapshot) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()
	if data == nil {
		return
	}

	frame := core.Frame{
		SessionID: s.id,
		Seq:       snap.Seq,
		Time:      snap.Time,
		Phase:     snap.Phase.String(),
		State:     snap.State,
	}
	tel := [2][]core.TelemetryPoint{data.Driver1.LapData.Telemetry, data.Driver2.LapData.Telemetry}
	for i := range tel {
		frame.Samples[i], _ = telemetry.SampleAt(tel[i], snap.State[i].Distance)
	}
	if s.onFrame != nil {
		s.onFrame(frame)
	}

	// a reset and a new play may land between the tick and this call
	if snap.Phase == sim.Finished {
		s.mu.Lock()
		if s.runRace == snap.Race {
			s.endRunLocked()
		}
		s.mu.Unlock()
	}
}
