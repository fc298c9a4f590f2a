package sim

import (
	"errors"
	"sync"
	"time"

	"github.com/pitwall/pitwall/pkg/core"
)

// ErrNotLoaded is returned when telemetry is missing for a car
var ErrNotLoaded = errors.New("simulation has no telemetry")

// Phase is the playback state of the animator.
type Phase int

const (
	Idle Phase = iota
	Running
	// Finished behaves like Idle for the controls but keeps the final state.
	Finished
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "idle"
	}
}

// Snapshot is a consistent copy of the animator state.
type Snapshot struct {
	Phase Phase
	State core.RaceState
	Track core.Track
	Seq   uint64
	Time  time.Time
	// Race changes whenever the cars are put back on the line, and only then.
	Race uint64
}

// Animator owns the race state and applies Step on every tick while running.
// Every control bumps a generation counter; ticks issued for an older
// generation are ignored, so a paused or reset run can never move the cars.
type Animator struct {
	mu         sync.Mutex
	phase      Phase
	state      core.RaceState
	track      core.Track
	multiplier float64
	telemetry  [2][]core.TelemetryPoint
	loaded     bool

	gen       uint64
	race      uint64
	last      time.Time
	hasOrigin bool
	seq       uint64
}

// NewAnimator creates an idle animator on track. A non-positive multiplier
// selects SpeedMultiplier.
func NewAnimator(track core.Track, multiplier float64) *Animator {
	if multiplier <= 0 {
		multiplier = SpeedMultiplier
	}
	return &Animator{track: track, multiplier: multiplier}
}

// Load installs the telemetry of both cars and resets the race.
func (a *Animator) Load(telemetry [2][]core.TelemetryPoint) error {
	if len(telemetry[0]) == 0 || len(telemetry[1]) == 0 {
		return ErrNotLoaded
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.telemetry = telemetry
	a.loaded = true
	a.zero()
	return nil
}

// Unload drops the telemetry, for example while new data is being fetched.
func (a *Animator) Unload() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.telemetry = [2][]core.TelemetryPoint{}
	a.loaded = false
	a.zero()
}

// Play starts the clock and returns the generation ticks must carry.
// It fails when no telemetry is loaded.
func (a *Animator) Play() (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded {
		return 0, false
	}
	a.gen++
	a.phase = Running
	a.hasOrigin = false
	return a.gen, true
}

// Pause stops the clock, keeping the race state.
func (a *Animator) Pause() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != Running {
		return false
	}
	a.gen++
	a.phase = Idle
	return true
}

// Reset stops the clock and puts both cars back on the line.
func (a *Animator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.zero()
}

// SetTrack switches circuits, which always resets the race.
func (a *Animator) SetTrack(track core.Track) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.track = track
	a.zero()
}

// Tick advances the race to now. The first tick after Play only records the
// time origin. The returned bool is false when the tick was ignored.
func (a *Animator) Tick(gen uint64, now time.Time) (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.gen || a.phase != Running {
		return a.snapshot(), false
	}

	if !a.hasOrigin {
		a.last = now
		a.hasOrigin = true
		a.seq++
		return a.snapshot(), true
	}

	dt := now.Sub(a.last).Seconds()
	a.last = now
	a.state = Step(a.state, dt, Input{
		Telemetry:       a.telemetry,
		TrackLength:     a.track.Length,
		SpeedMultiplier: a.multiplier,
	})
	if a.state.Finished() {
		a.phase = Finished
		a.gen++
	}
	a.seq++
	return a.snapshot(), true
}

// Snapshot returns the current state.
func (a *Animator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

func (a *Animator) snapshot() Snapshot {
	return Snapshot{
		Phase: a.phase,
		State: a.state,
		Track: a.track,
		Seq:   a.seq,
		Time:  a.last,
		Race:  a.race,
	}
}

func (a *Animator) zero() {
	a.gen++
	a.race++
	a.phase = Idle
	a.state = core.RaceState{}
	a.hasOrigin = false
	a.seq = 0
}
