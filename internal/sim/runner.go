package sim

import (
	"context"
	"sync"
	"time"

	"github.com/pitwall/pitwall/pkg/core"
)

// Runner drives an Animator from a Ticker on its own goroutine.
// Pause, Reset, SetTrack and Load cancel the running loop immediately.
type Runner struct {
	animator  *Animator
	newTicker TickerFunc
	interval  time.Duration
	onFrame   func(Snapshot)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTicker replaces the wall-clock ticker.
func WithTicker(f TickerFunc) RunnerOption {
	return func(r *Runner) {
		r.newTicker = f
	}
}

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithFrameHandler is called with every applied tick.
func WithFrameHandler(fn func(Snapshot)) RunnerOption {
	return func(r *Runner) {
		r.onFrame = fn
	}
}

// NewRunner creates a runner for animator.
func NewRunner(animator *Animator, opts ...RunnerOption) *Runner {
	r := &Runner{
		animator:  animator,
		newTicker: NewTimeTicker,
		interval:  DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Animator returns the driven animator.
func (r *Runner) Animator() *Animator {
	return r.animator
}

// Play starts playback. It returns false when nothing is loaded.
func (r *Runner) Play() bool {
	gen, ok := r.animator.Play()
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go r.run(ctx, gen)
	return true
}

// Pause stops playback and keeps the race state.
func (r *Runner) Pause() {
	r.animator.Pause()
	r.stop()
}

// Toggle pauses a running simulation and plays any other.
func (r *Runner) Toggle() bool {
	if r.animator.Snapshot().Phase == Running {
		r.Pause()
		return true
	}
	return r.Play()
}

// Reset stops playback and zeroes the race.
func (r *Runner) Reset() {
	r.animator.Reset()
	r.stop()
}

// SetTrack stops playback and switches tracks.
func (r *Runner) SetTrack(track core.Track) {
	r.animator.SetTrack(track)
	r.stop()
}

// Load stops playback and installs new telemetry.
func (r *Runner) Load(telemetry [2][]core.TelemetryPoint) error {
	r.stop()
	return r.animator.Load(telemetry)
}

// Unload stops playback and drops the telemetry.
func (r *Runner) Unload() {
	r.animator.Unload()
	r.stop()
}

// Close stops playback and waits for the loop to exit.
func (r *Runner) Close() {
	r.stop()
	r.wg.Wait()
}

func (r *Runner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Runner) stopLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Runner) run(ctx context.Context, gen uint64) {
	defer r.wg.Done()

	ticker := r.newTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			snap, ok := r.animator.Tick(gen, now)
			if !ok {
				return
			}
			if r.onFrame != nil {
				r.onFrame(snap)
			}
			if snap.Phase != Running {
				return
			}
		}
	}
}
