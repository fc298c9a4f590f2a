// Package sim advances two cars around a track in simulated time.
//
// Step is a pure function of the race state. Animator wraps it in the
// Idle/Running/Finished state machine and Runner drives the animator from a
// ticker.
package sim

import (
	"github.com/pitwall/pitwall/internal/telemetry"
	"github.com/pitwall/pitwall/pkg/core"
)

const (
	// SpeedMultiplier compresses playback so a lap takes seconds instead of minutes.
	SpeedMultiplier = 10.0
	// ReferenceLapTime maps simulated elapsed time onto a driver's real lap time.
	ReferenceLapTime = 88.0
)

// Input is everything Step needs besides the state.
type Input struct {
	Telemetry       [2][]core.TelemetryPoint
	TrackLength     float64 // metres
	SpeedMultiplier float64
}

// Step advances every unfinished car by dt seconds at the speed sampled at its
// current distance. Finished cars are left untouched and distance never exceeds 1.
func Step(state core.RaceState, dt float64, in Input) core.RaceState {
	if dt <= 0 || in.TrackLength <= 0 {
		return state
	}
	mult := in.SpeedMultiplier
	if mult <= 0 {
		mult = SpeedMultiplier
	}

	next := state
	for i := range next {
		if next[i].Finished() {
			continue
		}
		sample, err := telemetry.SampleAt(in.Telemetry[i], next[i].Distance)
		if err != nil {
			continue
		}
		speedMps := sample.Speed * 1000 / 3600
		increment := speedMps / in.TrackLength * dt * mult
		next[i].Distance = min(1, next[i].Distance+increment)
		next[i].ElapsedLapTime += dt
	}
	return next
}
