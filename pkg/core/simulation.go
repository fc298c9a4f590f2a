// pkg/core/simulation.go
package core

import "time"

// DriverState is the progress of one car through the lap.
type DriverState struct {
	Distance       float64 `json:"distance"`       // 0..1
	ElapsedLapTime float64 `json:"elapsedLapTime"` // simulated seconds
}

// Finished reports whether the car completed the lap.
func (s DriverState) Finished() bool {
	return s.Distance >= 1
}

// RaceState holds both cars.
type RaceState [2]DriverState

// Finished reports whether both cars completed the lap.
func (r RaceState) Finished() bool {
	return r[0].Finished() && r[1].Finished()
}

// Leader returns the index of the car further along the lap.
// Ties go to the second car.
func (r RaceState) Leader() int {
	if r[0].Distance > r[1].Distance {
		return 0
	}
	return 1
}

// Progress returns the leader's distance.
func (r RaceState) Progress() float64 {
	return r[r.Leader()].Distance
}

// Frame is one applied animation step, streamed to clients and recorders.
type Frame struct {
	SessionID string            `json:"sessionId"`
	Seq       uint64            `json:"seq"`
	Time      time.Time         `json:"time"`
	Phase     string            `json:"phase"`
	State     RaceState         `json:"state"`
	Samples   [2]TelemetryPoint `json:"samples"`
}
