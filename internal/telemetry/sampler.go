// Package telemetry samples and generates lap telemetry.
package telemetry

import (
	"errors"
	"math"

	"github.com/pitwall/pitwall/pkg/core"
)

// ErrNoTelemetry is returned when sampling an empty telemetry series
var ErrNoTelemetry = errors.New("no telemetry")

// SampleAt returns the sample at or just below distance. Values are never
// interpolated; out-of-range distances clamp to the first or last sample.
func SampleAt(points []core.TelemetryPoint, distance float64) (core.TelemetryPoint, error) {
	if len(points) == 0 {
		return core.TelemetryPoint{}, ErrNoTelemetry
	}
	return points[index(len(points), distance)], nil
}

// Upto returns the samples covered by progress, for a live strip that grows as
// the leader advances.
func Upto(points []core.TelemetryPoint, progress float64) []core.TelemetryPoint {
	n := int(math.Floor(progress * float64(len(points))))
	n = max(0, min(len(points), n))
	return points[:n]
}

func index(n int, distance float64) int {
	if math.IsNaN(distance) || distance <= 0 {
		return 0
	}
	i := int(math.Floor(distance * float64(n)))
	return min(n-1, i)
}
