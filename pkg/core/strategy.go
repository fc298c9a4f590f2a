// pkg/core/strategy.go
package core

// PitStop marks the lap a tire compound is fitted.
// The first stop of a strategy is the race start on lap 1.
type PitStop struct {
	Lap  int          `json:"lap"`
	Tire TireCompound `json:"tire"`
}

// ProjectedLap is one lap of a projected race.
type ProjectedLap struct {
	Lap     int          `json:"lap"`
	LapTime float64      `json:"lapTime"`
	Tire    TireCompound `json:"tire"`
}
