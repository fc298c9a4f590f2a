// Package strategy projects per-lap race times from a pit-stop plan and
// provides the editor that keeps a plan valid.
package strategy

import (
	"errors"
	"fmt"

	"github.com/pitwall/pitwall/pkg/core"
)

// DefaultRaceLaps is the race length used when none is configured.
const DefaultRaceLaps = 50

// ErrInvalidStrategy is returned when a projection input cannot describe a race
var ErrInvalidStrategy = errors.New("invalid strategy")

// ModifierSource yields the lap-time modifier for a compound at a tire age.
type ModifierSource interface {
	Modifier(compound core.TireCompound, tireAge int) (float64, error)
}

// Evaluator turns a strategy into a projected lap-time series.
type Evaluator struct {
	tires ModifierSource
}

// NewEvaluator creates an evaluator backed by a tire model.
func NewEvaluator(tires ModifierSource) *Evaluator {
	return &Evaluator{tires: tires}
}

// Project returns one entry per lap from 1 to raceLength.
// Each stint runs from its stop lap up to the lap before the next stop, with the
// tire age reset to 0 on the stop lap. A synthetic stop at raceLength+1 closes
// the final stint. Stints that end before they start contribute no laps.
func (e *Evaluator) Project(baseLapTime float64, stints []core.PitStop, raceLength int) ([]core.ProjectedLap, error) {
	if err := validate(baseLapTime, stints, raceLength); err != nil {
		return nil, err
	}

	bounded := make([]core.PitStop, 0, len(stints)+1)
	bounded = append(bounded, stints...)
	bounded = append(bounded, core.PitStop{Lap: raceLength + 1})

	laps := make([]core.ProjectedLap, 0, raceLength)
	for i := 0; i < len(bounded)-1; i++ {
		stint := bounded[i]
		end := bounded[i+1].Lap - 1
		for lap := stint.Lap; lap <= end; lap++ {
			mod, err := e.tires.Modifier(stint.Tire, lap-stint.Lap)
			if err != nil {
				return nil, fmt.Errorf("stint %d: %w", i, err)
			}
			laps = append(laps, core.ProjectedLap{
				Lap:     lap,
				LapTime: baseLapTime + mod,
				Tire:    stint.Tire,
			})
		}
	}

	return laps, nil
}

func validate(baseLapTime float64, stints []core.PitStop, raceLength int) error {
	if baseLapTime <= 0 {
		return fmt.Errorf("%w: base lap time %v", ErrInvalidStrategy, baseLapTime)
	}
	if raceLength <= 0 {
		return fmt.Errorf("%w: race length %d", ErrInvalidStrategy, raceLength)
	}
	if len(stints) == 0 {
		return fmt.Errorf("%w: no stints", ErrInvalidStrategy)
	}
	if stints[0].Lap != 1 {
		return fmt.Errorf("%w: first stint starts on lap %d", ErrInvalidStrategy, stints[0].Lap)
	}
	for i := 1; i < len(stints); i++ {
		if stints[i].Lap < stints[i-1].Lap {
			return fmt.Errorf("%w: stops out of order at index %d", ErrInvalidStrategy, i)
		}
		if stints[i].Lap > raceLength {
			return fmt.Errorf("%w: stop on lap %d beyond race length %d", ErrInvalidStrategy, stints[i].Lap, raceLength)
		}
	}
	return nil
}
