package views

import (
	"fmt"

	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/internal/strategy"
	"github.com/pitwall/pitwall/pkg/core"
)

// LapPoint is one lap of the strategy chart.
type LapPoint struct {
	Lap         int               `json:"lap"`
	Driver1Time float64           `json:"driver1Time"`
	Driver1Tire core.TireCompound `json:"driver1Tire"`
	Driver2Time float64           `json:"driver2Time"`
	Driver2Tire core.TireCompound `json:"driver2Tire"`
}

// LapChart is the projected race of both drivers.
type LapChart struct {
	Laps    []LapPoint `json:"laps"`
	PitLaps [2][]int   `json:"pitLaps"`
}

// LapSeries projects both strategies over the race.
func LapSeries(st session.State, evaluator *strategy.Evaluator) Result[LapChart] {
	if r, wait := pending[LapChart](st); wait {
		return r
	}

	var projected [2][]core.ProjectedLap
	for i := range projected {
		base := st.Data.Slot(i).LapData.LapTime
		laps, err := evaluator.Project(base, st.Stops[i], st.RaceLength)
		if err != nil {
			return Failed[LapChart](fmt.Errorf("driver %d strategy: %w", i+1, err))
		}
		projected[i] = laps
	}

	chart := LapChart{Laps: make([]LapPoint, st.RaceLength)}
	for i := range chart.Laps {
		a, b := projected[0][i], projected[1][i]
		chart.Laps[i] = LapPoint{
			Lap:         a.Lap,
			Driver1Time: a.LapTime,
			Driver1Tire: a.Tire,
			Driver2Time: b.LapTime,
			Driver2Tire: b.Tire,
		}
	}
	for i, stops := range st.Stops {
		chart.PitLaps[i] = []int{}
		for _, s := range stops[1:] {
			chart.PitLaps[i] = append(chart.PitLaps[i], s.Lap)
		}
	}
	return Ready(chart)
}
