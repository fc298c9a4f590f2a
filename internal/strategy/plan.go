package strategy

import (
	"sort"

	"github.com/pitwall/pitwall/pkg/core"
)

const (
	// DefaultStartTire is fitted for the race start of a new plan
	DefaultStartTire = core.TireMedium
	// addStopGap is how many laps after the last stop a new stop is placed
	addStopGap = 10
)

// CompoundValidator reports whether a compound exists.
type CompoundValidator interface {
	Valid(compound core.TireCompound) bool
}

// Plan is an editable strategy. The first stop is always lap 1, laps are
// strictly increasing and every compound is valid; edits that would break
// this are rejected and report false.
//
// Plan is not safe for concurrent use.
type Plan struct {
	stops      []core.PitStop
	raceLength int
	tires      CompoundValidator
}

// NewPlan creates a plan with a single race-start stop.
func NewPlan(raceLength int, startTire core.TireCompound, tires CompoundValidator) *Plan {
	if !tires.Valid(startTire) {
		startTire = DefaultStartTire
	}
	return &Plan{
		stops:      []core.PitStop{{Lap: 1, Tire: startTire}},
		raceLength: raceLength,
		tires:      tires,
	}
}

// Stops returns a copy of the stops in lap order.
func (p *Plan) Stops() []core.PitStop {
	out := make([]core.PitStop, len(p.stops))
	copy(out, p.stops)
	return out
}

// RaceLength returns the number of laps the plan covers.
func (p *Plan) RaceLength() int {
	return p.raceLength
}

// PitLaps returns the laps of every stop after the race start.
func (p *Plan) PitLaps() []int {
	laps := make([]int, 0, len(p.stops)-1)
	for _, s := range p.stops[1:] {
		laps = append(laps, s.Lap)
	}
	return laps
}

// AddStop appends a medium-tire stop ten laps after the last one, capped at the
// final lap. Nothing happens when that lap already has a stop.
func (p *Plan) AddStop() bool {
	last := p.stops[len(p.stops)-1].Lap
	return p.insert(min(p.raceLength, last+addStopGap), core.TireMedium)
}

// InsertStop adds a stop on lap with the given tire.
func (p *Plan) InsertStop(lap int, tire core.TireCompound) bool {
	if lap < 2 || lap > p.raceLength {
		return false
	}
	return p.insert(lap, tire)
}

// UpdateStop changes the stop at index. The race start keeps lap 1; other
// laps are clamped to [2, raceLength].
func (p *Plan) UpdateStop(index, lap int, tire core.TireCompound) bool {
	if index < 0 || index >= len(p.stops) || !p.tires.Valid(tire) {
		return false
	}
	if index == 0 {
		lap = 1
	} else {
		lap = max(2, min(p.raceLength, lap))
	}
	for i, s := range p.stops {
		if i != index && s.Lap == lap {
			return false
		}
	}
	p.stops[index] = core.PitStop{Lap: lap, Tire: tire}
	p.sort()
	return true
}

// RemoveStop deletes the stop at index. The race start cannot be removed.
func (p *Plan) RemoveStop(index int) bool {
	if index <= 0 || index >= len(p.stops) {
		return false
	}
	p.stops = append(p.stops[:index], p.stops[index+1:]...)
	return true
}

func (p *Plan) insert(lap int, tire core.TireCompound) bool {
	if !p.tires.Valid(tire) {
		return false
	}
	for _, s := range p.stops {
		if s.Lap == lap {
			return false
		}
	}
	p.stops = append(p.stops, core.PitStop{Lap: lap, Tire: tire})
	p.sort()
	return true
}

func (p *Plan) sort() {
	sort.Slice(p.stops, func(i, j int) bool { return p.stops[i].Lap < p.stops[j].Lap })
}
