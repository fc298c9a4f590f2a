package views

import (
	"github.com/pitwall/pitwall/internal/cache"
	"github.com/pitwall/pitwall/internal/geo"
	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/internal/sim"
	"github.com/pitwall/pitwall/internal/telemetry"
	"github.com/pitwall/pitwall/pkg/core"
)

// CarMarker places one car on the track outline.
type CarMarker struct {
	Abbreviation string  `json:"abbreviation"`
	Color        string  `json:"color"`
	Distance     float64 `json:"distance"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

// Overlay is the track map with both cars.
type Overlay struct {
	Track      string          `json:"track"`
	PathLength float64         `json:"pathLength"`
	Anchor     core.Position2D `json:"anchor"`
	Cars       [2]CarMarker    `json:"cars"`
}

// LiveTelemetry is the trace of the leading car up to its current distance.
type LiveTelemetry struct {
	DriverID     string                `json:"driverId"`
	Abbreviation string                `json:"abbreviation"`
	Color        string                `json:"color"`
	Points       []core.TelemetryPoint `json:"points"`
}

// TimingPanel is the lap clock of one driver.
type TimingPanel struct {
	Name    string `json:"name"`
	Color   string `json:"color"`
	LapTime string `json:"lapTime"`
	Delta   string `json:"delta"`
	// Ahead is set when this driver has spent less time on the lap.
	Ahead bool `json:"ahead"`
}

const leaderLabel = "Leader"

// PositionOverlay places both cars at their distance along the track path.
func PositionOverlay(st session.State, tracks *cache.TrackCache) Result[Overlay] {
	if r, wait := pending[Overlay](st); wait {
		return r
	}

	path, err := tracks.Get(st.Track)
	if err != nil {
		return Failed[Overlay](err)
	}
	anchor, err := geo.TrackAnchor(st.Track)
	if err != nil {
		return Failed[Overlay](err)
	}

	ov := Overlay{
		Track:      st.Track.Name,
		PathLength: path.Length(),
		Anchor:     anchor,
	}
	for i := range ov.Cars {
		d := st.Data.Slot(i).Driver
		dist := st.Sim.State[i].Distance
		pos := path.PointAt(dist)
		ov.Cars[i] = CarMarker{
			Abbreviation: d.Abbreviation,
			Color:        d.Color,
			Distance:     dist,
			X:            pos.X,
			Y:            pos.Y,
		}
	}
	return Ready(ov)
}

// LeaderTelemetry returns the samples the leading car has passed.
func LeaderTelemetry(st session.State) Result[LiveTelemetry] {
	if r, wait := pending[LiveTelemetry](st); wait {
		return r
	}
	leader := st.Sim.State.Leader()
	dd := st.Data.Slot(leader)
	return Ready(LiveTelemetry{
		DriverID:     dd.Driver.ID,
		Abbreviation: dd.Driver.Abbreviation,
		Color:        dd.Driver.Color,
		Points:       telemetry.Upto(dd.LapData.Telemetry, st.Sim.State.Progress()),
	})
}

// Timing builds both lap clocks. The car further along shows "Leader"; the
// other shows its rival's clock minus its own.
func Timing(st session.State, referenceLapTime float64) Result[[2]TimingPanel] {
	if r, wait := pending[[2]TimingPanel](st); wait {
		return r
	}

	s := st.Sim.State
	gap := s[0].ElapsedLapTime - s[1].ElapsedLapTime

	var panels [2]TimingPanel
	for i := range panels {
		dd := st.Data.Slot(i)
		other := 1 - i
		delta := -gap
		if i == 1 {
			delta = gap
		}

		panels[i] = TimingPanel{
			Name:    dd.Driver.Name,
			Color:   dd.Driver.Color,
			LapTime: sim.FormatTime(sim.DisplayLapTime(s[i].ElapsedLapTime, dd.LapData.LapTime, referenceLapTime)),
			Delta:   sim.FormatDelta(delta),
			Ahead:   delta > 0,
		}
		if s[i].Distance > s[other].Distance {
			panels[i].Delta = leaderLabel
		}
	}
	return Ready(panels)
}
