package v1

import (
	"math"
	"time"

	"github.com/pitwall/pitwall/pkg/core"
)

// RunData contains all the data needed to build an export
type RunData struct {
	Recording *core.Recording
	Data      core.Comparison
	Frames    []core.Frame
	Tag       string
}

// Build creates an Export from the run data
func Build(data *RunData) Export {
	rec := data.Recording
	export := Export{
		FormatVersion: FormatVersion,
		SessionID:     rec.SessionID,
		TrackName:     rec.TrackName,
		TrackLength:   rec.TrackLength,
		StartTime:     rec.StartTime.UTC().Format(time.RFC3339),
		EndFrame:      len(data.Frames),
		Tags:          data.Tag,
		Drivers:       make([]Driver, 2),
		Times:         make([]Time, 0, len(data.Frames)),
	}

	for slot := range export.Drivers {
		dd := data.Data.Slot(slot)
		export.Drivers[slot] = Driver{
			Slot:         slot + 1,
			ID:           dd.Driver.ID,
			Name:         dd.Driver.Name,
			Abbreviation: dd.Driver.Abbreviation,
			Team:         dd.Driver.Team,
			Color:        dd.Driver.Color,
			LapTime:      dd.LapData.LapTime,
			Positions:    make([][]any, 0, len(data.Frames)),
		}
		if export.Drivers[slot].ID == "" {
			export.Drivers[slot].ID = rec.DriverIDs[slot]
		}
	}

	// Frame numbers are positional so gaps in Seq (dropped frames) do not leave holes.
	for i, f := range data.Frames {
		elapsed := math.Max(f.State[0].ElapsedLapTime, f.State[1].ElapsedLapTime)
		export.Times = append(export.Times, Time{
			FrameNum:      i,
			SystemTimeUTC: f.Time.UTC().Format(time.RFC3339Nano),
			Elapsed:       round3(elapsed),
		})
		for slot := range export.Drivers {
			st := f.State[slot]
			s := f.Samples[slot]
			export.Drivers[slot].Positions = append(export.Drivers[slot].Positions, []any{
				i,
				round3(st.Distance),
				round3(st.ElapsedLapTime),
				round3(s.Speed),
				s.Gear,
				round3(s.Throttle),
				round3(s.Brake),
			})
		}
		export.DurationS = round3(elapsed)
	}

	return export
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
