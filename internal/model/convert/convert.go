// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/pitwall/pitwall/internal/model"
	"github.com/pitwall/pitwall/pkg/core"
)

// lonLatToPoint builds a WGS84 point. (0, 0) and coordinates the geometry
// validation rejects are stored as an empty point.
func lonLatToPoint(lon, lat float64) geom.Point {
	if lon == 0 && lat == 0 {
		return geom.NewEmptyPoint(geom.DimXY)
	}
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: lon, Y: lat}, Type: geom.DimXY})
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY)
	}
	return pt
}

// toJSON marshals v, falling back to an empty array.
func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

// CoreToRecording converts a core.Recording to a GORM model.Recording.
func CoreToRecording(r core.Recording) model.Recording {
	rec := model.Recording{
		SessionID:   r.SessionID,
		StartTime:   r.StartTime,
		TrackName:   r.TrackName,
		TrackLength: r.TrackLength,
		Location:    lonLatToPoint(r.Longitude, r.Latitude),
	}
	rec.ID = r.ID
	return rec
}

// RecordingToCore converts a GORM Recording and its drivers back to a core.Recording.
func RecordingToCore(r model.Recording) core.Recording {
	out := core.Recording{
		ID:          r.ID,
		SessionID:   r.SessionID,
		StartTime:   r.StartTime,
		TrackName:   r.TrackName,
		TrackLength: r.TrackLength,
	}
	if c, ok := r.Location.Coordinates(); ok {
		out.Longitude, out.Latitude = c.XY.X, c.XY.Y
	}
	for _, d := range r.Drivers {
		if d.Slot < 2 {
			out.DriverIDs[d.Slot] = d.DriverID
		}
	}
	return out
}

// CoreToDriver converts the data of one comparison slot to a GORM RecordedDriver.
func CoreToDriver(recordingID uint, slot int, d core.DriverData) model.RecordedDriver {
	return model.RecordedDriver{
		RecordingID:  recordingID,
		Slot:         uint8(slot),
		DriverID:     d.Driver.ID,
		Name:         d.Driver.Name,
		Abbreviation: d.Driver.Abbreviation,
		Team:         d.Driver.Team,
		Color:        d.Driver.Color,
		LapTime:      d.LapData.LapTime,
		Sector1:      d.LapData.Sector1,
		Sector2:      d.LapData.Sector2,
		Sector3:      d.LapData.Sector3,
		Stats:        model.DriverStats(d.Stats),
		Telemetry:    toJSON(d.LapData.Telemetry),
	}
}

// DriverToCore converts a GORM RecordedDriver back to core.DriverData.
func DriverToCore(d model.RecordedDriver) (core.DriverData, error) {
	out := core.DriverData{
		Driver: core.Driver{
			ID:           d.DriverID,
			Name:         d.Name,
			Abbreviation: d.Abbreviation,
			Team:         d.Team,
			Color:        d.Color,
		},
		Stats: core.DriverStats(d.Stats),
		LapData: core.LapData{
			DriverID: d.DriverID,
			LapTime:  d.LapTime,
			Sector1:  d.Sector1,
			Sector2:  d.Sector2,
			Sector3:  d.Sector3,
		},
	}
	if len(d.Telemetry) > 0 {
		if err := json.Unmarshal(d.Telemetry, &out.LapData.Telemetry); err != nil {
			return out, fmt.Errorf("failed to decode telemetry of %s: %w", d.DriverID, err)
		}
	}
	return out, nil
}

// CoreToFrame converts a core.Frame to a GORM FrameRecord.
func CoreToFrame(recordingID uint, f core.Frame) model.FrameRecord {
	return model.FrameRecord{
		RecordingID: recordingID,
		Seq:         f.Seq,
		Time:        f.Time,
		Phase:       f.Phase,
		Leader:      uint8(f.State.Leader()),
		Distance1:   f.State[0].Distance,
		Elapsed1:    f.State[0].ElapsedLapTime,
		Distance2:   f.State[1].Distance,
		Elapsed2:    f.State[1].ElapsedLapTime,
		Samples:     toJSON(f.Samples),
	}
}

// FrameToCore converts a GORM FrameRecord back to a core.Frame.
// The session id is not stored per frame and must be filled by the caller.
func FrameToCore(f model.FrameRecord) (core.Frame, error) {
	out := core.Frame{
		Seq:   f.Seq,
		Time:  f.Time,
		Phase: f.Phase,
		State: core.RaceState{
			{Distance: f.Distance1, ElapsedLapTime: f.Elapsed1},
			{Distance: f.Distance2, ElapsedLapTime: f.Elapsed2},
		},
	}
	if len(f.Samples) > 0 {
		if err := json.Unmarshal(f.Samples, &out.Samples); err != nil {
			return out, fmt.Errorf("failed to decode samples of frame %d: %w", f.Seq, err)
		}
	}
	return out, nil
}
