package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ServerInfo{},
	&Recording{},
	&RecordedDriver{},
	&FrameRecord{},
	&ServicePerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ServerInfo describes the instance that produced the recordings
type ServerInfo struct {
	gorm.Model
	InstanceName string `json:"instanceName" gorm:"size:127"`
	Description  string `json:"description" gorm:"size:255"`
	Website      string `json:"website" gorm:"size:255"`
}

func (*ServerInfo) TableName() string {
	return "server_infos"
}

// ServicePerformance is a periodic sample of the recorder's internal buffers
type ServicePerformance struct {
	Time                time.Time `json:"time" gorm:"index:idx_perf_time"`
	RecordingID         uint      `json:"recordingId" gorm:"index:idx_perf_recording_id"`
	FrameQueueLength    int       `json:"frameQueueLength"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*ServicePerformance) TableName() string {
	return "service_performances"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Recording is one simulated run of a driver pair on a track
type Recording struct {
	gorm.Model
	SessionID   string     `json:"sessionId" gorm:"size:64;index:idx_recording_session"`
	StartTime   time.Time  `json:"startTime" gorm:"index:idx_recording_start"`
	EndTime     *time.Time `json:"endTime"`
	TrackName   string     `json:"trackName" gorm:"size:127"`
	TrackLength float64    `json:"trackLength"`
	// Location is the circuit's WGS84 longitude/latitude
	Location   geom.Point `json:"location"`
	Tag        string     `json:"tag" gorm:"size:127"`
	FrameCount int        `json:"frameCount"`

	Drivers []RecordedDriver
	Frames  []FrameRecord
}

func (*Recording) TableName() string {
	return "recordings"
}

// RecordedDriver is the reference lap and career stats of one slot of a recording
type RecordedDriver struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement"`
	RecordingID  uint      `json:"recordingId" gorm:"index:idx_driver_recording_id"`
	Recording    Recording `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RecordingID;"`
	Slot         uint8     `json:"slot"`
	DriverID     string    `json:"driverId" gorm:"size:64"`
	Name         string    `json:"name" gorm:"size:127"`
	Abbreviation string    `json:"abbreviation" gorm:"size:8"`
	Team         string    `json:"team" gorm:"size:127"`
	Color        string    `json:"color" gorm:"size:16"`

	LapTime float64     `json:"lapTime"`
	Sector1 float64     `json:"sector1"`
	Sector2 float64     `json:"sector2"`
	Sector3 float64     `json:"sector3"`
	Stats   DriverStats `json:"stats" gorm:"embedded;embeddedPrefix:stats_"`

	Telemetry datatypes.JSON `json:"telemetry"`
}

func (*RecordedDriver) TableName() string {
	return "recorded_drivers"
}

// DriverStats are career statistics at the time of recording
type DriverStats struct {
	Wins          int `json:"wins"`
	Podiums       int `json:"podiums"`
	Poles         int `json:"poles"`
	Championships int `json:"championships"`
	Races         int `json:"races"`
}

// FrameRecord is one applied animation step.
// Uses composite primary key (RecordingID, Seq).
type FrameRecord struct {
	RecordingID uint      `json:"recordingId" gorm:"primaryKey;autoIncrement:false"`
	Seq         uint64    `json:"seq" gorm:"primaryKey;autoIncrement:false"`
	Time        time.Time `json:"time"`
	Phase       string    `json:"phase" gorm:"size:16"`
	Leader      uint8     `json:"leader"`
	Distance1   float64   `json:"distance1"`
	Elapsed1    float64   `json:"elapsed1"`
	Distance2   float64   `json:"distance2"`
	Elapsed2    float64   `json:"elapsed2"`
	// Samples holds the two telemetry points as a JSON array
	Samples datatypes.JSON `json:"samples"`
}

func (*FrameRecord) TableName() string {
	return "frame_records"
}
