// pkg/core/recording.go
package core

import "time"

// Recording is the header of a recorded simulation run.
type Recording struct {
	ID          uint      `json:"id"`
	SessionID   string    `json:"sessionId"`
	StartTime   time.Time `json:"startTime"`
	TrackName   string    `json:"trackName"`
	TrackLength float64   `json:"trackLength"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	DriverIDs   [2]string `json:"driverIds"`
}

// UploadMetadata contains recording metadata sent with an upload.
type UploadMetadata struct {
	TrackName  string
	Title      string
	DurationS  float64
	Tag        string
	FrameCount int
}
