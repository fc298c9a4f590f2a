// Package v1 contains the v1 replay format written by the memory backend.
package v1

// FormatVersion is written into every export.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	FormatVersion int      `json:"formatVersion"`
	SessionID     string   `json:"sessionId"`
	TrackName     string   `json:"trackName"`
	TrackLength   float64  `json:"trackLength"`
	StartTime     string   `json:"startTime"`
	EndFrame      int      `json:"endFrame"`
	DurationS     float64  `json:"durationS"`
	Tags          string   `json:"tags"`
	Drivers       []Driver `json:"drivers"`
	Times         []Time   `json:"times"`
}

// Time maps a frame number to wall and simulated clocks
type Time struct {
	FrameNum      int     `json:"frameNum"`
	SystemTimeUTC string  `json:"systemTimeUTC"`
	Elapsed       float64 `json:"elapsed"`
}

// Driver is one car of the run. Positions holds one row per frame:
// [frameNum, distance, elapsedLapTime, speed, gear, throttle, brake]
type Driver struct {
	Slot         int     `json:"slot"`
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Abbreviation string  `json:"abbreviation"`
	Team         string  `json:"team"`
	Color        string  `json:"color"`
	LapTime      float64 `json:"lapTime"`
	Positions    [][]any `json:"positions"`
}
