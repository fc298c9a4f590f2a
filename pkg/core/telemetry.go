// pkg/core/telemetry.go
package core

// TelemetryPoint is a sample at a fraction of the lap
type TelemetryPoint struct {
	Distance float64 `json:"distance"`
	Speed    float64 `json:"speed"` // km/h
	Gear     int     `json:"gear"`
	Throttle float64 `json:"throttle"`
	Brake    float64 `json:"brake"`
}

// LapData holds the reference lap of a driver.
// Telemetry is read-only once produced.
type LapData struct {
	DriverID  string           `json:"driverId"`
	Race      string           `json:"race"`
	Year      int              `json:"year"`
	LapNumber int              `json:"lapNumber"`
	LapTime   float64          `json:"lapTime"`
	Sector1   float64          `json:"sector1"`
	Sector2   float64          `json:"sector2"`
	Sector3   float64          `json:"sector3"`
	Telemetry []TelemetryPoint `json:"telemetry"`
}
