// pkg/core/driver.go
package core

// Driver is a catalog entry describing a racing driver.
type Driver struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Team         string `json:"team"`
	Nationality  string `json:"nationality"`
	Color        string `json:"color"`
	CarImageURL  string `json:"carImageUrl"`
}

// DriverStats holds career statistics for one driver
type DriverStats struct {
	Wins          int `json:"wins"`
	Podiums       int `json:"podiums"`
	Poles         int `json:"poles"`
	Championships int `json:"championships"`
	Races         int `json:"races"`
}

// DrivingStyle shapes the generated telemetry of a driver.
type DrivingStyle struct {
	Aggression  float64 `json:"aggression"`
	Consistency float64 `json:"consistency"`
}

// DriverData bundles everything fetched for a single driver.
type DriverData struct {
	Driver  Driver      `json:"driver"`
	Stats   DriverStats `json:"stats"`
	LapData LapData     `json:"lapData"`
}

// Comparison is the result of one data request for a driver pair
type Comparison struct {
	Driver1 DriverData `json:"driver1"`
	Driver2 DriverData `json:"driver2"`
}

// Slot returns the driver data for slot 0 or 1.
func (c Comparison) Slot(i int) DriverData {
	if i == 0 {
		return c.Driver1
	}
	return c.Driver2
}
