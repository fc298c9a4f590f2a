// pkg/core/track.go
package core

// Track is a circuit drawn on a 900x600 canvas.
type Track struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`   // SVG path data
	Length    float64 `json:"length"` // metres
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Position2D is a point on the track canvas
type Position2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
