package telemetry

import (
	"math"
	"math/rand"

	"github.com/pitwall/pitwall/pkg/core"
)

const (
	// Samples is the number of points in a generated lap
	Samples = 201

	minSpeed = 80.0
	maxSpeed = 350.0
)

// StyleSource resolves the driving style of a driver.
type StyleSource interface {
	Style(driverID string) core.DrivingStyle
}

// Generator produces plausible synthetic lap telemetry.
// It is not safe for concurrent use because it owns its random source.
type Generator struct {
	styles StyleSource
	rng    *rand.Rand
}

// NewGenerator creates a generator drawing from rng.
func NewGenerator(styles StyleSource, rng *rand.Rand) *Generator {
	return &Generator{styles: styles, rng: rng}
}

// TrackPositionFactor shapes the speed trace: high on straights, low in corners.
func TrackPositionFactor(distance float64) float64 {
	return math.Sin(distance*math.Pi*4) + math.Sin(distance*math.Pi*1.5)
}

// Generate returns Samples points evenly spaced over the lap.
func (g *Generator) Generate(driverID string) []core.TelemetryPoint {
	style := g.styles.Style(driverID)
	points := make([]core.TelemetryPoint, Samples)

	for i := range points {
		d := float64(i) / float64(Samples-1)
		f := TrackPositionFactor(d)

		fluctuation := (g.rng.Float64() - 0.5) * 15 * (1 + style.Consistency)
		base := (220 + f*60) * style.Aggression
		speed := max(minSpeed, min(maxSpeed, base+fluctuation))

		throttle := 0.8
		if speed > 200 {
			throttle = min(1, 0.9+g.rng.Float64()*0.1*style.Aggression)
		}

		brake := 0.0
		if speed < 120 && f < -0.5 {
			brake = g.rng.Float64() * style.Aggression
		}

		points[i] = core.TelemetryPoint{
			Distance: d,
			Speed:    speed,
			Gear:     int(math.Round(max(2, speed/40))),
			Throttle: throttle,
			Brake:    brake,
		}
	}

	return points
}
