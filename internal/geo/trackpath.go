package geo

import (
	"fmt"
	"math"
	"sort"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/pitwall/pitwall/pkg/core"
)

// TrackPath is a flattened track outline that can be walked by arc length.
type TrackPath struct {
	line       geom.LineString
	cumulative []float64
}

// ParseTrackPath flattens SVG path data into a LineString.
func ParseTrackPath(d string) (*TrackPath, error) {
	points, err := flattenPath(d)
	if err != nil {
		return nil, err
	}

	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.x, p.y)
	}
	seq := geom.NewSequence(flat, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	cumulative := make([]float64, seq.Length())
	for i := 1; i < seq.Length(); i++ {
		a, b := seq.GetXY(i-1), seq.GetXY(i)
		cumulative[i] = cumulative[i-1] + math.Hypot(b.X-a.X, b.Y-a.Y)
	}

	return &TrackPath{line: ls, cumulative: cumulative}, nil
}

// LineString returns the underlying geometry.
func (p *TrackPath) LineString() geom.LineString {
	return p.line
}

// Length returns the outline length in canvas units.
func (p *TrackPath) Length() float64 {
	return p.line.Length()
}

// PointAt returns the point at fraction of the outline length. Fractions
// outside [0, 1] are clamped.
func (p *TrackPath) PointAt(fraction float64) core.Position2D {
	seq := p.line.Coordinates()
	total := p.cumulative[len(p.cumulative)-1]
	target := max(0, min(1, fraction)) * total

	// first vertex at or past target
	i := sort.SearchFloat64s(p.cumulative, target)
	if i == 0 {
		first := seq.GetXY(0)
		return core.Position2D{X: first.X, Y: first.Y}
	}
	if i >= len(p.cumulative) {
		last := seq.GetXY(seq.Length() - 1)
		return core.Position2D{X: last.X, Y: last.Y}
	}

	a, b := seq.GetXY(i-1), seq.GetXY(i)
	segment := p.cumulative[i] - p.cumulative[i-1]
	if segment == 0 {
		return core.Position2D{X: b.X, Y: b.Y}
	}
	t := (target - p.cumulative[i-1]) / segment
	return core.Position2D{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}
