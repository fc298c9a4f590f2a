package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/pitwall/internal/catalog"
	"github.com/pitwall/pitwall/pkg/core"
)

func TestParseTrackPath_Square(t *testing.T) {
	p, err := ParseTrackPath("M 0,0 L 100,0 L 100,100 L 0,100 Z")
	require.NoError(t, err)

	assert.InDelta(t, 400, p.Length(), 1e-9)

	tests := []struct {
		fraction float64
		want     core.Position2D
	}{
		{0, core.Position2D{X: 0, Y: 0}},
		{0.125, core.Position2D{X: 50, Y: 0}},
		{0.25, core.Position2D{X: 100, Y: 0}},
		{0.5, core.Position2D{X: 100, Y: 100}},
		{0.875, core.Position2D{X: 0, Y: 50}},
		{1, core.Position2D{X: 0, Y: 0}},
		{-1, core.Position2D{X: 0, Y: 0}},
		{3, core.Position2D{X: 0, Y: 0}},
	}
	for _, tt := range tests {
		got := p.PointAt(tt.fraction)
		assert.InDelta(t, tt.want.X, got.X, 1e-9, "fraction %v", tt.fraction)
		assert.InDelta(t, tt.want.Y, got.Y, 1e-9, "fraction %v", tt.fraction)
	}
}

func TestParseTrackPath_RelativeAndShorthand(t *testing.T) {
	p, err := ParseTrackPath("m10,10 h 90 v 50 l-90,0z")
	require.NoError(t, err)
	assert.InDelta(t, 280, p.Length(), 1e-9)

	mid := p.PointAt(90.0 / 280)
	assert.InDelta(t, 100, mid.X, 1e-9)
	assert.InDelta(t, 10, mid.Y, 1e-9)
}

func TestParseTrackPath_CubicEndpoints(t *testing.T) {
	p, err := ParseTrackPath("M 0,0 C 0,100 100,100 100,0")
	require.NoError(t, err)

	end := p.PointAt(1)
	assert.InDelta(t, 100, end.X, 1e-9)
	assert.InDelta(t, 0, end.Y, 1e-9)
	// a curve is longer than its chord
	assert.Greater(t, p.Length(), 100.0)

	// symmetric curve: halfway along is the apex at x=50
	mid := p.PointAt(0.5)
	assert.InDelta(t, 50, mid.X, 0.5)
	assert.InDelta(t, 75, mid.Y, 0.5)
}

func TestParseTrackPath_Invalid(t *testing.T) {
	for _, d := range []string{
		"",
		"0,0 L 10,10",
		"M 0,0",
		"M 0,0 L 10",
		"M 0,0 Q 10,10 20,20",
		"M 0,0 L a,b",
		"M 10,10 L 10,10",
		"M 5,5 L 5,5 L 5,5 Z",
	} {
		_, err := ParseTrackPath(d)
		assert.ErrorIs(t, err, ErrInvalidPath, "path %q", d)
	}
}

func TestParseTrackPath_CatalogTracks(t *testing.T) {
	for _, track := range catalog.Default().Tracks() {
		t.Run(track.Name, func(t *testing.T) {
			p, err := ParseTrackPath(track.Path)
			require.NoError(t, err)
			assert.Greater(t, p.Length(), 0.0)

			for _, f := range []float64{0, 0.1, 0.33, 0.5, 0.9, 1} {
				pos := p.PointAt(f)
				assert.GreaterOrEqual(t, pos.X, 0.0)
				assert.LessOrEqual(t, pos.X, 900.0)
				assert.GreaterOrEqual(t, pos.Y, 0.0)
				assert.LessOrEqual(t, pos.Y, 600.0)
			}
		})
	}
}
