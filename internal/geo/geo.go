package geo

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/pitwall/pitwall/pkg/core"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Coords3857From4326 projects a WGS84 longitude/latitude onto web mercator
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	point, err = geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	})
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), fmt.Errorf("%w: %w", ErrInvalidCoordinates, err)
	}
	return point, nil
}

// TrackAnchor returns the web mercator position of a circuit, used to place
// the track canvas on a map.
func TrackAnchor(track core.Track) (core.Position2D, error) {
	point, err := Coords3857From4326(track.Longitude, track.Latitude)
	if err != nil {
		return core.Position2D{}, err
	}
	coords, ok := point.Coordinates()
	if !ok {
		return core.Position2D{}, ErrInvalidCoordinates
	}
	return core.Position2D{X: coords.X, Y: coords.Y}, nil
}
