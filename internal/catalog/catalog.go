// Package catalog holds the immutable driver, track and tire tables.
// A catalog is loaded once at startup and injected into the components that need it.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pitwall/pitwall/pkg/core"
)

//go:embed catalog.json
var embeddedCatalog []byte

var (
	// ErrInvalidCatalog is returned when a catalog document fails validation
	ErrInvalidCatalog = errors.New("invalid catalog")

	defaultOnce sync.Once
	defaultCat  *Catalog
)

type tireEntry struct {
	Compound core.TireCompound `json:"compound"`
	core.TireSpec
}

type document struct {
	Drivers      []core.Driver                `json:"drivers"`
	Tracks       []core.Track                 `json:"tracks"`
	Tires        []tireEntry                  `json:"tires"`
	Styles       map[string]core.DrivingStyle `json:"styles"`
	DefaultStyle core.DrivingStyle            `json:"defaultStyle"`
}

// Catalog is a read-only view over drivers, tracks, tire compounds and driving styles.
type Catalog struct {
	drivers      []core.Driver
	driverIndex  map[string]int
	tracks       []core.Track
	compounds    []core.TireCompound
	tires        map[core.TireCompound]core.TireSpec
	styles       map[string]core.DrivingStyle
	defaultStyle core.DrivingStyle
}

// Default returns the built-in catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedCatalog)
		if err != nil {
			panic(fmt.Sprintf("embedded catalog: %v", err))
		}
		defaultCat = c
	})
	return defaultCat
}

// Load reads a catalog from path, or returns the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	if len(doc.Drivers) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 drivers, got %d", ErrInvalidCatalog, len(doc.Drivers))
	}
	if len(doc.Tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks", ErrInvalidCatalog)
	}
	if len(doc.Tires) == 0 {
		return nil, fmt.Errorf("%w: no tire compounds", ErrInvalidCatalog)
	}

	c := &Catalog{
		drivers:      doc.Drivers,
		driverIndex:  make(map[string]int, len(doc.Drivers)),
		tracks:       doc.Tracks,
		tires:        make(map[core.TireCompound]core.TireSpec, len(doc.Tires)),
		styles:       doc.Styles,
		defaultStyle: doc.DefaultStyle,
	}
	if c.styles == nil {
		c.styles = map[string]core.DrivingStyle{}
	}

	for i, d := range doc.Drivers {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: driver %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.driverIndex[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate driver id %q", ErrInvalidCatalog, d.ID)
		}
		c.driverIndex[d.ID] = i
	}

	seenTracks := make(map[string]struct{}, len(doc.Tracks))
	for _, t := range doc.Tracks {
		if t.Length <= 0 {
			return nil, fmt.Errorf("%w: track %q has non-positive length", ErrInvalidCatalog, t.Name)
		}
		if _, dup := seenTracks[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate track %q", ErrInvalidCatalog, t.Name)
		}
		seenTracks[t.Name] = struct{}{}
	}

	for _, t := range doc.Tires {
		if t.Compound == "" {
			return nil, fmt.Errorf("%w: tire without compound", ErrInvalidCatalog)
		}
		if _, dup := c.tires[t.Compound]; dup {
			return nil, fmt.Errorf("%w: duplicate compound %q", ErrInvalidCatalog, t.Compound)
		}
		c.tires[t.Compound] = t.TireSpec
		c.compounds = append(c.compounds, t.Compound)
	}

	return c, nil
}

// Drivers returns the drivers in catalog order.
func (c *Catalog) Drivers() []core.Driver {
	out := make([]core.Driver, len(c.drivers))
	copy(out, c.drivers)
	return out
}

// Driver looks up a driver by id.
func (c *Catalog) Driver(id string) (core.Driver, bool) {
	i, ok := c.driverIndex[id]
	if !ok {
		return core.Driver{}, false
	}
	return c.drivers[i], true
}

// FirstDriverExcept returns the first driver in catalog order whose id differs from id.
func (c *Catalog) FirstDriverExcept(id string) core.Driver {
	for _, d := range c.drivers {
		if d.ID != id {
			return d
		}
	}
	// unreachable: Parse guarantees two distinct ids
	return c.drivers[0]
}

// DefaultPair is the selection shown before the user picks anyone.
func (c *Catalog) DefaultPair() [2]core.Driver {
	return [2]core.Driver{c.drivers[0], c.drivers[1]}
}

// Tracks returns the tracks in catalog order.
func (c *Catalog) Tracks() []core.Track {
	out := make([]core.Track, len(c.tracks))
	copy(out, c.tracks)
	return out
}

// Track looks up a track by name.
func (c *Catalog) Track(name string) (core.Track, bool) {
	for _, t := range c.tracks {
		if t.Name == name {
			return t, true
		}
	}
	return core.Track{}, false
}

// DefaultTrack returns the first track.
func (c *Catalog) DefaultTrack() core.Track {
	return c.tracks[0]
}

// Compounds returns the compound keys in catalog order.
func (c *Catalog) Compounds() []core.TireCompound {
	out := make([]core.TireCompound, len(c.compounds))
	copy(out, c.compounds)
	return out
}

// Tire looks up a compound.
func (c *Catalog) Tire(compound core.TireCompound) (core.TireSpec, bool) {
	spec, ok := c.tires[compound]
	return spec, ok
}

// Tires returns a copy of the compound table.
func (c *Catalog) Tires() map[core.TireCompound]core.TireSpec {
	out := make(map[core.TireCompound]core.TireSpec, len(c.tires))
	for k, v := range c.tires {
		out[k] = v
	}
	return out
}

// Style returns the driving style for a driver, falling back to the default style.
func (c *Catalog) Style(driverID string) core.DrivingStyle {
	if s, ok := c.styles[driverID]; ok {
		return s
	}
	return c.defaultStyle
}
