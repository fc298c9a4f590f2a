// Package tire models how a compound's lap-time penalty grows with tire age.
package tire

import (
	"errors"
	"fmt"

	"github.com/pitwall/pitwall/pkg/core"
)

var (
	// ErrInvalidCompound is returned for a compound outside the compound table
	ErrInvalidCompound = errors.New("invalid tire compound")
	// ErrInvalidTireAge is returned for a negative tire age
	ErrInvalidTireAge = errors.New("invalid tire age")
)

// builtin mirrors the catalog's default compound table
var builtin = map[core.TireCompound]core.TireSpec{
	core.TireSoft:   {Name: "Soft", Color: "#FF3333", BaseModifier: 0, DegradationPerLap: 0.003},
	core.TireMedium: {Name: "Medium", Color: "#FFF200", BaseModifier: 0.5, DegradationPerLap: 0.0015},
	core.TireHard:   {Name: "Hard", Color: "#E0E0E0", BaseModifier: 1.2, DegradationPerLap: 0.0008},
}

// Model computes lap-time modifiers from a compound table.
type Model struct {
	specs map[core.TireCompound]core.TireSpec
}

// New creates a model over the given compound table.
func New(specs map[core.TireCompound]core.TireSpec) *Model {
	m := &Model{specs: make(map[core.TireCompound]core.TireSpec, len(specs))}
	for k, v := range specs {
		m.specs[k] = v
	}
	return m
}

// Default returns a model over the built-in soft/medium/hard table.
func Default() *Model {
	return New(builtin)
}

// Modifier returns the seconds added to the base lap time on a tire of the given age.
// Age is the number of laps completed on the set, 0 on the lap it is fitted.
func (m *Model) Modifier(compound core.TireCompound, tireAge int) (float64, error) {
	spec, ok := m.specs[compound]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCompound, compound)
	}
	if tireAge < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTireAge, tireAge)
	}
	return spec.BaseModifier + float64(tireAge)*spec.DegradationPerLap, nil
}

// Valid reports whether compound is in the table.
func (m *Model) Valid(compound core.TireCompound) bool {
	_, ok := m.specs[compound]
	return ok
}

// Spec returns the table entry for compound.
func (m *Model) Spec(compound core.TireCompound) (core.TireSpec, bool) {
	spec, ok := m.specs[compound]
	return spec, ok
}
