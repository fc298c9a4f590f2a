// pkg/core/tire.go
package core

// TireCompound identifies a tire compound
type TireCompound string

const (
	TireSoft   TireCompound = "soft"
	TireMedium TireCompound = "medium"
	TireHard   TireCompound = "hard"
)

// TireSpec describes the lap-time behaviour of a compound.
type TireSpec struct {
	Name              string  `json:"name"`
	Color             string  `json:"color"`
	BaseModifier      float64 `json:"baseModifier"`
	DegradationPerLap float64 `json:"degradation"`
}
