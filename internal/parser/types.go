package parser

import "github.com/pitwall/pitwall/pkg/core"

// DriverSelection is a :SELECT:DRIVER: command
type DriverSelection struct {
	Slot     int
	DriverID string
}

// StopRef addresses one stop of one plan (:PIT:REMOVE:)
type StopRef struct {
	Slot  int
	Index int
}

// StopInsert is a :PIT:INSERT: command
type StopInsert struct {
	Slot int
	Lap  int
	Tire core.TireCompound
}

// StopUpdate is a :PIT:UPDATE: command
type StopUpdate struct {
	Slot  int
	Index int
	Lap   int
	Tire  core.TireCompound
}
