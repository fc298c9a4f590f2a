package parser

import (
	"fmt"
	"strings"
)

// ParseDriverSelection parses [slot, driverID].
func ParseDriverSelection(args []string) (DriverSelection, error) {
	var sel DriverSelection
	if err := expect(args, 2); err != nil {
		return sel, err
	}
	args = clean(args)

	slot, err := parseSlot(args[0])
	if err != nil {
		return sel, err
	}
	sel.Slot = slot

	sel.DriverID = strings.ToLower(args[1])
	if sel.DriverID == "" {
		return sel, fmt.Errorf("%w: empty driver id", ErrInvalidArg)
	}
	return sel, nil
}

// ParseTrack parses [trackName]. Names are matched exactly.
func ParseTrack(args []string) (string, error) {
	if err := expect(args, 1); err != nil {
		return "", err
	}
	name := clean(args)[0]
	if name == "" {
		return "", fmt.Errorf("%w: empty track name", ErrInvalidArg)
	}
	return name, nil
}
