package parser

import (
	"fmt"
	"strings"

	"github.com/pitwall/pitwall/pkg/core"
)

// ParseSlot parses [slot] for :PIT:ADD:.
func ParseSlot(args []string) (int, error) {
	if err := expect(args, 1); err != nil {
		return 0, err
	}
	return parseSlot(clean(args)[0])
}

// ParseStopInsert parses [slot, lap, tire].
func ParseStopInsert(args []string) (StopInsert, error) {
	var ins StopInsert
	if err := expect(args, 3); err != nil {
		return ins, err
	}
	args = clean(args)

	var err error
	if ins.Slot, err = parseSlot(args[0]); err != nil {
		return ins, err
	}
	if ins.Lap, err = parseInt("lap", args[1]); err != nil {
		return ins, err
	}
	ins.Tire = parseTire(args[2])
	return ins, nil
}

// ParseStopUpdate parses [slot, index, lap, tire].
func ParseStopUpdate(args []string) (StopUpdate, error) {
	var upd StopUpdate
	if err := expect(args, 4); err != nil {
		return upd, err
	}
	args = clean(args)

	var err error
	if upd.Slot, err = parseSlot(args[0]); err != nil {
		return upd, err
	}
	if upd.Index, err = parseInt("index", args[1]); err != nil {
		return upd, err
	}
	if upd.Lap, err = parseInt("lap", args[2]); err != nil {
		return upd, err
	}
	upd.Tire = parseTire(args[3])
	return upd, nil
}

// ParseStopRef parses [slot, index].
func ParseStopRef(args []string) (StopRef, error) {
	var ref StopRef
	if err := expect(args, 2); err != nil {
		return ref, err
	}
	args = clean(args)

	var err error
	if ref.Slot, err = parseSlot(args[0]); err != nil {
		return ref, err
	}
	if ref.Index, err = parseInt("index", args[1]); err != nil {
		return ref, err
	}
	return ref, nil
}

// ParseStopList parses a strategy written as "lap:tire" pairs separated by
// commas, e.g. "1:soft,18:medium,36:hard". Order is not checked here.
func ParseStopList(s string) ([]core.PitStop, error) {
	var stops []core.PitStop
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lapStr, tireStr, ok := strings.Cut(item, ":")
		if !ok || tireStr == "" {
			return nil, fmt.Errorf("%w: stop %q, want lap:tire", ErrInvalidArg, item)
		}
		lap, err := parseInt("lap", lapStr)
		if err != nil {
			return nil, err
		}
		stops = append(stops, core.PitStop{Lap: lap, Tire: parseTire(tireStr)})
	}
	if len(stops) == 0 {
		return nil, fmt.Errorf("%w: empty strategy", ErrInvalidArg)
	}
	return stops, nil
}
