// Package parser turns the text arguments of session commands into typed values.
// Driver slots are 1-based on the wire and 0-based once parsed.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pitwall/pitwall/internal/util"
	"github.com/pitwall/pitwall/pkg/core"
)

var (
	// ErrArgCount is returned when a command has the wrong number of arguments
	ErrArgCount = errors.New("wrong number of arguments")
	// ErrInvalidArg is returned when an argument cannot be parsed
	ErrInvalidArg = errors.New("invalid argument")
)

// parseIntFromFloat parses a string that may be an integer ("32") or a whole
// float ("32.00"); JSON clients often send numbers either way.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a whole number", s)
	}
	return int64(f), nil
}

func clean(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = util.CleanArg(a)
	}
	return out
}

func expect(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: want %d, got %d", ErrArgCount, n, len(args))
	}
	return nil
}

func parseInt(name, s string) (int, error) {
	v, err := parseIntFromFloat(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidArg, name, s)
	}
	return int(v), nil
}

// parseSlot converts a 1-based driver slot into an index.
func parseSlot(s string) (int, error) {
	v, err := parseInt("slot", s)
	if err != nil {
		return 0, err
	}
	if v != 1 && v != 2 {
		return 0, fmt.Errorf("%w: slot %d, want 1 or 2", ErrInvalidArg, v)
	}
	return v - 1, nil
}

func parseTire(s string) core.TireCompound {
	return core.TireCompound(strings.ToLower(s))
}
