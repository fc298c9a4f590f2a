package sim

import (
	"fmt"
	"math"
	"strings"
)

// DisplayLapTime scales elapsed simulated seconds to the driver's real lap time.
// A non-positive reference falls back to ReferenceLapTime.
func DisplayLapTime(elapsed, baseLapTime, reference float64) float64 {
	if reference <= 0 {
		reference = ReferenceLapTime
	}
	return elapsed * (baseLapTime / reference)
}

// FormatTime renders seconds as m:ss.sss.
func FormatTime(seconds float64) string {
	mins := math.Floor(seconds / 60)
	secs := fmt.Sprintf("%.3f", math.Mod(seconds, 60))
	if pad := 6 - len(secs); pad > 0 {
		secs = strings.Repeat("0", pad) + secs
	}
	return fmt.Sprintf("%d:%s", int(mins), secs)
}

// FormatDelta renders a signed gap with three decimals, "0.000" when level.
func FormatDelta(delta float64) string {
	if delta == 0 {
		return "0.000"
	}
	return fmt.Sprintf("%+.3f", delta)
}
