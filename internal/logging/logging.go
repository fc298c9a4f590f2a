// Package logging wires slog, zerolog, OTel and GELF sinks for the service.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath names the log file of one service run, e.g. pitwall.20260212_213836.log.
func LogFilePath(logsDir, serviceName string, start time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", serviceName, start.Format("20060102_150405")),
	)
}
