// Package util provides small string helpers shared by the parser and recorders.
package util

import (
	"strings"
	"unicode"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg trims whitespace and surrounding quotes from a command argument.
func CleanArg(s string) string {
	return FixEscapeQuotes(TrimQuotes(strings.TrimSpace(s)))
}

// FileSafe turns a display name into a file name fragment: letters and digits
// are kept, runs of anything else become a single underscore.
// "Spa-Francorchamps" becomes "Spa_Francorchamps".
func FileSafe(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
