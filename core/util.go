package core

import (
	"math"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by journals and students.
const DateLayout = "2006-01-02"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NowFunc returns the current time. mockable
var NowFunc = func() time.Time { return time.Now().UTC() }

// Round2 rounds f to 2 decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
