package marketwatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Horizon is a named lookback interval, such as "1d", "1mo" or "1y",
// mapped to an approximate number of calendar days. Months count as 30
// days and years as 365; the mapping is not trading-day-aware.
type Horizon string

var horizonRE = regexp.MustCompile(`^(\d+)(d|mo|y)$`)

// ParseHorizon parses a Horizon from a string like "1d", "5d", "3mo" or "1y".
func ParseHorizon(s string) (Horizon, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	m := horizonRE.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("invalid horizon %q, want forms like 1d, 5d, 1mo, 3mo, 1y", s)
	}
	if n, _ := strconv.Atoi(m[1]); n == 0 {
		return "", fmt.Errorf("invalid horizon %q: zero length", s)
	}
	return Horizon(s), nil
}

// Days returns the horizon length in calendar days.
// It panics on a malformed horizon; use ParseHorizon on external input.
func (h Horizon) Days() int {
	m := horizonRE.FindStringSubmatch(string(h))
	if m == nil {
		panic(fmt.Sprintf("malformed horizon %q", string(h)))
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "d":
		return n
	case "mo":
		return n * 30
	case "y":
		return n * 365
	default:
		panic(fmt.Sprintf("malformed horizon %q", string(h)))
	}
}

func (h Horizon) String() string { return string(h) }
