// Package durationstr parses the daemon's compact duration grammar:
// an integer immediately followed by a unit suffix (ms, s, m, h, d, w, y).
// It exists because time.ParseDuration has no day/week/year units, and
// the config format accepts one grammar uniformly across every duration
// field.
package durationstr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// unit multipliers in milliseconds, per spec.
var multipliers = map[string]int64{
	"ms": 1,
	"s":  1000,
	"m":  60_000,
	"h":  3_600_000,
	"d":  86_400_000,
	"w":  604_800_000,
	"y":  31_556_926_000,
}

// orderedSuffixes is checked longest-first so "ms" is not shadowed by "m".
var orderedSuffixes = []string{"ms", "s", "m", "h", "d", "w", "y"}

// Parse parses a duration string of the form "<integer><unit>" where unit
// is one of ms, s, m, h, d, w, y, and returns the equivalent time.Duration.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("durationstr: empty duration string")
	}

	for _, suffix := range orderedSuffixes {
		if !strings.HasSuffix(s, suffix) {
			continue
		}
		numPart := strings.TrimSuffix(s, suffix)
		if numPart == "" {
			return 0, fmt.Errorf("durationstr: %q has no numeric value", s)
		}
		n, err := strconv.ParseInt(numPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("durationstr: %q is not a valid duration: %w", s, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("durationstr: %q must not be negative", s)
		}
		ms := n * multipliers[suffix]
		return time.Duration(ms) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("durationstr: %q has no recognized unit suffix (ms|s|m|h|d|w|y)", s)
}

// String renders a time.Duration back into the grammar's canonical
// millisecond form, e.g. 1500*time.Millisecond -> "1500ms". Round-tripping
// through String then Parse always recovers the same time.Duration.
func String(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// MustParse panics if s cannot be parsed. Reserved for default constants
// whose value is a compile-time-known literal.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}
