// Package metricname turns a target identifier (its name, or its URL when
// no name was given) into a Prometheus-safe metric name, and composes the
// counter/histogram names derived from it. The transform is pure and
// idempotent: normalizing an already-normalized name is a no-op.
package metricname

import "strings"

// Normalize replaces the scheme separator "://" with "-" and then replaces
// every character that isn't an ASCII letter or digit with "_".
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "://", "-")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// CounterName returns the name of the success counter for a normalized
// target identifier.
func CounterName(normalized string) string {
	return normalized + "_success"
}

// HistogramName returns the name of the latency histogram for a normalized
// target identifier.
func HistogramName(normalized string) string {
	return normalized + "_time_ms"
}
