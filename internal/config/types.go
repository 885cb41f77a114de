// Package config loads and validates the daemon's declarative YAML
// configuration into the Target/Config model the supervisor builds a
// generation from.
package config

import (
	"time"

	"github.com/sonarwatch/sonar/internal/durationstr"
)

// Duration wraps time.Duration with YAML (de)serialization through the
// daemon's compact duration grammar (see internal/durationstr) instead of
// Go's own duration syntax.
type Duration time.Duration

// UnmarshalYAML implements yaml.v2's Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := durationstr.Parse(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.v2's Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return durationstr.String(time.Duration(d)), nil
}

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ReportOn selects which outcome polarities a file reporter appends.
type ReportOn string

// Valid ReportOn values.
const (
	ReportOnSuccess ReportOn = "Success"
	ReportOnFailure ReportOn = "Failure"
	ReportOnBoth    ReportOn = "Both"
)

func (r ReportOn) valid() bool {
	switch r {
	case ReportOnSuccess, ReportOnFailure, ReportOnBoth:
		return true
	default:
		return false
	}
}

// RequestStrategy is the overflow policy applied when a tick arrives while
// a target already has max_concurrent requests in flight.
type RequestStrategy string

// Valid RequestStrategy values. CancelOldest is declared but rejected at
// load time — see Load.
const (
	RequestStrategyWait         RequestStrategy = "Wait"
	RequestStrategyCancelOldest RequestStrategy = "CancelOldest"
)

// LogConfig is a target's optional append-only file sink. An empty
// ReportOn after decoding means "not specified"; Load applies its default.
type LogConfig struct {
	File     string   `yaml:"file"`
	ReportOn ReportOn `yaml:"report_on"`
}

// TelemetryConfig optionally enables span-wrapped tracing for a target's
// probe requests. Additive to the original spec; see SPEC_FULL.md §5.9a.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Target is one HTTP(S) endpoint to probe on an interval. A zero Interval,
// Timeout, or MaxConcurrent, and an empty RequestStrategy, mean "not
// specified" — every such field is invalid at its zero value anyway
// (spec requires durations >= 1ms and max_concurrent >= 1), so Load can
// tell "absent" from "explicit" without a shadow struct.
type Target struct {
	Name            string           `yaml:"name"`
	URL             string           `yaml:"url"`
	Interval        Duration         `yaml:"interval"`
	Timeout         Duration         `yaml:"timeout"`
	MaxConcurrent   int              `yaml:"max_concurrent"`
	Log             *LogConfig       `yaml:"log"`
	Buckets         []float64        `yaml:"response_time_buckets"`
	RequestStrategy RequestStrategy  `yaml:"request_strategy"`
	Telemetry       *TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the health/metrics HTTP listener.
type ServerConfig struct {
	IP              string `yaml:"ip"`
	Port            int    `yaml:"port"`
	HealthEndpoint  string `yaml:"health_endpoint"`
	MetricsEndpoint string `yaml:"metrics_endpoint"`
}

// Address returns the ip:port the server should bind.
func (s ServerConfig) Address() string {
	return joinHostPort(s.IP, s.Port)
}

// DashboardConfig configures the Grafana dashboard JSON emitter.
type DashboardConfig struct {
	OutputPath string `yaml:"output_path"`
}

// TargetDefaults supplies fallback values applied to every target that
// doesn't set its own.
type TargetDefaults struct {
	Buckets []float64 `yaml:"buckets"`
}

// TelemetryDefaults configures the optional OpenTelemetry tracing
// layer for the whole daemon. Additive to the original spec; see
// SPEC_FULL.md §5.9a. A zero SamplingRate means "not specified" and
// defaults to 1.0 (sample everything) — a real sampling rate of 0 is
// indistinguishable from absence, but "trace nothing" is better
// expressed by leaving telemetry unset or disabled entirely.
type TelemetryDefaults struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Config is the fully-resolved, default-applied, validated configuration
// for one daemon generation.
type Config struct {
	Server         *ServerConfig      `yaml:"server"`
	Dashboard      *DashboardConfig   `yaml:"grafana"`
	TargetDefaults *TargetDefaults    `yaml:"target_defaults"`
	Telemetry      *TelemetryDefaults `yaml:"telemetry"`
	Targets        []Target           `yaml:"targets"`
}
