package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sonarwatch/sonar/internal/durationstr"
	"github.com/sonarwatch/sonar/internal/metricname"
	yaml "gopkg.in/yaml.v2"
)

// InvalidError is returned by Load when the configuration document is
// malformed or violates a validation rule. The reason is human-readable
// and intended for direct logging.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("config invalid: %s", e.Reason)
}

func invalid(format string, args ...interface{}) error {
	return &InvalidError{Reason: fmt.Sprintf(format, args...)}
}

// Default values applied during Load, per spec.
const (
	DefaultInterval        = "1m"
	DefaultTimeout         = "5s"
	DefaultMaxConcurrent   = 1
	DefaultHealthEndpoint  = "/health"
	DefaultMetricsEndpoint = "/metrics"
)

// DefaultBuckets is used when neither a target nor target_defaults
// specifies response_time_buckets.
var DefaultBuckets = []float64{50, 100, 150, 200, 250, 300, 350, 400, 500}

// Load reads and parses the configuration file at path, applies defaults,
// and validates the result. It performs no I/O beyond reading the file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse parses a configuration document already read into memory. Split
// out from Load so callers that already have bytes (e.g. tests, or a
// future remote config source) don't need a filesystem round trip.
func Parse(raw []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.SetStrict(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, invalid("malformed YAML: %v", err)
	}

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) error {
	if cfg.Server != nil {
		if cfg.Server.HealthEndpoint == "" {
			cfg.Server.HealthEndpoint = DefaultHealthEndpoint
		}
		if cfg.Server.MetricsEndpoint == "" {
			cfg.Server.MetricsEndpoint = DefaultMetricsEndpoint
		}
	}

	defaultBuckets := DefaultBuckets
	if cfg.TargetDefaults != nil && len(cfg.TargetDefaults.Buckets) > 0 {
		defaultBuckets = cfg.TargetDefaults.Buckets
	}

	if cfg.Telemetry != nil && cfg.Telemetry.SamplingRate == 0 {
		cfg.Telemetry.SamplingRate = 1.0
	}

	for i := range cfg.Targets {
		t := &cfg.Targets[i]

		if t.Interval.Duration() == 0 {
			t.Interval = Duration(durationstr.MustParse(DefaultInterval))
		}
		if t.Timeout.Duration() == 0 {
			t.Timeout = Duration(durationstr.MustParse(DefaultTimeout))
		}
		if t.MaxConcurrent == 0 {
			t.MaxConcurrent = DefaultMaxConcurrent
		}
		if t.RequestStrategy == "" {
			t.RequestStrategy = RequestStrategyWait
		}
		if t.Name == "" {
			if t.URL == "" {
				return invalid("target %d has neither name nor url", i)
			}
			t.Name = metricname.Normalize(t.URL)
		}
		if len(t.Buckets) == 0 {
			t.Buckets = append([]float64(nil), defaultBuckets...)
		}
		if t.Log != nil && t.Log.ReportOn == "" {
			t.Log.ReportOn = ReportOnFailure
		}
	}

	return nil
}

func validate(cfg *Config) error {
	if len(cfg.Targets) == 0 {
		return invalid("targets must be a non-empty list")
	}

	if cfg.Telemetry != nil && cfg.Telemetry.Enabled {
		if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
			return invalid("telemetry.endpoint must be set when telemetry.enabled is true")
		}
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			return invalid("telemetry.sampling_rate must be between 0 and 1")
		}
	}

	seen := make(map[string]struct{}, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if strings.TrimSpace(t.URL) == "" {
			return invalid("target %q: url must not be empty", t.Name)
		}
		if !strings.HasPrefix(t.URL, "http://") && !strings.HasPrefix(t.URL, "https://") {
			return invalid("target %q: url must be an absolute http(s) URL", t.Name)
		}
		if t.Interval.Duration() < time.Millisecond {
			return invalid("target %q: interval must be >= 1ms", t.Name)
		}
		if t.Timeout.Duration() < time.Millisecond {
			return invalid("target %q: timeout must be >= 1ms", t.Name)
		}
		if t.MaxConcurrent < 1 {
			return invalid("target %q: max_concurrent must be >= 1", t.Name)
		}
		if t.RequestStrategy == RequestStrategyCancelOldest {
			return invalid("target %q: request_strategy CancelOldest is declared but not implemented", t.Name)
		}
		if t.RequestStrategy != RequestStrategyWait {
			return invalid("target %q: unknown request_strategy %q", t.Name, t.RequestStrategy)
		}
		if t.Log != nil {
			if !t.Log.ReportOn.valid() {
				return invalid("target %q: log.report_on must be one of Success, Failure, Both", t.Name)
			}
			if strings.TrimSpace(t.Log.File) == "" {
				return invalid("target %q: log.file must not be empty when log is set", t.Name)
			}
		}
		if err := validateBuckets(t.Name, t.Buckets); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return invalid("duplicate target name %q", t.Name)
		}
		seen[t.Name] = struct{}{}
	}

	return nil
}

func validateBuckets(name string, buckets []float64) error {
	prev := 0.0
	for i, b := range buckets {
		if b <= 0 {
			return invalid("target %q: response_time_buckets must be positive", name)
		}
		if i > 0 && b <= prev {
			return invalid("target %q: response_time_buckets must be strictly increasing", name)
		}
		prev = b
	}
	return nil
}

func joinHostPort(ip string, port int) string {
	return fmt.Sprintf("%s:%d", ip, port)
}
