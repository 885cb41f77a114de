package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	doc := []byte(`
targets:
  - url: "http://127.0.0.1:8081/"
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, cfg.Targets, 1)

	target := cfg.Targets[0]
	assert.Equal(t, "http_127_0_0_1_8081_", target.Name)
	assert.Equal(t, time.Minute, target.Interval.Duration())
	assert.Equal(t, 5*time.Second, target.Timeout.Duration())
	assert.Equal(t, 1, target.MaxConcurrent)
	assert.Equal(t, RequestStrategyWait, target.RequestStrategy)
	assert.Equal(t, DefaultBuckets, target.Buckets)
}

func TestParseHonorsTargetDefaultsBuckets(t *testing.T) {
	doc := []byte(`
target_defaults:
  buckets: [10, 20, 30]
targets:
  - name: a
    url: "http://a.example/"
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, cfg.Targets[0].Buckets)
}

func TestParseServerDefaults(t *testing.T) {
	doc := []byte(`
server:
  ip: "0.0.0.0"
  port: 9090
targets:
  - name: a
    url: "http://a.example/"
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "/health", cfg.Server.HealthEndpoint)
	assert.Equal(t, "/metrics", cfg.Server.MetricsEndpoint)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("not: valid: yaml: at: all:"))
	require.Error(t, err)
	var invalidErr *InvalidError
	require.ErrorAs(t, err, &invalidErr)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	doc := []byte(`
targets:
  - name: a
    url: "http://a.example/"
    bogus_field: 1
`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParseRejectsEmptyURL(t *testing.T) {
	doc := []byte(`
targets:
  - name: a
    url: ""
`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParseRejectsUnparseableDuration(t *testing.T) {
	doc := []byte(`
targets:
  - name: a
    url: "http://a.example/"
    interval: "not-a-duration"
`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParseRejectsDuplicateNames(t *testing.T) {
	doc := []byte(`
targets:
  - name: a
    url: "http://a.example/"
  - name: a
    url: "http://b.example/"
`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParseRejectsDuplicateDerivedNames(t *testing.T) {
	doc := []byte(`
targets:
  - url: "http://a.example/"
  - url: "http://a.example/"
`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParseRejectsCancelOldest(t *testing.T) {
	doc := []byte(`
targets:
  - name: a
    url: "http://a.example/"
    request_strategy: CancelOldest
`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParseRejectsEmptyTargets(t *testing.T) {
	_, err := Parse([]byte("targets: []"))
	require.Error(t, err)
}

func TestParseRejectsNonIncreasingBuckets(t *testing.T) {
	doc := []byte(`
targets:
  - name: a
    url: "http://a.example/"
    response_time_buckets: [100, 50, 200]
`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParseLogDefaultsReportOnToFailure(t *testing.T) {
	doc := []byte(`
targets:
  - name: a
    url: "http://a.example/"
    log:
      file: "/tmp/a.log"
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)
	require.NotNil(t, cfg.Targets[0].Log)
	assert.Equal(t, ReportOnFailure, cfg.Targets[0].Log.ReportOn)
}

func TestParseTelemetryDefaultsSamplingRateToOne(t *testing.T) {
	doc := []byte(`
telemetry:
  enabled: true
  endpoint: "localhost:4317"
targets:
  - name: a
    url: "http://a.example/"
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)
	require.NotNil(t, cfg.Telemetry)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRate)
}

func TestParseRejectsTelemetryEnabledWithoutEndpoint(t *testing.T) {
	doc := []byte(`
telemetry:
  enabled: true
targets:
  - name: a
    url: "http://a.example/"
`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParseRejectsTelemetrySamplingRateOutOfRange(t *testing.T) {
	doc := []byte(`
telemetry:
  enabled: true
  endpoint: "localhost:4317"
  sampling_rate: 1.5
targets:
  - name: a
    url: "http://a.example/"
`)
	_, err := Parse(doc)
	require.Error(t, err)
}

func TestParseRoundTripsDurations(t *testing.T) {
	doc := []byte(`
targets:
  - name: a
    url: "http://a.example/"
    interval: "250ms"
    timeout: "2s"
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Targets[0].Interval.Duration())
	assert.Equal(t, 2*time.Second, cfg.Targets[0].Timeout.Duration())
}
