package httpserver

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGatherer(t *testing.T) prometheus.Gatherer {
	t.Helper()
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_success_total"})
	counter.Inc()
	require.NoError(t, reg.Register(counter))
	return reg
}

func TestServerHealthEndpointReturns200(t *testing.T) {
	s := New("127.0.0.1:18181", "/health", "/metrics", newTestGatherer(t))
	require.NoError(t, s.Start())
	defer s.Stop()
	time.Sleep(20 * time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:18181/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerMetricsEndpointReturnsExposition(t *testing.T) {
	s := New("127.0.0.1:18182", "/health", "/metrics", newTestGatherer(t))
	require.NoError(t, s.Start())
	defer s.Stop()
	time.Sleep(20 * time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:18182/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "probe_success_total")
}

func TestServerUnknownPathReturns404(t *testing.T) {
	s := New("127.0.0.1:18183", "/health", "/metrics", newTestGatherer(t))
	require.NoError(t, s.Start())
	defer s.Stop()
	time.Sleep(20 * time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:18183/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerStartReturnsErrorOnBindFailure(t *testing.T) {
	blocker := New("127.0.0.1:18184", "/health", "/metrics", newTestGatherer(t))
	require.NoError(t, blocker.Start())
	defer blocker.Stop()
	time.Sleep(20 * time.Millisecond)

	dup := New("127.0.0.1:18184", "/health", "/metrics", newTestGatherer(t))
	err := dup.Start()
	assert.Error(t, err)
}

func TestServerStopDrainsAndStopsAcceptingNewConnections(t *testing.T) {
	s := New("127.0.0.1:18185", "/health", "/metrics", newTestGatherer(t))
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())

	_, err := http.Get("http://127.0.0.1:18185/health")
	assert.Error(t, err)
}
