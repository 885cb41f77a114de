package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarwatch/sonar/internal/bus"
	"github.com/sonarwatch/sonar/internal/config"
)

func newTestTarget(url string, interval, timeout time.Duration, maxConcurrent int) config.Target {
	return config.Target{
		Name:          "t",
		URL:           url,
		Interval:      config.Duration(interval),
		Timeout:       config.Duration(timeout),
		MaxConcurrent: maxConcurrent,
	}
}

func TestWorkerPublishesSuccessOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b := bus.New[Outcome](4)
	sub := b.Subscribe()

	target := newTestTarget(server.URL, 10*time.Millisecond, time.Second, 1)
	worker := NewWorker(target, &RestyRequester{Client: NewClient()}, b)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
	defer rcancel()
	outcome, err := sub.Receive(rctx)
	require.NoError(t, err)

	cancel()

	assert.True(t, outcome.Success)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	assert.Equal(t, "t", outcome.TargetRef)
	assert.GreaterOrEqual(t, outcome.LatencyMS, int64(0))
}

func TestWorkerPublishesFailureOnTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.WriteHeader(http.StatusOK)
	}))
	defer func() {
		close(block)
		server.Close()
	}()

	b := bus.New[Outcome](4)
	sub := b.Subscribe()

	target := newTestTarget(server.URL, 10*time.Millisecond, 20*time.Millisecond, 1)
	worker := NewWorker(target, &RestyRequester{Client: NewClient()}, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rcancel()
	outcome, err := sub.Receive(rctx)
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.NotEmpty(t, outcome.Reason)
	assert.Equal(t, "t", outcome.TargetRef)
}

func TestWorkerOverflowPolicySkipsTicksUntilSlotFrees(t *testing.T) {
	var requestCount int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b := bus.New[Outcome](4)
	_ = b.Subscribe()

	target := newTestTarget(server.URL, 15*time.Millisecond, time.Second, 1)
	worker := NewWorker(target, &RestyRequester{Client: NewClient()}, b)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	// Several ticks elapse while the one in-flight request is blocked;
	// max_concurrent=1 means only the first tick should have spawned.
	time.Sleep(90 * time.Millisecond)
	cancel()
	close(release)

	assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
}

func TestWorkerStopsTickingAfterCancelButOutstandingRequestStillCompletes(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b := bus.New[Outcome](4)
	sub := b.Subscribe()

	target := newTestTarget(server.URL, 10*time.Millisecond, time.Second, 1)
	worker := NewWorker(target, &RestyRequester{Client: NewClient()}, b)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	// Let exactly one tick fire and spawn its request, then cancel
	// before it completes.
	time.Sleep(15 * time.Millisecond)
	cancel()
	close(block)

	rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
	defer rcancel()
	outcome, err := sub.Receive(rctx)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}
