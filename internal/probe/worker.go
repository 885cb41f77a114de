package probe

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/sonarwatch/sonar/internal/bus"
	"github.com/sonarwatch/sonar/internal/config"
)

// Requester abstracts the single HTTP round trip a Worker performs,
// letting tests substitute a fake without a real listener.
type Requester interface {
	Get(ctx context.Context, url string) (statusCode int, err error)
}

// RestyRequester adapts the shared *resty.Client to Requester.
type RestyRequester struct {
	Client *resty.Client
}

// Get issues a plain HTTP GET. Any transport-level failure (connection
// refused, DNS, TLS handshake, context deadline) is returned as err;
// any response at all, including 4xx/5xx, is a successful round trip
// as far as the worker is concerned — the status code itself is the
// signal, not a pass/fail verdict.
func (r *RestyRequester) Get(ctx context.Context, url string) (int, error) {
	resp, err := r.Client.R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

// Worker drives one target's probe loop: a ticker firing every
// interval, spawning an independent request each tick unless
// max_concurrent in-flight requests are already outstanding.
type Worker struct {
	target   config.Target
	client   Requester
	outcomes *bus.Bus[Outcome]

	inFlight       atomic.Int32
	warnedOverflow bool
}

// NewWorker builds a Worker for target, publishing outcomes onto bus
// and issuing requests through client.
func NewWorker(target config.Target, client Requester, outcomes *bus.Bus[Outcome]) *Worker {
	return &Worker{
		target:   target,
		client:   client,
		outcomes: outcomes,
	}
}

// Run ticks at the target's interval until ctx is cancelled. It never
// returns early on request failure; individual probe errors only ever
// produce a Failure outcome.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.target.Interval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if int(w.inFlight.Load()) >= w.target.MaxConcurrent {
		if !w.warnedOverflow {
			log.Warnf("target %s: max_concurrent=%d reached, skipping tick until a slot frees up",
				w.target.Name, w.target.MaxConcurrent)
			w.warnedOverflow = true
		}
		return
	}
	w.warnedOverflow = false

	w.inFlight.Add(1)
	go w.probeOnce()
}

// probeOnce issues one request and publishes its Outcome. It
// deliberately derives its timeout from context.Background(), not the
// worker's cancellation context: stopping the worker stops future
// ticks, but in-flight requests are left to run out their own
// per-request timeout rather than being aborted mid-flight.
func (w *Worker) probeOnce() {
	defer w.inFlight.Add(-1)

	reqCtx, cancel := context.WithTimeout(context.Background(), w.target.Timeout.Duration())
	defer cancel()

	start := time.Now()
	statusCode, err := w.client.Get(reqCtx, w.target.URL)
	latencyMS := time.Since(start).Milliseconds()

	if err != nil {
		w.outcomes.Publish(Outcome{
			TargetRef: w.target.Name,
			Timestamp: time.Now(),
			LatencyMS: latencyMS,
			Success:   false,
			Reason:    err.Error(),
		})
		return
	}

	w.outcomes.Publish(Outcome{
		TargetRef:  w.target.Name,
		Timestamp:  time.Now(),
		LatencyMS:  latencyMS,
		Success:    true,
		StatusCode: statusCode,
	})
}
