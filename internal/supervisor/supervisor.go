// Package supervisor is the daemon's central state machine: it owns
// the currently-live generation (registry, probe workers, reporters,
// HTTP server), and replaces it wholesale on config reload. Grounded
// on the teacher's models.SafeConfig RWMutex pointer-swap pattern,
// generalized from "swap a config pointer" to "swap a whole running
// generation."
package supervisor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/sonarwatch/sonar/internal/bus"
	"github.com/sonarwatch/sonar/internal/config"
	"github.com/sonarwatch/sonar/internal/dashboard"
	"github.com/sonarwatch/sonar/internal/httpserver"
	"github.com/sonarwatch/sonar/internal/metrics"
	"github.com/sonarwatch/sonar/internal/probe"
	"github.com/sonarwatch/sonar/internal/reporter"
	"github.com/sonarwatch/sonar/internal/telemetry"
)

type state int

const (
	stateIdle state = iota
	stateRunning
	stateReloading
	stateStopping
)

// Supervisor owns the lifecycle of one daemon. Only one generation is
// ever live at a time; ConfigPath names the file it was started with
// and continues to reload from.
type Supervisor struct {
	configPath string
	client     *resty.Client
	telemetry  *telemetry.Manager

	mu            sync.Mutex
	st            state
	current       *generation
	pendingReload bool
}

// New builds a Supervisor that will load its first generation from
// configPath when Start is called.
func New(configPath string) *Supervisor {
	return &Supervisor{
		configPath: configPath,
		client:     probe.NewClient(),
	}
}

// Start loads the initial configuration and brings up the first
// generation. Unlike Reload, a failure here is fatal — there is no
// previous generation to fall back to.
func (s *Supervisor) Start(ctx context.Context) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return fmt.Errorf("initial config load: %w", err)
	}

	s.initTelemetry(ctx, cfg)

	gen, err := s.buildGeneration(cfg)
	if err != nil {
		return fmt.Errorf("starting initial generation: %w", err)
	}

	s.mu.Lock()
	s.current = gen
	s.st = stateRunning
	s.mu.Unlock()

	log.Infof("sonar started with %d target(s)", len(cfg.Targets))
	return nil
}

func (s *Supervisor) initTelemetry(ctx context.Context, cfg *config.Config) {
	if cfg.Telemetry == nil || !cfg.Telemetry.Enabled {
		return
	}

	mgr := telemetry.NewManager(telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ServiceName:    "sonar",
		ServiceVersion: "1.0.0",
	})

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mgr.Initialize(initCtx); err != nil {
		log.Warnf("telemetry initialization failed, continuing without tracing: %v", err)
	}
	s.telemetry = mgr
}

func (s *Supervisor) tracerProvider() trace.TracerProvider {
	if s.telemetry == nil || !s.telemetry.IsEnabled() {
		return nil
	}
	return s.telemetry.TracerProvider()
}

// Reload reads configPath and replaces the live generation with the
// result. Reload calls arriving while one is already in progress are
// coalesced: at most one extra reload runs, using the config current
// at the time it starts.
func (s *Supervisor) Reload(configPath string) error {
	s.mu.Lock()
	if s.st == stateReloading {
		s.pendingReload = true
		s.mu.Unlock()
		return nil
	}
	s.st = stateReloading
	s.mu.Unlock()

	var lastErr error
	for {
		lastErr = s.doReload(configPath)

		s.mu.Lock()
		if s.pendingReload {
			s.pendingReload = false
			s.mu.Unlock()
			continue
		}
		if s.current == nil {
			s.st = stateIdle
		} else {
			s.st = stateRunning
		}
		s.mu.Unlock()
		return lastErr
	}
}

func (s *Supervisor) doReload(configPath string) error {
	tracer := telemetry.NewTracerWrapper(s.tracerProvider(), "sonar/supervisor")
	_, span := tracer.StartSpan(context.Background(), "supervisor.reload", trace.SpanKindInternal)
	defer span.End()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Errorf("config reload failed, keeping previous generation live: %v", err)
		return err
	}

	s.mu.Lock()
	old := s.current
	s.mu.Unlock()

	if old != nil && sameServerAddress(old.cfg, cfg) {
		// Shut down first to avoid double-binding the same address.
		old.close()
		newGen, err := s.buildGeneration(cfg)
		if err != nil {
			log.Errorf("reload failed after shutting down previous generation, now idle: %v", err)
			s.mu.Lock()
			s.current = nil
			s.mu.Unlock()
			return err
		}
		s.mu.Lock()
		s.current = newGen
		s.mu.Unlock()
		return nil
	}

	// Server address changed (or no previous generation): start the
	// new one fully before tearing down the old, so there is no gap
	// where neither is serving.
	newGen, err := s.buildGeneration(cfg)
	if err != nil {
		log.Errorf("reload failed, keeping previous generation live: %v", err)
		return err
	}
	if old != nil {
		old.close()
	}
	s.mu.Lock()
	s.current = newGen
	s.mu.Unlock()
	return nil
}

func sameServerAddress(a, b *config.Config) bool {
	if (a.Server == nil) != (b.Server == nil) {
		return false
	}
	if a.Server == nil {
		return true
	}
	return a.Server.Address() == b.Server.Address()
}

// Stop tears down the live generation, if any, and returns once
// everything has drained.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.st = stateStopping
	gen := s.current
	s.current = nil
	s.mu.Unlock()

	if gen != nil {
		gen.close()
	}

	if s.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.telemetry.Shutdown(ctx); err != nil {
			log.Warnf("telemetry shutdown: %v", err)
		}
	}

	s.mu.Lock()
	s.st = stateIdle
	s.mu.Unlock()
}

// buildGeneration constructs a complete new generation for cfg: a
// dashboard emission, a metrics registry, one bus/worker/reporter set
// per target, and an HTTP server if configured. On any failure the
// partially built generation is torn down and the error returned — the
// caller is responsible for deciding what (if anything) stays live.
func (s *Supervisor) buildGeneration(cfg *config.Config) (gen *generation, err error) {
	if cfg.Dashboard != nil {
		if raw, genErr := dashboard.Generate(cfg); genErr != nil {
			log.Errorf("dashboard generation failed (non-fatal): %v", genErr)
		} else if writeErr := os.WriteFile(cfg.Dashboard.OutputPath, raw, 0o644); writeErr != nil {
			log.Errorf("writing dashboard to %s failed (non-fatal): %v", cfg.Dashboard.OutputPath, writeErr)
		}
	}

	registry, err := metrics.New(cfg.Targets)
	if err != nil {
		return nil, fmt.Errorf("building metrics registry: %w", err)
	}

	probeCtx, probeCancel := context.WithCancel(context.Background())
	g := &generation{cfg: cfg, registry: registry, probeCancel: probeCancel}

	defer func() {
		if err != nil {
			g.close()
		}
	}()

	for _, t := range cfg.Targets {
		b := bus.New[probe.Outcome](busCapacity)
		g.buses = append(g.buses, b)

		metricsSub := b.Subscribe()
		go runMetricsConsumer(registry, metricsSub)

		if t.Log != nil {
			reporterSub := b.Subscribe()
			fr, ferr := reporter.NewFile(t.Log.File, t.Log.ReportOn, t.Name, t.URL, reporterSub)
			if ferr != nil {
				return nil, fmt.Errorf("starting reporter for target %s: %w", t.Name, ferr)
			}
			g.reporters = append(g.reporters, fr)
			go fr.Run(context.Background())
		}

		requester := s.requesterFor(t)
		worker := probe.NewWorker(t, requester, b)
		go worker.Run(probeCtx)
	}

	if cfg.Server != nil {
		srv := httpserver.New(cfg.Server.Address(), cfg.Server.HealthEndpoint, cfg.Server.MetricsEndpoint, registry.Gatherer())
		if startErr := srv.Start(); startErr != nil {
			return nil, fmt.Errorf("starting http server: %w", startErr)
		}
		g.server = srv
	}

	return g, nil
}

func (s *Supervisor) requesterFor(t config.Target) probe.Requester {
	base := probe.Requester(&probe.RestyRequester{Client: s.client})
	if t.Telemetry == nil || !t.Telemetry.Enabled {
		return base
	}
	tp := s.tracerProvider()
	if tp == nil {
		return base
	}
	return &probe.TracingRequester{
		Next:       base,
		Tracer:     telemetry.NewTracerWrapper(tp, "sonar/probe"),
		TargetName: t.Name,
	}
}

// runMetricsConsumer drains a bus subscription into the registry until
// the bus closes. It deliberately uses context.Background() rather
// than the probe cancellation context: cancelling probes should not
// cut metrics off early, only closing the bus (step 3 of shutdown)
// should.
func runMetricsConsumer(registry *metrics.Registry, sub *bus.Subscription[probe.Outcome]) {
	ctx := context.Background()
	for {
		outcome, err := sub.Receive(ctx)
		if err != nil {
			var lagged *bus.Lagged
			if ok := asLagged(err, &lagged); ok {
				log.Warnf("metrics consumer lagged, dropped %d outcomes", lagged.N)
				continue
			}
			return
		}
		registry.Record(outcome)
	}
}

func asLagged(err error, target **bus.Lagged) bool {
	l, ok := err.(*bus.Lagged)
	if !ok {
		return false
	}
	*target = l
	return true
}
