// Package telemetry provides optional OpenTelemetry tracing for the
// daemon's probe requests and supervisor reload cycles.
//
// # Key Components
//
// Manager: Handles OpenTelemetry initialization, lifecycle management, and shutdown.
// The Manager centralizes TracerProvider configuration and ensures proper resource cleanup.
//
// # Usage Example
//
// Initializing telemetry:
//
//	cfg := telemetry.Config{
//	    Enabled:        true,
//	    Endpoint:       "localhost:4317",
//	    Insecure:       true,
//	    SamplingRate:   1.0,
//	    ServiceName:    "sonar",
//	    ServiceVersion: "1.0.0",
//	}
//	manager := telemetry.NewManager(cfg)
//	if err := manager.Initialize(ctx); err != nil {
//	    log.Fatalf("Failed to initialize telemetry: %v", err)
//	}
//	defer manager.Shutdown(ctx)
//
// # Design Patterns
//
// Graceful Degradation: if OpenTelemetry initialization fails, the manager
// disables tracing and lets the daemon continue running without it — a
// collector outage must never stop probes from running.
package telemetry
