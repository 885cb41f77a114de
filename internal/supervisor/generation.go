package supervisor

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/sonarwatch/sonar/internal/bus"
	"github.com/sonarwatch/sonar/internal/config"
	"github.com/sonarwatch/sonar/internal/httpserver"
	"github.com/sonarwatch/sonar/internal/metrics"
	"github.com/sonarwatch/sonar/internal/probe"
	"github.com/sonarwatch/sonar/internal/reporter"
)

// busCapacity bounds how many undelivered outcomes a slow subscriber
// (a reporter stuck on a full disk, say) can accumulate before the
// oldest is overwritten. Small on purpose: loss is preferable to
// unbounded memory growth, per spec.md §4.4.
const busCapacity = 64

// generation is one complete, self-consistent set of live components
// for a config: a registry, a bus/worker/reporter triple per target,
// and an optional HTTP server. The supervisor holds at most one
// generation live at a time; reload builds a new one and tears down
// the old.
type generation struct {
	cfg      *config.Config
	registry *metrics.Registry
	server   *httpserver.Server

	probeCancel context.CancelFunc
	buses       []*bus.Bus[probe.Outcome]
	reporters   []*reporter.File
}

func (g *generation) close() {
	if g.server != nil {
		if err := g.server.Stop(); err != nil {
			log.Warnf("stopping http server: %v", err)
		}
	}

	g.probeCancel()

	for _, b := range g.buses {
		b.Close()
	}
	for _, r := range g.reporters {
		if err := r.Close(); err != nil {
			log.Warnf("closing reporter: %v", err)
		}
	}
}
