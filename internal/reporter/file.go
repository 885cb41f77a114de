// Package reporter appends probe outcomes to per-target log files,
// the way the original sonar's FileReporter drained an mpsc channel to
// a file — generalized here to subscribe to a bus.Subscription and
// filter by report_on polarity.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sonarwatch/sonar/internal/bus"
	"github.com/sonarwatch/sonar/internal/config"
	"github.com/sonarwatch/sonar/internal/probe"
)

// File appends one line per matching outcome to a target's log file.
// A write error terminates this reporter only; it does not affect the
// rest of the generation.
type File struct {
	targetName string
	targetURL  string
	reportOn   config.ReportOn
	file       *os.File
	sub        *bus.Subscription[probe.Outcome]

	mu     sync.Mutex
	closed bool
}

// NewFile opens (creating any missing parent directory) path in
// append+create mode and subscribes to outcomes for the given target.
// targetURL is the value written into each log line; targetName is
// used only for diagnostics.
func NewFile(path string, reportOn config.ReportOn, targetName, targetURL string, sub *bus.Subscription[probe.Outcome]) (*File, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	return &File{
		targetName: targetName,
		targetURL:  targetURL,
		reportOn:   reportOn,
		file:       f,
		sub:        sub,
	}, nil
}

// Run drains outcomes until ctx is done or the bus closes. It is meant
// to be run in its own goroutine; call Close afterward to release the
// underlying file handle.
func (r *File) Run(ctx context.Context) {
	for {
		outcome, err := r.sub.Receive(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			var lagged *bus.Lagged
			if errors.As(err, &lagged) {
				log.Warnf("reporter for target %s: lagged, dropped %d outcomes", r.targetName, lagged.N)
				continue
			}
			return
		}

		if !r.wants(outcome) {
			continue
		}

		if err := r.write(outcome); err != nil {
			log.Errorf("reporter for target %s: write failed, stopping: %v", r.targetName, err)
			return
		}
	}
}

func (r *File) wants(o probe.Outcome) bool {
	switch r.reportOn {
	case config.ReportOnSuccess:
		return o.Success
	case config.ReportOnFailure:
		return !o.Success
	case config.ReportOnBoth:
		return true
	default:
		return false
	}
}

func (r *File) write(o probe.Outcome) error {
	var line string
	if o.Success {
		line = fmt.Sprintf("%d %dms %d %s\n", o.Timestamp.Unix(), o.LatencyMS, o.StatusCode, r.targetURL)
	} else {
		line = fmt.Sprintf("%d Failed %s %dms %s\n", o.Timestamp.Unix(), r.targetURL, o.LatencyMS, strings.TrimSpace(o.Reason))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	_, err := r.file.WriteString(line)
	return err
}

// Close releases the underlying file handle. Safe to call more than once.
func (r *File) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
