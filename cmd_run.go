package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sonarwatch/sonar/internal/config"
	"github.com/sonarwatch/sonar/internal/sonarlog"
	"github.com/sonarwatch/sonar/internal/supervisor"
)

// exitError pairs an error with the process exit code it should
// produce, per spec.md §7's error-kind-to-exit-code table.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCodeForError(err error) int {
	var ee *exitError
	if e, ok := err.(*exitError); ok {
		ee = e
	}
	if ee != nil {
		return ee.code
	}
	return 1
}

func newRunCmd() *cobra.Command {
	var configPath string
	var threads int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the supervisor and probe configured targets until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			sonarlog.Configure(debug, quiet)

			if threads > 0 {
				runtime.GOMAXPROCS(threads)
				log.Infof("worker pool capped at %d threads", threads)
			}

			sup := supervisor.New(configPath)
			ctx := context.Background()
			if err := sup.Start(ctx); err != nil {
				log.Errorf("fatal startup error: %v", err)
				return &exitError{code: 1, err: err}
			}

			watcher, err := config.WatchConfigFile(configPath, func(path string) error {
				return sup.Reload(path)
			})
			if err != nil {
				log.Errorf("config watcher setup failed: %v", err)
				sup.Stop()
				return &exitError{code: 3, err: err}
			}
			defer watcher.Close()

			if waitForSignalOrLostWatcher(watcher) {
				log.Error("config watcher lost and re-arm failed, stopping")
				sup.Stop()
				return &exitError{code: 3, err: errWatcherLost}
			}

			log.Info("shutdown signal received, stopping")
			sup.Stop()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./sonar.yaml", "Path to configuration file")
	cmd.Flags().IntVar(&threads, "threads", 0, "Cap the worker pool size (0 = unbounded)")

	return cmd
}

var errWatcherLost = errors.New("config watcher lost after re-arm attempt")

// waitForSignalOrLostWatcher blocks until either a termination signal
// arrives or the config watcher reports itself unrecoverably lost. It
// reports true in the latter case, per spec.md §7's WatcherLost row.
func waitForSignalOrLostWatcher(watcher *config.Watcher) bool {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		return false
	case <-watcher.Lost():
		return true
	}
}
