// Package sonarlog provides centralized logging for the daemon using
// logrus. It configures structured JSON logging to stdout and,
// optionally, to a log file, and exposes the -d/--debug and -q/--quiet
// verbosity levels the CLI accepts.
package sonarlog

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Configure sets the global logrus level and formatter. verbose raises
// the level to Debug; quiet lowers it to Error. Both set, verbose wins.
func Configure(verbose, quiet bool) {
	log.SetFormatter(&log.JSONFormatter{})
	switch {
	case verbose:
		log.SetLevel(log.DebugLevel)
	case quiet:
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// TeeToFile additionally writes every log entry to the file at path,
// creating it if necessary, alongside logrus's existing output.
func TeeToFile(path string) error {
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	return nil
}
