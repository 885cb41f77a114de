package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const programName = "sonar"

var (
	debug bool
	quiet bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   programName,
		Short: "Portable HTTP(S) endpoint monitoring daemon",
		Long:  "sonar probes HTTP(S) endpoints on an interval, records success/failure and latency, writes append-only logs, and exposes a Prometheus metrics endpoint.",
	}

	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose tracing")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Silence non-error logs")

	root.AddCommand(newRunCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newAutocompleteCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeForError(err))
	}
}
