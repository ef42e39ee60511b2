// Command recorder is a development CLI for the recording engine: it
// drives a fake document through the facade for local smoke-testing,
// checks a captured event stream's structural invariants, and uploads
// a finished recording to the example S3 archive.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "recorder",
		Short: "Drive and inspect domreplay recordings from the command line",
		Long: `recorder is a development CLI around the recording engine.

It exists to smoke-test pkg/record without a browser: "run" drives a
synthetic document through the facade and prints the resulting event
stream, "replay-check" validates a captured stream's structural
invariants, "archive" uploads a finished recording to S3, and "serve"
hosts pkg/transport's HTTP/websocket session server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		replayCheckCmd(),
		archiveCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func success(format string, args ...any) { fmt.Printf("✓ %s\n", fmt.Sprintf(format, args...)) }
func info(format string, args ...any)    { fmt.Printf("  %s\n", fmt.Sprintf(format, args...)) }
