package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/lib/pq"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
	exitUndelivered   = 3
	exitIncomplete    = 4
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizrelay",
		Short: "Collect questionnaire answers and deliver them through a fallback waterfall",
		Long: `quizrelay collects the answers to a questionnaire and delivers them to a
form-processing endpoint, trying four transports in turn (fetch, xhr,
iframe, jsonp) until one gets through.

Environment Variables:
  QUIZ_ENDPOINT_URL         Form-processing endpoint (required)
  QUESTIONNAIRE_FILE        YAML questionnaire definition (default: built-in)
  FETCH_TIMEOUT             Direct request timeout (default: "15s")
  XHR_TIMEOUT               Legacy request timeout (default: "15s")
  IFRAME_TIMEOUT            Hidden frame timeout (default: "20s")
  JSONP_TIMEOUT             Script callback timeout (default: "15s")
  RETRY_DELAY               Pause between failed transports (default: "1s")
  STRICT_FRAME_LOAD         Frame delivery needs a 2xx response (default: "true")
  TIMESTAMP_TIMEZONE        Zone of the submission timestamp (default: "Asia/Bangkok")
  DEBUG                     Verbose debug logging (default: "false")

  HTTP_ADDR                 API server address (default: ":8080")
  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")
  SUBMIT_RATE_LIMIT         API submissions per second, 0 disables (default: "5")
  SUBMIT_RATE_BURST         API submission burst (default: "10")

  DATABASE_URL              PostgreSQL submission archive (optional)
  REDIS_ADDR                Redis address for analytics (optional)
  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  PROBE_ENABLED             Periodic connectivity probe (default: "false")
  RETRY_ENABLED             Redeliver archived failures (default: "false")
  CIRCUIT_BREAKER_THRESHOLD Consecutive failures before a transport is skipped, 0 disables (default: "0")`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTakeCmd(),
		newSubmitCmd(),
		newServeCmd(),
		newProbeCmd(),
		newValidateCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return exitSuccess
	}

	fmt.Fprintln(os.Stderr, err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitRuntimeError
}
