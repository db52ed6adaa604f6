// Package vmlog is the structured logging setup: cmd/vipl configures it
// and internal/vm logs through it. It replaces the teacher's ad hoc
// fmt.Println debug traces with leveled, structured logging via zerolog.
// The only line logged today is internal/vm's debug-level record of each
// native registration; instructions, stack snapshots, and checker
// verdicts are not logged.
package vmlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

var global = zerolog.New(io.Discard).With().Timestamp().Logger()

// Configure sets the process-wide logger. debug lowers the level to
// Debug, enabling the debug-level lines; cmd/vipl calls this once at
// startup with FromEnv (the VIPL_LOG=debug environment variable).
func Configure(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	global = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// Logger returns the shared logger. Packages that need a *component*
// subfield (e.g. "vm", "checker") should use Component instead.
func Logger() zerolog.Logger { return global }

// Component returns a logger tagged with the given subsystem name, so
// log lines from the VM, the checker, and the CLI are distinguishable
// when interleaved.
func Component(name string) zerolog.Logger {
	return global.With().Str("component", name).Logger()
}

// FromEnv reports whether VIPL_LOG=debug is set, for callers that want
// to Configure without parsing a flag themselves.
func FromEnv() bool {
	return os.Getenv("VIPL_LOG") == "debug"
}
