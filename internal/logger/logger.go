// Package logger prints the ask pipeline's diagnostic trace. The CLI is
// silent by default; --verbose turns on a stage-by-stage account of
// retrieval, filtering and generation on stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose toggles the diagnostic trace.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether the trace is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects the trace. Defaults to os.Stderr; tests point it
// at a buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Section marks the start of a pipeline stage in the trace.
func Section(name string) {
	write("\n=== %s ===\n", name)
}

// Debug prints fine-grained detail, per-passage decisions and the like.
func Debug(format string, args ...any) {
	write("[DEBUG] "+format+"\n", args...)
}

// Info prints stage-level progress.
func Info(format string, args ...any) {
	write("[INFO] "+format+"\n", args...)
}

// Warn prints degradations the pipeline survived, fallbacks and skipped
// rules.
func Warn(format string, args ...any) {
	write("[WARN] "+format+"\n", args...)
}

// write emits one trace line when verbose is on. It takes the exclusive
// lock so concurrent pipeline stages never interleave within a line.
func write(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}
	fmt.Fprintf(output, format, args...)
}
