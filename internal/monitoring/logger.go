// Package monitoring provides the diagnostic log streams shared by the frame
// pipeline, the batch driver and the HTTP API.
//
// Three streams exist:
//   - ops: actionable warnings and errors (skipped frames, discontinuities)
//   - diag: day-to-day diagnostics (per-frame counts, tuning context)
//   - trace: high-frequency detail (per-cluster output)
//
// All streams are disabled until SetLogWriters is called.
package monitoring

import (
	"io"
	"log"
	"sync/atomic"
)

const logPrefix = "[lidar-frames] "

var (
	opsLogger   atomic.Pointer[log.Logger]
	diagLogger  atomic.Pointer[log.Logger]
	traceLogger atomic.Pointer[log.Logger]
)

// SetLogWriters configures the three logging streams.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger.Store(newLogger(ops))
	diagLogger.Store(newLogger(diag))
	traceLogger.Store(newLogger(trace))
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, logPrefix, log.LstdFlags|log.Lmicroseconds)
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) {
	if l := opsLogger.Load(); l != nil {
		l.Printf(format, args...)
	}
}

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) {
	if l := diagLogger.Load(); l != nil {
		l.Printf(format, args...)
	}
}

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) {
	if l := traceLogger.Load(); l != nil {
		l.Printf(format, args...)
	}
}

// DO NOT add Debugf. Each callsite picks Opsf, Diagf or Tracef.
