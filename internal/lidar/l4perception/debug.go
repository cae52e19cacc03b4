package l4perception

import (
	"io"
	"log"
	"sync"
)

var (
	logMu       sync.RWMutex
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the diag and trace streams for the perception
// package. Pass nil for any writer to disable that stream.
func SetLogWriters(diag, trace io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	diagLogger = newLogger("[perception] ", diag)
	traceLogger = newLogger("[perception] ", trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// diagf logs to the diag stream (tuning context).
func diagf(format string, args ...interface{}) {
	logMu.RLock()
	l := diagLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// tracef logs to the trace stream (per-frame stage telemetry).
func tracef(format string, args ...interface{}) {
	logMu.RLock()
	l := traceLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}
