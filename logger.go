package diskmask

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for diskmask and its sub-packages.
// By default no log output is produced. Pass nil to restore the default
// silent behavior.
//
// Log levels used:
//   - [slog.LevelDebug]: dispatch internals (tile counts, buffer sizes)
//   - [slog.LevelInfo]: lifecycle events (GPU adapter selected)
//   - [slog.LevelWarn]: non-fatal issues (CPU fallback, release errors)
//
// SetLogger is safe for concurrent use: it stores the new logger atomically
// and propagates it to the registered classifier when that classifier
// accepts one.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	classifierMu.RLock()
	c := classifier
	classifierMu.RUnlock()
	if c != nil {
		propagateLogger(c, l)
	}
}

// Logger returns the current logger. Sub-packages (gpu/, internal/gpu)
// call this to share the same logger configuration without introducing
// import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by classifiers that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a classifier if it implements
// loggerSetter.
func propagateLogger(c Classifier, l *slog.Logger) {
	if ls, ok := c.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
