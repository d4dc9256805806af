package tetquery

import (
	"log/slog"
	"sync/atomic"

	"github.com/akmonengine/tetquery/accel"
)

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(slog.DiscardHandler))
}

// SetLogger configures the logger of tetquery and its backends. By default
// nothing is logged. It applies to query structures created afterwards.
//
// Log levels:
//   - [slog.LevelDebug]: build stages, BVH sizes, launches
//   - [slog.LevelInfo]: face graph summary, structure ready
//   - [slog.LevelWarn]: construction diagnostics (degenerate or non-manifold tetrahedra)
//
// Pass nil to restore the silent default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// workersSetter is implemented by backends running on CPU goroutines.
type workersSetter interface {
	SetWorkers(int)
}

func propagateLogger(b accel.Backend, l *slog.Logger) {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

func propagateWorkers(b accel.Backend, n int) {
	if ws, ok := b.(workersSetter); ok {
		ws.SetWorkers(n)
	}
}
