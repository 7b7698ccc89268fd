package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. Timestamps read "15:04:05.00".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// scriptLogger prefixes everything logged during a render with the script
// name, so log() output from several scripts stays distinguishable.
func scriptLogger(l *log.Logger, name string) *log.Logger {
	return l.WithPrefix(name)
}

// stopwatch logs a message with the time elapsed since it was started.
type stopwatch struct {
	logger *log.Logger
	start  time.Time
}

func startStopwatch(l *log.Logger) *stopwatch {
	return &stopwatch{logger: l, start: time.Now()}
}

// done logs e.g. "Checked 3 script(s) (12ms)".
func (s *stopwatch) done(format string, args ...any) {
	s.logger.Info(fmt.Sprintf(format, args...) + " (" + time.Since(s.start).Round(time.Millisecond).String() + ")")
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
