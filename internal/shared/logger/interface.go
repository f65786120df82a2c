package logger

import (
	"log/slog"
	"os"
)

// Interface is the logging facade injected into repositories, use cases and
// handlers. Only the keys-and-values form is exposed; free-form formatting
// goes through the package-level helpers.
type Interface interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatalw(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Interface
}

type slogAdapter struct {
	logger *slog.Logger
}

// NewLogger returns an Interface backed by the process-wide slog logger.
// Safe to call before Init; the underlying logger is built lazily.
func NewLogger() Interface {
	return &slogAdapter{logger: Get()}
}

func (l *slogAdapter) Debugw(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *slogAdapter) Infow(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *slogAdapter) Warnw(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l *slogAdapter) Errorw(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

// Fatalw logs at error level and terminates the process. Reserved for boot
// failures; nothing on a request path calls it.
func (l *slogAdapter) Fatalw(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
	os.Exit(1)
}

func (l *slogAdapter) With(keysAndValues ...interface{}) Interface {
	return &slogAdapter{logger: l.logger.With(keysAndValues...)}
}
