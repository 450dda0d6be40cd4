package webmap

import (
	"context"
	"log/slog"
)

// Logger is the structured logging interface used across wmtools.
//
// Attributes are alternating key-value pairs, following log/slog:
//
//	logger.Info("patched layer", "layer", node.ID, "mode", mode)
//
// Use [NewSlogAdapter] to log through a *slog.Logger. Any other logging library
// can be plugged in with a small adapter implementing these five methods.
type Logger interface {
	Debug(msg string, attrs ...any)
	Info(msg string, attrs ...any)
	Warn(msg string, attrs ...any)
	Error(msg string, attrs ...any)

	// With returns a Logger that prepends attrs to every record.
	With(attrs ...any) Logger
}

// NopLogger discards all output. It is the default when no logger is configured.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(_ string, _ ...any) {}

// Info implements Logger.
func (NopLogger) Info(_ string, _ ...any) {}

// Warn implements Logger.
func (NopLogger) Warn(_ string, _ ...any) {}

// Error implements Logger.
func (NopLogger) Error(_ string, _ ...any) {}

// With implements Logger.
func (n NopLogger) With(_ ...any) Logger { return n }

var _ Logger = NopLogger{}

// SlogAdapter wraps a *slog.Logger to implement the Logger interface.
// Records are emitted with the adapter's context so handlers that read
// trace IDs from the context see the active span.
type SlogAdapter struct {
	logger *slog.Logger
	ctx    context.Context
}

// NewSlogAdapter creates a new SlogAdapter from a *slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger, ctx: context.Background()}
}

// WithContext returns a copy of the adapter that logs with ctx.
func (s *SlogAdapter) WithContext(ctx context.Context) *SlogAdapter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SlogAdapter{logger: s.logger, ctx: ctx}
}

// Debug implements Logger.
func (s *SlogAdapter) Debug(msg string, attrs ...any) {
	s.logger.DebugContext(s.ctx, msg, attrs...)
}

// Info implements Logger.
func (s *SlogAdapter) Info(msg string, attrs ...any) {
	s.logger.InfoContext(s.ctx, msg, attrs...)
}

// Warn implements Logger.
func (s *SlogAdapter) Warn(msg string, attrs ...any) {
	s.logger.WarnContext(s.ctx, msg, attrs...)
}

// Error implements Logger.
func (s *SlogAdapter) Error(msg string, attrs ...any) {
	s.logger.ErrorContext(s.ctx, msg, attrs...)
}

// With implements Logger.
func (s *SlogAdapter) With(attrs ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(attrs...), ctx: s.ctx}
}

var _ Logger = (*SlogAdapter)(nil)

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
