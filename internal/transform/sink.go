package transform

import (
	"fmt"
	"log/slog"
)

// Level is the severity of an audit event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// AuditSink receives one event per operation attempt. Implementations must
// not block; the engine ignores anything a sink does, including panics.
type AuditSink interface {
	Record(step, message string, level Level)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Record(string, string, Level) {}

// MultiSink fans events out to several sinks.
type MultiSink []AuditSink

func (m MultiSink) Record(step, message string, level Level) {
	for _, s := range m {
		safeRecord(s, step, message, level)
	}
}

// SinkFunc adapts a function to AuditSink.
type SinkFunc func(step, message string, level Level)

func (f SinkFunc) Record(step, message string, level Level) { f(step, message, level) }

type slogSink struct {
	logger *slog.Logger
}

// NewSlogSink writes events as "[STEP] message" log records.
func NewSlogSink(logger *slog.Logger) AuditSink {
	if logger == nil {
		logger = slog.Default()
	}
	return slogSink{logger: logger}
}

func (s slogSink) Record(step, message string, level Level) {
	msg := fmt.Sprintf("[%s] %s", step, message)
	switch level {
	case LevelError:
		s.logger.Error(msg, "step", step)
	case LevelWarning:
		s.logger.Warn(msg, "step", step)
	default:
		s.logger.Info(msg, "step", step)
	}
}

func safeRecord(s AuditSink, step, message string, level Level) {
	if s == nil {
		return
	}
	defer func() { _ = recover() }()
	s.Record(step, message, level)
}
