// Package obslog wraps zap for the structured logging every component
// uses for operational events (retries, parse failures, batch summaries).
package obslog

import (
	"go.uber.org/zap"
)

type Logger struct {
	z *zap.SugaredLogger
}

// New builds a Logger at the given level ("debug", "info", "warn",
// "error"); unrecognized levels fall back to info.
func New(level string) *Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{z: z.Sugar()}
}

// Noop returns a Logger that discards everything, for tests.
func Noop() *Logger {
	return &Logger{z: zap.NewNop().Sugar()}
}

func (l *Logger) Infow(msg string, kv ...interface{})  { l.z.Infow(msg, kv...) }
func (l *Logger) Warnw(msg string, kv ...interface{})  { l.z.Warnw(msg, kv...) }
func (l *Logger) Errorw(msg string, kv ...interface{}) { l.z.Errorw(msg, kv...) }
func (l *Logger) Debugw(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }

func (l *Logger) Sync() error { return l.z.Sync() }
