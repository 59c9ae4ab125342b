package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// levelOverrideCore filters entries by its own level instead of the wrapped core's.
type levelOverrideCore struct {
	zapcore.Core

	// level replaces the wrapped core's level check.
	level zapcore.Level
}

// Enabled reports whether l passes the override level.
func (c *levelOverrideCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

// Check registers the core for ent when its level passes.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *levelOverrideCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

// With keeps the override on child cores.
//
//nolint:ireturn,nolintlint // Returning zapcore.Core is intended for zap integration.
func (c *levelOverrideCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelOverrideCore{
		Core:  c.Core.With(fields),
		level: c.level,
	}
}

// WithLevel makes a derived logger filter by lvl, ignoring the global atomic level.
// The bridge uses it for pipeline_log_level.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &levelOverrideCore{Core: core, level: lvl}
	})
}
