package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"panic": zapcore.PanicLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestSetup verifies that known level names are applied and unknown ones rejected.
func TestSetup(t *testing.T) {
	previous := Level()
	t.Cleanup(func() { SetLevel(previous) })

	require.NoError(t, Setup(""))
	require.Equal(t, previous, Level())

	require.NoError(t, Setup("debug"))
	require.Equal(t, zapcore.DebugLevel, Level())

	err := Setup("verbose")
	require.ErrorIs(t, err, ErrUnknownLevel)
}

// TestContextHelpers ensures the logger travels with the context and falls back to the global one.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))

	named := New(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), named)
	require.Same(t, named, FromContext(ctx))

	ctx = WithKV(WithName(ctx, "bridge"), "port", "/dev/ttyACM0")
	require.NotSame(t, named, FromContext(ctx))

	require.Equal(t, ctx, WithFields(ctx))
}

// TestWithMinLevel verifies a context-scoped level filters entries independently of the global level.
func TestWithMinLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithMinLevel(ctx, zapcore.ErrorLevel)

	WarnKV(ctx, "Dropping malformed line", "line", "{")
	ErrorKV(ctx, "Device read failed", "error", "EOF")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "Device read failed", logs.All()[0].Message)
}
