package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	WithRequestID(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-1", logs.All()[0].ContextMap()["request_id"])
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}

func TestCronLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cronLogger := NewCronLogger(zap.New(core))

	cronLogger.Info("skip", "reason", "running")
	cronLogger.Error(errors.New("boom"), "job panicked")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
	assert.Equal(t, "boom", logs.All()[1].ContextMap()["error"])
}

func TestNew_FallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "nonsense", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
