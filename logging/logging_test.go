package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewWriterLogger(&out, &errOut, false)

	logger.Debug("hidden")
	logger.Info("decoded", Fields{"recording": "song", "frames": 120})
	logger.Error(errors.New("boom"), "failed")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[INFO] decoded frames=120 recording=song")
	assert.Contains(t, errOut.String(), "[ERROR] failed: boom")
	assert.NotContains(t, errOut.String(), ColorRed)

	logger.SetLevel(DebugLevel)
	logger.Debug("visible")
	assert.Contains(t, out.String(), "[DEBUG] visible")
}

func TestDefaultLoggerFields(t *testing.T) {
	var out bytes.Buffer
	base := NewWriterLogger(&out, &out, false)

	logger := base.WithFields(Fields{"component": "window_sampler"})
	ctx := ContextWithFields(context.Background(), Fields{"request_id": "abc"})
	logger.WithContext(ctx).Info("sampled", Fields{"start": 3})

	assert.Contains(t, out.String(), "component=window_sampler request_id=abc start=3")

	out.Reset()
	base.Info("plain")
	assert.NotContains(t, out.String(), "component")
}

func TestContextWithFieldsMerges(t *testing.T) {
	ctx := ContextWithFields(context.Background(), Fields{"a": 1, "b": 2})
	ctx = ContextWithFields(ctx, Fields{"b": 3})

	fields, ok := FieldsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, Fields{"a": 1, "b": 3}, fields)

	_, ok = FieldsFromContext(context.Background())
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, level)

	level, err = ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLoggerFromCore(core)

	logger.Debug("hidden")
	logger.WithFields(Fields{"component": "frame_scorer"}).Info("scored", Fields{"accuracy": 0.75})
	logger.Error(errors.New("boom"), "failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "scored", entries[0].Message)
	assert.Equal(t, "frame_scorer", entries[0].ContextMap()["component"])
	assert.Equal(t, 0.75, entries[0].ContextMap()["accuracy"])
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])

	logger.SetLevel(DebugLevel)
	logger.Debug("visible")
	assert.Equal(t, 3, logs.Len())
}

func TestGlobalLogger(t *testing.T) {
	previous := GetGlobalLogger()
	defer SetGlobalLogger(previous)

	var out bytes.Buffer
	SetGlobalLogger(NewWriterLogger(&out, &out, false))
	WithFields(Fields{"component": "test"}).Info("hello")
	assert.Contains(t, out.String(), "hello component=test")

	SetGlobalLogger(nil)
	assert.IsType(t, &NoOpLogger{}, GetGlobalLogger())
}
